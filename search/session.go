// Package search keeps each user's current artist search: the aggregated
// events and the facet selection applied to them.
package search

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"livewave/api/aggregator"
	"livewave/api/filters"
)

// Ticket identifies one aggregation run. Only the newest ticket of a user
// may apply its result.
type Ticket struct {
	userID string
	gen    uint64
}

type session struct {
	gen     uint64
	cancel  context.CancelFunc
	artist  string
	result  aggregator.Result
	filter  filters.State
	updated time.Time
	// touched is the last time the session was used, for idle eviction.
	touched time.Time
	loaded  bool
}

// View is a snapshot of a user's search.
type View struct {
	Artist     string    `json:"artist"`
	Incomplete bool      `json:"incomplete"`
	Reason     string    `json:"reason,omitempty"`
	Total      int       `json:"total"`
	UpdatedAt  time.Time `json:"updatedAt"`
	filters.Facets
}

// ErrSuperseded is returned by Run when a newer search for the same user
// started, or the search was abandoned, before this one finished.
var ErrSuperseded = errors.New("search superseded by a newer request")

// Aggregator runs one artist aggregation.
type Aggregator interface {
	Aggregate(ctx context.Context, artist string) aggregator.Result
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	// seq hands out generations across all users, so a ticket never
	// matches a session recreated after eviction.
	seq uint64
	now func() time.Time
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*session), now: time.Now}
}

func (m *Manager) get(userID string) *session {
	s, ok := m.sessions[userID]
	if !ok {
		s = &session{filter: filters.NewState()}
		m.sessions[userID] = s
	}
	return s
}

// Begin starts a new run for userID. Any run still in flight for the same
// user is cancelled and can no longer apply its result. The returned context
// is derived from parent and is cancelled by a newer Begin or Abandon.
func (m *Manager) Begin(parent context.Context, userID string) (Ticket, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.get(userID)
	if s.cancel != nil {
		s.cancel()
	}
	m.seq++
	s.gen = m.seq
	s.cancel = cancel
	s.touched = m.now()
	return Ticket{userID: userID, gen: s.gen}, ctx
}

// Apply stores res as the user's current search if t is still the newest
// ticket, resetting the facet selection. It reports whether it did.
func (m *Manager) Apply(t Ticket, artist string, res aggregator.Result) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[t.userID]
	if !ok || s.gen != t.gen {
		return View{}, false
	}
	s.artist = artist
	s.result = res
	s.filter = filters.NewState()
	s.updated = m.now()
	s.touched = s.updated
	s.loaded = true
	return s.view(), true
}

// Finish releases the resources of t's run.
func (m *Manager) Finish(t Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[t.userID]
	if !ok || s.gen != t.gen || s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// Abandon cancels the user's in-flight run, if any, and forgets the search.
func (m *Manager) Abandon(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	delete(m.sessions, userID)
}

// EvictIdle drops sessions with no run in flight that have not been used
// for maxIdle. It returns how many were dropped.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxIdle)
	n := 0
	for id, s := range m.sessions {
		if s.cancel == nil && s.touched.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// RunEvictor calls EvictIdle every interval until ctx is done.
func (m *Manager) RunEvictor(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.EvictIdle(maxIdle); n > 0 {
				log.Printf("Evicted %d idle search session(s)", n)
			}
		}
	}
}

// View returns the user's search, filtered by the current selection.
func (m *Manager) View(userID string) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || !s.loaded {
		return View{}, false
	}
	return s.view(), true
}

// SelectCountry changes the country facet and resets the city.
func (m *Manager) SelectCountry(userID, country string) (View, bool) {
	return m.update(userID, func(f *filters.State) { f.SelectCountry(country) })
}

func (m *Manager) SelectCity(userID, city string) (View, bool) {
	return m.update(userID, func(f *filters.State) { f.SelectCity(city) })
}

func (m *Manager) update(userID string, fn func(*filters.State)) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok || !s.loaded {
		return View{}, false
	}
	fn(&s.filter)
	s.touched = m.now()
	return s.view(), true
}

func (s *session) view() View {
	return View{
		Artist:     s.artist,
		Incomplete: s.result.Incomplete,
		Reason:     s.result.Reason,
		Total:      len(s.result.Events),
		UpdatedAt:  s.updated,
		Facets:     filters.Derive(s.result.Events, s.filter),
	}
}

// Run aggregates artist for userID under a fresh ticket and applies the
// result. The raw result is returned even when it was superseded.
func (m *Manager) Run(ctx context.Context, userID, artist string, agg Aggregator) (View, aggregator.Result, error) {
	t, runCtx := m.Begin(ctx, userID)
	defer m.Finish(t)

	res := agg.Aggregate(runCtx, artist)
	v, ok := m.Apply(t, artist, res)
	if !ok {
		return View{}, res, ErrSuperseded
	}
	return v, res, nil
}
