package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livewave/api/aggregator"
	"livewave/api/filters"
	"livewave/api/models"
)

func result(events ...models.Event) aggregator.Result {
	return aggregator.Result{Events: events, RawCount: len(events), Pages: 1, Requests: 1}
}

var spainFrance = result(
	models.Event{ID: "1", StartDate: "2025-01-01", VenueCountry: "Spain", VenueCity: "Madrid"},
	models.Event{ID: "2", StartDate: "2025-02-01", VenueCountry: "France", VenueCity: "Paris"},
	models.Event{ID: "3", StartDate: "2025-03-01", VenueCountry: "Spain", VenueCity: "Bilbao"},
)

func TestApplyOnlyNewestTicket(t *testing.T) {
	m := NewManager()

	old, oldCtx := m.Begin(context.Background(), "u1")
	fresh, _ := m.Begin(context.Background(), "u1")

	assert.ErrorIs(t, oldCtx.Err(), context.Canceled, "a newer search cancels the older one")

	_, ok := m.Apply(fresh, "Rosalia", spainFrance)
	require.True(t, ok)

	_, ok = m.Apply(old, "Stale", result())
	assert.False(t, ok, "a stale run must not overwrite a fresher result")

	v, ok := m.View("u1")
	require.True(t, ok)
	assert.Equal(t, "Rosalia", v.Artist)
	assert.Equal(t, 3, v.Total)
}

func TestSessionsAreIndependentPerUser(t *testing.T) {
	m := NewManager()
	t1, ctx1 := m.Begin(context.Background(), "u1")
	t2, _ := m.Begin(context.Background(), "u2")

	assert.NoError(t, ctx1.Err())
	_, ok1 := m.Apply(t1, "A", spainFrance)
	_, ok2 := m.Apply(t2, "B", result())
	assert.True(t, ok1)
	assert.True(t, ok2)
}

func TestAbandonCancelsAndClears(t *testing.T) {
	m := NewManager()
	tk, ctx := m.Begin(context.Background(), "u1")
	m.Abandon("u1")

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	_, ok := m.Apply(tk, "Rosalia", spainFrance)
	assert.False(t, ok, "an abandoned run has no effect")

	_, ok = m.View("u1")
	assert.False(t, ok)

	// A ticket from before Abandon stays stale after a new Begin.
	fresh, _ := m.Begin(context.Background(), "u1")
	_, ok = m.Apply(tk, "Rosalia", spainFrance)
	assert.False(t, ok)
	_, ok = m.Apply(fresh, "Rosalia", spainFrance)
	assert.True(t, ok)
}

func TestFilterSelectionAndReset(t *testing.T) {
	m := NewManager()
	tk, _ := m.Begin(context.Background(), "u1")
	_, ok := m.Apply(tk, "Rosalia", spainFrance)
	require.True(t, ok)

	v, ok := m.SelectCountry("u1", "Spain")
	require.True(t, ok)
	assert.Equal(t, []string{"Bilbao", "Madrid"}, v.Cities)
	assert.Len(t, v.Events, 2)

	v, _ = m.SelectCity("u1", "Madrid")
	assert.Len(t, v.Events, 1)

	v, _ = m.SelectCountry("u1", "France")
	assert.Equal(t, filters.All, v.Filter.City)
	assert.Len(t, v.Events, 1)

	// A new search starts from a fresh selection.
	tk, _ = m.Begin(context.Background(), "u1")
	v, _ = m.Apply(tk, "Other", spainFrance)
	assert.Equal(t, filters.NewState(), v.Filter)
	assert.Len(t, v.Events, 3)
}

func TestSelectWithoutSearch(t *testing.T) {
	m := NewManager()
	_, ok := m.SelectCountry("nobody", "Spain")
	assert.False(t, ok)
}

type blockingAggregator struct {
	release chan struct{}
	res     aggregator.Result
}

func (b *blockingAggregator) Aggregate(ctx context.Context, artist string) aggregator.Result {
	select {
	case <-b.release:
	case <-ctx.Done():
		r := b.res
		r.Incomplete = true
		r.Reason = aggregator.ReasonCancelled
		return r
	}
	return b.res
}

func TestRunSupersededByNewerSearch(t *testing.T) {
	m := NewManager()
	slow := &blockingAggregator{release: make(chan struct{}), res: result(models.Event{ID: "old"})}
	fast := &blockingAggregator{release: make(chan struct{}), res: spainFrance}
	close(fast.release)

	var (
		wg     sync.WaitGroup
		oldErr error
	)
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		close(started)
		_, _, oldErr = m.Run(context.Background(), "u1", "Old", slow)
	}()
	<-started
	// Wait until the slow run holds its ticket.
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		s, ok := m.sessions["u1"]
		return ok && s.cancel != nil
	}, time.Second, time.Millisecond)

	v, _, err := m.Run(context.Background(), "u1", "New", fast)
	require.NoError(t, err)
	assert.Equal(t, "New", v.Artist)

	wg.Wait()
	assert.True(t, errors.Is(oldErr, ErrSuperseded))

	cur, _ := m.View("u1")
	assert.Equal(t, "New", cur.Artist)
	assert.Equal(t, 3, cur.Total)
}

func TestRunReportsIncomplete(t *testing.T) {
	m := NewManager()
	res := spainFrance
	res.Incomplete = true
	res.Reason = aggregator.ReasonRateLimited
	agg := &blockingAggregator{release: make(chan struct{}), res: res}
	close(agg.release)

	v, _, err := m.Run(context.Background(), "u1", "Rosalia", agg)
	require.NoError(t, err)
	assert.True(t, v.Incomplete)
	assert.Equal(t, aggregator.ReasonRateLimited, v.Reason)
}

func TestAbandonForgetsSession(t *testing.T) {
	m := NewManager()
	tk, _ := m.Begin(context.Background(), "u1")
	_, ok := m.Apply(tk, "Rosalia", spainFrance)
	require.True(t, ok)

	m.Abandon("u1")
	m.mu.Lock()
	assert.Empty(t, m.sessions)
	m.mu.Unlock()
}

func TestEvictIdle(t *testing.T) {
	m := NewManager()
	now := time.Date(2025, 6, 19, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, _ := m.Begin(context.Background(), "idle")
	_, ok := m.Apply(idle, "A", spainFrance)
	require.True(t, ok)
	m.Finish(idle)

	busy, busyCtx := m.Begin(context.Background(), "busy")

	now = now.Add(time.Hour)
	recent, _ := m.Begin(context.Background(), "recent")
	_, ok = m.Apply(recent, "B", spainFrance)
	require.True(t, ok)
	m.Finish(recent)

	assert.Equal(t, 1, m.EvictIdle(30*time.Minute))

	_, ok = m.View("idle")
	assert.False(t, ok)
	_, ok = m.View("recent")
	assert.True(t, ok)

	assert.NoError(t, busyCtx.Err(), "a run in flight is never evicted")
	_, ok = m.Apply(busy, "C", spainFrance)
	assert.True(t, ok)
}

func TestStaleTicketAfterEviction(t *testing.T) {
	m := NewManager()
	now := time.Date(2025, 6, 19, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old, _ := m.Begin(context.Background(), "u1")
	m.Finish(old)
	now = now.Add(time.Hour)
	require.Equal(t, 1, m.EvictIdle(time.Minute))

	fresh, _ := m.Begin(context.Background(), "u1")
	_, ok := m.Apply(old, "Stale", result())
	assert.False(t, ok, "generations are never reused")
	_, ok = m.Apply(fresh, "Rosalia", spainFrance)
	assert.True(t, ok)
}

func TestRunEvictorStopsWithContext(t *testing.T) {
	m := NewManager()
	tk, _ := m.Begin(context.Background(), "u1")
	m.Finish(tk)
	m.now = func() time.Time { return time.Now().Add(time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunEvictor(ctx, time.Millisecond, time.Minute)
		close(done)
	}()

	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.sessions) == 0
	}, time.Second, time.Millisecond)
	cancel()
	<-done
}
