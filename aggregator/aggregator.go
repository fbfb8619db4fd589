// Package aggregator collects every upcoming event for an artist across
// the search API's pages.
package aggregator

import (
	"context"
	"log"
	"time"

	"livewave/api/config"
	"livewave/api/eventsearch"
	"livewave/api/models"
)

// Reasons an aggregation stopped before exhausting the available pages.
const (
	ReasonRateLimited   = "rate_limited"
	ReasonRequestFailed = "request_failed"
	ReasonCancelled     = "cancelled"
)

// Page request outcomes reported to the Observer.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeFailed      = "failed"
)

// PageFetcher is the slice of the search API the aggregator needs.
type PageFetcher interface {
	SearchEvents(ctx context.Context, keyword string, page, size int) (*models.EventPage, error)
}

// Observer receives progress for metrics.
type Observer interface {
	PageFetched(outcome string)
	Finished(res Result, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) PageFetched(string)             {}
func (nopObserver) Finished(Result, time.Duration) {}

// Result is the deduplicated collection for one artist. Incomplete is set
// when pagination stopped early, so callers can warn that results may be
// partial.
type Result struct {
	Events     []models.Event `json:"events"`
	RawCount   int            `json:"rawCount"`
	Pages      int            `json:"pages"`
	Requests   int            `json:"requests"`
	Incomplete bool           `json:"incomplete"`
	Reason     string         `json:"reason,omitempty"`
}

type Aggregator struct {
	fetcher  PageFetcher
	cfg      config.Aggregation
	observer Observer
	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error
}

type Option func(*Aggregator)

func WithObserver(o Observer) Option {
	return func(a *Aggregator) {
		if o != nil {
			a.observer = o
		}
	}
}

func withWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Aggregator) { a.wait = fn }
}

func New(fetcher PageFetcher, cfg config.Aggregation, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher:  fetcher,
		cfg:      cfg,
		observer: nopObserver{},
		wait:     sleep,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Aggregate pages through the search results for artist. Pages are
// requested strictly one after another. It never fails: on error it returns
// whatever was gathered so far with Incomplete set.
func (a *Aggregator) Aggregate(ctx context.Context, artist string) Result {
	started := time.Now()
	var (
		acc  []models.Event
		res  Result
		page = 0
		more = true
	)

	for page < a.cfg.MaxPages && more {
		if page > 0 {
			if err := a.wait(ctx, a.cfg.InterRequestDelay); err != nil {
				res.stop(ReasonCancelled)
				break
			}
		}

		resp, reason := a.fetchPage(ctx, artist, page, &res)
		if reason != "" {
			log.Printf("Aggregation for %q stopped at page %d: %s", artist, page, reason)
			res.stop(reason)
			break
		}

		acc = append(acc, resp.Events...)
		res.Pages++
		page++
		more = page < resp.TotalPages && page < a.cfg.MaxPages
	}

	res.RawCount = len(acc)
	res.Events = Dedup(acc)
	a.observer.Finished(res, time.Since(started))
	return res
}

// fetchPage requests one page, retrying on 429 up to MaxRetriesPerPage
// times. A non-empty reason means pagination must stop.
func (a *Aggregator) fetchPage(ctx context.Context, artist string, page int, res *Result) (*models.EventPage, string) {
	for attempt := 0; ; attempt++ {
		res.Requests++
		resp, err := a.fetcher.SearchEvents(ctx, artist, page, a.cfg.PageSize)
		if err == nil {
			a.observer.PageFetched(OutcomeOK)
			if resp == nil {
				resp = &models.EventPage{Number: page}
			}
			return resp, ""
		}

		if ctx.Err() != nil {
			a.observer.PageFetched(OutcomeFailed)
			return nil, ReasonCancelled
		}
		if !eventsearch.IsRateLimited(err) {
			a.observer.PageFetched(OutcomeFailed)
			log.Printf("ERROR: event search failed (artist=%q page=%d): %v", artist, page, err)
			return nil, ReasonRequestFailed
		}

		a.observer.PageFetched(OutcomeRateLimited)
		if attempt >= a.cfg.MaxRetriesPerPage {
			return nil, ReasonRateLimited
		}
		if err := a.wait(ctx, a.cfg.RateLimitBackoff); err != nil {
			return nil, ReasonCancelled
		}
	}
}

func (r *Result) stop(reason string) {
	r.Incomplete = true
	r.Reason = reason
}

// Dedup collapses events sharing a composite key. Each key keeps the
// position where it first appeared and the value it was last seen with.
func Dedup(events []models.Event) []models.Event {
	out := make([]models.Event, 0, len(events))
	index := make(map[string]int, len(events))
	for _, ev := range events {
		k := ev.Key()
		if i, ok := index[k]; ok {
			out[i] = ev
			continue
		}
		index[k] = len(out)
		out = append(out, ev)
	}
	return out
}

// IsCancelled reports whether a result was cut short by its context.
func IsCancelled(r Result) bool {
	return r.Reason == ReasonCancelled
}
