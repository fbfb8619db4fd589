package models

import "time"

type SearchRequest struct {
	Artist string `json:"artist" binding:"required"`
}

// FilterRequest changes one or both facet selections. Nil fields are left
// untouched.
type FilterRequest struct {
	Country *string `json:"country"`
	City    *string `json:"city"`
}

// SearchEvent is one aggregation run, recorded for analytics.
type SearchEvent struct {
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	Artist     string    `json:"artist"`
	Timestamp  time.Time `json:"timestamp"`
	Requests   uint32    `json:"requests"`
	Pages      uint32    `json:"pages"`
	RawCount   uint32    `json:"rawCount"`
	EventCount uint32    `json:"eventCount"`
	Incomplete bool      `json:"incomplete"`
	Reason     string    `json:"reason,omitempty"`
	DurationMs int64     `json:"durationMs"`
}

type TopArtistResult struct {
	Artist string `json:"artist"`
	Count  uint64 `json:"count"`
}
