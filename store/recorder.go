package store

import (
	"context"
	"log"

	"livewave/api/models"
)

// NopRecorder drops search events; used when ClickHouse is not configured.
type NopRecorder struct{}

func (NopRecorder) InsertSearchEvents(_ context.Context, events []models.SearchEvent) error {
	if len(events) > 0 {
		log.Printf("Search analytics disabled, dropping %d event(s)", len(events))
	}
	return nil
}
