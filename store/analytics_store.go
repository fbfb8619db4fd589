package store

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"livewave/api/database"
	"livewave/api/models"
	"livewave/api/utils"
)

type AnalyticsStore struct {
	DB *database.ClickHouseClient
}

type CountByTime struct {
	Time  time.Time `json:"time"`
	Count uint64    `json:"count"`
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB: chClient,
	}
}

func (s *AnalyticsStore) InsertSearchEvents(ctx context.Context, events []models.SearchEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Column order must match the search_events table.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO search_events (
			event_id, user_id, artist, timestamp, requests, pages,
			raw_count, event_count, incomplete, reason, duration_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.UserID,
			event.Artist,
			event.Timestamp,
			event.Requests,
			event.Pages,
			event.RawCount,
			event.EventCount,
			event.Incomplete,
			event.Reason,
			event.DurationMs,
		)
		if err != nil {
			log.Printf("Error appending search event to batch (EventID: %s): %v", event.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *AnalyticsStore) GetSearchCountsOverTime(ctx context.Context, interval string, start, end time.Time) ([]CountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, count() AS searches
		FROM search_events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query search counts over time: %w", err)
	}
	defer rows.Close()

	results := []CountByTime{}
	for rows.Next() {
		var (
			bucket time.Time
			count  uint64
		)
		if err := rows.Scan(&bucket, &count); err != nil {
			log.Printf("Error scanning row for search counts: %v", err)
			continue
		}
		results = append(results, CountByTime{Time: bucket, Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during search counts query: %w", err)
	}
	return results, nil
}

func (s *AnalyticsStore) GetTopArtists(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopArtistResult, error) {
	if limit == 0 {
		limit = 10
	}

	rows, err := s.DB.Conn.Query(ctx, `
		SELECT artist, count() AS searches
		FROM search_events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY artist
		ORDER BY searches DESC
		LIMIT ?
	`, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top artists: %w", err)
	}
	defer rows.Close()

	results := []models.TopArtistResult{}
	for rows.Next() {
		var r models.TopArtistResult
		if err := rows.Scan(&r.Artist, &r.Count); err != nil {
			log.Printf("Error scanning row for top artists: %v", err)
			continue
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top artists: %w", err)
	}
	return results, nil
}

// GetIncompleteRate is the share of searches that stopped paginating early.
func (s *AnalyticsStore) GetIncompleteRate(ctx context.Context, start, end time.Time) (float64, error) {
	var rate float64
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT avg(toFloat64(incomplete))
		FROM search_events
		WHERE timestamp >= ? AND timestamp <= ?
	`, start, end).Scan(&rate)
	if err != nil {
		return 0.0, fmt.Errorf("failed to query incomplete rate: %w", err)
	}

	// avg() over zero rows is NaN, which JSON cannot encode.
	if math.IsNaN(rate) {
		return 0.0, nil
	}
	return rate, nil
}
