package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"livewave/api/models"
)

// CalendarStore persists the shows users save to their calendar.
type CalendarStore struct {
	db *sql.DB
}

func NewCalendarStore(db *sql.DB) *CalendarStore {
	return &CalendarStore{db: db}
}

// SaveEventForUser upserts the artist and the event, then links the event
// to userID. Saving the same event twice is a no-op.
func (s *CalendarStore) SaveEventForUser(ctx context.Context, userID int, artist models.ArtistInput, ev models.Event) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := upsertArtist(ctx, tx, artist)
	if err != nil {
		return 0, err
	}
	eventID, err := upsertEvent(ctx, tx, a.ID, ev)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_events (user_id, event_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, event_id) DO NOTHING;
	`, userID, eventID); err != nil {
		return 0, fmt.Errorf("failed to link event %d to user %d: %w", eventID, userID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit saved event: %w", err)
	}
	log.Printf("Saved event %s (id=%d) for user %d", ev.ID, eventID, userID)
	return eventID, nil
}

func (s *CalendarStore) ListUserEvents(ctx context.Context, userID int) ([]models.CalendarEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.external_id, COALESCE(a.name, ''), e.venue, e.city, e.country, e.date, e.url
		FROM user_events ue
		JOIN events e ON e.id = ue.event_id
		LEFT JOIN artists a ON a.id = e.artist_id
		WHERE ue.user_id = $1
		ORDER BY e.date ASC NULLS LAST, e.id ASC;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user events: %w", err)
	}
	defer rows.Close()

	entries := []models.CalendarEntry{}
	for rows.Next() {
		var (
			e    models.CalendarEntry
			date sql.NullTime
		)
		if err := rows.Scan(&e.EventID, &e.ExternalID, &e.ArtistName, &e.Venue, &e.City, &e.Country, &date, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan user event: %w", err)
		}
		if date.Valid {
			d := date.Time
			e.Date = &d
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user events: %w", err)
	}
	return entries, nil
}

// RemoveUserEvent unlinks an event from a user's calendar. It reports
// whether a link existed.
func (s *CalendarStore) RemoveUserEvent(ctx context.Context, userID int, eventID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_events WHERE user_id = $1 AND event_id = $2;`, userID, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to remove user event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
