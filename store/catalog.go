package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"livewave/api/models"
	"livewave/api/utils"
)

// ErrInvalidEvent marks a saved event or artist the client sent in an
// unusable form.
var ErrInvalidEvent = errors.New("invalid event")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	artistUpsert = `
		INSERT INTO artists (name, slug, image_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name,
		    image_url = COALESCE(NULLIF(EXCLUDED.image_url, ''), artists.image_url)
		RETURNING id;
	`

	eventUpsert = `
		INSERT INTO events (external_id, artist_id, venue, city, country, date, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id, (COALESCE(date, 'infinity'::date))) DO UPDATE
		SET artist_id = EXCLUDED.artist_id,
		    venue = EXCLUDED.venue,
		    city = EXCLUDED.city,
		    country = EXCLUDED.country,
		    url = EXCLUDED.url
		RETURNING id;
	`
)

// upsertArtist keys artists by the slug of their name.
func upsertArtist(ctx context.Context, q querier, a models.ArtistInput) (*models.StoredArtist, error) {
	name := strings.TrimSpace(a.Name)
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("%w: artist name %q has no usable characters", ErrInvalidEvent, a.Name)
	}
	out := &models.StoredArtist{Name: name, Slug: slug, ImageURL: a.ImageURL}
	if err := q.QueryRowContext(ctx, artistUpsert, name, slug, a.ImageURL).Scan(&out.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert artist %q: %w", slug, err)
	}
	return out, nil
}

// upsertEvent keys events by their search API id and date, matching
// models.Event.Key: the same id on another date is another show.
func upsertEvent(ctx context.Context, q querier, artistID int64, ev models.Event) (int64, error) {
	if strings.TrimSpace(ev.ID) == "" {
		return 0, fmt.Errorf("%w: missing event id", ErrInvalidEvent)
	}
	date, err := eventDate(ev.StartDate)
	if err != nil {
		return 0, err
	}
	var id int64
	err = q.QueryRowContext(ctx, eventUpsert,
		ev.ID, artistID, ev.VenueName, ev.VenueCity, ev.VenueCountry, date, ev.URL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert event %s: %w", ev.ID, err)
	}
	return id, nil
}

func eventDate(s string) (sql.NullTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullTime{}, nil
	}
	if len(s) > len("2006-01-02") {
		s = s[:len("2006-01-02")]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("%w: bad date %q: %v", ErrInvalidEvent, s, err)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}
