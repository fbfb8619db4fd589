package handlers

import (
	"context"
	"time"

	"livewave/api/models"
	"livewave/api/store"
)

// UserRepository is the user persistence the auth handlers need.
type UserRepository interface {
	CreateUser(ctx context.Context, email, name string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	CreateResetToken(ctx context.Context, userID int, tokenHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, tokenHash string, hashedPassword []byte, now time.Time) (int, error)
}

type CalendarRepository interface {
	SaveEventForUser(ctx context.Context, userID int, artist models.ArtistInput, ev models.Event) (int64, error)
	ListUserEvents(ctx context.Context, userID int) ([]models.CalendarEntry, error)
	RemoveUserEvent(ctx context.Context, userID int, eventID int64) (bool, error)
}

type Suggester interface {
	Suggest(ctx context.Context, keyword string) ([]models.Artist, error)
}

type SearchRecorder interface {
	InsertSearchEvents(ctx context.Context, events []models.SearchEvent) error
}

type StatsReader interface {
	GetSearchCountsOverTime(ctx context.Context, interval string, start, end time.Time) ([]store.CountByTime, error)
	GetTopArtists(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopArtistResult, error)
	GetIncompleteRate(ctx context.Context, start, end time.Time) (float64, error)
}

var (
	_ UserRepository     = (*store.UserStore)(nil)
	_ CalendarRepository = (*store.CalendarStore)(nil)
	_ SearchRecorder     = (*store.AnalyticsStore)(nil)
	_ SearchRecorder     = store.NopRecorder{}
	_ StatsReader        = (*store.AnalyticsStore)(nil)
)
