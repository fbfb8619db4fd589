package models

import "time"

// SaveEventRequest is sent when a user adds a show to their calendar.
type SaveEventRequest struct {
	Artist ArtistInput `json:"artist" binding:"required"`
	Event  Event       `json:"event" binding:"required"`
}

type ArtistInput struct {
	Name     string `json:"name" binding:"required"`
	ImageURL string `json:"imageUrl"`
}

// StoredArtist is a row of the artists table.
type StoredArtist struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// CalendarEntry is an event saved by a user, joined with its artist.
type CalendarEntry struct {
	EventID    int64      `json:"eventId"`
	ExternalID string     `json:"externalId"`
	ArtistName string     `json:"artistName,omitempty"`
	Venue      string     `json:"venue,omitempty"`
	City       string     `json:"city,omitempty"`
	Country    string     `json:"country,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	URL        string     `json:"url,omitempty"`
}
