// api/models/event.go
package models

import "strings"

// Event is a single upcoming show as returned by the event-search API,
// flattened to the fields the app consumes.
type Event struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	URL          string `json:"url,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	StartTime    string `json:"startTime,omitempty"`
	VenueName    string `json:"venueName,omitempty"`
	VenueCity    string `json:"venueCity,omitempty"`
	VenueCountry string `json:"venueCountry,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
}

// noDateMarker stands in for a missing start date in composite keys.
const noDateMarker = "-"

// Key is the composite identity of an event: the same id on another date is
// another show.
func (e Event) Key() string {
	date := strings.TrimSpace(e.StartDate)
	if date == "" {
		date = noDateMarker
	}
	return e.ID + "|" + date
}

// EventPage is one page of search results plus the page descriptor.
type EventPage struct {
	Events        []Event `json:"events"`
	Number        int     `json:"number"`
	TotalPages    int     `json:"totalPages"`
	TotalElements int     `json:"totalElements"`
}

// Artist is a suggestion candidate from the search API.
type Artist struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
	Genre    string `json:"genre,omitempty"`
}
