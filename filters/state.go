package filters

import (
	"strings"

	"livewave/api/models"
)

// State is the current facet selection. City is only meaningful relative
// to Country.
type State struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

func NewState() State {
	return State{Country: All, City: All}
}

// SelectCountry changes the country; a city never survives a country change.
func (s *State) SelectCountry(country string) {
	country = normalize(country)
	if country != s.Country {
		s.City = All
	}
	s.Country = country
}

func (s *State) SelectCity(city string) {
	s.City = normalize(city)
}

func (s *State) Reset() {
	*s = NewState()
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, All) {
		return All
	}
	return v
}

// Facets is what a search screen renders: the selectable values and the
// events matching the selection.
type Facets struct {
	Countries []string       `json:"countries"`
	Cities    []string       `json:"cities"`
	Events    []models.Event `json:"events"`
	Filter    State          `json:"filter"`
}

func Derive(events []models.Event, s State) Facets {
	return Facets{
		Countries: Countries(events),
		Cities:    Cities(events, s.Country),
		Events:    Filter(events, s.Country, s.City),
		Filter:    s,
	}
}
