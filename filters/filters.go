// Package filters derives the country and city facets of an event list and
// applies the user's selection to it.
package filters

import (
	"sort"

	"livewave/api/models"
)

// All is the selection meaning "no restriction on this dimension".
const All = "all"

// Countries returns the distinct non-empty venue countries, sorted.
func Countries(events []models.Event) []string {
	seen := make(map[string]struct{})
	for _, ev := range events {
		if ev.VenueCountry != "" {
			seen[ev.VenueCountry] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Cities returns the distinct non-empty venue cities of events in country,
// or of every event when country is All, sorted.
func Cities(events []models.Event, country string) []string {
	seen := make(map[string]struct{})
	for _, ev := range events {
		if country != All && ev.VenueCountry != country {
			continue
		}
		if ev.VenueCity != "" {
			seen[ev.VenueCity] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Filter keeps the events matching both selections. An event missing a
// field never matches a specific value for it.
func Filter(events []models.Event, country, city string) []models.Event {
	if country == All && city == All {
		return events
	}
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if matches(ev.VenueCountry, country) && matches(ev.VenueCity, city) {
			out = append(out, ev)
		}
	}
	return out
}

func matches(value, selected string) bool {
	if selected == All {
		return true
	}
	return value != "" && value == selected
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
