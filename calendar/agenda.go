package calendar

import (
	"fmt"
	"sort"
	"time"

	"livewave/api/models"
)

const dayLayout = "2006-01-02"

type Item struct {
	models.CalendarEntry
	Day   string `json:"day"`
	Label string `json:"label"`
}

type Agenda struct {
	Locale      Locale          `json:"locale"`
	Items       []Item          `json:"items"`
	MarkedDates map[string]bool `json:"markedDates"`
}

// BuildAgenda drops undated entries, orders the rest by date and labels
// them for loc.
func BuildAgenda(entries []models.CalendarEntry, loc Locale) Agenda {
	a := Agenda{
		Locale:      loc,
		Items:       make([]Item, 0, len(entries)),
		MarkedDates: make(map[string]bool),
	}
	for _, e := range entries {
		if e.Date == nil || e.Date.IsZero() {
			continue
		}
		if e.ArtistName == "" {
			e.ArtistName = loc.UnknownArtist
		}
		day := e.Date.UTC().Format(dayLayout)
		a.MarkedDates[day] = true
		a.Items = append(a.Items, Item{CalendarEntry: e, Day: day, Label: ShortDate(*e.Date, loc)})
	}
	sort.SliceStable(a.Items, func(i, j int) bool {
		return a.Items[i].Date.Before(*a.Items[j].Date)
	})
	return a
}

// ShortDate renders a two-digit day and short month name, in loc's order.
func ShortDate(t time.Time, loc Locale) string {
	t = t.UTC()
	month := loc.MonthNamesShort[t.Month()-1]
	if loc.DayFirst {
		return fmt.Sprintf("%02d %s", t.Day(), month)
	}
	return fmt.Sprintf("%s %02d", month, t.Day())
}
