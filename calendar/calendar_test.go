package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livewave/api/models"
)

func day(s string) *time.Time {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestMatchLocale(t *testing.T) {
	cases := []struct {
		name     string
		explicit string
		header   string
		want     string
	}{
		{name: "default", want: "es"},
		{name: "explicit english", explicit: "en", want: "en"},
		{name: "explicit regional", explicit: "es-MX", header: "en-US", want: "es"},
		{name: "header", header: "en-GB,en;q=0.9", want: "en"},
		{name: "header weighted", header: "fr-FR, es;q=0.8, en;q=0.5", want: "es"},
		{name: "unsupported", header: "ja-JP", want: "es"},
		{name: "garbage explicit falls back to header", explicit: "!!", header: "en", want: "en"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, MatchLocale(c.explicit, c.header).Tag)
		})
	}
}

func TestShortDate(t *testing.T) {
	d := *day("2025-06-09")
	assert.Equal(t, "09 Jun", ShortDate(d, Spanish))
	assert.Equal(t, "Jun 09", ShortDate(d, English))
	assert.Equal(t, "01 Ene", ShortDate(*day("2025-01-01"), Spanish))
}

func TestDayNamesIndexedByWeekday(t *testing.T) {
	thursday := day("2025-06-19").Weekday()
	for _, loc := range []Locale{Spanish, English} {
		require.Len(t, loc.DayNames, 7, loc.Tag)
		require.Len(t, loc.DayNamesShort, 7, loc.Tag)
	}
	assert.Equal(t, "Domingo", Spanish.DayNames[time.Sunday])
	assert.Equal(t, "Sunday", English.DayNames[time.Sunday])
	assert.Equal(t, "Jueves", Spanish.DayNames[thursday])
	assert.Equal(t, "Thu", English.DayNamesShort[thursday])
	assert.Equal(t, "Lun", Spanish.DayNamesShort[Spanish.FirstDay], "Spanish weeks start on Monday")
	assert.Equal(t, "Sun", English.DayNamesShort[English.FirstDay])
}

func TestBuildAgenda(t *testing.T) {
	entries := []models.CalendarEntry{
		{EventID: 1, ArtistName: "Rosalia", Date: day("2025-06-19")},
		{EventID: 2, ArtistName: "", Date: day("2025-03-02")},
		{EventID: 3, ArtistName: "Undated"},
		{EventID: 4, ArtistName: "Same day", Date: day("2025-06-19")},
	}

	a := BuildAgenda(entries, Spanish)
	require.Len(t, a.Items, 3)
	assert.Equal(t, int64(2), a.Items[0].EventID)
	assert.Equal(t, "Artista desconocido", a.Items[0].ArtistName)
	assert.Equal(t, "02 Mar", a.Items[0].Label)
	assert.Equal(t, int64(1), a.Items[1].EventID)
	assert.Equal(t, int64(4), a.Items[2].EventID)

	assert.Equal(t, map[string]bool{"2025-03-02": true, "2025-06-19": true}, a.MarkedDates)
	assert.Equal(t, "es", a.Locale.Tag)
}

func TestBuildAgendaEmpty(t *testing.T) {
	a := BuildAgenda(nil, English)
	assert.NotNil(t, a.Items)
	assert.Empty(t, a.Items)
	assert.Empty(t, a.MarkedDates)
}
