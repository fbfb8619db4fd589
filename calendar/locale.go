// Package calendar turns a user's saved events into a localized agenda.
package calendar

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale carries the strings a calendar view needs. It is passed explicitly
// to whoever renders dates.
type Locale struct {
	Tag             string   `json:"tag"`
	MonthNames      []string `json:"monthNames"`
	MonthNamesShort []string `json:"monthNamesShort"`
	DayNames        []string `json:"dayNames"`
	DayNamesShort   []string `json:"dayNamesShort"`
	Today           string   `json:"today"`
	UnknownArtist   string   `json:"unknownArtist"`
	NoEvents        string   `json:"noEvents"`
	// DayNames are indexed by time.Weekday. FirstDay is the weekday a week
	// view starts on.
	FirstDay int  `json:"firstDay"`
	DayFirst bool `json:"-"`
}

var Spanish = Locale{
	Tag: "es",
	MonthNames: []string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	},
	MonthNamesShort: []string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"},
	DayNames:        []string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"},
	DayNamesShort:   []string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"},
	Today:           "Hoy",
	UnknownArtist:   "Artista desconocido",
	NoEvents:        "No hay conciertos guardados",
	FirstDay:        1,
	DayFirst:        true,
}

var English = Locale{
	Tag: "en",
	MonthNames: []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	},
	MonthNamesShort: []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	DayNames:        []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	DayNamesShort:   []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	Today:           "Today",
	UnknownArtist:   "Unknown artist",
	NoEvents:        "No shows added",
	FirstDay:        0,
}

// DefaultLocale is used when nothing in the request matches.
var DefaultLocale = Spanish

var (
	supported = []Locale{Spanish, English}
	matcher   = language.NewMatcher([]language.Tag{language.Spanish, language.English})
)

// MatchLocale picks a locale from an explicit tag (e.g. a ?locale= value)
// or, failing that, an Accept-Language header.
func MatchLocale(explicit, acceptLanguage string) Locale {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			if loc, ok := match(tag); ok {
				return loc
			}
		}
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	if loc, ok := match(tags...); ok {
		return loc
	}
	return DefaultLocale
}

func match(tags ...language.Tag) (Locale, bool) {
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Locale{}, false
	}
	return supported[idx], true
}
