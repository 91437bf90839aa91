// Package locale holds the display strings for each supported language.
// The language shown on the panel is fixed at build time: build with
// -tags lang_fr for French, English otherwise.
package locale

import "strings"

type Table struct {
	Name      string
	Days      [7]string
	ShortDays [7]string
	Months    [12]string

	Today    string
	Forecast string
	Sensors  string
	Crypto   string
	Battery  string
	Indoor   string
	Outdoor  string
	Other    string
	Updated  string
}

var English = Table{
	Name:      "en",
	Days:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	ShortDays: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	Months: [12]string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	Today:    "Today",
	Forecast: "Forecast",
	Sensors:  "Home Assistant sensors",
	Crypto:   "Crypto",
	Battery:  "Battery",
	Indoor:   "Indoor",
	Outdoor:  "Outdoor",
	Other:    "Other",
	Updated:  "Updated",
}

var French = Table{
	Name:      "fr",
	Days:      [7]string{"Dimanche", "Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi"},
	ShortDays: [7]string{"Dim", "Lun", "Mar", "Mer", "Jeu", "Ven", "Sam"},
	Months: [12]string{"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
		"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre"},
	Today:    "Aujourd'hui",
	Forecast: "Previsions",
	Sensors:  "Capteurs Home Assistant",
	Crypto:   "Crypto",
	Battery:  "Batterie",
	Indoor:   "Interieur",
	Outdoor:  "Exterieur",
	Other:    "Serre",
	Updated:  "Mis a jour",
}

// Lookup returns the table for a language code such as "en" or "fr".
func Lookup(name string) (Table, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "en", "english":
		return English, true
	case "fr", "french":
		return French, true
	default:
		return Table{}, false
	}
}
