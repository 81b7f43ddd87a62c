// Package provider adapts external weather services into the canonical
// observation shape. Provider failures never raise; every fetch collapses
// into an absent result at this boundary.
package provider

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lox/cityweather/internal/models"
)

// Payload is the raw current-conditions response before normalization.
// Fields are pointers so a missing value is distinguishable from zero.
type Payload struct {
	Weather []PayloadWeather `json:"weather"`
	Main    *PayloadMain     `json:"main"`
	Wind    *PayloadWind     `json:"wind"`
}

type PayloadWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type PayloadMain struct {
	Temp     *float64 `json:"temp"`
	Humidity *int     `json:"humidity"`
}

type PayloadWind struct {
	Speed *float64 `json:"speed"`
}

// Provider fetches current conditions for a coordinate pair. Implementations
// report failure via ok=false rather than an error.
type Provider interface {
	Name() string
	Current(ctx context.Context, lat, lon float64) (Payload, bool)
}

var titler = cases.Title(language.English)

// Normalize maps a raw payload into canonical conditions. Normalization is
// all-or-nothing: if any required field is absent the result is empty, never
// a partial record. The description is rendered in title case.
func Normalize(p Payload) (models.Conditions, bool) {
	if len(p.Weather) == 0 || p.Weather[0].Description == "" {
		return models.Conditions{}, false
	}
	if p.Main == nil || p.Main.Temp == nil || p.Main.Humidity == nil {
		return models.Conditions{}, false
	}
	if p.Wind == nil || p.Wind.Speed == nil {
		return models.Conditions{}, false
	}
	return models.Conditions{
		TempC:       *p.Main.Temp,
		Description: titler.String(p.Weather[0].Description),
		Humidity:    *p.Main.Humidity,
		WindKph:     *p.Wind.Speed,
	}, true
}
