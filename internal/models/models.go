package models

import "time"

// City is a tracked location. Coordinates are resolved once via geocoding
// when the city is added and never recomputed.
type City struct {
	ID        int64
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
	AddedAt   time.Time
}

// Conditions is the canonical observation shape used internally,
// independent of any provider's response format.
type Conditions struct {
	TempC       float64
	Description string
	Humidity    int
	WindKph     float64
}

// Observation is one stored weather measurement for a city. Observations
// are append-only; they are removed only when their city is deleted.
type Observation struct {
	ID          int64
	CityID      int64
	TempC       float64
	Description string
	Humidity    int
	WindKph     float64
	ObservedAt  time.Time
}

// CityWithWeather is a read-only view of a city joined with its most
// recent observation. Weather fields are nil when no observation exists.
type CityWithWeather struct {
	ID          int64
	Name        string
	Country     string
	TempC       *float64
	Description *string
	Humidity    *int
	WindKph     *float64
	LastUpdated *time.Time
}
