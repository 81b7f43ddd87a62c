// Package weather orchestrates the geocoder, weather provider, and store.
// Provider failures flow through as absent-value results; only
// infrastructure failures (the store, the database) surface as errors.
package weather

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/lox/cityweather/internal/geocode"
	"github.com/lox/cityweather/internal/metrics"
	"github.com/lox/cityweather/internal/models"
	"github.com/lox/cityweather/internal/provider"
	"github.com/lox/cityweather/internal/store"
)

// DefaultMaxAge is how old cached weather may be before it counts as stale.
const DefaultMaxAge = 30 * time.Minute

// Geocoder resolves a free-text place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (geocode.Coordinates, bool)
}

type Service struct {
	store      *store.Store
	geo        Geocoder
	provider   provider.Provider
	refreshing atomic.Bool
}

func NewService(st *store.Store, geo Geocoder, p provider.Provider) *Service {
	return &Service{
		store:    st,
		geo:      geo,
		provider: p,
	}
}

// AllCitiesWithWeather returns every tracked city joined with its latest
// observation, weather fields nil where none exists.
func (s *Service) AllCitiesWithWeather() ([]models.CityWithWeather, error) {
	return s.store.CitiesWithWeather()
}

// AddCity geocodes the name and creates the city, then attempts one initial
// weather update whose outcome does not affect the result. Adding a name
// that already exists returns the existing city unchanged. Returns nil when
// the name cannot be geocoded.
func (s *Service) AddCity(ctx context.Context, name, country string) (*models.City, error) {
	coords, ok := s.geo.Geocode(ctx, name)
	if !ok {
		return nil, nil
	}

	existing, err := s.store.FindCityByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	city, err := s.store.CreateCity(name, country, coords.Lat, coords.Lon)
	if errors.Is(err, store.ErrDuplicateName) {
		// Lost a race with a concurrent add for the same name.
		return s.store.FindCityByName(name)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.UpdateWeather(ctx, city.ID); err != nil {
		log.Printf("weather: initial update for %s: %v", city.Name, err)
	}
	return city, nil
}

// UpdateWeather fetches, normalizes, and records one observation for a city.
// Any stage failing short-circuits to false with no partial write.
func (s *Service) UpdateWeather(ctx context.Context, cityID int64) (bool, error) {
	city, err := s.store.GetCity(cityID)
	if err != nil {
		return false, err
	}
	if city == nil {
		return false, nil
	}

	raw, ok := s.provider.Current(ctx, city.Latitude, city.Longitude)
	if !ok {
		return false, nil
	}

	cond, ok := provider.Normalize(raw)
	if !ok {
		return false, nil
	}

	if _, err := s.store.RecordObservation(city.ID, cond); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// City deleted between lookup and write.
			return false, nil
		}
		return false, err
	}
	metrics.ObservationsRecorded.Inc()
	return true, nil
}

// RefreshAll updates weather for every city sequentially and returns how
// many succeeded. Per-city provider failures are counted as non-updates,
// not reported; a store failure aborts the batch.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	s.refreshing.Store(true)
	defer s.refreshing.Store(false)
	metrics.RefreshRunsTotal.WithLabelValues("manual").Inc()
	return s.refreshAll(ctx)
}

// TryRefreshAll runs a batch refresh unless one is already in flight, in
// which case it reports ran=false and does nothing.
func (s *Service) TryRefreshAll(ctx context.Context) (updated int, ran bool, err error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return 0, false, nil
	}
	defer s.refreshing.Store(false)
	metrics.RefreshRunsTotal.WithLabelValues("auto").Inc()
	updated, err = s.refreshAll(ctx)
	return updated, true, err
}

func (s *Service) refreshAll(ctx context.Context) (int, error) {
	cities, err := s.store.ListCities()
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, city := range cities {
		ok, err := s.UpdateWeather(ctx, city.ID)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	return updated, nil
}

// DeleteCity removes a city and its observation history. Returns false for
// an unknown id.
func (s *Service) DeleteCity(id int64) (bool, error) {
	return s.store.DeleteCity(id)
}

// IsStale reports whether a view's cached weather is too old to trust:
// true when no observation exists or the latest one is older than maxAge.
// Advisory only; nothing refreshes automatically on its account.
func IsStale(cw models.CityWithWeather, maxAge time.Duration) bool {
	if cw.LastUpdated == nil {
		return true
	}
	return time.Since(*cw.LastUpdated) > maxAge
}
