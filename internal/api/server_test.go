package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lox/cityweather/internal/api"
	"github.com/lox/cityweather/internal/geocode"
	"github.com/lox/cityweather/internal/provider"
	"github.com/lox/cityweather/internal/store"
	"github.com/lox/cityweather/internal/weather"
)

type fakeGeo struct {
	coords map[string]geocode.Coordinates
}

func (g *fakeGeo) Geocode(ctx context.Context, name string) (geocode.Coordinates, bool) {
	c, ok := g.coords[name]
	return c, ok
}

type fakeProvider struct {
	fail bool
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Current(ctx context.Context, lat, lon float64) (provider.Payload, bool) {
	if p.fail {
		return provider.Payload{}, false
	}
	temp := 21.0
	humidity := 55
	wind := 7.5
	return provider.Payload{
		Weather: []provider.PayloadWeather{{Description: "scattered clouds"}},
		Main:    &provider.PayloadMain{Temp: &temp, Humidity: &humidity},
		Wind:    &provider.PayloadWind{Speed: &wind},
	}, true
}

func setupServer(t *testing.T) (*api.Server, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}

	geo := &fakeGeo{coords: map[string]geocode.Coordinates{
		"London": {Lat: 51.5, Lon: -0.12},
	}}
	svc := weather.NewService(st, geo, &fakeProvider{})
	return api.NewServer(svc, "8080"), st
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status"`) {
		t.Error("expected status field in JSON response")
	}
}

func TestAddAndListCities(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest("POST", "/api/cities", strings.NewReader(`{"name":"London","country":"UK"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/cities", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var cities []struct {
		ID          int64    `json:"id"`
		Name        string   `json:"name"`
		Temperature *float64 `json:"temperature"`
		Stale       bool     `json:"stale"`
	}
	if err := json.NewDecoder(w.Body).Decode(&cities); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cities) != 1 {
		t.Fatalf("len(cities) = %d, want 1", len(cities))
	}
	if cities[0].Name != "London" {
		t.Errorf("Name = %q, want London", cities[0].Name)
	}
	if cities[0].Temperature == nil {
		t.Fatal("expected temperature from initial update")
	}
	if *cities[0].Temperature != 21.0 {
		t.Errorf("Temperature = %f, want 21.0", *cities[0].Temperature)
	}
	if cities[0].Stale {
		t.Error("freshly updated city should not be stale")
	}
}

func TestAddCity_Unresolvable(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest("POST", "/api/cities", strings.NewReader(`{"name":"Atlantis"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAddCity_MissingName(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest("POST", "/api/cities", strings.NewReader(`{"country":"UK"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRefreshCity(t *testing.T) {
	srv, st := setupServer(t)

	city, err := st.CreateCity("Tokyo", "Japan", 35.68, 139.69)
	if err != nil {
		t.Fatalf("CreateCity: %v", err)
	}

	req := httptest.NewRequest("POST", fmt.Sprintf("/api/cities/%d/refresh", city.ID), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"updated":true`) {
		t.Errorf("expected updated true, got %s", w.Body.String())
	}
}

func TestRefreshCity_Unknown(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest("POST", "/api/cities/999/refresh", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"updated":false`) {
		t.Errorf("expected updated false, got %s", w.Body.String())
	}
}

func TestRefreshAllEndpoint(t *testing.T) {
	srv, st := setupServer(t)

	for i, name := range []string{"A", "B"} {
		if _, err := st.CreateCity(name, "", float64(i), float64(i)); err != nil {
			t.Fatalf("CreateCity: %v", err)
		}
	}

	req := httptest.NewRequest("POST", "/api/refresh", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"updated":2`) {
		t.Errorf("expected updated 2, got %s", w.Body.String())
	}
}

func TestDeleteCityEndpoint(t *testing.T) {
	srv, st := setupServer(t)

	city, err := st.CreateCity("Cairo", "Egypt", 30.04, 31.24)
	if err != nil {
		t.Fatalf("CreateCity: %v", err)
	}

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/cities/%d", city.ID), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 204 {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	req = httptest.NewRequest("DELETE", fmt.Sprintf("/api/cities/%d", city.ID), nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 404 {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestIndexPage(t *testing.T) {
	srv, st := setupServer(t)

	if _, err := st.CreateCity("Helsinki", "Finland", 60.17, 24.94); err != nil {
		t.Fatalf("CreateCity: %v", err)
	}

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Helsinki") {
		t.Error("expected city name on index page")
	}
	if !strings.Contains(body, "No weather data yet") {
		t.Error("expected placeholder for city without observations")
	}
}
