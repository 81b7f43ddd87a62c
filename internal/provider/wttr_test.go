package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubReverse struct {
	name string
	ok   bool
}

func (s stubReverse) ReverseCity(ctx context.Context, lat, lon float64) (string, bool) {
	return s.name, s.ok
}

func TestWttr_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Bright" {
			t.Errorf("path = %q, want /Bright", r.URL.Path)
		}
		w.Write([]byte(`{
			"current_condition": [{
				"temp_C": "14",
				"humidity": "72",
				"windspeedKmph": "9",
				"weatherDesc": [{"value": "partly cloudy"}]
			}]
		}`))
	}))
	defer srv.Close()

	p := NewWttr(srv.URL, stubReverse{name: "Bright", ok: true})
	raw, ok := p.Current(context.Background(), -36.73, 146.96)
	if !ok {
		t.Fatal("Current: not found")
	}

	cond, ok := Normalize(raw)
	if !ok {
		t.Fatal("Normalize: not ok")
	}
	if cond.TempC != 14 {
		t.Errorf("TempC = %f, want 14", cond.TempC)
	}
	if cond.Description != "Partly Cloudy" {
		t.Errorf("Description = %q, want Partly Cloudy", cond.Description)
	}
	if cond.WindKph != 9 {
		t.Errorf("WindKph = %f, want 9", cond.WindKph)
	}
}

func TestWttr_ReverseGeocodeFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called when reverse geocoding fails")
	}))
	defer srv.Close()

	p := NewWttr(srv.URL, stubReverse{ok: false})
	if _, ok := p.Current(context.Background(), 0, 0); ok {
		t.Error("expected not found when reverse lookup fails")
	}
}

func TestWttr_UnparsableFieldsDropOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"current_condition": [{
				"temp_C": "not-a-number",
				"humidity": "72",
				"windspeedKmph": "9",
				"weatherDesc": [{"value": "mist"}]
			}]
		}`))
	}))
	defer srv.Close()

	p := NewWttr(srv.URL, stubReverse{name: "Somewhere", ok: true})
	raw, ok := p.Current(context.Background(), 0, 0)
	if !ok {
		t.Fatal("Current: not found")
	}
	if _, ok := Normalize(raw); ok {
		t.Error("expected normalization to reject payload with unparsable temperature")
	}
}
