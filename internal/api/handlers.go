package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/cityweather/internal/models"
	"github.com/lox/cityweather/internal/weather"
)

type cityJSON struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Country     string     `json:"country"`
	Temperature *float64   `json:"temperature"`
	Description *string    `json:"description"`
	Humidity    *int       `json:"humidity"`
	WindKph     *float64   `json:"windKph"`
	LastUpdated *time.Time `json:"lastUpdated"`
	Stale       bool       `json:"stale"`
}

func toCityJSON(v models.CityWithWeather) cityJSON {
	return cityJSON{
		ID:          v.ID,
		Name:        v.Name,
		Country:     v.Country,
		Temperature: v.TempC,
		Description: v.Description,
		Humidity:    v.Humidity,
		WindKph:     v.WindKph,
		LastUpdated: v.LastUpdated,
		Stale:       weather.IsStale(v, weather.DefaultMaxAge),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.AllCitiesWithWeather()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]cityJSON, 0, len(views))
	for _, v := range views {
		out = append(out, toCityJSON(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddCity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	city, err := s.service.AddCity(r.Context(), req.Name, req.Country)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if city == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("could not resolve %q", req.Name),
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        city.ID,
		"name":      city.Name,
		"country":   city.Country,
		"latitude":  city.Latitude,
		"longitude": city.Longitude,
	})
}

func (s *Server) handleRefreshCity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid city id", http.StatusBadRequest)
		return
	}

	updated, err := s.service.UpdateWeather(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	updated, err := s.service.RefreshAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (s *Server) handleDeleteCity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid city id", http.StatusBadRequest)
		return
	}

	ok, err := s.service.DeleteCity(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no such city", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
