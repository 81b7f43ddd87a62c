package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/lox/cityweather/internal/weather"
)

type pageCity struct {
	ID          int64
	Name        string
	Country     string
	Temperature string
	Description string
	Humidity    string
	Wind        string
	Updated     string
	HasWeather  bool
	Stale       bool
}

type indexData struct {
	Cities []pageCity
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.AllCitiesWithWeather()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := indexData{}
	for _, v := range views {
		pc := pageCity{
			ID:      v.ID,
			Name:    v.Name,
			Country: v.Country,
			Stale:   weather.IsStale(v, weather.DefaultMaxAge),
		}
		if v.TempC != nil {
			pc.HasWeather = true
			pc.Temperature = fmt.Sprintf("%.1f°C", *v.TempC)
		}
		if v.Description != nil {
			pc.Description = *v.Description
		}
		if v.Humidity != nil {
			pc.Humidity = fmt.Sprintf("%d%%", *v.Humidity)
		}
		if v.WindKph != nil {
			pc.Wind = fmt.Sprintf("%.1f km/h", *v.WindKph)
		}
		if v.LastUpdated != nil {
			pc.Updated = v.LastUpdated.Local().Format("15:04")
		}
		data.Cities = append(data.Cities, pc)
	}

	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("template error: %v", err)
	}
}
