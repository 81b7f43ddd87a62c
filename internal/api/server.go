package api

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/cityweather/internal/weather"
)

//go:embed templates/*
var templateFS embed.FS

type Server struct {
	service *weather.Service
	port    string
	tmpl    *template.Template
}

func NewServer(service *weather.Service, port string) *Server {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	return &Server{
		service: service,
		port:    port,
		tmpl:    tmpl,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/cities", s.handleListCities)
	mux.HandleFunc("POST /api/cities", s.handleAddCity)
	mux.HandleFunc("POST /api/cities/{id}/refresh", s.handleRefreshCity)
	mux.HandleFunc("POST /api/refresh", s.handleRefreshAll)
	mux.HandleFunc("DELETE /api/cities/{id}", s.handleDeleteCity)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
