package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/cityweather/internal/api"
	"github.com/lox/cityweather/internal/geocode"
	"github.com/lox/cityweather/internal/provider"
	"github.com/lox/cityweather/internal/store"
	"github.com/lox/cityweather/internal/weather"
)

type cli struct {
	DB          string `help:"Path to SQLite database." default:"data/cityweather.db" env:"CITYWEATHER_DB"`
	Provider    string `help:"Weather provider to use." enum:"openweather,wttr" default:"openweather" env:"CITYWEATHER_PROVIDER"`
	APIKey      string `help:"OpenWeatherMap API key." env:"OPENWEATHER_API_KEY"`
	NoSynthetic bool   `help:"Disable synthetic fallback data when the provider is unavailable."`

	Serve   serveCmd   `cmd:"" help:"Run the dashboard server."`
	Add     addCmd     `cmd:"" help:"Add a city by name."`
	List    listCmd    `cmd:"" help:"List cities with their latest weather."`
	Refresh refreshCmd `cmd:"" help:"Refresh weather for all cities, or a single one."`
	Delete  deleteCmd  `cmd:"" help:"Delete a city and its observation history."`
}

type app struct {
	ctx     context.Context
	service *weather.Service
}

type serveCmd struct {
	Port        string        `help:"HTTP server port." default:"8080" env:"PORT"`
	AutoRefresh time.Duration `help:"Interval for periodic refresh of all cities (0 disables)." default:"0"`
}

func (c *serveCmd) Run(a *app) error {
	if c.AutoRefresh > 0 {
		log.Printf("auto-refresh every %s", c.AutoRefresh)
		go weather.NewRefresher(a.service, c.AutoRefresh).Run(a.ctx)
	}
	log.Printf("starting server on :%s", c.Port)
	return api.NewServer(a.service, c.Port).Run(a.ctx)
}

type addCmd struct {
	Name    string `arg:"" help:"City name."`
	Country string `arg:"" optional:"" help:"Country (informational only)."`
}

func (c *addCmd) Run(a *app) error {
	city, err := a.service.AddCity(a.ctx, c.Name, c.Country)
	if err != nil {
		return err
	}
	if city == nil {
		return fmt.Errorf("could not resolve %q", c.Name)
	}
	fmt.Printf("%s (%.4f, %.4f)\n", city.Name, city.Latitude, city.Longitude)
	return nil
}

type listCmd struct{}

func (c *listCmd) Run(a *app) error {
	views, err := a.service.AllCitiesWithWeather()
	if err != nil {
		return err
	}
	if len(views) == 0 {
		fmt.Println("no cities tracked")
		return nil
	}
	for _, v := range views {
		if v.TempC == nil {
			fmt.Printf("%4d  %-20s no weather data\n", v.ID, v.Name)
			continue
		}
		stale := ""
		if weather.IsStale(v, weather.DefaultMaxAge) {
			stale = " (stale)"
		}
		fmt.Printf("%4d  %-20s %5.1f°C  %s%s\n", v.ID, v.Name, *v.TempC, *v.Description, stale)
	}
	return nil
}

type refreshCmd struct {
	ID int64 `arg:"" optional:"" help:"City id (omit to refresh all)."`
}

func (c *refreshCmd) Run(a *app) error {
	if c.ID > 0 {
		ok, err := a.service.UpdateWeather(a.ctx, c.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("city %d not updated", c.ID)
		}
		fmt.Printf("city %d updated\n", c.ID)
		return nil
	}

	updated, err := a.service.RefreshAll(a.ctx)
	if err != nil {
		return err
	}
	fmt.Printf("updated %d cities\n", updated)
	return nil
}

type deleteCmd struct {
	ID int64 `arg:"" help:"City id."`
}

func (c *deleteCmd) Run(a *app) error {
	ok, err := a.service.DeleteCity(c.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no such city: %d", c.ID)
	}
	fmt.Printf("city %d deleted\n", c.ID)
	return nil
}

func main() {
	var c cli
	ktx := kong.Parse(&c,
		kong.Name("cityweather"),
		kong.Description("Track cities and cache their current weather."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	if dir := filepath.Dir(c.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create db directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	geocoder := geocode.New("")

	var p provider.Provider
	switch c.Provider {
	case "wttr":
		p = provider.NewWttr("", geocoder)
	default:
		p = provider.NewOpenWeather(c.APIKey, "", !c.NoSynthetic)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ktx.FatalIfErrorf(ktx.Run(&app{ctx: ctx, service: weather.NewService(st, geocoder, p)}))
}
