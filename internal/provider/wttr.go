package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lox/cityweather/internal/httputil"
	"github.com/lox/cityweather/internal/metrics"
)

const wttrBaseURL = "https://wttr.in"

// reverseGeocoder resolves coordinates back to a place name.
type reverseGeocoder interface {
	ReverseCity(ctx context.Context, lat, lon float64) (string, bool)
}

// Wttr fetches current conditions from wttr.in. The service is keyed by
// place name rather than coordinates, so each fetch first reverse-geocodes
// the city's coordinates; a failed reverse lookup is a failed fetch.
type Wttr struct {
	baseURL string
	client  *http.Client
	geo     reverseGeocoder
	breaker *gobreaker.CircuitBreaker
}

// NewWttr creates the provider. An empty baseURL selects the public
// wttr.in endpoint.
func NewWttr(baseURL string, geo reverseGeocoder) *Wttr {
	if baseURL == "" {
		baseURL = wttrBaseURL
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wttr",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Wttr{
		baseURL: baseURL,
		client:  httputil.NewClient(),
		geo:     geo,
		breaker: cb,
	}
}

func (p *Wttr) Name() string { return "wttr" }

type wttrResponse struct {
	CurrentCondition []struct {
		TempC         string `json:"temp_C"`
		Humidity      string `json:"humidity"`
		WindspeedKmph string `json:"windspeedKmph"`
		WeatherDesc   []struct {
			Value string `json:"value"`
		} `json:"weatherDesc"`
	} `json:"current_condition"`
}

func (p *Wttr) Current(ctx context.Context, lat, lon float64) (Payload, bool) {
	name, ok := p.geo.ReverseCity(ctx, lat, lon)
	if !ok {
		log.Printf("wttr: no place name for %.4f,%.4f", lat, lon)
		metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "error").Inc()
		return Payload{}, false
	}

	body, err := p.fetch(ctx, name)
	if err != nil {
		log.Printf("wttr: fetch %s: %v", name, err)
		metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "error").Inc()
		return Payload{}, false
	}

	var resp wttrResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("wttr: unmarshal: %v", err)
		metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "error").Inc()
		return Payload{}, false
	}
	if len(resp.CurrentCondition) == 0 {
		metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "error").Inc()
		return Payload{}, false
	}

	metrics.ProviderFetchesTotal.WithLabelValues(p.Name(), "ok").Inc()
	return toPayload(resp), true
}

func (p *Wttr) fetch(ctx context.Context, name string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s?format=j1", p.baseURL, url.PathEscape(name))

	result, err := p.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch current: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch current: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// toPayload maps the wttr.in vocabulary onto the raw payload shape. Fields
// that fail to parse stay nil and fall out during normalization.
func toPayload(resp wttrResponse) Payload {
	cc := resp.CurrentCondition[0]

	var p Payload
	if len(cc.WeatherDesc) > 0 {
		p.Weather = []PayloadWeather{{Description: cc.WeatherDesc[0].Value}}
	}

	p.Main = &PayloadMain{}
	if temp, err := strconv.ParseFloat(cc.TempC, 64); err == nil {
		p.Main.Temp = &temp
	}
	if humidity, err := strconv.Atoi(cc.Humidity); err == nil {
		p.Main.Humidity = &humidity
	}

	p.Wind = &PayloadWind{}
	if speed, err := strconv.ParseFloat(cc.WindspeedKmph, 64); err == nil {
		p.Wind.Speed = &speed
	}

	return p
}
