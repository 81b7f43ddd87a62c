package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityweather_provider_fetches_total",
			Help: "Total weather provider fetch attempts",
		},
		[]string{"provider", "outcome"},
	)

	GeocodeLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityweather_geocode_lookups_total",
			Help: "Total geocoder lookups",
		},
		[]string{"kind", "outcome"},
	)

	ObservationsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cityweather_observations_recorded_total",
			Help: "Total weather observations written to the store",
		},
	)

	RefreshRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityweather_refresh_runs_total",
			Help: "Total batch refresh runs",
		},
		[]string{"trigger"},
	)
)
