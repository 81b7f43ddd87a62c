package weather

import (
	"context"
	"log"
	"time"
)

// Refresher periodically refreshes weather for all cities. A cycle is
// skipped when a refresh (periodic or manual) is still in flight.
type Refresher struct {
	service  *Service
	interval time.Duration
}

func NewRefresher(service *Service, interval time.Duration) *Refresher {
	return &Refresher{service: service, interval: interval}
}

func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updated, ran, err := r.service.TryRefreshAll(ctx)
			if err != nil {
				log.Printf("refresher: %v", err)
				continue
			}
			if !ran {
				log.Println("refresher: refresh already in flight, skipping")
				continue
			}
			log.Printf("refresher: updated %d cities", updated)
		}
	}
}
