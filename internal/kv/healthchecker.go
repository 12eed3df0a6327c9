package kv

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker monitors store health via periodic pings.
type HealthChecker struct {
	store        Store
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewHealthChecker creates a new store health checker.
func NewHealthChecker(store Store, log zerolog.Logger, probeTimeout time.Duration) *HealthChecker {
	hc := &HealthChecker{
		store:        store,
		log:          log,
		probeTimeout: probeTimeout,
	}
	hc.healthy.Store(0) // start unhealthy until first successful probe
	return hc
}

func (hc *HealthChecker) Name() string { return "kv" }

// IsHealthy returns the cached health status (non-blocking).
func (hc *HealthChecker) IsHealthy() bool {
	return hc.healthy.Load() == 1
}

// Start begins periodic health checking.
func (hc *HealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	hc.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.Check(ctx)
		}
	}
}

// Check runs one probe and updates the cached status.
func (hc *HealthChecker) Check(ctx context.Context) {
	to := hc.probeTimeout
	if to <= 0 {
		to = 2 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	if hc.probe(checkCtx) {
		hc.healthy.Store(1)
	} else {
		hc.healthy.Store(0)
	}
}

func (hc *HealthChecker) probe(ctx context.Context) bool {
	if p, ok := hc.store.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			hc.log.Error().Stack().
				Str("checker", hc.Name()).
				Err(err).
				Msg("kv health check failed")
			return false
		}
		return true
	}

	// Fallback: a read of an absent key proves the backend answers.
	if _, _, err := hc.store.Get(ctx, "__health_check__"); err != nil {
		hc.log.Error().Stack().
			Str("checker", hc.Name()).
			Err(err).
			Msg("kv health check failed")
		return false
	}
	return true
}
