// Package health aggregates component health for the service endpoint.
package health

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Checker is implemented by component-level checkers (kv, realtime).
type Checker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// Service combines component checkers into one service flag.
type Service struct {
	healthy atomic.Bool
	deps    []Checker
	log     zerolog.Logger

	mu   sync.RWMutex
	last map[string]bool
}

func NewService(log zerolog.Logger, deps ...Checker) *Service {
	return &Service{deps: deps, log: log, last: make(map[string]bool)}
}

// IsHealthy returns the cached service health.
func (s *Service) IsHealthy() bool { return s.healthy.Load() }

// Components returns the last observed health of every component by name.
func (s *Service) Components() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.last))
	for k, v := range s.last {
		out[k] = v
	}
	return out
}

// Run starts every component checker and re-evaluates the service flag each
// interval until ctx is canceled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	for _, d := range s.deps {
		go d.Start(ctx, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Evaluate()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evaluate()
		}
	}
}

// Evaluate reads every component once and logs transitions.
func (s *Service) Evaluate() bool {
	all := true
	snapshot := make(map[string]bool, len(s.deps))
	var down []string
	for _, d := range s.deps {
		ok := d.IsHealthy()
		snapshot[d.Name()] = ok
		if !ok {
			all = false
			down = append(down, d.Name())
		}
	}
	s.mu.Lock()
	s.last = snapshot
	s.mu.Unlock()

	if prev := s.healthy.Swap(all); prev != all {
		if all {
			s.log.Info().Msg("service health: UP")
		} else {
			sort.Strings(down)
			s.log.Error().Strs("down", down).Msg("service health: DOWN")
		}
	}
	return all
}
