package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/config"
	"github.com/mycelian/mycelian-crisis/internal/health"
	"github.com/mycelian/mycelian-crisis/internal/realtime"
	rtnats "github.com/mycelian/mycelian-crisis/internal/realtime/nats"
)

// Realtime is a gateway that reports its own health.
type Realtime interface {
	realtime.Gateway
	health.Checker
	Close() error
}

// NewRealtime returns the realtime gateway selected by cfg.RealtimeDriver.
func NewRealtime(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Realtime, error) {
	switch cfg.RealtimeDriver {
	case "", "local":
		return realtime.NewBus(cfg.BusBuffer), nil
	case "nats":
		var gw *rtnats.Gateway
		err := retry(ctx, cfg.BootstrapTimeout(), log, "nats", func(context.Context) error {
			g, err := rtnats.Connect(cfg.NATSURL, cfg.BusBuffer, log)
			if err != nil {
				return err
			}
			gw = g
			return nil
		})
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown REALTIME_DRIVER: %s", cfg.RealtimeDriver)
	}
}
