// Package nats implements the realtime gateway on NATS subjects.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/realtime"
)

// SubjectPrefix namespaces gateway channels on the NATS server.
const SubjectPrefix = "crisis."

// Gateway publishes and subscribes gateway channels as NATS subjects.
type Gateway struct {
	conn   *nats.Conn
	buffer int
	log    zerolog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect dials url and returns a Gateway.
func Connect(url string, buffer int, log zerolog.Logger) (*Gateway, error) {
	conn, err := nats.Connect(url,
		nats.Name("mycelian-crisis"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return NewWithConn(conn, buffer, log), nil
}

// NewWithConn wraps an established connection.
func NewWithConn(conn *nats.Conn, buffer int, log zerolog.Logger) *Gateway {
	if buffer <= 0 {
		buffer = 64
	}
	return &Gateway{conn: conn, buffer: buffer, log: log}
}

func (g *Gateway) Send(_ context.Context, channel string, evt realtime.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return g.conn.Publish(SubjectPrefix+channel, data)
}

// Subscribe delivers decoded events until ctx is done. Events arriving while
// the consumer's buffer is full are dropped.
func (g *Gateway) Subscribe(ctx context.Context, channel string) (<-chan realtime.Event, error) {
	out := make(chan realtime.Event, g.buffer)
	var mu sync.Mutex
	closed := false

	sub, err := g.conn.Subscribe(SubjectPrefix+channel, func(msg *nats.Msg) {
		var evt realtime.Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			g.log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable event")
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- evt:
		default:
			g.log.Warn().Str("subject", msg.Subject).Str("type", string(evt.Type)).Msg("subscriber buffer full; event dropped")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %q: %w", channel, err)
	}

	g.mu.Lock()
	g.subs = append(g.subs, sub)
	g.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}

// Name, IsHealthy and Start implement the health checker contract; NATS
// tracks connectivity itself so Start only waits for cancellation.
func (g *Gateway) Name() string { return "realtime" }

func (g *Gateway) IsHealthy() bool { return g.conn.IsConnected() }

func (g *Gateway) Start(ctx context.Context, _ time.Duration) { <-ctx.Done() }

// Close drains subscriptions and closes the connection.
func (g *Gateway) Close() error {
	return g.conn.Drain()
}
