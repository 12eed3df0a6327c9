package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/mycelian/mycelian-crisis/internal/metrics"
)

// Bus is a lightweight in-process pub-sub implementation. Each subscriber
// owns a buffered channel; publishing never blocks and drops deliveries to
// subscribers whose buffer is full.
type Bus struct {
	mu     sync.RWMutex
	buffer int
	subs   map[string]map[chan Event]struct{}
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{buffer: buffer, subs: make(map[string]map[chan Event]struct{})}
}

// Publish attempts to enqueue the event for every subscriber of channel without blocking.
// Returns true if every subscriber received it.
func (b *Bus) Publish(channel string, evt Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := true
	for ch := range b.subs[channel] {
		select {
		case ch <- evt:
		default:
			all = false
			metrics.RealtimeDroppedTotal.WithLabelValues(channel).Inc()
		}
	}
	return all
}

// Send implements Gateway.
func (b *Bus) Send(_ context.Context, channel string, evt Event) error {
	b.Publish(channel, evt)
	return nil
}

// Subscribe implements Gateway. The returned channel is closed once ctx is done.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan Event, error) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan Event]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscribers on channel.
func (b *Bus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Name, IsHealthy and Start implement the health checker contract. The
// in-process bus has no remote dependency and is always healthy.
func (b *Bus) Name() string { return "realtime" }

func (b *Bus) IsHealthy() bool { return true }

func (b *Bus) Start(ctx context.Context, _ time.Duration) { <-ctx.Done() }

func (b *Bus) Close() error { return nil }
