package health

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	name    string
	healthy atomic.Bool
	started atomic.Bool
}

func (f *fakeChecker) Name() string    { return f.name }
func (f *fakeChecker) IsHealthy() bool { return f.healthy.Load() }
func (f *fakeChecker) Start(ctx context.Context, _ time.Duration) {
	f.started.Store(true)
	<-ctx.Done()
}

func TestServiceTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv := &fakeChecker{name: "kv"}
	rt := &fakeChecker{name: "realtime"}
	kv.healthy.Store(true)
	rt.healthy.Store(true)

	svc := NewService(zerolog.Nop(), kv, rt)
	go svc.Run(ctx, 10*time.Millisecond)

	require.Eventually(t, svc.IsHealthy, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return kv.started.Load() && rt.started.Load() }, time.Second, 5*time.Millisecond)

	rt.healthy.Store(false)
	require.Eventually(t, func() bool { return !svc.IsHealthy() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]bool{"kv": true, "realtime": false}, svc.Components())

	rt.healthy.Store(true)
	require.Eventually(t, svc.IsHealthy, time.Second, 5*time.Millisecond)
}

func TestEvaluateWithoutDeps(t *testing.T) {
	svc := NewService(zerolog.Nop())
	assert.False(t, svc.IsHealthy(), "unhealthy until first evaluation")
	assert.True(t, svc.Evaluate())
	assert.Empty(t, svc.Components())
}
