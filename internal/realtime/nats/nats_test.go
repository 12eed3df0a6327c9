package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-crisis/internal/realtime"
)

func TestConnectRefused(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", 8, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

// Requires a running server, e.g. CRISIS_TEST_NATS_URL=nats://localhost:4222.
func TestGatewayRoundTrip(t *testing.T) {
	url := os.Getenv("CRISIS_TEST_NATS_URL")
	if url == "" {
		t.Skip("CRISIS_TEST_NATS_URL not set")
	}
	gw, err := Connect(url, 8, zerolog.Nop())
	require.NoError(t, err)
	defer gw.Close()
	require.True(t, gw.IsHealthy())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := gw.Subscribe(ctx, realtime.ChannelCrisis)
	require.NoError(t, err)
	require.NoError(t, gw.conn.Flush())

	sent, err := realtime.NewEvent(realtime.EventCounselorAvailable, "u1", "s1",
		realtime.CounselorAvailablePayload{CounselorID: "c1"}, time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, gw.Send(ctx, realtime.ChannelCrisis, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, "u1", got.UserID)
		var p realtime.CounselorAvailablePayload
		require.NoError(t, got.Decode(&p))
		assert.Equal(t, "c1", p.CounselorID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
