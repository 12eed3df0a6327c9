package crisisservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/config"
	"github.com/mycelian/mycelian-crisis/internal/session"
)

func TestCalculateStartupHealthTimeout(t *testing.T) {
	assert.Equal(t, 60, calculateStartupHealthTimeout(1))
	assert.Equal(t, 60, calculateStartupHealthTimeout(30))
	assert.Equal(t, 120, calculateStartupHealthTimeout(60))
}

func TestBuildAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewForTesting()
	svc, err := build(ctx, cfg, clock.Real(), zerolog.Nop())
	require.NoError(t, err)
	defer svc.close()

	svc.start(ctx)
	require.NoError(t, waitUntilHealthy(ctx, cfg, svc.health))

	srv := httptest.NewServer(svc.router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var body struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.True(t, body.Components["kv"])
	assert.True(t, body.Components["realtime"])

	resp2, err := http.Post(srv.URL+"/api/users/u1/sessions", "application/json", strings.NewReader(`{"severity":"medium"}`))
	require.NoError(t, err)
	_ = resp2.Body.Close()
	assert.Equal(t, http.StatusCreated, resp2.StatusCode)
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.RealtimeDriver = "carrier-pigeon"
	_, err := build(context.Background(), cfg, clock.Real(), zerolog.Nop())
	require.Error(t, err)
}

func TestLogSessionEvent(t *testing.T) {
	var sb strings.Builder
	l := logSessionEvent(zerolog.New(&sb))
	l(session.Event{Type: session.EventSupportRequested, UserID: "u1", At: time.Now()})
	assert.Contains(t, sb.String(), `"event":"support_requested"`)
	assert.Contains(t, sb.String(), `"user_id":"u1"`)
}
