package crisis

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/feed"
	"github.com/mycelian/mycelian-crisis/internal/kv"
	"github.com/mycelian/mycelian-crisis/internal/model"
	"github.com/mycelian/mycelian-crisis/internal/monitor"
	"github.com/mycelian/mycelian-crisis/internal/realtime"
	"github.com/mycelian/mycelian-crisis/internal/session"
)

var t0 = time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC)

func num(v float64) *float64 { return &v }

type harness struct {
	engine *Engine
	feed   *feed.Feed
	store  *kv.Memory
	bus    *realtime.Bus
	clk    *clock.Fake
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: kv.NewMemory(),
		bus:   realtime.NewBus(32),
		clk:   clock.NewFake(t0),
	}
	h.feed = feed.New(h.clk)
	h.engine = New(h.feed, h.store, h.bus, h.clk, zerolog.Nop(), Options{InstanceID: "node-a"})
	return h
}

func (h *harness) withPlan(t *testing.T, userID string) {
	t.Helper()
	u, err := h.engine.User(context.Background(), userID)
	require.NoError(t, err)
	_, err = u.Plan.Update(context.Background(), model.SafetyPlanUpdate{
		EmergencyContacts: &[]model.EmergencyContact{{ID: "ec-1", Name: "Crisis line", Phone: "988"}},
	})
	require.NoError(t, err)
}

func TestUserRejectsEmptyID(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.User(context.Background(), "")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestUserIsCached(t *testing.T) {
	h := newHarness(t)
	a, err := h.engine.User(context.Background(), "u1")
	require.NoError(t, err)
	b, err := h.engine.User(context.Background(), "u1")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestRecordMoodProducesAssessment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got, err := h.engine.RecordMood(ctx, "u1", model.MoodEntry{MoodScore: num(1), StressLevel: num(9), AnxietyLevel: num(9)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SeverityMedium, got.Severity)
	assert.InDelta(t, 0.733, got.RiskScore, 1e-3)

	none, err := h.engine.RecordMood(ctx, "u1", model.MoodEntry{MoodScore: num(4)})
	require.NoError(t, err)
	assert.Nil(t, none, "a calm entry raises no triggers")
}

func TestCrisisKeywordsActivatePlanOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.withPlan(t, "u1")

	sub, cancel := context.WithCancel(ctx)
	defer cancel()
	out, err := h.bus.Subscribe(sub, realtime.ChannelCrisis)
	require.NoError(t, err)

	got, err := h.engine.RecordMood(ctx, "u1", model.MoodEntry{Notes: "feeling hopeless and suicidal"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SeverityCritical, got.Severity)
	assert.True(t, got.SuicidalIdeation)

	u, err := h.engine.User(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Plan.Get().ActivationCount)

	var types []realtime.EventType
	for len(out) > 0 {
		evt := <-out
		assert.Equal(t, "node-a", evt.Origin)
		types = append(types, evt.Type)
	}
	assert.Equal(t, []realtime.EventType{realtime.EventAlert, realtime.EventSafetyPlanActivated}, types)
}

func TestRecordActivityInactivity(t *testing.T) {
	h := newHarness(t)
	done := t0.Add(-4 * 24 * time.Hour)

	got, err := h.engine.RecordActivity(context.Background(), "u1", model.Activity{Type: "walk", Completed: true, CompletedAt: &done})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SeverityMedium, got.Severity)
	assert.Equal(t, []model.TriggerKind{model.TriggerInactivity}, got.RiskFactors)
}

func TestDispatchRoutesInboundEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.engine.User(ctx, "u1")
	require.NoError(t, err)
	_, err = u.Sessions.StartSession(ctx, model.SeverityHigh)
	require.NoError(t, err)

	own, err := realtime.NewEvent(realtime.EventCounselorAvailable, "u1", "", realtime.CounselorAvailablePayload{CounselorID: "c0"}, t0)
	require.NoError(t, err)
	own.Origin = "node-a"
	h.engine.Dispatch(ctx, own)
	assert.Equal(t, model.StatusWaiting, u.Sessions.Active().Status, "own events are ignored")

	outbound, err := realtime.NewEvent(realtime.EventSessionResolved, "u1", "", nil, t0)
	require.NoError(t, err)
	h.engine.Dispatch(ctx, outbound)
	assert.NotNil(t, u.Sessions.Active())

	evt, err := realtime.NewEvent(realtime.EventCounselorAvailable, "u1", "", realtime.CounselorAvailablePayload{CounselorID: "c1"}, t0)
	require.NoError(t, err)
	evt.Origin = "console"
	h.engine.Dispatch(ctx, evt)
	s := u.Sessions.Active()
	assert.Equal(t, model.StatusConnected, s.Status)
	assert.Equal(t, "c1", s.CounselorID)
}

func TestListenConsumesGateway(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u, err := h.engine.User(ctx, "u1")
	require.NoError(t, err)
	_, err = u.Sessions.StartSession(ctx, model.SeverityMedium)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- h.engine.Listen(ctx) }()
	// the coordinator's own counselor_request is already on the bus; wait for
	// the listener before publishing the remote event
	require.Eventually(t, func() bool { return h.bus.Subscribers(realtime.ChannelCrisis) == 1 }, time.Second, time.Millisecond)

	evt, err := realtime.NewEvent(realtime.EventMessageReceived, "u1", "", realtime.MessageReceivedPayload{SenderID: "c1", Content: "hi"}, t0)
	require.NoError(t, err)
	require.NoError(t, h.bus.Send(ctx, realtime.ChannelCrisis, evt))

	require.Eventually(t, func() bool { return len(u.Sessions.Active().Messages) == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestSessionListenersApplyToAllUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.engine.User(ctx, "early")
	require.NoError(t, err)

	var seen []string
	h.engine.OnSessionEvent(func(e session.Event) {
		if e.Type == session.EventSupportRequested {
			seen = append(seen, e.UserID)
		}
	})

	for _, id := range []string{"early", "late"} {
		u, err := h.engine.User(ctx, id)
		require.NoError(t, err)
		_, err = u.Sessions.StartSession(ctx, model.SeverityLow)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"early", "late"}, seen)
}

func TestMonitorUsesEngine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i, v := range []float64{5, 5, 2, 1} {
		h.feed.RecordMood(ctx, "u1", model.MoodEntry{MoodScore: num(v), Timestamp: t0.Add(time.Duration(i-5) * time.Hour)})
	}

	m := h.engine.Monitor(monitor.Config{Interval: time.Hour})
	require.True(t, m.Tick(ctx))

	u, err := h.engine.User(ctx, "u1")
	require.NoError(t, err)
	cur := u.Assessor.Current()
	require.NotNil(t, cur)
	assert.ElementsMatch(t, []model.TriggerKind{model.TriggerDecliningMoodTrend, model.TriggerSocialIsolation}, cur.RiskFactors)
	assert.Equal(t, []string{"u1"}, h.engine.Users())
}

func TestLookupDoesNotEnrollUserInMonitoring(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.engine.User(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, h.engine.Users())

	m := h.engine.Monitor(monitor.Config{Interval: time.Hour})
	require.True(t, m.Tick(ctx))

	u, err := h.engine.User(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, u.Assessor.Current())
	assert.Empty(t, u.Assessor.History())

	h.feed.RecordMood(ctx, "u1", model.MoodEntry{MoodScore: num(6)})
	assert.Equal(t, []string{"u1"}, h.engine.Users())
}
