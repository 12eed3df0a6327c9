package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/feed"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

var t0 = time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)

type call struct {
	userID   string
	triggers []model.Trigger
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) assess(_ context.Context, userID string, triggers []model.Trigger) (*model.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{userID: userID, triggers: triggers})
	return &model.Assessment{UserID: userID}, nil
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func scores(v ...float64) []model.MoodEntry {
	out := make([]model.MoodEntry, len(v))
	for i := range v {
		s := v[i]
		out[i] = model.MoodEntry{MoodScore: &s}
	}
	return out
}

func kinds(ts []model.Trigger) []model.TriggerKind {
	var out []model.TriggerKind
	for _, t := range ts {
		out = append(out, t.Kind)
	}
	return out
}

func TestMoodTrend(t *testing.T) {
	_, ok := MoodTrend(scores(5, 1))
	assert.False(t, ok, "fewer than three entries")

	// halves of an odd list: [5] vs [3, 2]
	trend, ok := MoodTrend(scores(5, 3, 2))
	require.True(t, ok)
	assert.InDelta(t, -2.5, trend, 1e-9)

	trend, ok = MoodTrend(scores(2, 2, 3, 3))
	require.True(t, ok)
	assert.InDelta(t, 1.0, trend, 1e-9)

	withGaps := append(append(scores(4, 4), model.MoodEntry{}), scores(4)...)
	trend, ok = MoodTrend(withGaps)
	require.True(t, ok)
	assert.Zero(t, trend)
}

func TestEvaluateTrendAndIsolation(t *testing.T) {
	clk := clock.NewFake(t0)
	f := feed.New(clk)
	ctx := context.Background()
	for i, e := range scores(5, 5, 4, 2, 2, 1) {
		e.Timestamp = t0.Add(time.Duration(i-10) * time.Hour)
		f.RecordMood(ctx, "u1", e)
	}
	done := t0.Add(-2 * time.Hour)
	f.RecordActivity(ctx, "u1", model.Activity{Type: "walk", Completed: true, CompletedAt: &done})

	m := New(f, (&recorder{}).assess, clk, Config{}, zerolog.Nop())
	got := m.Evaluate("u1", t0)
	assert.Equal(t, []model.TriggerKind{model.TriggerDecliningMoodTrend, model.TriggerSocialIsolation}, kinds(got))
	assert.Equal(t, 0.7, got[0].Confidence)
	assert.Equal(t, 0.5, got[1].Confidence)
	assert.Equal(t, SourcePeriodicMonitor, got[1].Source)

	f.RecordActivity(ctx, "u1", model.Activity{Type: "coffee", Category: "social", Completed: true, CompletedAt: &done})
	got = m.Evaluate("u1", t0)
	assert.Equal(t, []model.TriggerKind{model.TriggerDecliningMoodTrend}, kinds(got))
}

func TestRunTicksOnInterval(t *testing.T) {
	clk := clock.NewFake(t0)
	f := feed.New(clk)
	f.RecordMood(context.Background(), "u1", model.MoodEntry{})
	rec := &recorder{}
	m := New(f, rec.assess, clk, Config{Interval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return clk.Tickers() == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, rec.snapshot(), "nothing runs before the first interval")

	clk.Advance(time.Hour)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	calls := rec.snapshot()
	assert.Equal(t, "u1", calls[0].userID)
	assert.Equal(t, []model.TriggerKind{model.TriggerSocialIsolation}, kinds(calls[0].triggers))

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, 0, clk.Tickers())
}

func TestTickSkipsWhileRunning(t *testing.T) {
	clk := clock.NewFake(t0)
	f := feed.New(clk)
	f.RecordMood(context.Background(), "u1", model.MoodEntry{})

	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := func(context.Context, string, []model.Trigger) (*model.Assessment, error) {
		close(entered)
		<-release
		return nil, nil
	}
	m := New(f, blocking, clk, Config{}, zerolog.Nop())

	first := make(chan bool, 1)
	go func() { first <- m.Tick(context.Background()) }()
	<-entered

	assert.False(t, m.Tick(context.Background()))

	close(release)
	assert.True(t, <-first)
}

func TestTickWithoutTriggersDoesNotAssess(t *testing.T) {
	clk := clock.NewFake(t0)
	f := feed.New(clk)
	ctx := context.Background()
	now := t0.Add(-time.Hour)
	f.RecordActivity(ctx, "u1", model.Activity{Type: "call", Category: "social", Completed: true, CompletedAt: &now})

	rec := &recorder{}
	m := New(f, rec.assess, clk, Config{}, zerolog.Nop())
	assert.True(t, m.Tick(ctx))
	assert.Empty(t, rec.snapshot())
}
