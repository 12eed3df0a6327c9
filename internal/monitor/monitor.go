// Package monitor periodically re-evaluates recent history for slow-forming
// risk that single events miss.
package monitor

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/feed"
	"github.com/mycelian/mycelian-crisis/internal/metrics"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

const (
	SourcePeriodicMonitor = "periodic_monitor"

	trendWindow         = 10
	trendMinEntries     = 3
	trendThreshold      = -0.5
	trendConfidence     = 0.7
	isolationWindow     = 24 * time.Hour
	isolationConfidence = 0.5
)

// Source supplies the users and history the monitor evaluates.
type Source interface {
	Users() []string
	RecentMoods(userID string, n int) []model.MoodEntry
	ActivitiesSince(userID string, t time.Time) []model.Activity
}

// AssessFunc hands a user's triggers to their risk assessor.
type AssessFunc func(ctx context.Context, userID string, triggers []model.Trigger) (*model.Assessment, error)

// Config controls the tick cadence.
type Config struct {
	Interval time.Duration
}

// Monitor evaluates every known user once per interval. Ticks never overlap;
// a tick requested while another is running is skipped.
type Monitor struct {
	src    Source
	assess AssessFunc
	clock  clock.Clock
	cfg    Config
	log    zerolog.Logger

	running atomic.Bool
}

func New(src Source, assess AssessFunc, clk clock.Clock, cfg Config, log zerolog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Monitor{
		src:    src,
		assess: assess,
		clock:  clk,
		cfg:    cfg,
		log:    log.With().Str("component", "monitor").Logger(),
	}
}

// Run ticks until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info().Dur("interval", m.cfg.Interval).Msg("periodic monitor starting")
	ticker := m.clock.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("periodic monitor stopping")
			return ctx.Err()
		case <-ticker.C():
			m.Tick(ctx)
		}
	}
}

// Tick evaluates every user once. It returns false when skipped because a
// tick was already in progress.
func (m *Monitor) Tick(ctx context.Context) bool {
	if !m.running.CompareAndSwap(false, true) {
		metrics.MonitorTicksTotal.WithLabelValues("skipped").Inc()
		m.log.Warn().Msg("monitor tick still in progress; skipping")
		return false
	}
	defer m.running.Store(false)

	start := m.clock.Now()
	users := m.src.Users()
	assessed := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		triggers := m.Evaluate(userID, start)
		if len(triggers) == 0 {
			continue
		}
		if _, err := m.assess(ctx, userID, triggers); err != nil {
			m.log.Error().Err(err).Str("user_id", userID).Msg("monitor assessment failed")
			continue
		}
		assessed++
	}
	metrics.MonitorTicksTotal.WithLabelValues("completed").Inc()
	m.log.Debug().Int("users", len(users)).Int("assessed", assessed).Msg("monitor tick complete")
	return true
}

// Evaluate returns the slow-risk triggers for one user as of now.
func (m *Monitor) Evaluate(userID string, now time.Time) []model.Trigger {
	var out []model.Trigger

	if trend, ok := MoodTrend(m.src.RecentMoods(userID, trendWindow)); ok && trend < trendThreshold {
		out = append(out, model.Trigger{
			Kind:       model.TriggerDecliningMoodTrend,
			Source:     SourcePeriodicMonitor,
			ObservedAt: now,
			Payload:    map[string]any{"trend": trend},
			Confidence: trendConfidence,
		})
	}

	recent := m.src.ActivitiesSince(userID, now.Add(-isolationWindow))
	if !anySocial(recent) {
		out = append(out, model.Trigger{
			Kind:       model.TriggerSocialIsolation,
			Source:     SourcePeriodicMonitor,
			ObservedAt: now,
			Payload:    map[string]any{"recentActivities": len(recent)},
			Confidence: isolationConfidence,
		})
	}
	return out
}

// MoodTrend compares the mean of the newer half of entries with the older
// half. Entries must be oldest first; the older half holds n/2 entries.
// Entries without a numeric score are ignored and at least three are needed.
func MoodTrend(entries []model.MoodEntry) (float64, bool) {
	var scores []float64
	for _, e := range entries {
		if e.MoodScore != nil && !math.IsNaN(*e.MoodScore) && !math.IsInf(*e.MoodScore, 0) {
			scores = append(scores, *e.MoodScore)
		}
	}
	if len(scores) < trendMinEntries {
		return 0, false
	}
	mid := len(scores) / 2
	return mean(scores[mid:]) - mean(scores[:mid]), true
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func anySocial(activities []model.Activity) bool {
	for _, a := range activities {
		if feed.IsSocial(a) {
			return true
		}
	}
	return false
}
