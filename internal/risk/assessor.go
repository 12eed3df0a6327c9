package risk

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/kv"
	"github.com/mycelian/mycelian-crisis/internal/metrics"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

// Protective factor names.
const (
	FactorCommunitySupport = "community_support"
	FactorPositiveMood     = "positive_mood"
	FactorActiveEngagement = "active_engagement"
	FactorSafetyPlan       = "safety_plan_in_place"
)

const (
	DefaultHistoryLimit = 50

	positiveMoodWindow    = 10
	positiveMoodThreshold = 4
	engagementWindow      = 7 * 24 * time.Hour
	engagementThreshold   = 5
)

// Signals is the slice of the wellness feed used for protective factors.
type Signals interface {
	RecentMoods(userID string, n int) []model.MoodEntry
	CompletedSince(userID string, t time.Time) int
}

// PlanChecker reports whether the user has a safety plan.
type PlanChecker interface {
	Exists() bool
}

// Escalator receives high and critical assessments.
type Escalator interface {
	AutoEscalate(ctx context.Context, a *model.Assessment)
}

type Options struct {
	HistoryLimit int
	Signals      Signals
	Plan         PlanChecker
	Escalator    Escalator
}

// Assessor builds assessments for one user and keeps their bounded history.
type Assessor struct {
	userID string
	kv     kv.Store
	clock  clock.Clock
	log    zerolog.Logger
	opts   Options

	mu      sync.RWMutex
	history []model.Assessment
}

func NewAssessor(userID string, store kv.Store, clk clock.Clock, log zerolog.Logger, opts Options) *Assessor {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &Assessor{
		userID: userID,
		kv:     store,
		clock:  clk,
		log:    log.With().Str("component", "risk_assessor").Str("user_id", userID).Logger(),
		opts:   opts,
	}
}

func (a *Assessor) key() string { return kv.Key(a.userID, kv.KindAssessments) }

// LoadHistory restores persisted assessments.
func (a *Assessor) LoadHistory(ctx context.Context) error {
	var hist []model.Assessment
	found, err := kv.GetJSON(ctx, a.kv, a.key(), &hist)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if n := len(hist) - a.opts.HistoryLimit; n > 0 {
		hist = hist[n:]
	}
	a.mu.Lock()
	a.history = hist
	a.mu.Unlock()
	return nil
}

// Assess turns triggers into an assessment, records it and escalates high or
// critical results. It returns nil without side effects for an empty list.
func (a *Assessor) Assess(ctx context.Context, triggers []model.Trigger) (*model.Assessment, error) {
	if len(triggers) == 0 {
		return nil, nil
	}

	severity, score := Classify(triggers)
	suicidal, selfHarm := flags(triggers)
	assessment := model.Assessment{
		ID:                uuid.NewString(),
		UserID:            a.userID,
		CreatedAt:         a.clock.Now(),
		Severity:          severity,
		RiskScore:         score,
		RiskFactors:       riskFactors(triggers),
		ProtectiveFactors: a.protectiveFactors(),
		SuicidalIdeation:  suicidal,
		SelfHarm:          selfHarm,
		Recommendations:   Recommendations(severity, triggers),
	}

	a.mu.Lock()
	a.history = append(a.history, assessment)
	if n := len(a.history) - a.opts.HistoryLimit; n > 0 {
		a.history = append([]model.Assessment(nil), a.history[n:]...)
	}
	snapshot := append([]model.Assessment(nil), a.history...)
	a.mu.Unlock()

	metrics.AssessmentsTotal.WithLabelValues(string(severity)).Inc()
	for _, t := range triggers {
		metrics.TriggersTotal.WithLabelValues(string(t.Kind)).Inc()
	}

	if err := kv.SetJSON(ctx, a.kv, a.key(), snapshot); err != nil {
		metrics.PersistFailuresTotal.WithLabelValues(kv.KindAssessments).Inc()
		a.log.Error().Stack().Err(err).Str("assessment_id", assessment.ID).Msg("failed to persist assessment history")
	}

	a.log.Info().
		Str("assessment_id", assessment.ID).
		Str("severity", string(severity)).
		Float64("risk_score", score).
		Int("triggers", len(triggers)).
		Msg("risk assessed")

	out := assessment
	if severity.AtLeast(model.SeverityHigh) && a.opts.Escalator != nil {
		a.opts.Escalator.AutoEscalate(ctx, &out)
	}
	return &out, nil
}

func (a *Assessor) protectiveFactors() []string {
	factors := []string{FactorCommunitySupport}
	if s := a.opts.Signals; s != nil {
		for _, m := range s.RecentMoods(a.userID, positiveMoodWindow) {
			if m.MoodScore != nil && *m.MoodScore >= positiveMoodThreshold {
				factors = append(factors, FactorPositiveMood)
				break
			}
		}
		if s.CompletedSince(a.userID, a.clock.Now().Add(-engagementWindow)) > engagementThreshold {
			factors = append(factors, FactorActiveEngagement)
		}
	}
	if a.opts.Plan != nil && a.opts.Plan.Exists() {
		factors = append(factors, FactorSafetyPlan)
	}
	sort.Strings(factors)
	return factors
}

// History returns assessments oldest first.
func (a *Assessor) History() []model.Assessment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]model.Assessment(nil), a.history...)
}

// Current returns the most recent assessment, or nil.
func (a *Assessor) Current() *model.Assessment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.history) == 0 {
		return nil
	}
	cur := a.history[len(a.history)-1]
	return &cur
}
