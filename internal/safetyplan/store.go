// Package safetyplan owns a user's persisted safety plan.
package safetyplan

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/kv"
	"github.com/mycelian/mycelian-crisis/internal/metrics"
	"github.com/mycelian/mycelian-crisis/internal/model"
)

// Store loads a user's plan once and writes every change back to kv.
// All mutation goes through Store; readers receive copies.
type Store struct {
	userID string
	kv     kv.Store
	clock  clock.Clock
	log    zerolog.Logger

	mu   sync.RWMutex
	plan *model.SafetyPlan
}

func New(userID string, store kv.Store, clk clock.Clock, log zerolog.Logger) *Store {
	return &Store{
		userID: userID,
		kv:     store,
		clock:  clk,
		log:    log.With().Str("component", "safety_plan").Str("user_id", userID).Logger(),
	}
}

func (s *Store) key() string { return kv.Key(s.userID, kv.KindSafetyPlan) }

// Load reads the plan from kv. A missing plan is not an error.
func (s *Store) Load(ctx context.Context) error {
	var plan model.SafetyPlan
	found, err := kv.GetJSON(ctx, s.kv, s.key(), &plan)
	if err != nil {
		return fmt.Errorf("load safety plan for %s: %w", s.userID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if found {
		s.plan = &plan
	} else {
		s.plan = nil
	}
	return nil
}

// Get returns a copy of the plan, or nil when the user has none.
func (s *Store) Get() *model.SafetyPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan.Clone()
}

func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan != nil
}

// Update merges upd into the plan, creating it if needed, and writes it
// before returning. On write failure the merged plan stays in memory and the
// error is returned.
func (s *Store) Update(ctx context.Context, upd model.SafetyPlanUpdate) (*model.SafetyPlan, error) {
	now := s.clock.Now()

	s.mu.Lock()
	if s.plan == nil {
		s.plan = &model.SafetyPlan{
			ID:        uuid.NewString(),
			UserID:    s.userID,
			CreatedAt: now,
		}
	}
	merge(s.plan, upd)
	s.plan.LastUpdatedAt = now
	snapshot := s.plan.Clone()
	s.mu.Unlock()

	if err := kv.SetJSON(ctx, s.kv, s.key(), snapshot); err != nil {
		metrics.PersistFailuresTotal.WithLabelValues(kv.KindSafetyPlan).Inc()
		s.log.Error().Stack().Err(err).Msg("failed to persist safety plan update")
		return snapshot, fmt.Errorf("persist safety plan for %s: %w", s.userID, err)
	}
	s.log.Debug().Str("plan_id", snapshot.ID).Msg("safety plan updated")
	return snapshot, nil
}

// RecordActivation increments the activation counter. Persisting is
// best-effort. It returns nil when there is no plan.
func (s *Store) RecordActivation(ctx context.Context) *model.SafetyPlan {
	s.mu.Lock()
	if s.plan == nil {
		s.mu.Unlock()
		return nil
	}
	s.plan.ActivationCount++
	s.plan.LastUpdatedAt = s.clock.Now()
	snapshot := s.plan.Clone()
	s.mu.Unlock()

	if err := kv.SetJSON(ctx, s.kv, s.key(), snapshot); err != nil {
		metrics.PersistFailuresTotal.WithLabelValues(kv.KindSafetyPlan).Inc()
		s.log.Error().Stack().Err(err).Int("activation_count", snapshot.ActivationCount).
			Msg("failed to persist safety plan activation")
	}
	return snapshot
}

// FindEmergencyContact looks up an emergency contact by id.
func (s *Store) FindEmergencyContact(id string) (model.EmergencyContact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.plan == nil {
		return model.EmergencyContact{}, false
	}
	for _, c := range s.plan.EmergencyContacts {
		if c.ID == id {
			return c, true
		}
	}
	return model.EmergencyContact{}, false
}

// FirstEmergencyContact returns the first listed emergency contact.
func (s *Store) FirstEmergencyContact() (model.EmergencyContact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.plan == nil || len(s.plan.EmergencyContacts) == 0 {
		return model.EmergencyContact{}, false
	}
	return s.plan.EmergencyContacts[0], true
}

func merge(p *model.SafetyPlan, upd model.SafetyPlanUpdate) {
	if upd.WarningSignals != nil {
		p.WarningSignals = append([]string(nil), (*upd.WarningSignals)...)
	}
	if upd.CopingStrategies != nil {
		p.CopingStrategies = append([]string(nil), (*upd.CopingStrategies)...)
	}
	if upd.DistractionActivities != nil {
		p.DistractionActivities = append([]string(nil), (*upd.DistractionActivities)...)
	}
	if upd.SupportContacts != nil {
		p.SupportContacts = withContactIDs(*upd.SupportContacts)
	}
	if upd.ProfessionalContacts != nil {
		p.ProfessionalContacts = withProfessionalIDs(*upd.ProfessionalContacts)
	}
	if upd.EmergencyContacts != nil {
		p.EmergencyContacts = withEmergencyIDs(*upd.EmergencyContacts)
	}
	if upd.ReasonsToLive != nil {
		p.ReasonsToLive = append([]string(nil), (*upd.ReasonsToLive)...)
	}
}

func withContactIDs(in []model.Contact) []model.Contact {
	out := append([]model.Contact(nil), in...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}

func withProfessionalIDs(in []model.ProfessionalContact) []model.ProfessionalContact {
	out := append([]model.ProfessionalContact(nil), in...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}

func withEmergencyIDs(in []model.EmergencyContact) []model.EmergencyContact {
	out := append([]model.EmergencyContact(nil), in...)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}
