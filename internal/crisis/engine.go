// Package crisis wires the per-user crisis components to the wellness feed,
// the persistence gateway and the realtime gateway.
package crisis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/feed"
	"github.com/mycelian/mycelian-crisis/internal/kv"
	"github.com/mycelian/mycelian-crisis/internal/model"
	"github.com/mycelian/mycelian-crisis/internal/monitor"
	"github.com/mycelian/mycelian-crisis/internal/realtime"
	"github.com/mycelian/mycelian-crisis/internal/risk"
	"github.com/mycelian/mycelian-crisis/internal/safetyplan"
	"github.com/mycelian/mycelian-crisis/internal/session"
	"github.com/mycelian/mycelian-crisis/internal/signals"
)

type Options struct {
	// InstanceID is stamped on outbound events; inbound events carrying it are ignored.
	InstanceID             string
	AssessmentHistoryLimit int
	SessionHistoryLimit    int
	FollowUpDelay          time.Duration
}

// User is the component set owned by one user.
type User struct {
	ID       string
	Plan     *safetyplan.Store
	Assessor *risk.Assessor
	Sessions *session.Coordinator
}

// Engine owns every user's components.
type Engine struct {
	feed  *feed.Feed
	kv    kv.Store
	gw    realtime.Gateway
	clock clock.Clock
	log   zerolog.Logger
	opts  Options

	mu        sync.Mutex
	users     map[string]*User
	listeners []session.Listener
}

// New builds an Engine and registers its feed callbacks.
func New(f *feed.Feed, store kv.Store, gw realtime.Gateway, clk clock.Clock, log zerolog.Logger, opts Options) *Engine {
	e := &Engine{
		feed:  f,
		kv:    store,
		gw:    gw,
		clock: clk,
		log:   log.With().Str("component", "engine").Logger(),
		opts:  opts,
		users: make(map[string]*User),
	}
	f.OnMood(e.onMood)
	f.OnActivity(e.onActivity)
	return e
}

// User returns the user's components, loading persisted state on first use.
func (e *Engine) User(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", model.ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if u, ok := e.users[userID]; ok {
		return u, nil
	}

	plan := safetyplan.New(userID, e.kv, e.clock, e.log)
	if err := plan.Load(ctx); err != nil {
		return nil, err
	}
	coord := session.NewCoordinator(userID, e.kv, e.gw, plan, e.clock, e.log, session.Options{
		HistoryLimit:  e.opts.SessionHistoryLimit,
		FollowUpDelay: e.opts.FollowUpDelay,
		Origin:        e.opts.InstanceID,
	})
	for _, l := range e.listeners {
		coord.OnEvent(l)
	}
	assessor := risk.NewAssessor(userID, e.kv, e.clock, e.log, risk.Options{
		HistoryLimit: e.opts.AssessmentHistoryLimit,
		Signals:      e.feed,
		Plan:         plan,
		Escalator:    coord,
	})
	if err := assessor.LoadHistory(ctx); err != nil {
		return nil, fmt.Errorf("load assessment history for %s: %w", userID, err)
	}

	u := &User{ID: userID, Plan: plan, Assessor: assessor, Sessions: coord}
	e.users[userID] = u
	e.log.Debug().Str("user_id", userID).Bool("has_safety_plan", plan.Exists()).Msg("user components initialised")
	return u, nil
}

// OnSessionEvent registers l with every current and future coordinator.
func (e *Engine) OnSessionEvent(l session.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
	for _, u := range e.users {
		u.Sessions.OnEvent(l)
	}
}

// Assess hands triggers to the user's risk assessor.
func (e *Engine) Assess(ctx context.Context, userID string, triggers []model.Trigger) (*model.Assessment, error) {
	if len(triggers) == 0 {
		return nil, nil
	}
	u, err := e.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Assessor.Assess(ctx, triggers)
}

// RecordMood records entry on the feed and returns the assessment it caused, if any.
func (e *Engine) RecordMood(ctx context.Context, userID string, entry model.MoodEntry) (*model.Assessment, error) {
	u, err := e.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := u.Assessor.Current()
	e.feed.RecordMood(ctx, userID, entry)
	return newer(before, u.Assessor.Current()), nil
}

// RecordActivity records activity on the feed and returns the assessment it caused, if any.
func (e *Engine) RecordActivity(ctx context.Context, userID string, activity model.Activity) (*model.Assessment, error) {
	u, err := e.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := u.Assessor.Current()
	e.feed.RecordActivity(ctx, userID, activity)
	return newer(before, u.Assessor.Current()), nil
}

func newer(before, after *model.Assessment) *model.Assessment {
	if after == nil || (before != nil && before.ID == after.ID) {
		return nil
	}
	return after
}

func (e *Engine) onMood(ctx context.Context, userID string, entry model.MoodEntry) {
	if _, err := e.Assess(ctx, userID, signals.AnalyzeMoodEntry(entry)); err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("mood entry assessment failed")
	}
}

func (e *Engine) onActivity(ctx context.Context, userID string, _ model.Activity) {
	triggers := signals.AnalyzeActivityLog(e.feed.Activities(userID), e.clock.Now())
	if _, err := e.Assess(ctx, userID, triggers); err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("activity assessment failed")
	}
}

// Users lists users with recorded wellness data. Users only looked up
// through the API or the gateway are not monitored.
func (e *Engine) Users() []string {
	return e.feed.Users()
}

func (e *Engine) RecentMoods(userID string, n int) []model.MoodEntry {
	return e.feed.RecentMoods(userID, n)
}

func (e *Engine) ActivitiesSince(userID string, t time.Time) []model.Activity {
	return e.feed.ActivitiesSince(userID, t)
}

// Monitor returns a periodic monitor over every known user.
func (e *Engine) Monitor(cfg monitor.Config) *monitor.Monitor {
	return monitor.New(e, e.Assess, e.clock, cfg, e.log)
}

// Listen routes inbound crisis-channel events to user coordinators until ctx
// is canceled. Events this instance published are skipped.
func (e *Engine) Listen(ctx context.Context) error {
	events, err := e.gw.Subscribe(ctx, realtime.ChannelCrisis)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", realtime.ChannelCrisis, err)
	}
	e.log.Info().Str("instance_id", e.opts.InstanceID).Msg("listening for realtime events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			e.Dispatch(ctx, evt)
		}
	}
}

// Dispatch applies a single inbound event.
func (e *Engine) Dispatch(ctx context.Context, evt realtime.Event) {
	if evt.Origin != "" && evt.Origin == e.opts.InstanceID {
		return
	}
	if !evt.Type.Inbound() || evt.UserID == "" {
		return
	}
	u, err := e.User(ctx, evt.UserID)
	if err != nil {
		e.log.Error().Err(err).Str("user_id", evt.UserID).Str("event", string(evt.Type)).Msg("dropping realtime event")
		return
	}
	u.Sessions.HandleRemote(ctx, evt)
}
