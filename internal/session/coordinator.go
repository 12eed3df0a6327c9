// Package session coordinates the lifecycle of a user's crisis-support
// session: creation, counselor connection, messaging, escalation and
// resolution.
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/mycelian/mycelian-crisis/internal/clock"
	"github.com/mycelian/mycelian-crisis/internal/kv"
	"github.com/mycelian/mycelian-crisis/internal/metrics"
	"github.com/mycelian/mycelian-crisis/internal/model"
	"github.com/mycelian/mycelian-crisis/internal/realtime"
)

const (
	DefaultHistoryLimit  = 20
	DefaultFollowUpDelay = 24 * time.Hour

	ReasonNewSession = "new_session_started"

	msgConnecting        = "Connecting you with crisis support..."
	msgCounselorJoined   = "A crisis counselor has joined the conversation."
	msgPlanActivated     = "Your safety plan has been activated."
	msgEmergencyNotified = "Emergency contact notified: %s"

	// remembered assessment ids for once-only escalation
	maxEscalated = 256
)

// Plans is the safety plan owner as seen by the coordinator.
type Plans interface {
	Exists() bool
	RecordActivation(ctx context.Context) *model.SafetyPlan
	FindEmergencyContact(id string) (model.EmergencyContact, bool)
	FirstEmergencyContact() (model.EmergencyContact, bool)
}

type Options struct {
	HistoryLimit  int
	FollowUpDelay time.Duration
	// Origin stamps outbound gateway events.
	Origin string
}

// Coordinator owns the active session of one user. Gateway sends and
// listener callbacks run after the coordinator's lock is released.
type Coordinator struct {
	userID string
	kv     kv.Store
	gw     realtime.Gateway
	plans  Plans
	clock  clock.Clock
	log    zerolog.Logger
	opts   Options

	mu         sync.Mutex
	active     *model.Session
	listeners  []Listener
	escalated  map[string]struct{}
	escalOrder []string
	entropy    *ulid.MonotonicEntropy

	historyMu sync.Mutex
}

// effects collects the side effects of one operation for delivery after unlock.
type effects struct {
	sends     []realtime.Event
	events    []Event
	resolved  []*model.Session
	listeners []Listener
}

func NewCoordinator(userID string, store kv.Store, gw realtime.Gateway, plans Plans, clk clock.Clock, log zerolog.Logger, opts Options) *Coordinator {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.FollowUpDelay <= 0 {
		opts.FollowUpDelay = DefaultFollowUpDelay
	}
	return &Coordinator{
		userID:    userID,
		kv:        store,
		gw:        gw,
		plans:     plans,
		clock:     clk,
		log:       log.With().Str("component", "session").Str("user_id", userID).Logger(),
		opts:      opts,
		escalated: make(map[string]struct{}),
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// OnEvent registers a listener for local session-state changes.
func (c *Coordinator) OnEvent(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Active returns a snapshot of the active session, or nil.
func (c *Coordinator) Active() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.Clone()
}

// StartSession resolves any active session and opens a new one in waiting.
func (c *Coordinator) StartSession(ctx context.Context, severity model.Severity) (*model.Session, error) {
	if !severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", model.ErrValidation, severity)
	}

	fx := c.begin()
	now := c.clock.Now()
	if c.active != nil {
		c.resolveLocked(fx, ReasonNewSession, now)
	}

	s := &model.Session{
		ID:        uuid.NewString(),
		UserID:    c.userID,
		StartedAt: now,
		Severity:  severity,
		Status:    model.StatusWaiting,
		Messages:  []model.Message{},
	}
	c.active = s
	c.appendLocked(s, c.systemMessage(msgConnecting, model.MessageSystem, now))
	c.emitLocked(fx, EventSupportRequested, now)
	c.sendLocked(fx, realtime.EventCounselorRequest, CounselorRequestPayload{Severity: severity}, now)
	snapshot := s.Clone()
	c.end(ctx, fx)

	metrics.SessionsStartedTotal.WithLabelValues(string(severity)).Inc()
	c.log.Info().Str("session_id", s.ID).Str("severity", string(severity)).Msg("crisis session started")
	return snapshot, nil
}

// ConnectCounselor assigns a counselor to a waiting session. It is a no-op
// without an active session or once a counselor is connected.
func (c *Coordinator) ConnectCounselor(ctx context.Context, counselorID string) *model.Session {
	fx := c.begin()
	c.connectLocked(fx, counselorID, c.clock.Now())
	snapshot := c.active.Clone()
	c.end(ctx, fx)
	return snapshot
}

func (c *Coordinator) connectLocked(fx *effects, counselorID string, now time.Time) {
	s := c.active
	if s == nil {
		c.log.Warn().Str("counselor_id", counselorID).Msg("connect counselor ignored: no active session")
		return
	}
	if !s.Status.CanTransitionTo(model.StatusConnected) {
		c.log.Debug().Str("session_id", s.ID).Str("status", string(s.Status)).Msg("connect counselor ignored")
		return
	}
	s.CounselorID = counselorID
	s.Status = model.StatusConnected
	c.appendLocked(s, c.systemMessage(msgCounselorJoined, model.MessageSystem, now))
	c.emitLocked(fx, EventCounselorConnected, now)
	c.log.Info().Str("session_id", s.ID).Str("counselor_id", counselorID).Msg("counselor connected")
}

// AddMessage appends msg to the active session and forwards it through the
// gateway while a counselor is connected. It returns the stored message, or
// nil without an active session.
func (c *Coordinator) AddMessage(ctx context.Context, msg model.Message) (*model.Message, error) {
	if msg.Kind == "" {
		msg.Kind = model.MessageText
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown message kind %q", model.ErrValidation, msg.Kind)
	}
	if impersonatesSystem(msg) {
		return nil, fmt.Errorf("%w: system messages cannot be added by clients", model.ErrValidation)
	}

	fx := c.begin()
	stored := c.addLocked(fx, msg, true)
	c.end(ctx, fx)
	return stored, nil
}

func (c *Coordinator) addLocked(fx *effects, msg model.Message, forward bool) *model.Message {
	s := c.active
	if s == nil {
		c.log.Warn().Msg("message ignored: no active session")
		return nil
	}
	now := c.clock.Now()
	if msg.ID == "" {
		msg.ID = c.newMessageIDLocked(now)
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = now
	}
	if msg.SenderID == "" {
		msg.SenderID = c.userID
	}
	c.appendLocked(s, msg)
	c.emitLocked(fx, EventMessageAdded, now)
	if forward && s.Status == model.StatusConnected {
		c.sendLocked(fx, realtime.EventMessageSent, msg, now)
	}
	return &msg
}

// ActivateSafetyPlan increments the plan's activation count and marks the
// active session. It returns nil when the user has no plan.
func (c *Coordinator) ActivateSafetyPlan(ctx context.Context) *model.SafetyPlan {
	fx := c.begin()
	plan := c.activateLocked(ctx, fx, c.clock.Now())
	c.end(ctx, fx)
	return plan
}

func (c *Coordinator) activateLocked(ctx context.Context, fx *effects, now time.Time) *model.SafetyPlan {
	if c.plans == nil || !c.plans.Exists() {
		c.log.Warn().Msg("safety plan activation ignored: no safety plan")
		return nil
	}
	plan := c.plans.RecordActivation(ctx)
	if plan == nil {
		return nil
	}
	if s := c.active; s != nil {
		s.SafetyPlanActivated = true
		c.appendLocked(s, c.systemMessage(msgPlanActivated, model.MessageResource, now))
	}
	c.emitLocked(fx, EventSafetyPlanActivated, now)
	c.sendLocked(fx, realtime.EventSafetyPlanActivated, SafetyPlanActivatedPayload{
		PlanID:          plan.ID,
		ActivationCount: plan.ActivationCount,
	}, now)
	metrics.SafetyPlanActivationsTotal.Inc()
	c.log.Info().Int("activation_count", plan.ActivationCount).Msg("safety plan activated")
	return plan
}

// ContactEmergencyServices notifies the emergency contact contactID from the
// safety plan. An unknown contact returns model.ErrContactNotFound and
// changes nothing. Without an active session the call is a no-op.
func (c *Coordinator) ContactEmergencyServices(ctx context.Context, contactID string) (*model.EmergencyContact, error) {
	contact, err := c.lookupContact(contactID)
	if err != nil {
		c.log.Error().Err(err).Str("contact_id", contactID).Msg("emergency contact lookup failed")
		return nil, err
	}

	fx := c.begin()
	ok := c.contactLocked(fx, contact, c.clock.Now())
	c.end(ctx, fx)
	if !ok {
		return nil, nil
	}
	return &contact, nil
}

func (c *Coordinator) lookupContact(contactID string) (model.EmergencyContact, error) {
	if c.plans == nil || !c.plans.Exists() {
		return model.EmergencyContact{}, fmt.Errorf("%w: %s (no safety plan)", model.ErrContactNotFound, contactID)
	}
	contact, ok := c.plans.FindEmergencyContact(contactID)
	if !ok {
		return model.EmergencyContact{}, fmt.Errorf("%w: %s", model.ErrContactNotFound, contactID)
	}
	return contact, nil
}

func (c *Coordinator) contactLocked(fx *effects, contact model.EmergencyContact, now time.Time) bool {
	s := c.active
	if s == nil {
		c.log.Warn().Str("contact_id", contact.ID).Msg("emergency contact ignored: no active session")
		return false
	}
	s.EmergencyServicesContacted = true
	c.appendLocked(s, c.systemMessage(fmt.Sprintf(msgEmergencyNotified, contact.Name), model.MessageSystem, now))
	c.emitLocked(fx, EventEmergencyContacted, now)
	c.sendLocked(fx, realtime.EventEmergencyContacted, EmergencyContactedPayload{
		ContactID: contact.ID,
		Name:      contact.Name,
		Phone:     contact.Phone,
	}, now)
	c.log.Warn().Str("session_id", s.ID).Str("contact_id", contact.ID).Msg("emergency services contacted")
	return true
}

// EndSession resolves the active session. It is a no-op without one.
func (c *Coordinator) EndSession(ctx context.Context, reason string) *model.Session {
	fx := c.begin()
	var resolved *model.Session
	if c.active == nil {
		c.log.Debug().Str("reason", reason).Msg("end session ignored: no active session")
	} else {
		resolved = c.resolveLocked(fx, reason, c.clock.Now())
	}
	c.end(ctx, fx)
	return resolved
}

func (c *Coordinator) resolveLocked(fx *effects, reason string, now time.Time) *model.Session {
	s := c.active
	from := s.Status
	end := now
	s.EndedAt = &end
	s.Status = model.StatusResolved
	s.Resolution = reason

	if s.Severity.AtLeast(model.SeverityHigh) {
		followUp := now.Add(c.opts.FollowUpDelay)
		s.FollowUpAt = &followUp
		c.emitLocked(fx, EventFollowUpScheduled, now)
		c.sendLocked(fx, realtime.EventFollowUpScheduled, FollowUpScheduledPayload{
			FollowUpAt: followUp,
			Severity:   s.Severity,
		}, now)
	}
	c.emitLocked(fx, EventSessionResolved, now)
	c.sendLocked(fx, realtime.EventSessionResolved, SessionResolvedPayload{Reason: reason}, now)

	snapshot := s.Clone()
	fx.resolved = append(fx.resolved, snapshot)
	c.active = nil

	metrics.SessionsResolvedTotal.WithLabelValues(string(from)).Inc()
	c.log.Info().Str("session_id", s.ID).Str("reason", reason).Str("from", string(from)).Msg("crisis session resolved")
	return snapshot
}

// AutoEscalate is invoked for high and critical assessments. It sends an
// alert and, for critical assessments, activates the safety plan when one
// exists. Each assessment is handled at most once.
func (c *Coordinator) AutoEscalate(ctx context.Context, a *model.Assessment) {
	if a == nil || !a.Severity.AtLeast(model.SeverityHigh) {
		return
	}

	fx := c.begin()
	if _, seen := c.escalated[a.ID]; seen {
		c.end(ctx, fx)
		return
	}
	c.rememberLocked(a.ID)

	now := c.clock.Now()
	hasPlan := c.plans != nil && c.plans.Exists()
	c.sendLocked(fx, realtime.EventAlert, AlertPayload{
		AssessmentID:        a.ID,
		Severity:            a.Severity,
		RiskScore:           a.RiskScore,
		RiskFactors:         a.RiskFactors,
		SuicidalIdeation:    a.SuicidalIdeation,
		SelfHarm:            a.SelfHarm,
		SafetyPlanAvailable: hasPlan,
	}, now)

	if a.Severity == model.SeverityCritical {
		if hasPlan {
			c.activateLocked(ctx, fx, now)
		} else {
			c.log.Warn().Str("assessment_id", a.ID).Msg("critical assessment without a safety plan; alert sent only")
		}
	}
	c.end(ctx, fx)
}

func (c *Coordinator) rememberLocked(id string) {
	c.escalated[id] = struct{}{}
	c.escalOrder = append(c.escalOrder, id)
	if len(c.escalOrder) > maxEscalated {
		delete(c.escalated, c.escalOrder[0])
		c.escalOrder = c.escalOrder[1:]
	}
}

// HandleRemote applies an inbound gateway event. Repeated deliveries are
// safe: connecting a connected session or escalating an escalated one does
// nothing.
func (c *Coordinator) HandleRemote(ctx context.Context, evt realtime.Event) {
	log := c.log.With().Str("event", string(evt.Type)).Str("session_id", evt.SessionID).Logger()

	switch evt.Type {
	case realtime.EventCounselorAvailable:
		var p realtime.CounselorAvailablePayload
		if err := evt.Decode(&p); err != nil {
			log.Warn().Err(err).Msg("malformed counselor_available payload")
			return
		}
		fx := c.begin()
		if c.active != nil && c.active.Status == model.StatusWaiting {
			c.connectLocked(fx, p.CounselorID, c.clock.Now())
		}
		c.end(ctx, fx)

	case realtime.EventMessageReceived:
		var p realtime.MessageReceivedPayload
		if err := evt.Decode(&p); err != nil {
			log.Warn().Err(err).Msg("malformed message_received payload")
			return
		}
		kind := model.MessageKind(p.Kind)
		if !kind.Valid() {
			kind = model.MessageText
		}
		msg := model.Message{ID: p.ID, SenderID: p.SenderID, Content: p.Content, Kind: kind, SentAt: evt.At}
		if impersonatesSystem(msg) {
			log.Warn().Str("sender_id", p.SenderID).Msg("dropping remote message claiming system authorship")
			return
		}
		fx := c.begin()
		c.addLocked(fx, msg, false)
		c.end(ctx, fx)

	case realtime.EventEscalationRequired:
		var p realtime.EscalationRequiredPayload
		if err := evt.Decode(&p); err != nil {
			log.Warn().Err(err).Msg("malformed escalation_required payload")
			return
		}
		c.escalate(ctx, p, log)

	case realtime.EventAlert:
		log.Info().Msg("remote alert received")

	default:
		log.Debug().Msg("ignoring non-inbound event")
	}
}

func (c *Coordinator) escalate(ctx context.Context, p realtime.EscalationRequiredPayload, log zerolog.Logger) {
	var (
		contact model.EmergencyContact
		found   bool
	)
	if p.ContactID != "" {
		if ct, err := c.lookupContact(p.ContactID); err == nil {
			contact, found = ct, true
		} else {
			log.Error().Err(err).Msg("escalation contact lookup failed")
		}
	} else if c.plans != nil {
		contact, found = c.plans.FirstEmergencyContact()
	}

	fx := c.begin()
	defer c.end(ctx, fx)

	s := c.active
	if s == nil {
		log.Warn().Msg("escalation ignored: no active session")
		return
	}
	now := c.clock.Now()
	switch {
	case s.Status == model.StatusEscalated:
		return
	case s.Status.CanTransitionTo(model.StatusEscalated):
		s.Status = model.StatusEscalated
		c.emitLocked(fx, EventEscalated, now)
		log.Warn().Str("reason", p.Reason).Msg("session escalated")
	case s.EmergencyServicesContacted:
		return
	}

	if !found {
		log.Error().Msg("escalation required but no emergency contact available")
		return
	}
	c.contactLocked(fx, contact, now)
}

// History returns resolved sessions, oldest first.
func (c *Coordinator) History(ctx context.Context) ([]model.Session, error) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	var hist []model.Session
	if _, err := kv.GetJSON(ctx, c.kv, c.historyKey(), &hist); err != nil {
		return nil, fmt.Errorf("load session history for %s: %w", c.userID, err)
	}
	return hist, nil
}

func (c *Coordinator) historyKey() string { return kv.Key(c.userID, kv.KindSessions) }

func (c *Coordinator) persist(ctx context.Context, s *model.Session) {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()

	var hist []model.Session
	if _, err := kv.GetJSON(ctx, c.kv, c.historyKey(), &hist); err != nil {
		c.log.Error().Err(err).Msg("failed to read session history; starting a new one")
		hist = nil
	}
	hist = append(hist, *s)
	if n := len(hist) - c.opts.HistoryLimit; n > 0 {
		hist = hist[n:]
	}
	if err := kv.SetJSON(ctx, c.kv, c.historyKey(), hist); err != nil {
		metrics.PersistFailuresTotal.WithLabelValues(kv.KindSessions).Inc()
		c.log.Error().Stack().Err(err).Str("session_id", s.ID).Msg("failed to persist resolved session")
	}
}

func (c *Coordinator) begin() *effects {
	c.mu.Lock()
	return &effects{}
}

// end releases the lock and delivers collected effects.
func (c *Coordinator) end(ctx context.Context, fx *effects) {
	if len(fx.events) > 0 {
		fx.listeners = append([]Listener(nil), c.listeners...)
	}
	c.mu.Unlock()

	for _, s := range fx.resolved {
		c.persist(ctx, s)
	}
	for _, evt := range fx.sends {
		if err := c.gw.Send(ctx, realtime.ChannelCrisis, evt); err != nil {
			c.log.Warn().Err(err).Str("event", string(evt.Type)).Msg("realtime send failed")
		}
	}
	for _, evt := range fx.events {
		for _, l := range fx.listeners {
			l(evt)
		}
	}
}

func (c *Coordinator) emitLocked(fx *effects, typ EventType, now time.Time) {
	fx.events = append(fx.events, Event{Type: typ, UserID: c.userID, Session: c.active.Clone(), At: now})
}

func (c *Coordinator) sendLocked(fx *effects, typ realtime.EventType, payload any, now time.Time) {
	sessionID := ""
	if c.active != nil {
		sessionID = c.active.ID
	}
	evt, err := realtime.NewEvent(typ, c.userID, sessionID, payload, now)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to build realtime event")
		return
	}
	evt.Origin = c.opts.Origin
	fx.sends = append(fx.sends, evt)
}

func (c *Coordinator) appendLocked(s *model.Session, msg model.Message) {
	s.Messages = append(s.Messages, msg)
}

// systemMessage builds a coordinator-authored message. Callers hold c.mu.
func (c *Coordinator) systemMessage(content string, kind model.MessageKind, now time.Time) model.Message {
	return model.Message{
		ID:       c.newMessageIDLocked(now),
		SenderID: model.SystemSender,
		Content:  content,
		SentAt:   now,
		Kind:     kind,
	}
}

// newMessageIDLocked returns a ULID that sorts after every id issued before
// it, including ids from the same millisecond.
func (c *Coordinator) newMessageIDLocked(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), c.entropy).String()
}

// impersonatesSystem reports whether an externally supplied message claims
// to be authored by the coordinator.
func impersonatesSystem(msg model.Message) bool {
	return msg.SenderID == model.SystemSender || msg.Kind == model.MessageSystem
}
