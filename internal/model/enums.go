package model

// TriggerKind identifies the rule that produced a Trigger.
type TriggerKind string

const (
	TriggerLowMood            TriggerKind = "low_mood"
	TriggerHighStress         TriggerKind = "high_stress"
	TriggerHighAnxiety        TriggerKind = "high_anxiety"
	TriggerCrisisKeyword      TriggerKind = "crisis_keyword"
	TriggerInactivity         TriggerKind = "inactivity"
	TriggerMissedMedications  TriggerKind = "missed_medications"
	TriggerDecliningMoodTrend TriggerKind = "declining_mood_trend"
	TriggerSocialIsolation    TriggerKind = "social_isolation"
)

func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerLowMood, TriggerHighStress, TriggerHighAnxiety, TriggerCrisisKeyword,
		TriggerInactivity, TriggerMissedMedications, TriggerDecliningMoodTrend, TriggerSocialIsolation:
		return true
	}
	return false
}

// Severity is the risk tier of an assessment or session.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

func (s Severity) Valid() bool { return s.rank() > 0 }

// AtLeast reports whether s is the same tier as other or above it.
func (s Severity) AtLeast(other Severity) bool { return s.rank() >= other.rank() }

// SessionStatus is the lifecycle state of a crisis session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusConnected SessionStatus = "connected"
	StatusEscalated SessionStatus = "escalated"
	StatusResolved  SessionStatus = "resolved"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusConnected, StatusEscalated, StatusResolved:
		return true
	}
	return false
}

// CanTransitionTo encodes the forward-only session state machine:
// waiting -> connected -> escalated -> resolved, with connected -> resolved
// and any non-resolved state -> resolved when a session is ended.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusWaiting:
		return next == StatusConnected || next == StatusResolved
	case StatusConnected:
		return next == StatusEscalated || next == StatusResolved
	case StatusEscalated:
		return next == StatusResolved
	}
	return false
}

// MessageKind classifies session messages.
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageSystem   MessageKind = "system"
	MessageResource MessageKind = "resource"
)

func (k MessageKind) Valid() bool {
	switch k {
	case MessageText, MessageSystem, MessageResource:
		return true
	}
	return false
}
