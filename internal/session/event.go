package session

import (
	"time"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

// EventType names a local session-state change.
type EventType string

const (
	EventSupportRequested    EventType = "support_requested"
	EventCounselorConnected  EventType = "counselor_connected"
	EventMessageAdded        EventType = "message_added"
	EventSafetyPlanActivated EventType = "safety_plan_activated"
	EventEmergencyContacted  EventType = "emergency_contacted"
	EventEscalated           EventType = "escalated"
	EventFollowUpScheduled   EventType = "follow_up_scheduled"
	EventSessionResolved     EventType = "session_resolved"
)

// Event describes a state change. Session is a snapshot taken when the
// change was applied and is nil for plan activations outside a session.
type Event struct {
	Type    EventType      `json:"type"`
	UserID  string         `json:"userId"`
	Session *model.Session `json:"session,omitempty"`
	At      time.Time      `json:"at"`
}

// Listener receives events after the coordinator has released its lock.
type Listener func(Event)
