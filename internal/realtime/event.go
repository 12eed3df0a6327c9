// Package realtime is the publish/subscribe gateway between the crisis engine
// and remote parties (counselor consoles, browser clients).
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ChannelCrisis carries all crisis-support traffic.
const ChannelCrisis = "crisis"

// EventType enumerates the events carried on the crisis channel.
type EventType string

const (
	// Inbound: produced by remote parties.
	EventAlert              EventType = "alert"
	EventCounselorAvailable EventType = "counselor_available"
	EventMessageReceived    EventType = "message_received"
	EventEscalationRequired EventType = "escalation_required"

	// Outbound: produced by the engine.
	EventCounselorRequest    EventType = "counselor_request"
	EventMessageSent         EventType = "message_sent"
	EventSafetyPlanActivated EventType = "safety_plan_activated"
	EventEmergencyContacted  EventType = "emergency_contacted"
	EventFollowUpScheduled   EventType = "follow_up_scheduled"
	EventSessionResolved     EventType = "session_resolved"
)

// Inbound reports whether remote parties may publish t.
func (t EventType) Inbound() bool {
	switch t {
	case EventAlert, EventCounselorAvailable, EventMessageReceived, EventEscalationRequired:
		return true
	}
	return false
}

func (t EventType) Valid() bool {
	switch t {
	case EventCounselorRequest, EventMessageSent, EventSafetyPlanActivated,
		EventEmergencyContacted, EventFollowUpScheduled, EventSessionResolved:
		return true
	}
	return t.Inbound()
}

// Event is the envelope exchanged over the gateway.
type Event struct {
	Type      EventType       `json:"type"`
	UserID    string          `json:"userId"`
	SessionID string          `json:"sessionId,omitempty"`
	Origin    string          `json:"origin,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	At        time.Time       `json:"at"`
}

// NewEvent builds an Event with payload encoded as JSON.
func NewEvent(typ EventType, userID, sessionID string, payload any, at time.Time) (Event, error) {
	evt := Event{Type: typ, UserID: userID, SessionID: sessionID, At: at}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		evt.Payload = b
	}
	return evt, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// Gateway is a bidirectional pub/sub transport. Delivery is best-effort and
// unordered across publishers; the engine does not retry failed sends.
type Gateway interface {
	Send(ctx context.Context, channel string, evt Event) error
	// Subscribe returns a channel of events that is closed when ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan Event, error)
}

// Inbound payloads.

type CounselorAvailablePayload struct {
	CounselorID string `json:"counselorId"`
}

type MessageReceivedPayload struct {
	ID       string `json:"id,omitempty"`
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
	Kind     string `json:"kind,omitempty"`
}

type EscalationRequiredPayload struct {
	ContactID string `json:"contactId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
