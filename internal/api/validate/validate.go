// Package validate checks request payloads before they reach the engine.
// Every error wraps model.ErrValidation.
package validate

import (
	"fmt"
	"regexp"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

// UserID must be letters, digits, underscore, hyphen or dot, 1-64 chars.
var userIDRx = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

const (
	maxMessageLen = 4000
	maxNotesLen   = 2000
	maxReasonLen  = 200
	maxEmotions   = 32
	maxListItems  = 50
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrValidation, fmt.Sprintf(format, args...))
}

func UserID(v string) error {
	if v == "" {
		return invalid("userId is required")
	}
	if !userIDRx.MatchString(v) {
		return invalid("userId must match %s", userIDRx.String())
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return invalid("%s is required", field)
	}
	return nil
}

func MaxLen(field, v string, limit int) error {
	if len(v) > limit {
		return invalid("%s exceeds %d characters", field, limit)
	}
	return nil
}

// Mood bounds free-text size only; numeric anomalies are left to the
// analyzers, which ignore them.
func Mood(e model.MoodEntry) error {
	if err := MaxLen("notes", e.Notes, maxNotesLen); err != nil {
		return err
	}
	if len(e.Emotions) > maxEmotions {
		return invalid("emotions exceeds %d tags", maxEmotions)
	}
	return nil
}

func Activity(a model.Activity) error {
	if a.Type == "" && a.Category == "" {
		return invalid("type or category is required")
	}
	return nil
}

func Severity(s model.Severity) error {
	if !s.Valid() {
		return invalid("severity must be one of low, medium, high, critical")
	}
	return nil
}

func Message(m model.Message) error {
	if err := NonEmpty("content", m.Content); err != nil {
		return err
	}
	if err := MaxLen("content", m.Content, maxMessageLen); err != nil {
		return err
	}
	if m.Kind != "" && !m.Kind.Valid() {
		return invalid("kind must be one of text, system, resource")
	}
	if m.Kind == model.MessageSystem || m.SenderID == model.SystemSender {
		return invalid("system messages are reserved")
	}
	return nil
}

func Reason(v string) error {
	return MaxLen("reason", v, maxReasonLen)
}

// Triggers checks an operator-supplied trigger list.
func Triggers(ts []model.Trigger) error {
	if len(ts) == 0 {
		return invalid("triggers must not be empty")
	}
	for i, t := range ts {
		if !t.Kind.Valid() {
			return invalid("triggers[%d].kind %q is unknown", i, t.Kind)
		}
		if t.Confidence < 0 || t.Confidence > 1 {
			return invalid("triggers[%d].confidence must be within [0,1]", i)
		}
	}
	return nil
}

func SafetyPlan(u model.SafetyPlanUpdate) error {
	lists := map[string]*[]string{
		"warningSignals":        u.WarningSignals,
		"copingStrategies":      u.CopingStrategies,
		"distractionActivities": u.DistractionActivities,
		"reasonsToLive":         u.ReasonsToLive,
	}
	for field, l := range lists {
		if l != nil && len(*l) > maxListItems {
			return invalid("%s exceeds %d items", field, maxListItems)
		}
	}
	if u.EmergencyContacts != nil {
		for i, c := range *u.EmergencyContacts {
			if c.Name == "" || c.Phone == "" {
				return invalid("emergencyContacts[%d] requires name and phone", i)
			}
		}
	}
	return nil
}
