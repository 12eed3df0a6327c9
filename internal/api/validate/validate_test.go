package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

func TestUserID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "alice", false},
		{"uuid", "3f2a4c1e-8b7d-4e6f-9a0b-1c2d3e4f5a6b", false},
		{"empty", "", true},
		{"space", "al ice", true},
		{"slash", "a/b", true},
		{"too long", strings.Repeat("a", 65), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := UserID(tt.id)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	assert.NoError(t, Message(model.Message{Content: "hi"}))
	assert.ErrorIs(t, Message(model.Message{}), model.ErrValidation)
	assert.ErrorIs(t, Message(model.Message{Content: "hi", Kind: "gif"}), model.ErrValidation)
	assert.ErrorIs(t, Message(model.Message{Content: strings.Repeat("x", maxMessageLen+1)}), model.ErrValidation)
	assert.ErrorIs(t, Message(model.Message{Content: "hi", Kind: model.MessageSystem}), model.ErrValidation)
	assert.ErrorIs(t, Message(model.Message{Content: "hi", SenderID: model.SystemSender}), model.ErrValidation)
	assert.NoError(t, Message(model.Message{Content: "see this", Kind: model.MessageResource}))
}

func TestTriggers(t *testing.T) {
	assert.ErrorIs(t, Triggers(nil), model.ErrValidation)
	assert.ErrorIs(t, Triggers([]model.Trigger{{Kind: "sadness", Confidence: 0.5}}), model.ErrValidation)
	assert.ErrorIs(t, Triggers([]model.Trigger{{Kind: model.TriggerLowMood, Confidence: 1.5}}), model.ErrValidation)
	assert.NoError(t, Triggers([]model.Trigger{{Kind: model.TriggerLowMood, Confidence: 0.8}}))
}

func TestSafetyPlan(t *testing.T) {
	many := make([]string, maxListItems+1)
	assert.ErrorIs(t, SafetyPlan(model.SafetyPlanUpdate{CopingStrategies: &many}), model.ErrValidation)
	assert.ErrorIs(t, SafetyPlan(model.SafetyPlanUpdate{EmergencyContacts: &[]model.EmergencyContact{{Name: "x"}}}), model.ErrValidation)
	assert.NoError(t, SafetyPlan(model.SafetyPlanUpdate{EmergencyContacts: &[]model.EmergencyContact{{Name: "x", Phone: "1"}}}))
}

func TestMoodAndActivity(t *testing.T) {
	assert.NoError(t, Mood(model.MoodEntry{}), "numeric fields are not validated")
	assert.ErrorIs(t, Mood(model.MoodEntry{Notes: strings.Repeat("n", maxNotesLen+1)}), model.ErrValidation)
	assert.ErrorIs(t, Activity(model.Activity{}), model.ErrValidation)
	assert.NoError(t, Activity(model.Activity{Category: "social"}))
	assert.ErrorIs(t, Severity("severe"), model.ErrValidation)
}
