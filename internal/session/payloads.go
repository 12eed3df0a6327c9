package session

import (
	"time"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

// Outbound gateway payloads.

type CounselorRequestPayload struct {
	Severity model.Severity `json:"severity"`
}

type AlertPayload struct {
	AssessmentID        string              `json:"assessmentId"`
	Severity            model.Severity      `json:"severity"`
	RiskScore           float64             `json:"riskScore"`
	RiskFactors         []model.TriggerKind `json:"riskFactors"`
	SuicidalIdeation    bool                `json:"suicidalIdeationFlag"`
	SelfHarm            bool                `json:"selfHarmFlag"`
	SafetyPlanAvailable bool                `json:"safetyPlanAvailable"`
}

type SafetyPlanActivatedPayload struct {
	PlanID          string `json:"planId"`
	ActivationCount int    `json:"activationCount"`
}

type EmergencyContactedPayload struct {
	ContactID string `json:"contactId"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

type FollowUpScheduledPayload struct {
	FollowUpAt time.Time      `json:"followUpAt"`
	Severity   model.Severity `json:"severity"`
}

type SessionResolvedPayload struct {
	Reason string `json:"reason"`
}
