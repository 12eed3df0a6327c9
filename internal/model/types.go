package model

import "time"

// SystemSender is the SenderID of messages generated by the service.
const SystemSender = "system"

// Trigger is an ephemeral risk signal produced by analysis.
type Trigger struct {
	Kind       TriggerKind    `json:"kind"`
	Source     string         `json:"source"`
	ObservedAt time.Time      `json:"observedAt"`
	Payload    map[string]any `json:"payload,omitempty"`
	Confidence float64        `json:"confidence"`
}

// Assessment is the immutable result of aggregating triggers.
type Assessment struct {
	ID                string        `json:"id"`
	UserID            string        `json:"userId"`
	CreatedAt         time.Time     `json:"createdAt"`
	Severity          Severity      `json:"severity"`
	RiskScore         float64       `json:"riskScore"`
	RiskFactors       []TriggerKind `json:"riskFactors"`
	ProtectiveFactors []string      `json:"protectiveFactors"`
	SuicidalIdeation  bool          `json:"suicidalIdeationFlag"`
	SelfHarm          bool          `json:"selfHarmFlag"`
	Recommendations   []string      `json:"recommendations"`
}

// Message is one entry in a session transcript.
type Message struct {
	ID       string      `json:"id"`
	SenderID string      `json:"senderId"`
	Content  string      `json:"content"`
	SentAt   time.Time   `json:"sentAt"`
	Kind     MessageKind `json:"kind"`
}

// Session is one crisis-support interaction.
type Session struct {
	ID                         string        `json:"id"`
	UserID                     string        `json:"userId"`
	CounselorID                string        `json:"counselorId,omitempty"`
	StartedAt                  time.Time     `json:"startedAt"`
	EndedAt                    *time.Time    `json:"endedAt,omitempty"`
	Severity                   Severity      `json:"severity"`
	Status                     SessionStatus `json:"status"`
	Messages                   []Message     `json:"messages"`
	SafetyPlanActivated        bool          `json:"safetyPlanActivated"`
	EmergencyServicesContacted bool          `json:"emergencyServicesContacted"`
	FollowUpAt                 *time.Time    `json:"followUpAt,omitempty"`
	Resolution                 string        `json:"resolution,omitempty"`
}

// Clone returns a deep copy safe to hand outside the owning component.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.FollowUpAt != nil {
		t := *s.FollowUpAt
		out.FollowUpAt = &t
	}
	return &out
}

// Contact is a personal support contact.
type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Relationship string `json:"relationship,omitempty"`
}

// ProfessionalContact is a clinician or care provider.
type ProfessionalContact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Role         string `json:"role,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// EmergencyContact is a number to call when the user is in danger.
type EmergencyContact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Available24 bool   `json:"available24h"`
}

// SafetyPlan is the durable per-user plan consulted during a crisis.
type SafetyPlan struct {
	ID                    string                `json:"id"`
	UserID                string                `json:"userId"`
	WarningSignals        []string              `json:"warningSignals"`
	CopingStrategies      []string              `json:"copingStrategies"`
	DistractionActivities []string              `json:"distractionActivities"`
	SupportContacts       []Contact             `json:"supportContacts"`
	ProfessionalContacts  []ProfessionalContact `json:"professionalContacts"`
	EmergencyContacts     []EmergencyContact    `json:"emergencyContacts"`
	ReasonsToLive         []string              `json:"reasonsToLive"`
	CreatedAt             time.Time             `json:"createdAt"`
	LastUpdatedAt         time.Time             `json:"lastUpdatedAt"`
	ActivationCount       int                   `json:"activationCount"`
}

// Clone returns a deep copy of the plan.
func (p *SafetyPlan) Clone() *SafetyPlan {
	if p == nil {
		return nil
	}
	out := *p
	out.WarningSignals = append([]string(nil), p.WarningSignals...)
	out.CopingStrategies = append([]string(nil), p.CopingStrategies...)
	out.DistractionActivities = append([]string(nil), p.DistractionActivities...)
	out.SupportContacts = append([]Contact(nil), p.SupportContacts...)
	out.ProfessionalContacts = append([]ProfessionalContact(nil), p.ProfessionalContacts...)
	out.EmergencyContacts = append([]EmergencyContact(nil), p.EmergencyContacts...)
	out.ReasonsToLive = append([]string(nil), p.ReasonsToLive...)
	return &out
}

// SafetyPlanUpdate is a partial plan; nil fields are left unchanged.
type SafetyPlanUpdate struct {
	WarningSignals        *[]string              `json:"warningSignals,omitempty"`
	CopingStrategies      *[]string              `json:"copingStrategies,omitempty"`
	DistractionActivities *[]string              `json:"distractionActivities,omitempty"`
	SupportContacts       *[]Contact             `json:"supportContacts,omitempty"`
	ProfessionalContacts  *[]ProfessionalContact `json:"professionalContacts,omitempty"`
	EmergencyContacts     *[]EmergencyContact    `json:"emergencyContacts,omitempty"`
	ReasonsToLive         *[]string              `json:"reasonsToLive,omitempty"`
}

// MoodEntry is one record from the wellness feed. Nil numeric fields are missing.
type MoodEntry struct {
	MoodScore    *float64  `json:"moodScore,omitempty"`
	StressLevel  *float64  `json:"stressLevel,omitempty"`
	AnxietyLevel *float64  `json:"anxietyLevel,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Emotions     []string  `json:"emotions,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Activity is one record from the activity feed.
type Activity struct {
	ID            string     `json:"id,omitempty"`
	Type          string     `json:"type"`
	Category      string     `json:"category,omitempty"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
}

// When returns the time an activity is anchored at: completion when completed,
// schedule otherwise. The zero time means the record carries neither.
func (a Activity) When() time.Time {
	if a.Completed && a.CompletedAt != nil {
		return *a.CompletedAt
	}
	if a.ScheduledTime != nil {
		return *a.ScheduledTime
	}
	return time.Time{}
}
