package risk

import "github.com/mycelian/mycelian-crisis/internal/model"

var severityAdvice = map[model.Severity][]string{
	model.SeverityCritical: {
		"Contact emergency services or a crisis line now",
		"Stay with someone you trust until help arrives",
		"Open your safety plan and follow its steps",
	},
	model.SeverityHigh: {
		"Connect with a crisis counselor",
		"Reach out to a trusted contact from your safety plan",
		"Review your safety plan coping strategies",
	},
	model.SeverityMedium: {
		"Try a grounding or breathing exercise",
		"Check in with a friend or family member",
		"Consider scheduling time with your therapist",
	},
	model.SeverityLow: {
		"Keep tracking your mood",
		"Keep up the activities that help you feel well",
	},
}

var triggerAdvice = map[model.TriggerKind]string{
	model.TriggerHighStress:         "Take a short stress-reduction break",
	model.TriggerHighAnxiety:        "Practice a slow breathing exercise",
	model.TriggerInactivity:         "Plan one small, achievable activity today",
	model.TriggerMissedMedications:  "Take your medication as prescribed or contact your prescriber",
	model.TriggerSocialIsolation:    "Reach out to someone in your support network",
	model.TriggerDecliningMoodTrend: "Share your recent mood changes with your care team",
	model.TriggerLowMood:            "Do something comforting that has helped before",
}

// Recommendations returns the severity template followed by trigger-specific
// suggestions, without duplicates.
func Recommendations(severity model.Severity, triggers []model.Trigger) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range severityAdvice[severity] {
		add(s)
	}
	for _, t := range triggers {
		add(triggerAdvice[t.Kind])
	}
	return out
}
