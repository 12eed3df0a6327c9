// Package signals converts wellness feed records into risk triggers.
package signals

import (
	"math"
	"strings"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

const (
	SourceMoodEntry   = "mood_entry"
	SourceActivityLog = "activity_log"

	lowMoodThreshold   = 2
	highLevelThreshold = 8

	lowMoodConfidence       = 0.8
	highLevelConfidence     = 0.7
	crisisKeywordConfidence = 0.9
)

// CrisisKeywords are matched case-insensitively against notes and emotion tags.
var CrisisKeywords = []string{"suicidal", "self-harm", "hopeless", "worthless"}

// AnalyzeMoodEntry returns the triggers raised by a single mood entry.
func AnalyzeMoodEntry(entry model.MoodEntry) []model.Trigger {
	var out []model.Trigger
	at := entry.Timestamp

	if v, ok := number(entry.MoodScore); ok && v <= lowMoodThreshold {
		out = append(out, model.Trigger{
			Kind:       model.TriggerLowMood,
			Source:     SourceMoodEntry,
			ObservedAt: at,
			Payload:    map[string]any{"moodScore": v},
			Confidence: lowMoodConfidence,
		})
	}
	if v, ok := number(entry.StressLevel); ok && v >= highLevelThreshold {
		out = append(out, model.Trigger{
			Kind:       model.TriggerHighStress,
			Source:     SourceMoodEntry,
			ObservedAt: at,
			Payload:    map[string]any{"stressLevel": v},
			Confidence: highLevelConfidence,
		})
	}
	if v, ok := number(entry.AnxietyLevel); ok && v >= highLevelThreshold {
		out = append(out, model.Trigger{
			Kind:       model.TriggerHighAnxiety,
			Source:     SourceMoodEntry,
			ObservedAt: at,
			Payload:    map[string]any{"anxietyLevel": v},
			Confidence: highLevelConfidence,
		})
	}

	text := strings.ToLower(entry.Notes + " " + strings.Join(entry.Emotions, " "))
	for _, kw := range CrisisKeywords {
		if strings.Contains(text, kw) {
			out = append(out, model.Trigger{
				Kind:       model.TriggerCrisisKeyword,
				Source:     SourceMoodEntry,
				ObservedAt: at,
				Payload:    map[string]any{"keyword": kw},
				Confidence: crisisKeywordConfidence,
			})
		}
	}
	return out
}

func number(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}
