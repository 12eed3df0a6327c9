package signals

import (
	"strings"
	"time"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

const (
	activityWindow       = 7 * 24 * time.Hour
	inactivityDays       = 3
	missedMedicationsMin = 2

	inactivityConfidence = 0.6
	medicationConfidence = 0.7
)

// AnalyzeActivityLog returns the triggers raised by the last seven days of
// activities relative to now. Records without any timestamp are ignored.
func AnalyzeActivityLog(activities []model.Activity, now time.Time) []model.Trigger {
	if len(activities) == 0 {
		return nil
	}
	windowStart := now.Add(-activityWindow)

	var (
		lastCompleted time.Time
		missed        int
	)
	for _, a := range activities {
		at := a.When()
		if at.IsZero() || at.Before(windowStart) || at.After(now) {
			continue
		}
		if a.Completed {
			if at.After(lastCompleted) {
				lastCompleted = at
			}
			continue
		}
		if isMedication(a) && a.ScheduledTime != nil && a.ScheduledTime.Before(now) {
			missed++
		}
	}

	var out []model.Trigger

	gap := activityWindow
	if !lastCompleted.IsZero() {
		gap = now.Sub(lastCompleted)
	}
	days := int(gap / (24 * time.Hour))
	if days >= inactivityDays {
		out = append(out, model.Trigger{
			Kind:       model.TriggerInactivity,
			Source:     SourceActivityLog,
			ObservedAt: now,
			Payload:    map[string]any{"daysSinceLastActivity": days},
			Confidence: inactivityConfidence,
		})
	}

	if missed >= missedMedicationsMin {
		out = append(out, model.Trigger{
			Kind:       model.TriggerMissedMedications,
			Source:     SourceActivityLog,
			ObservedAt: now,
			Payload:    map[string]any{"missedCount": missed},
			Confidence: medicationConfidence,
		})
	}
	return out
}

func isMedication(a model.Activity) bool {
	return strings.EqualFold(a.Type, "medication") || strings.EqualFold(a.Category, "medication")
}
