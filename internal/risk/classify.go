// Package risk aggregates triggers into crisis assessments.
package risk

import (
	"sort"

	"github.com/mycelian/mycelian-crisis/internal/model"
)

const (
	highConfidence  = 0.8
	highScore       = 0.8
	mediumScore     = 0.6
	highConfidenceN = 2
)

// Classify returns the severity and mean confidence of triggers. The first
// matching rule wins: a high-confidence crisis keyword is critical; a mean of
// at least 0.8 or two high-confidence triggers is high; a mean of at least
// 0.6 is medium; anything else is low. An empty list classifies as low with
// a zero score.
func Classify(triggers []model.Trigger) (model.Severity, float64) {
	if len(triggers) == 0 {
		return model.SeverityLow, 0
	}

	var sum float64
	strong := 0
	keyword := false
	for _, t := range triggers {
		sum += t.Confidence
		if t.Confidence >= highConfidence {
			strong++
			if t.Kind == model.TriggerCrisisKeyword {
				keyword = true
			}
		}
	}
	score := sum / float64(len(triggers))

	switch {
	case keyword:
		return model.SeverityCritical, score
	case score >= highScore || strong >= highConfidenceN:
		return model.SeverityHigh, score
	case score >= mediumScore:
		return model.SeverityMedium, score
	default:
		return model.SeverityLow, score
	}
}

// riskFactors returns the distinct trigger kinds, sorted.
func riskFactors(triggers []model.Trigger) []model.TriggerKind {
	seen := make(map[model.TriggerKind]bool, len(triggers))
	var out []model.TriggerKind
	for _, t := range triggers {
		if !seen[t.Kind] {
			seen[t.Kind] = true
			out = append(out, t.Kind)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// flags reports whether crisis keywords indicate suicidal ideation or self-harm.
func flags(triggers []model.Trigger) (suicidal, selfHarm bool) {
	for _, t := range triggers {
		if t.Kind != model.TriggerCrisisKeyword {
			continue
		}
		switch t.Payload["keyword"] {
		case "suicidal":
			suicidal = true
		case "self-harm":
			selfHarm = true
		}
	}
	return suicidal, selfHarm
}
