package evaluate

import (
	"math"

	"statuscomms/internal/incident"
)

// Threshold table shared by dimensions and the aggregate score.
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.6
	// GuardrailCeiling caps the confidence score when any check fails.
	GuardrailCeiling = 0.5
)

func StatusForScore(s float64) incident.Status {
	switch {
	case s >= HighThreshold:
		return incident.StatusPass
	case s >= MediumThreshold:
		return incident.StatusWarning
	}
	return incident.StatusFail
}

func LevelForScore(s float64) incident.ConfidenceLevel {
	switch {
	case s >= HighThreshold:
		return incident.ConfidenceHigh
	case s >= MediumThreshold:
		return incident.ConfidenceMedium
	}
	return incident.ConfidenceLow
}

// WeightedScore is the weighted mean of the dimension scores rounded to two
// decimals. Missing or non-positive weight sets fall back to equal weights.
func WeightedScore(scores incident.JudgmentScores, weights map[incident.Dimension]float64) float64 {
	var sum, total float64
	for _, d := range incident.Dimensions {
		s, ok := scores[d]
		if !ok {
			continue
		}
		w := 1.0
		if weights != nil {
			w = weights[d]
		}
		sum += w * s.Score
		total += w
	}
	if total <= 0 {
		if weights != nil {
			return WeightedScore(scores, nil)
		}
		return 0
	}
	return round2(sum / total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Aggregate combines guardrail verdicts and judgment scores into one report.
func Aggregate(checks incident.DeterministicChecks, judgment incident.JudgmentScores, weights map[incident.Dimension]float64) incident.EvaluationReport {
	r := baseReport(checks)
	r.JudgmentScores = judgment
	r.RawConfidenceScore = WeightedScore(judgment, weights)
	r.ConfidenceScore = r.RawConfidenceScore
	if r.FailedChecks > 0 && r.ConfidenceScore > GuardrailCeiling {
		r.ConfidenceScore = GuardrailCeiling
		r.Capped = true
	}
	r.ConfidenceLevel = LevelForScore(r.ConfidenceScore)

	for _, d := range incident.Dimensions {
		s, ok := judgment[d]
		if !ok || s.Status == incident.StatusPass {
			continue
		}
		r.Warnings = append(r.Warnings, d.Label()+": "+s.Rationale)
		if s.ImprovementSuggestion != "" {
			r.Suggestions = append(r.Suggestions, d.Label()+": "+s.ImprovementSuggestion)
		}
	}
	return r
}

// AggregateWithoutJudgment builds the degraded report used when judgment was
// unavailable and the caller chose to continue.
func AggregateWithoutJudgment(checks incident.DeterministicChecks, reason string) incident.EvaluationReport {
	r := baseReport(checks)
	r.JudgmentSkipped = true
	r.ConfidenceLevel = incident.ConfidenceLow
	r.Warnings = append(r.Warnings, "judgment skipped: "+reason)
	return r
}

func baseReport(checks incident.DeterministicChecks) incident.EvaluationReport {
	r := incident.EvaluationReport{
		DeterministicChecks: checks,
		Warnings:            []string{},
		Suggestions:         []string{},
		OverallStatus:       incident.StatusPass,
	}
	for _, name := range incident.CheckOrder {
		c, ok := checks[name]
		if !ok {
			continue
		}
		r.OverallStatus = incident.Worst(r.OverallStatus, c.Status)
		switch c.Status {
		case incident.StatusPass:
			r.PassedChecks++
		case incident.StatusWarning:
			r.WarningChecks++
		default:
			r.FailedChecks++
		}
	}
	for _, want := range []incident.Status{incident.StatusFail, incident.StatusWarning} {
		for _, name := range incident.CheckOrder {
			c, ok := checks[name]
			if !ok || c.Status != want {
				continue
			}
			r.Warnings = append(r.Warnings, string(name)+": "+c.Detail)
			if c.ActionableFix != "" {
				r.Suggestions = append(r.Suggestions, c.ActionableFix)
			}
		}
	}
	return r
}
