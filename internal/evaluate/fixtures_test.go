package evaluate

import (
	"strings"

	"statuscomms/internal/incident"
)

func investigatingEvidence() incident.ExtractedEvidence {
	ev := incident.UnknownEvidence()
	ev.IncidentMetadata.AffectedService = incident.StrPtr("API")
	ev.CustomerSymptoms = []incident.Symptom{
		{Text: "High API latency", Confidence: 0.9, Source: incident.SourcePagerDuty},
		{Text: "Connection timeouts", Confidence: 0.8, Source: incident.SourceLogs},
	}
	ev.InternalTermsToAvoid = []string{"api-gateway"}
	ev.SourcesUsed = []incident.SourceKind{incident.SourcePagerDuty, incident.SourceLogs}
	return ev
}

func mapped(span, ref string) incident.EvidenceMapping {
	return incident.EvidenceMapping{GeneratedSpan: span, EvidenceReference: ref}
}

// investigatingDraft is a well-formed 68-word Investigating update.
func investigatingDraft() incident.GeneratedDraft {
	s1 := "We are currently investigating reports of slower than normal response times for some customers."
	s2 := "Some customers may also see intermittent connection errors when using the API."
	s3 := "Our engineering team is actively investigating the issue and working to restore normal performance."
	s4 := "Requests may take longer than usual to complete while this work continues."
	s5 := "We will provide an update within 30 minutes or as soon as we have more information."
	return incident.GeneratedDraft{
		Title:         "Investigating slower API response times",
		Status:        incident.PhaseInvestigating,
		Message:       strings.Join([]string{s1, s2, s3, s4}, " ") + "\n\n" + s5,
		NextUpdateETA: "within 30 minutes",
		EvidenceMappings: []incident.EvidenceMapping{
			mapped(s1, incident.SymptomRef(0)),
			mapped(s2, incident.SymptomRef(1)+", "+incident.RefAffectedService),
			mapped(s3, incident.SymptomRef(0)),
			mapped(s4, incident.SymptomRef(0)),
		},
		InternalTermsAvoided: []string{"api-gateway"},
	}
}

// longDraft is an otherwise clean Investigating draft of exactly 170 words.
func longDraft() incident.GeneratedDraft {
	lead := "We are currently investigating reports of slower than normal response times for some customers."
	filler := "Some requests may take longer than usual to complete while our team continues the investigation."
	extra := "Some customers may also see intermittent connection errors during this period."
	closing := "We will provide an update within 30 minutes or sooner."

	parts := []string{lead}
	for i := 0; i < 9; i++ {
		parts = append(parts, filler)
	}
	parts = append(parts, extra, closing)
	return incident.GeneratedDraft{
		Title:         "Investigating slower response times",
		Status:        incident.PhaseInvestigating,
		Message:       strings.Join(parts, " "),
		NextUpdateETA: "within 30 minutes",
		EvidenceMappings: []incident.EvidenceMapping{
			mapped(lead, incident.SymptomRef(0)),
			mapped(filler, incident.SymptomRef(0)),
			mapped(extra, incident.SymptomRef(1)),
		},
	}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func uniformScores(score float64) incident.JudgmentScores {
	out := incident.JudgmentScores{}
	for _, d := range incident.Dimensions {
		out[d] = incident.DimensionScore{Score: score, Status: StatusForScore(score), Rationale: "rationale for " + string(d)}
	}
	return out
}
