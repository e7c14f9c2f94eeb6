package draft

import (
	"fmt"
	"strings"

	"statuscomms/internal/incident"
)

const promptVersion = "statuscomms-generate-v1"

var phaseInstructions = map[incident.Phase]string{
	incident.PhaseInvestigating: `INVESTIGATING PHASE REQUIREMENTS:
- Acknowledge awareness of the issue
- Describe customer-observable symptoms (translate technical terms)
- State that the investigation is underway
- Set expectation for the next update (typically 30 minutes)
- DO NOT make any causal claim ("caused by", "due to", "root cause is", "because of")
- DO NOT mention specific fixes`,
	incident.PhaseIdentified: `IDENTIFIED PHASE REQUIREMENTS:
- Acknowledge the cause has been identified WITHOUT technical mechanism names
- State that work is in progress to resolve the issue
- Describe ongoing customer impact during the fix
- Include an "Affected:" line and an "Impact:" line, each on its own line
- Set expectation for resolution or the next update`,
	incident.PhaseMonitoring: `MONITORING PHASE REQUIREMENTS:
- Confirm a fix has been deployed
- State that performance is returning to normal or stabilizing
- Mention the ongoing monitoring period
- DO NOT add new causal detail
- Set expectation for when the incident will be marked resolved`,
	incident.PhaseResolved: `RESOLVED PHASE REQUIREMENTS:
- Confirm the incident is resolved and the system is stable
- Summarize the timeline (start, resolution, duration) and the customer impact
- Apologize for the inconvenience
- Offer support contact if issues persist
- DO NOT include unresolved caveats ("still investigating", "may continue", "ongoing issue")`,
}

func buildSystemPrompt() string {
	return strings.Join([]string{
		"You write clear, empathetic customer-facing incident status page updates.",
		"Return ONLY JSON matching the response schema. Do not include markdown or extra text.",
		"Every sentence that states a fact must be listed in evidence_mappings with the evidence_reference path it is grounded on.",
		"Never state a fact that no evidence field supports.",
	}, "\n")
}

func buildUserPrompt(ev incident.ExtractedEvidence, phase incident.Phase, style incident.StyleGuide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PHASE: %s\n\n", strings.ToUpper(string(phase)))
	b.WriteString(phaseInstructions[phase])
	if ex := style.Examples[phase]; ex != "" {
		fmt.Fprintf(&b, "\n\nEXAMPLE (tone, structure and level of detail only; do not copy facts):\n%q", ex)
	}

	b.WriteString("\n\n=== EXTRACTED EVIDENCE (reference path: value) ===\n")
	for _, line := range evidenceLines(ev) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	b.WriteString("\nINTERNAL TERMS TO AVOID (never write these verbatim, translate or omit):\n")
	if len(ev.InternalTermsToAvoid) == 0 {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(strings.Join(ev.InternalTermsToAvoid, ", "))
		b.WriteByte('\n')
	}

	b.WriteString("\n=== STYLE GUIDELINES ===\nTONE:\n")
	writeList(&b, style.Tone)
	b.WriteString("MUST CONTAIN:\n")
	writeList(&b, style.MustContain)
	b.WriteString("MUST EXCLUDE:\n")
	writeList(&b, style.MustExclude)
	if style.UpdateFrequency != "" {
		fmt.Fprintf(&b, "UPDATE FREQUENCY: %s\n", style.UpdateFrequency)
	}

	fmt.Fprintf(&b, `
=== GENERATION INSTRUCTIONS ===
1. Write the status update for the %s phase; status must be exactly "%s".
2. Translate technical symptoms to customer language ("High API latency" becomes "slower than normal response times", "5xx errors" becomes "service unavailability").
3. When you translate a technical term, record the mapping with original_technical_term and customer_facing_term.
4. For EACH factual sentence add an evidence_mappings entry: generated_span is the sentence, evidence_reference is one or more reference paths from the evidence list above joined with commas.
5. If the evidence cannot support a required section, write it conservatively and leave its evidence_reference empty.
6. Keep the message between 60 and 150 words.
`, phase, phase)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// evidenceLines renders every populated evidence field with its reference path.
func evidenceLines(ev incident.ExtractedEvidence) []string {
	var out []string
	add := func(ref string, v *string) {
		if v != nil {
			out = append(out, fmt.Sprintf("%s: %s", ref, *v))
		}
	}
	m := ev.IncidentMetadata
	add(incident.RefTitle, m.Title)
	add(incident.RefSeverity, m.Severity)
	add(incident.RefStartTime, m.StartTime)
	add(incident.RefAffectedService, m.AffectedService)
	for i, s := range ev.CustomerSymptoms {
		line := fmt.Sprintf("%s: %s (confidence %.2f, source %s)", incident.SymptomRef(i), s.Text, s.Confidence, s.Source)
		if len(s.EvidenceNotes) > 0 {
			line += " notes: " + strings.Join(s.EvidenceNotes, "; ")
		}
		out = append(out, line)
	}
	st := ev.InvestigationStatus
	if st.RootCauseIdentified {
		out = append(out, incident.RefRootCauseIdentified+": true")
	}
	add(incident.RefDiagnosis, st.DiagnosisSummary)
	add(incident.RefMitigation, st.MitigationAction)
	add(incident.RefExpectedResolution, st.ExpectedResolution)
	add(incident.RefNextUpdate, st.NextUpdateTiming)
	for i, e := range ev.Timeline {
		out = append(out, fmt.Sprintf("%s: %s %s (source %s)", incident.TimelineRef(i), e.Timestamp, e.Description, e.Source))
	}
	for i, s := range ev.SupportingEvidence {
		out = append(out, fmt.Sprintf("%s: [%s] %s (source %s)", incident.SignalRef(i), s.Kind, s.Summary, s.Source))
	}
	if len(out) == 0 {
		out = append(out, "(no evidence fields are populated)")
	}
	return out
}
