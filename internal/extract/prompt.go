package extract

import (
	"fmt"
	"strings"

	"statuscomms/internal/incident"
)

const promptVersion = "statuscomms-extract-v1"

var phaseGuidance = map[incident.Phase]string{
	incident.PhaseInvestigating: `REQUIRED FOR INVESTIGATING:
- Technical symptoms (e.g. "High API latency", "Connection timeouts") with confidence
- Affected service or functionality
- Investigation activity (e.g. "checking logs") as timeline entries
- Next update timing if stated
DO NOT EXTRACT:
- Root cause details: set root_cause_identified to false and diagnosis_summary to null
- Deployment correlations unless they are an active investigation area`,
	incident.PhaseIdentified: `REQUIRED FOR IDENTIFIED:
- Technical symptoms and affected areas
- Raw technical diagnosis; set root_cause_identified to true only if a cause is confirmed in the sources
- Mitigation action being taken: you MUST attempt to populate mitigation_action
- Expected resolution time if stated
- Deployment correlations if they are the cause`,
	incident.PhaseMonitoring: `REQUIRED FOR MONITORING:
- Fix deployment confirmation (mitigation_action)
- Recovery indicators (supporting_evidence of kind metrics_summary)
- Monitoring duration and remaining impact if stated`,
	incident.PhaseResolved: `REQUIRED FOR RESOLVED:
- Complete timeline from start to resolution
- Total duration and final impact summary
- Resolution confirmation with stability period`,
}

func buildSystemPrompt() string {
	return strings.Join([]string{
		"You extract structured evidence from raw incident data so a status page update can be written from it.",
		"Return ONLY JSON matching the response schema. Do not include markdown or extra text.",
		"Never invent information absent from the sources. Use null for any unknown optional field and an empty array for any unknown list.",
		"Extract technical details as written; translation happens later.",
		"Every symptom, timeline entry and supporting signal must name the source_kind it came from, exactly as given in the SOURCE headers.",
		"Confidence is a number from 0 to 1: near 1 when stated explicitly or corroborated by several sources, near 0.5 when implied by one source, below 0.4 for weak signals.",
		"List internal identifiers in internal_terms_to_avoid: service and host names (e.g. api-gateway, rds-prod-main), database ids, employee names and emails, PR and change-request numbers.",
	}, "\n")
}

func buildUserPrompt(phase incident.Phase, sources []incident.RawSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CURRENT PHASE: %s\n", phase)
	fmt.Fprintf(&b, "PHASE DEFINITION: %s\n\n", phase.Definition())
	b.WriteString(phaseGuidance[phase])
	b.WriteString("\n\n")

	kinds := make([]string, 0, len(sources))
	for _, s := range sources {
		kinds = append(kinds, string(s.Kind))
	}
	fmt.Fprintf(&b, "SOURCES AVAILABLE: %s\n\n", strings.Join(kinds, ", "))

	b.WriteString("<incident_data>\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "=== SOURCE: %s ===\n", s.Kind)
		b.WriteString(s.Text())
		b.WriteString("\n\n")
	}
	b.WriteString("</incident_data>\n\n")
	fmt.Fprintf(&b, "Extract evidence relevant to the %s phase now.", phase)
	return b.String()
}
