package draft

import (
	"strings"

	"statuscomms/internal/incident"
)

type template struct {
	title   string
	message string
	eta     string
}

var templates = map[incident.Phase]template{
	incident.PhaseInvestigating: {
		title: "Investigating reports of service disruption",
		message: "We are currently investigating reports of degraded service affecting some customers. " +
			"Some customers may experience errors or slower than normal performance while using our services. " +
			"Our engineering team is actively investigating the issue and working to restore normal service as quickly as possible. " +
			"We will share more details as soon as we are able to confirm them.\n\n" +
			"We will provide an update within 30 minutes or as soon as we have more information.",
		eta: "within 30 minutes",
	},
	incident.PhaseIdentified: {
		title: "Issue identified, fix in progress",
		message: "We have identified the issue affecting some of our services, and our engineering team is working to resolve it. " +
			"Some customers may continue to experience errors or slower than normal performance while this work is underway.\n\n" +
			"Affected: Some customer-facing services\n" +
			"Impact: Intermittent errors and slower than normal response times\n\n" +
			"We will share further details once they are confirmed. " +
			"We expect to provide an update within 30 minutes and will keep customers informed as we make progress.",
		eta: "within 30 minutes",
	},
	incident.PhaseMonitoring: {
		title: "Fix implemented, monitoring results",
		message: "We have implemented a fix and are monitoring the results. " +
			"Service performance is returning to normal for most customers, and we are watching closely to ensure stability. " +
			"Some customers may still notice brief delays while systems fully recover. " +
			"We will share further details once they are confirmed.\n\n" +
			"We will continue monitoring and provide an update within 60 minutes or once we are confident the issue is fully resolved.",
		eta: "within 60 minutes",
	},
	incident.PhaseResolved: {
		title: "Incident resolved",
		message: "This incident has been resolved and our services have returned to normal operation. " +
			"Customers should no longer experience the errors or slower than normal performance seen during the incident. " +
			"Our engineering team has confirmed that systems are stable. " +
			"A summary of the impact will be shared once our review is complete.\n\n" +
			"We apologize for any inconvenience this may have caused. If you continue to experience issues, please contact our support team.",
		eta: "No further updates planned",
	},
}

// Sparse reports whether the evidence is too thin to write the phase's
// required content from.
func Sparse(ev incident.ExtractedEvidence, phase incident.Phase) bool {
	noImpact := len(ev.CustomerSymptoms) == 0 && ev.IncidentMetadata.AffectedService == nil
	st := ev.InvestigationStatus
	switch phase {
	case incident.PhaseInvestigating:
		return noImpact
	case incident.PhaseIdentified:
		return noImpact || (!st.RootCauseIdentified && st.DiagnosisSummary == nil)
	case incident.PhaseMonitoring:
		return st.MitigationAction == nil && len(ev.CustomerSymptoms) == 0
	case incident.PhaseResolved:
		return noImpact && len(ev.Timeline) == 0
	}
	return true
}

// Conservative returns the templated draft for phase. Every factual sentence
// gets a mapping with an empty reference, marking it as written without evidence.
func Conservative(ev incident.ExtractedEvidence, phase incident.Phase) incident.GeneratedDraft {
	t := templates[phase]
	d := incident.GeneratedDraft{
		Title:            t.title,
		Status:           phase,
		Message:          t.message,
		NextUpdateETA:    t.eta,
		EvidenceMappings: []incident.EvidenceMapping{},
		Templated:        true,
	}
	for _, s := range incident.SplitSentences(t.message) {
		if incident.IsBoilerplate(s) {
			continue
		}
		d.EvidenceMappings = append(d.EvidenceMappings, incident.EvidenceMapping{GeneratedSpan: s})
	}
	d.InternalTermsAvoided = incident.AvoidedTerms(d, ev.InternalTermsToAvoid)
	notes := "Evidence was too sparse for the " + strings.ToLower(string(phase)) +
		" phase; a conservative template was used and unsupported sections are unmapped."
	d.ConfidenceNotes = &notes
	return d
}
