package evaluate

import (
	"fmt"
	"strings"

	"statuscomms/internal/incident"
	"statuscomms/internal/metrics"
)

var (
	causalMarkers        = []string{"caused by", "due to", "root cause is", "root cause was", "the cause is", "because of"}
	caveatMarkers        = []string{"still investigating", "may continue", "ongoing issue", "not yet resolved"}
	updateMarkers        = []string{"update", "resolved"}
	investigationMarkers = []string{"investigating", "looking into", "working to identify", "working to understand"}
	causeAckMarkers      = []string{"identified", "cause", "found the"}
	fixMarkers           = []string{"deployed", "fix", "implemented", "applied", "rolled out", "mitigat"}
	stabilizeMarkers     = []string{"returning to normal", "back to normal", "recover", "stabiliz", "stable", "improv"}
	resolutionMarkers    = []string{"resolved", "restored", "returned to normal", "back to normal"}
	apologyMarkers       = []string{"apologize", "apologies", "sorry", "regret"}
)

// Check runs every deterministic check against the draft. It is pure and
// never short-circuits: all checks always run.
func Check(d incident.GeneratedDraft, ev incident.ExtractedEvidence, phase incident.Phase) incident.DeterministicChecks {
	return incident.DeterministicChecks{
		incident.CheckLength:            checkLength(d.Message),
		incident.CheckInternalLeakage:   checkLeakage(d, ev.InternalTermsToAvoid),
		incident.CheckRequiredFields:    checkRequiredFields(d, phase),
		incident.CheckPhaseProhibition:  checkPhaseProhibition(d, phase),
		incident.CheckEvidenceGrounding: checkGrounding(d, ev, phase),
	}
}

// RecordVerdicts counts each check verdict.
func RecordVerdicts(checks incident.DeterministicChecks) {
	for name, c := range checks {
		metrics.GuardrailVerdicts.WithLabelValues(string(name), string(c.Status)).Inc()
	}
}

func checkLength(message string) incident.CheckResult {
	n := incident.WordCount(message)
	switch {
	case n >= 60 && n <= 150:
		return incident.CheckResult{Status: incident.StatusPass, Detail: fmt.Sprintf("Message length is appropriate (%d words)", n)}
	case n >= 45 && n < 60:
		return incident.CheckResult{
			Status:        incident.StatusWarning,
			Detail:        fmt.Sprintf("Message is slightly short (%d words, recommended: 60-150)", n),
			ActionableFix: fmt.Sprintf("Consider adding more detail. Currently %d words, recommended minimum is 60 words.", n),
		}
	case n > 150 && n <= 160:
		return incident.CheckResult{
			Status:        incident.StatusWarning,
			Detail:        fmt.Sprintf("Message is slightly long (%d words, recommended: 60-150)", n),
			ActionableFix: fmt.Sprintf("Consider condensing the message. Currently %d words, recommended maximum is 150 words.", n),
		}
	case n < 45:
		return incident.CheckResult{
			Status:        incident.StatusFail,
			Detail:        fmt.Sprintf("Message is too short (%d words, minimum: 45)", n),
			ActionableFix: fmt.Sprintf("Add more detail to the message. Currently %d words, need at least 45 words (recommended: 60-150).", n),
		}
	}
	return incident.CheckResult{
		Status:        incident.StatusFail,
		Detail:        fmt.Sprintf("Message is too long (%d words, maximum: 160)", n),
		ActionableFix: fmt.Sprintf("Significantly condense the message. Currently %d words, maximum is 160 words (recommended: 60-150).", n),
	}
}

func checkLeakage(d incident.GeneratedDraft, terms []string) incident.CheckResult {
	var hits []string
	seen := map[string]bool{}
	add := func(h string) {
		if !seen[h] {
			seen[h] = true
			hits = append(hits, h)
		}
	}
	checked := 0
	for _, t := range terms {
		if strings.TrimSpace(t) == "" {
			continue
		}
		checked++
		for _, leaked := range incident.LeakedTerms(d.Title, []string{t}) {
			add(fmt.Sprintf("'%s' in title", leaked))
		}
		for _, leaked := range incident.LeakedTerms(d.Message, []string{t}) {
			add(fmt.Sprintf("'%s' in message", leaked))
		}
	}
	if len(hits) == 0 {
		if checked == 0 {
			return incident.CheckResult{Status: incident.StatusPass, Detail: "No internal terms to check (list is empty)"}
		}
		return incident.CheckResult{Status: incident.StatusPass, Detail: fmt.Sprintf("No internal terms leaked (checked %d terms)", checked)}
	}
	list := strings.Join(hits, ", ")
	return incident.CheckResult{
		Status:        incident.StatusFail,
		Detail:        "Internal terms detected: " + list,
		ActionableFix: "Remove or rephrase the following internal terms: " + list + ". Use customer-facing language instead.",
	}
}

func checkRequiredFields(d incident.GeneratedDraft, phase incident.Phase) incident.CheckResult {
	msg := d.Message
	var missing []string
	need := func(ok bool, what string) {
		if !ok {
			missing = append(missing, what)
		}
	}
	has := func(markers []string) bool { return len(incident.ContainsAny(msg, markers)) > 0 }

	need(strings.TrimSpace(d.NextUpdateETA) != "" || has(updateMarkers), "next update or resolution statement")
	switch phase {
	case incident.PhaseInvestigating:
		need(has(investigationMarkers), "investigation-underway statement")
	case incident.PhaseIdentified:
		need(has(causeAckMarkers), "cause acknowledgment")
		need(hasLine(msg, "affected:"), `"Affected:" line`)
		need(hasLine(msg, "impact:"), `"Impact:" line`)
	case incident.PhaseMonitoring:
		need(has(fixMarkers), "fix-deployed confirmation")
		need(has(stabilizeMarkers), "stabilizing statement")
	case incident.PhaseResolved:
		need(has(resolutionMarkers), "resolution statement")
		need(has(apologyMarkers), "apology")
	}

	if len(missing) == 0 {
		return incident.CheckResult{Status: incident.StatusPass, Detail: fmt.Sprintf("All required %s fields are present", strings.ToLower(string(phase)))}
	}
	list := strings.Join(missing, ", ")
	return incident.CheckResult{
		Status:        incident.StatusFail,
		Detail:        fmt.Sprintf("Missing %d required element(s) for %s: %s", len(missing), phase, list),
		ActionableFix: "Add the following elements to the message: " + list,
	}
}

// hasLine reports whether some line of text starts with prefix, ignoring case,
// list bullets and bold markers.
func hasLine(text, prefix string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(line, "**", "")
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return true
		}
	}
	return false
}

func checkPhaseProhibition(d incident.GeneratedDraft, phase incident.Phase) incident.CheckResult {
	text := d.Title + "\n" + d.Message
	switch phase {
	case incident.PhaseInvestigating:
		if found := incident.ContainsAny(text, causalMarkers); len(found) > 0 {
			return incident.CheckResult{
				Status:        incident.StatusFail,
				Detail:        "Investigating phase should not claim root cause. Found: " + strings.Join(found, ", "),
				ActionableFix: "Remove root cause claims. During investigation, use phrases like 'investigating the issue' or 'working to understand the problem' instead.",
			}
		}
		return incident.CheckResult{Status: incident.StatusPass, Detail: "Investigating phase: correctly avoids root cause claims"}
	case incident.PhaseResolved:
		if found := incident.ContainsAny(text, caveatMarkers); len(found) > 0 {
			return incident.CheckResult{
				Status:        incident.StatusWarning,
				Detail:        "Resolved phase contains unresolved caveats: " + strings.Join(found, ", "),
				ActionableFix: "Remove caveats suggesting the issue is ongoing, or move the incident back to Monitoring.",
			}
		}
		return incident.CheckResult{Status: incident.StatusPass, Detail: "Resolved phase: no unresolved caveats"}
	}
	return incident.CheckResult{Status: incident.StatusPass, Detail: fmt.Sprintf("%s phase: no prohibited content", phase)}
}

// checkGrounding re-verifies the generator's grounding contract without
// trusting its self-report.
func checkGrounding(d incident.GeneratedDraft, ev incident.ExtractedEvidence, phase incident.Phase) incident.CheckResult {
	var failures []string
	if d.Status != phase {
		failures = append(failures, fmt.Sprintf("status %q does not match phase %s", d.Status, phase))
	}

	var unmapped, unresolved, gaps []string
	factual := 0
	for _, s := range incident.SplitSentences(d.Message) {
		if incident.IsBoilerplate(s) {
			continue
		}
		factual++
		covered, grounded := false, false
		for _, m := range d.EvidenceMappings {
			if !incident.Covers(s, m.GeneratedSpan) {
				continue
			}
			covered = true
			if strings.TrimSpace(m.EvidenceReference) != "" {
				grounded = true
			}
		}
		switch {
		case !covered:
			unmapped = append(unmapped, quote(s))
		case !grounded:
			gaps = append(gaps, quote(s))
		}
	}
	for _, m := range d.EvidenceMappings {
		ref := strings.TrimSpace(m.EvidenceReference)
		if ref != "" && !ev.Resolve(ref) {
			unresolved = append(unresolved, quote(ref))
		}
	}
	if len(unmapped) > 0 {
		failures = append(failures, fmt.Sprintf("%d sentence(s) without evidence mapping: %s", len(unmapped), strings.Join(unmapped, "; ")))
	}
	if len(unresolved) > 0 {
		failures = append(failures, fmt.Sprintf("%d reference(s) to unknown evidence: %s", len(unresolved), strings.Join(unresolved, "; ")))
	}

	if len(failures) > 0 {
		return incident.CheckResult{
			Status:        incident.StatusFail,
			Detail:        "Ungrounded content: " + strings.Join(failures, "; "),
			ActionableFix: "Remove statements that no evidence supports, or map each factual sentence to the evidence field it comes from.",
		}
	}
	if len(gaps) > 0 {
		return incident.CheckResult{
			Status:        incident.StatusWarning,
			Detail:        fmt.Sprintf("Completeness: %d section(s) written without supporting evidence: %s", len(gaps), strings.Join(gaps, "; ")),
			ActionableFix: "Provide more incident sources so these sections can be confirmed, or review them manually before publishing.",
		}
	}
	return incident.CheckResult{Status: incident.StatusPass, Detail: fmt.Sprintf("All %d factual sentence(s) map to evidence", factual)}
}

func quote(s string) string {
	const max = 80
	r := []rune(s)
	if len(r) > max {
		s = string(r[:max]) + "..."
	}
	return `"` + s + `"`
}
