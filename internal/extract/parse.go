package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"statuscomms/internal/gemini"
	"statuscomms/internal/incident"
)

// nullable records whether a key was present in the reply, separately from
// whether its value was null.
type nullable[T any] struct {
	set bool
	val *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.val = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.val = &v
	return nil
}

// Top-level keys are pointers so a missing or null key can be told apart
// from an empty value.
type wireEvidence struct {
	IncidentMetadata *struct {
		Title           nullable[string] `json:"title"`
		Severity        nullable[string] `json:"severity"`
		StartTime       nullable[string] `json:"start_time"`
		AffectedService nullable[string] `json:"affected_service"`
	} `json:"incident_metadata"`
	CustomerSymptoms *[]struct {
		Text          string   `json:"text"`
		Confidence    *float64 `json:"confidence"`
		Source        string   `json:"source"`
		EvidenceNotes []string `json:"evidence_notes"`
	} `json:"customer_symptoms"`
	InvestigationStatus *struct {
		RootCauseIdentified *bool            `json:"root_cause_identified"`
		DiagnosisSummary    nullable[string] `json:"diagnosis_summary"`
		MitigationAction    nullable[string] `json:"mitigation_action"`
		ExpectedResolution  *string          `json:"expected_resolution"`
		NextUpdateTiming    *string          `json:"next_update_timing"`
	} `json:"investigation_status"`
	Timeline *[]struct {
		Timestamp   string `json:"timestamp"`
		Description string `json:"description"`
		Source      string `json:"source"`
	} `json:"timeline"`
	InternalTermsToAvoid *[]string `json:"internal_terms_to_avoid"`
	SupportingEvidence   *[]struct {
		Kind    string `json:"kind"`
		Summary string `json:"summary"`
		Source  string `json:"source"`
	} `json:"supporting_evidence"`
}

// missingKeys lists the required keys that are absent or null. Nullable
// nested keys only need to be present.
func (w *wireEvidence) missingKeys() []string {
	var missing []string
	if w.IncidentMetadata == nil {
		missing = append(missing, "incident_metadata")
	} else {
		m := w.IncidentMetadata
		for _, f := range []struct {
			name string
			set  bool
		}{
			{"title", m.Title.set},
			{"severity", m.Severity.set},
			{"start_time", m.StartTime.set},
			{"affected_service", m.AffectedService.set},
		} {
			if !f.set {
				missing = append(missing, "incident_metadata."+f.name)
			}
		}
	}
	if w.CustomerSymptoms == nil {
		missing = append(missing, "customer_symptoms")
	}
	if st := w.InvestigationStatus; st == nil {
		missing = append(missing, "investigation_status")
	} else {
		if st.RootCauseIdentified == nil {
			missing = append(missing, "investigation_status.root_cause_identified")
		}
		if !st.DiagnosisSummary.set {
			missing = append(missing, "investigation_status.diagnosis_summary")
		}
		if !st.MitigationAction.set {
			missing = append(missing, "investigation_status.mitigation_action")
		}
	}
	if w.Timeline == nil {
		missing = append(missing, "timeline")
	}
	if w.InternalTermsToAvoid == nil {
		missing = append(missing, "internal_terms_to_avoid")
	}
	if w.SupportingEvidence == nil {
		missing = append(missing, "supporting_evidence")
	}
	return missing
}

func malformed(format string, args ...any) error {
	return &incident.MalformedEvidenceError{Reason: fmt.Sprintf(format, args...)}
}

// parseEvidence strictly decodes a service reply and checks every
// provenance tag against the kinds that were actually supplied.
func parseEvidence(raw string, phase incident.Phase, supplied []incident.SourceKind) (incident.ExtractedEvidence, error) {
	dec := json.NewDecoder(bytes.NewBufferString(gemini.StripFences(raw)))
	dec.DisallowUnknownFields()
	var w wireEvidence
	if err := dec.Decode(&w); err != nil {
		return incident.ExtractedEvidence{}, &incident.MalformedEvidenceError{Reason: "invalid JSON", Err: err}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return incident.ExtractedEvidence{}, malformed("trailing data after JSON object")
	}
	if missing := w.missingKeys(); len(missing) > 0 {
		return incident.ExtractedEvidence{}, malformed("missing or null required key(s): %s", strings.Join(missing, ", "))
	}

	allowed := make(map[incident.SourceKind]bool, len(supplied))
	for _, k := range supplied {
		allowed[k] = true
	}
	source := func(field, v string) (incident.SourceKind, error) {
		k, err := incident.ParseSourceKind(v)
		if err != nil {
			return "", malformed("%s: %v", field, err)
		}
		if !allowed[k] {
			return "", malformed("%s: source %s was not supplied", field, k)
		}
		return k, nil
	}

	ev := incident.UnknownEvidence()
	ev.SourcesUsed = append(ev.SourcesUsed, supplied...)

	m := w.IncidentMetadata
	ev.IncidentMetadata = incident.IncidentMetadata{
		Title:           incident.StrPtr(incident.Deref(m.Title.val, "")),
		Severity:        incident.StrPtr(incident.Deref(m.Severity.val, "")),
		StartTime:       incident.StrPtr(incident.Deref(m.StartTime.val, "")),
		AffectedService: incident.StrPtr(incident.Deref(m.AffectedService.val, "")),
	}

	for i, s := range *w.CustomerSymptoms {
		field := fmt.Sprintf("customer_symptoms[%d]", i)
		text := strings.TrimSpace(s.Text)
		if text == "" {
			return incident.ExtractedEvidence{}, malformed("%s: empty text", field)
		}
		if s.Confidence == nil || math.IsNaN(*s.Confidence) || *s.Confidence < 0 || *s.Confidence > 1 {
			return incident.ExtractedEvidence{}, malformed("%s: confidence must be within [0,1]", field)
		}
		kind, err := source(field, s.Source)
		if err != nil {
			return incident.ExtractedEvidence{}, err
		}
		var notes []string
		for _, n := range s.EvidenceNotes {
			if n = strings.TrimSpace(n); n != "" {
				notes = append(notes, n)
			}
		}
		ev.CustomerSymptoms = append(ev.CustomerSymptoms, incident.Symptom{
			Text:          text,
			Confidence:    *s.Confidence,
			Source:        kind,
			EvidenceNotes: notes,
		})
	}

	st := w.InvestigationStatus
	ev.InvestigationStatus = incident.InvestigationStatus{
		RootCauseIdentified: *st.RootCauseIdentified,
		DiagnosisSummary:    incident.StrPtr(incident.Deref(st.DiagnosisSummary.val, "")),
		MitigationAction:    incident.StrPtr(incident.Deref(st.MitigationAction.val, "")),
		ExpectedResolution:  incident.StrPtr(incident.Deref(st.ExpectedResolution, "")),
		NextUpdateTiming:    incident.StrPtr(incident.Deref(st.NextUpdateTiming, "")),
	}
	if phase == incident.PhaseInvestigating {
		ev.InvestigationStatus.RootCauseIdentified = false
		ev.InvestigationStatus.DiagnosisSummary = nil
	}

	for i, e := range *w.Timeline {
		field := fmt.Sprintf("timeline[%d]", i)
		desc := strings.TrimSpace(e.Description)
		if desc == "" {
			return incident.ExtractedEvidence{}, malformed("%s: empty description", field)
		}
		kind, err := source(field, e.Source)
		if err != nil {
			return incident.ExtractedEvidence{}, err
		}
		ev.Timeline = append(ev.Timeline, incident.TimelineEvent{
			Timestamp:   strings.TrimSpace(e.Timestamp),
			Description: desc,
			Source:      kind,
		})
	}

	for i, s := range *w.SupportingEvidence {
		field := fmt.Sprintf("supporting_evidence[%d]", i)
		kind := incident.SignalKind(strings.TrimSpace(s.Kind))
		switch kind {
		case incident.SignalDeploymentCorrelation, incident.SignalErrorPattern, incident.SignalMetricsSummary:
		default:
			return incident.ExtractedEvidence{}, malformed("%s: unknown kind %q", field, s.Kind)
		}
		summary := strings.TrimSpace(s.Summary)
		if summary == "" {
			return incident.ExtractedEvidence{}, malformed("%s: empty summary", field)
		}
		src, err := source(field, s.Source)
		if err != nil {
			return incident.ExtractedEvidence{}, err
		}
		ev.SupportingEvidence = append(ev.SupportingEvidence, incident.SupportingSignal{Kind: kind, Summary: summary, Source: src})
	}

	ev.InternalTermsToAvoid = dedupeTerms(*w.InternalTermsToAvoid)
	return ev, nil
}

func dedupeTerms(terms []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
