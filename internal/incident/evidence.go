package incident

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RawSource is one decoded payload handed over by the ingestion layer.
// Payload is either a JSON string (plain text) or any JSON value.
type RawSource struct {
	Kind    SourceKind      `json:"source_kind"`
	Payload json.RawMessage `json:"payload"`
}

// TextSource builds a RawSource from plain text.
func TextSource(kind SourceKind, text string) RawSource {
	b, _ := json.Marshal(text)
	return RawSource{Kind: kind, Payload: b}
}

// Text renders the payload for inclusion in a prompt.
func (s RawSource) Text() string {
	raw := bytes.TrimSpace(s.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return strings.TrimSpace(str)
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// Empty reports whether the source carries nothing worth sending.
func (s RawSource) Empty() bool {
	return s.Text() == ""
}

type IncidentMetadata struct {
	Title           *string `json:"title"`
	Severity        *string `json:"severity"`
	StartTime       *string `json:"start_time"`
	AffectedService *string `json:"affected_service"`
}

type Symptom struct {
	Text          string     `json:"text"`
	Confidence    float64    `json:"confidence"`
	Source        SourceKind `json:"source"`
	EvidenceNotes []string   `json:"evidence_notes,omitempty"`
}

type InvestigationStatus struct {
	RootCauseIdentified bool    `json:"root_cause_identified"`
	DiagnosisSummary    *string `json:"diagnosis_summary"`
	MitigationAction    *string `json:"mitigation_action"`
	ExpectedResolution  *string `json:"expected_resolution,omitempty"`
	NextUpdateTiming    *string `json:"next_update_timing,omitempty"`
}

type TimelineEvent struct {
	Timestamp   string     `json:"timestamp"`
	Description string     `json:"description"`
	Source      SourceKind `json:"source"`
}

type SignalKind string

const (
	SignalDeploymentCorrelation SignalKind = "deployment_correlation"
	SignalErrorPattern          SignalKind = "error_pattern"
	SignalMetricsSummary        SignalKind = "metrics_summary"
)

type SupportingSignal struct {
	Kind    SignalKind `json:"kind"`
	Summary string     `json:"summary"`
	Source  SourceKind `json:"source"`
}

// ExtractedEvidence is the provenance-tagged intermediate representation
// produced by extraction. Nil pointers mean unknown.
type ExtractedEvidence struct {
	IncidentMetadata     IncidentMetadata    `json:"incident_metadata"`
	CustomerSymptoms     []Symptom           `json:"customer_symptoms"`
	InvestigationStatus  InvestigationStatus `json:"investigation_status"`
	Timeline             []TimelineEvent     `json:"timeline"`
	InternalTermsToAvoid []string            `json:"internal_terms_to_avoid"`
	SupportingEvidence   []SupportingSignal  `json:"supporting_evidence"`
	SourcesUsed          []SourceKind        `json:"sources_used"`
}

// UnknownEvidence is the evidence object for an incident nothing is known about.
func UnknownEvidence() ExtractedEvidence {
	return ExtractedEvidence{
		CustomerSymptoms:     []Symptom{},
		Timeline:             []TimelineEvent{},
		InternalTermsToAvoid: []string{},
		SupportingEvidence:   []SupportingSignal{},
		SourcesUsed:          []SourceKind{},
	}
}

// IsUnknown reports whether no field of the evidence is populated.
func (e ExtractedEvidence) IsUnknown() bool {
	m := e.IncidentMetadata
	s := e.InvestigationStatus
	return m.Title == nil && m.Severity == nil && m.StartTime == nil && m.AffectedService == nil &&
		len(e.CustomerSymptoms) == 0 && len(e.Timeline) == 0 && len(e.SupportingEvidence) == 0 &&
		!s.RootCauseIdentified && s.DiagnosisSummary == nil && s.MitigationAction == nil &&
		s.ExpectedResolution == nil && s.NextUpdateTiming == nil
}

// Evidence reference paths used in evidence mappings.
const (
	RefTitle               = "incident_metadata.title"
	RefSeverity            = "incident_metadata.severity"
	RefStartTime           = "incident_metadata.start_time"
	RefAffectedService     = "incident_metadata.affected_service"
	RefRootCauseIdentified = "investigation_status.root_cause_identified"
	RefDiagnosis           = "investigation_status.diagnosis_summary"
	RefMitigation          = "investigation_status.mitigation_action"
	RefExpectedResolution  = "investigation_status.expected_resolution"
	RefNextUpdate          = "investigation_status.next_update_timing"
)

var indexedRef = regexp.MustCompile(`^(customer_symptoms|timeline|supporting_evidence)\[(\d+)\]$`)

// SymptomRef returns the reference path of the i-th symptom.
func SymptomRef(i int) string { return fmt.Sprintf("customer_symptoms[%d]", i) }

// TimelineRef returns the reference path of the i-th timeline event.
func TimelineRef(i int) string { return fmt.Sprintf("timeline[%d]", i) }

// SignalRef returns the reference path of the i-th supporting signal.
func SignalRef(i int) string { return fmt.Sprintf("supporting_evidence[%d]", i) }

// Resolve reports whether ref points at a populated field of the evidence.
// Multiple references may be joined with commas; all must resolve.
func (e ExtractedEvidence) Resolve(ref string) bool {
	parts := strings.Split(ref, ",")
	for _, p := range parts {
		if !e.resolveOne(strings.TrimSpace(p)) {
			return false
		}
	}
	return len(parts) > 0
}

func (e ExtractedEvidence) resolveOne(ref string) bool {
	m := e.IncidentMetadata
	s := e.InvestigationStatus
	switch ref {
	case RefTitle:
		return m.Title != nil
	case RefSeverity:
		return m.Severity != nil
	case RefStartTime:
		return m.StartTime != nil
	case RefAffectedService:
		return m.AffectedService != nil
	case RefRootCauseIdentified:
		return s.RootCauseIdentified
	case RefDiagnosis:
		return s.DiagnosisSummary != nil
	case RefMitigation:
		return s.MitigationAction != nil
	case RefExpectedResolution:
		return s.ExpectedResolution != nil
	case RefNextUpdate:
		return s.NextUpdateTiming != nil
	}
	match := indexedRef.FindStringSubmatch(ref)
	if match == nil {
		return false
	}
	i, err := strconv.Atoi(match[2])
	if err != nil {
		return false
	}
	switch match[1] {
	case "customer_symptoms":
		return i < len(e.CustomerSymptoms)
	case "timeline":
		return i < len(e.Timeline)
	case "supporting_evidence":
		return i < len(e.SupportingEvidence)
	}
	return false
}

// StrPtr returns a pointer to a trimmed copy of s, or nil when s carries no value.
func StrPtr(s string) *string {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "unknown", "n/a", "none", "null", "not yet identified":
		return nil
	}
	return &v
}

// Deref returns *p or fallback when p is nil.
func Deref(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
