package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		in      string
		want    Phase
		wantErr bool
	}{
		{in: "investigating", want: PhaseInvestigating},
		{in: " Identified ", want: PhaseIdentified},
		{in: "MONITORING", want: PhaseMonitoring},
		{in: "resolved", want: PhaseResolved},
		{in: "postmortem", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParsePhase(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePhase(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePhase(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePhase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRawSourceText(t *testing.T) {
	text := TextSource(SourceChatThread, "  engineers are looking at the gateway  ")
	if got := text.Text(); got != "engineers are looking at the gateway" {
		t.Fatalf("unexpected text payload: %q", got)
	}

	obj := RawSource{Kind: SourcePagerDuty, Payload: json.RawMessage(`{"incident":{"severity":"SEV-1"}}`)}
	if got := obj.Text(); !strings.Contains(got, `"severity": "SEV-1"`) {
		t.Fatalf("expected indented JSON, got %q", got)
	}

	empty := RawSource{Kind: SourceLogs, Payload: json.RawMessage(`null`)}
	if !empty.Empty() {
		t.Fatalf("expected null payload to be empty")
	}
}

func TestStrPtrTreatsUnknownAsAbsent(t *testing.T) {
	for _, v := range []string{"", "   ", "unknown", "Unknown", "N/A"} {
		if StrPtr(v) != nil {
			t.Fatalf("StrPtr(%q) expected nil", v)
		}
	}
	if got := StrPtr(" API "); got == nil || *got != "API" {
		t.Fatalf("StrPtr expected trimmed value, got %v", got)
	}
}

func TestUnknownEvidence(t *testing.T) {
	ev := UnknownEvidence()
	if !ev.IsUnknown() {
		t.Fatalf("expected unknown evidence")
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"title":null`) {
		t.Fatalf("expected explicit null title, got %s", b)
	}
	if !strings.Contains(string(b), `"customer_symptoms":[]`) {
		t.Fatalf("expected empty symptom list, got %s", b)
	}

	ev.CustomerSymptoms = append(ev.CustomerSymptoms, Symptom{Text: "High API latency", Confidence: 0.9, Source: SourcePagerDuty})
	if ev.IsUnknown() {
		t.Fatalf("expected evidence with a symptom to be known")
	}
}

func TestResolve(t *testing.T) {
	ev := UnknownEvidence()
	ev.IncidentMetadata.AffectedService = StrPtr("API")
	ev.CustomerSymptoms = []Symptom{{Text: "High API latency", Confidence: 0.9, Source: SourcePagerDuty}}
	ev.Timeline = []TimelineEvent{{Timestamp: "14:20", Description: "alert fired", Source: SourcePagerDuty}}

	tests := []struct {
		ref  string
		want bool
	}{
		{RefAffectedService, true},
		{RefTitle, false},
		{SymptomRef(0), true},
		{SymptomRef(1), false},
		{TimelineRef(0), true},
		{SignalRef(0), false},
		{RefRootCauseIdentified, false},
		{SymptomRef(0) + ", " + RefAffectedService, true},
		{SymptomRef(0) + "," + RefMitigation, false},
		{"PagerDuty", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := ev.Resolve(tc.ref); got != tc.want {
			t.Fatalf("Resolve(%q) = %v, want %v", tc.ref, got, tc.want)
		}
	}
}

func TestLeakedAndAvoidedTerms(t *testing.T) {
	d := GeneratedDraft{
		Title:   "Degraded performance",
		Message: "Requests through the API-Gateway are slow.",
	}
	terms := []string{"api-gateway", "rds-prod-main", " "}
	if diff := cmp.Diff([]string{"api-gateway"}, LeakedTerms(d.Title+" "+d.Message, terms)); diff != "" {
		t.Fatalf("leaked terms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rds-prod-main"}, AvoidedTerms(d, terms)); diff != "" {
		t.Fatalf("avoided terms mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitSentences(t *testing.T) {
	msg := "We have identified the cause of the API issue. Work is underway!\n\n" +
		"Affected: API endpoints\n" +
		"Impact: Increased response times, some timeouts may occur\n" +
		"**Summary**:\n" +
		"- Incident start: ~2:20 PM PT\n" +
		"Version 1.2 is fine"
	want := []string{
		"We have identified the cause of the API issue.",
		"Work is underway!",
		"Affected: API endpoints",
		"Impact: Increased response times, some timeouts may occur",
		"Summary:",
		"Incident start: ~2:20 PM PT",
		"Version 1.2 is fine",
	}
	if diff := cmp.Diff(want, SplitSentences(msg)); diff != "" {
		t.Fatalf("sentences mismatch (-want +got):\n%s", diff)
	}
}

func TestIsBoilerplate(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"We will provide an update within 30 minutes.", true},
		{"Thank you for your patience.", true},
		{"We apologize for any inconvenience this may have caused.", true},
		{"Summary:", true},
		{"We will provide an update within 30 minutes or as soon as we have more information.", true},
		{"If you continue to experience issues, please contact our support team.", true},
		{"Some customers may experience slower response times.", false},
		{"Affected: API endpoints", false},
		{"We apologize that all customer data was permanently lost.", false},
		{"We will provide an update once the database in us-east-1 is rebuilt.", false},
	}
	for _, tc := range tests {
		if got := IsBoilerplate(tc.s); got != tc.want {
			t.Fatalf("IsBoilerplate(%q) = %v, want %v", tc.s, got, tc.want)
		}
	}
}

func TestCovers(t *testing.T) {
	sentence := "Some customers may experience slower than normal response times."
	tests := []struct {
		name     string
		sentence string
		span     string
		want     bool
	}{
		{"exact", sentence, sentence, true},
		{"most of the sentence", sentence, "customers may experience slower than normal response times", true},
		{"sentence inside span", "Affected: API", "Affected: API endpoints and webhooks", true},
		{"single letter", sentence, "e", false},
		{"single word", sentence, "customers", false},
		{"short fragment", sentence, "slower than normal", false},
		{"partial word", "Customer payment records were deleted.", "customer payment record", false},
		{"unrelated", sentence, "database failover", false},
		{"punctuation only", sentence, " ... ", false},
	}
	for _, tc := range tests {
		if got := Covers(tc.sentence, tc.span); got != tc.want {
			t.Fatalf("%s: Covers(%q, %q) = %v, want %v", tc.name, tc.sentence, tc.span, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&MalformedEvidenceError{Reason: "bad json"}, ClassMalformedEvidence},
		{fmt.Errorf("stage: %w", &GenerationConstraintError{Reason: "missing title"}), ClassGenerationConstraint},
		{&JudgmentUnavailableError{Reason: "unparseable"}, ClassJudgmentUnavailable},
		{&JudgmentUnavailableError{Reason: "call failed", Err: &ServiceTimeoutError{Shape: "judge", Attempts: 3, Err: context.DeadlineExceeded}}, ClassServiceTimeout},
		{fmt.Errorf("extract: %w", context.Canceled), ClassCanceled},
		{fmt.Errorf("boom"), ClassInternal},
	}
	for _, tc := range tests {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
