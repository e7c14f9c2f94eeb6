package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"statuscomms/internal/gemini"
	"statuscomms/internal/incident"
)

type fakeService struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []gemini.Request
}

func (f *fakeService) Generate(ctx context.Context, req gemini.Request) (gemini.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return gemini.Response{}, f.err
	}
	return gemini.Response{Text: f.text, Model: "fake-model", Attempts: 1}, nil
}

const validReply = `{
  "incident_metadata": {"title": "API latency", "severity": "SEV-2", "start_time": "January 15, 2:20 PM PT", "affected_service": "unknown"},
  "customer_symptoms": [
    {"text": "High API latency", "confidence": 0.9, "source": "PagerDuty", "evidence_notes": ["p99 latency > 5s", " "]},
    {"text": "Connection timeouts", "confidence": 0.7, "source": "Logs"}
  ],
  "investigation_status": {"root_cause_identified": true, "diagnosis_summary": "pool exhausted after PR #4521", "mitigation_action": null, "next_update_timing": "30 minutes"},
  "timeline": [{"timestamp": "14:20", "description": "alert fired", "source": "PagerDuty"}],
  "internal_terms_to_avoid": ["api-gateway", "API-Gateway", " ", "PR #4521"],
  "supporting_evidence": [{"kind": "error_pattern", "summary": "timeouts to rds-prod-main", "source": "Logs"}]
}`

func testSources() []incident.RawSource {
	return []incident.RawSource{
		{Kind: incident.SourcePagerDuty, Payload: json.RawMessage(`{"incident":{"title":"High latency on api-gateway","severity":"SEV-2"}}`)},
		incident.TextSource(incident.SourceLogs, "ERROR api-gateway timeout connecting to rds-prod-main"),
	}
}

func TestExtractZeroSourcesReturnsUnknown(t *testing.T) {
	svc := &fakeService{}
	ex := New(svc, Options{})

	for _, sources := range [][]incident.RawSource{
		nil,
		{{Kind: incident.SourceMetrics, Payload: json.RawMessage(`null`)}, incident.TextSource(incident.SourceChatThread, "   ")},
	} {
		ev, err := ex.Extract(context.Background(), sources, incident.PhaseInvestigating)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ev.IsUnknown() {
			t.Fatalf("expected unknown evidence, got %+v", ev)
		}
	}
	if len(svc.calls) != 0 {
		t.Fatalf("expected no service call, got %d", len(svc.calls))
	}
}

func TestExtractParsesAndNormalizes(t *testing.T) {
	svc := &fakeService{text: "```json\n" + validReply + "\n```"}
	ex := New(svc, Options{})

	ev, err := ex.Extract(context.Background(), testSources(), incident.PhaseIdentified)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ev.IncidentMetadata.AffectedService != nil {
		t.Fatalf("expected \"unknown\" to become absent")
	}
	if got := incident.Deref(ev.IncidentMetadata.Severity, ""); got != "SEV-2" {
		t.Fatalf("unexpected severity %q", got)
	}
	if diff := cmp.Diff([]string{"api-gateway", "PR #4521"}, ev.InternalTermsToAvoid); diff != "" {
		t.Fatalf("internal terms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"p99 latency > 5s"}, ev.CustomerSymptoms[0].EvidenceNotes); diff != "" {
		t.Fatalf("evidence notes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]incident.SourceKind{incident.SourcePagerDuty, incident.SourceLogs}, ev.SourcesUsed); diff != "" {
		t.Fatalf("sources used mismatch (-want +got):\n%s", diff)
	}
	if !ev.InvestigationStatus.RootCauseIdentified || ev.InvestigationStatus.DiagnosisSummary == nil {
		t.Fatalf("identified phase should keep the diagnosis")
	}
	if ev.InvestigationStatus.MitigationAction != nil {
		t.Fatalf("null mitigation should stay absent")
	}

	req := svc.calls[0]
	if req.Shape != gemini.ShapeExtract || req.ResponseSchema == nil {
		t.Fatalf("unexpected request shape %+v", req.Shape)
	}
	for _, want := range []string{"=== SOURCE: PagerDuty ===", "=== SOURCE: Logs ===", "MUST attempt to populate mitigation_action", "rds-prod-main"} {
		if !strings.Contains(req.UserPrompt, want) {
			t.Fatalf("expected %q in prompt", want)
		}
	}
}

func TestExtractInvestigatingDropsDiagnosis(t *testing.T) {
	svc := &fakeService{text: validReply}
	ev, err := New(svc, Options{}).Extract(context.Background(), testSources(), incident.PhaseInvestigating)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ev.InvestigationStatus.RootCauseIdentified || ev.InvestigationStatus.DiagnosisSummary != nil {
		t.Fatalf("investigating evidence must not carry a diagnosis: %+v", ev.InvestigationStatus)
	}
}

func TestExtractRejectsMalformedReplies(t *testing.T) {
	tests := map[string]string{
		"not json":           "The incident is about latency.",
		"trailing data":      validReply + ` {}`,
		"unknown field":      strings.Replace(validReply, `"timeline":`, `"extra": 1, "timeline":`, 1),
		"source not given":   strings.Replace(validReply, `"source": "Logs"}`, `"source": "Metrics"}`, 1),
		"bad source":         strings.Replace(validReply, `"source": "PagerDuty", "evidence_notes"`, `"source": "Slack", "evidence_notes"`, 1),
		"confidence range":   strings.Replace(validReply, `"confidence": 0.9`, `"confidence": 1.5`, 1),
		"missing confidence": strings.Replace(validReply, `"confidence": 0.7, `, ``, 1),
		"empty symptom":      strings.Replace(validReply, `"text": "High API latency"`, `"text": " "`, 1),
		"signal kind":        strings.Replace(validReply, `"kind": "error_pattern"`, `"kind": "hunch"`, 1),
		"empty object":       `{}`,
		"null":               `null`,
		"null symptoms":      `{"customer_symptoms": null}`,
		"missing timeline":   strings.Replace(validReply, `"timeline": [{"timestamp": "14:20", "description": "alert fired", "source": "PagerDuty"}],`, ``, 1),
		"null status":        strings.Replace(validReply, `{"root_cause_identified": true, "diagnosis_summary": "pool exhausted after PR #4521", "mitigation_action": null, "next_update_timing": "30 minutes"}`, `null`, 1),
		"null root cause":    strings.Replace(validReply, `"root_cause_identified": true`, `"root_cause_identified": null`, 1),
		"missing severity":   strings.Replace(validReply, `"severity": "SEV-2", `, ``, 1),
	}
	for name, reply := range tests {
		svc := &fakeService{text: reply}
		_, err := New(svc, Options{}).Extract(context.Background(), testSources(), incident.PhaseIdentified)
		var malformed *incident.MalformedEvidenceError
		if !errors.As(err, &malformed) {
			t.Fatalf("%s: expected MalformedEvidenceError, got %v", name, err)
		}
		if len(svc.calls) != 1 {
			t.Fatalf("%s: malformed output must not be retried, got %d calls", name, len(svc.calls))
		}
	}
}

func TestExtractPropagatesServiceErrors(t *testing.T) {
	svc := &fakeService{err: &incident.ServiceTimeoutError{Shape: "extract", Attempts: 3, Err: context.DeadlineExceeded}}
	_, err := New(svc, Options{}).Extract(context.Background(), testSources(), incident.PhaseMonitoring)
	if incident.Classify(err) != incident.ClassServiceTimeout {
		t.Fatalf("expected service_timeout, got %v", err)
	}
}

func TestExtractEmptyResponseIsMalformed(t *testing.T) {
	svc := &fakeService{err: gemini.ErrEmptyResponse}
	_, err := New(svc, Options{}).Extract(context.Background(), testSources(), incident.PhaseIdentified)
	var malformed *incident.MalformedEvidenceError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedEvidenceError, got %v", err)
	}
	if got := incident.Classify(err); got != incident.ClassMalformedEvidence {
		t.Fatalf("Classify = %q, want %q", got, incident.ClassMalformedEvidence)
	}
}

func TestExtractUsesCache(t *testing.T) {
	svc := &fakeService{text: validReply}
	ex := New(svc, Options{Model: "fake-model", Cache: NewCache(t.TempDir())})

	first, err := ex.Extract(context.Background(), testSources(), incident.PhaseIdentified)
	if err != nil {
		t.Fatalf("first extract: %v", err)
	}
	second, err := ex.Extract(context.Background(), testSources(), incident.PhaseIdentified)
	if err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if len(svc.calls) != 1 {
		t.Fatalf("expected cached second call, got %d service calls", len(svc.calls))
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached evidence mismatch (-want +got):\n%s", diff)
	}

	if _, err := ex.Extract(context.Background(), testSources(), incident.PhaseResolved); err != nil {
		t.Fatalf("third extract: %v", err)
	}
	if len(svc.calls) != 2 {
		t.Fatalf("a different phase must miss the cache")
	}
}

func TestValidateSources(t *testing.T) {
	if err := ValidateSources(testSources()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []incident.RawSource{{Kind: "Slack", Payload: json.RawMessage(`"hi"`)}}
	if err := ValidateSources(bad); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
