package evaluate

import (
	"context"
	"errors"
	"fmt"
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
	block bool
	calls []gemini.Request
}

func (f *fakeService) Generate(ctx context.Context, req gemini.Request) (gemini.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	text, err, block := f.text, f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return gemini.Response{}, ctx.Err()
	}
	if err != nil {
		return gemini.Response{}, err
	}
	return gemini.Response{Text: text, Model: "fake-model", Attempts: 1}, nil
}

func judgmentReply(scores map[incident.Dimension]float64) string {
	var entries []string
	for _, d := range incident.Dimensions {
		s, ok := scores[d]
		if !ok {
			continue
		}
		entries = append(entries, fmt.Sprintf(`{"dimension": %q, "score": %g, "rationale": "reason for %s", "improvement_suggestion": "improve %s"}`, d, s, d, d))
	}
	return `{"dimensions": [` + strings.Join(entries, ",") + `], "overall_rationale": "ok"}`
}

func allDims(score float64) map[incident.Dimension]float64 {
	out := map[incident.Dimension]float64{}
	for _, d := range incident.Dimensions {
		out[d] = score
	}
	return out
}

func TestJudgeParsesScores(t *testing.T) {
	scores := allDims(0.9)
	scores[incident.DimensionTone] = 0.65
	scores[incident.DimensionPhase] = 0.3
	svc := &fakeService{text: "```json\n" + judgmentReply(scores) + "\n```"}

	got, err := NewJudge(svc, nil).Judge(context.Background(), investigatingDraft(), investigatingEvidence(), incident.DefaultStyleGuide())
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if len(got) != len(incident.Dimensions) {
		t.Fatalf("expected %d dimensions, got %d", len(incident.Dimensions), len(got))
	}
	want := map[incident.Dimension]incident.Status{
		incident.DimensionClarity: incident.StatusPass,
		incident.DimensionTone:    incident.StatusWarning,
		incident.DimensionPhase:   incident.StatusFail,
	}
	for d, status := range want {
		if got[d].Status != status {
			t.Fatalf("%s: status %s, want %s", d, got[d].Status, status)
		}
	}
	if got[incident.DimensionClarity].Rationale == "" {
		t.Fatalf("expected rationale to be kept")
	}

	if len(svc.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(svc.calls))
	}
	req := svc.calls[0]
	if req.Shape != gemini.ShapeJudge || req.ResponseSchema == nil {
		t.Fatalf("unexpected request: shape=%s schema=%v", req.Shape, req.ResponseSchema != nil)
	}
	for _, want := range []string{"Factual Grounding", "DRAFT TO EVALUATE", "api-gateway", "Phase: Investigating"} {
		if !strings.Contains(req.UserPrompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestJudgeStripsMarkup(t *testing.T) {
	reply := strings.Replace(judgmentReply(allDims(0.9)), "reason for clarity_customer_focus", "<b>Clear</b> impact &amp; no jargon<br/>overall", 1)
	reply = strings.Replace(reply, "improve tone_consistency", `<a href=\"https://example.com\">Soften</a> the &quot;ETA&quot; line`, 1)
	svc := &fakeService{text: reply}

	got, err := NewJudge(svc, nil).Judge(context.Background(), investigatingDraft(), investigatingEvidence(), incident.DefaultStyleGuide())
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if diff := cmp.Diff("Clear impact & no jargon overall", got[incident.DimensionClarity].Rationale); diff != "" {
		t.Fatalf("rationale mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(`Soften the "ETA" line`, got[incident.DimensionTone].ImprovementSuggestion); diff != "" {
		t.Fatalf("suggestion mismatch (-want +got):\n%s", diff)
	}
}

func TestJudgeRejectsInvalidReplies(t *testing.T) {
	missing := allDims(0.9)
	delete(missing, incident.DimensionTone)
	outOfRange := allDims(0.9)
	outOfRange[incident.DimensionClarity] = 1.4

	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "I think this draft is great"},
		{"missing dimension", judgmentReply(missing)},
		{"score out of range", judgmentReply(outOfRange)},
		{"unknown dimension", `{"dimensions": [{"dimension": "humor", "score": 0.5, "rationale": "x"}]}`},
		{"duplicate dimension", `{"dimensions": [` + strings.Repeat(`{"dimension": "tone_consistency", "score": 0.5, "rationale": "x"},`, 4) + `{"dimension": "tone_consistency", "score": 0.5, "rationale": "x"}]}`},
		{"empty rationale", strings.Replace(judgmentReply(allDims(0.9)), "reason for clarity_customer_focus", " ", 1)},
		{"unknown field", strings.Replace(judgmentReply(allDims(0.9)), `"overall_rationale"`, `"verdict": "ship", "overall_rationale"`, 1)},
		{"trailing data", judgmentReply(allDims(0.9)) + ` {}`},
		{"markup-only rationale", strings.Replace(judgmentReply(allDims(0.9)), "reason for clarity_customer_focus", "<p> </p>", 1)},
	}
	for _, tc := range tests {
		svc := &fakeService{text: tc.reply}
		_, err := NewJudge(svc, nil).Judge(context.Background(), investigatingDraft(), investigatingEvidence(), incident.DefaultStyleGuide())
		var unavailable *incident.JudgmentUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("%s: expected JudgmentUnavailableError, got %v", tc.name, err)
		}
	}
}

func TestJudgeServiceFailures(t *testing.T) {
	svc := &fakeService{err: errors.New("backend exploded")}
	_, err := NewJudge(svc, nil).Judge(context.Background(), investigatingDraft(), investigatingEvidence(), incident.DefaultStyleGuide())
	if got := incident.Classify(err); got != incident.ClassJudgmentUnavailable {
		t.Fatalf("expected judgment_unavailable, got %s (%v)", got, err)
	}

	svc = &fakeService{err: &incident.ServiceTimeoutError{Shape: string(gemini.ShapeJudge), Attempts: 3, Err: context.DeadlineExceeded}}
	_, err = NewJudge(svc, nil).Judge(context.Background(), investigatingDraft(), investigatingEvidence(), incident.DefaultStyleGuide())
	if got := incident.Classify(err); got != incident.ClassServiceTimeout {
		t.Fatalf("expected service_timeout, got %s (%v)", got, err)
	}
}

func TestJudgeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{block: true}
	done := make(chan error, 1)
	go func() {
		_, err := NewJudge(svc, nil).Judge(ctx, investigatingDraft(), investigatingEvidence(), incident.DefaultStyleGuide())
		done <- err
	}()
	cancel()
	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := incident.Classify(err); got != incident.ClassCanceled {
		t.Fatalf("expected canceled classification, got %s", got)
	}
}
