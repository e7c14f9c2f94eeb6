package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/net/html"

	"statuscomms/internal/gemini"
	"statuscomms/internal/incident"
	"statuscomms/internal/logging"
)

const judgePromptVersion = "statuscomms-judge-v1"

var rubric = map[incident.Dimension]string{
	incident.DimensionClarity: `1.0: crystal clear impact statement, customer perspective, no jargon
   0.7: mostly clear, some vagueness or minor jargon
   0.4: mixed focus between internal and customer perspective
   0.0: vague, internal focus, heavy jargon`,
	incident.DimensionTone: `1.0: professional, empathetic, direct and honest, matches the style guide
   0.7: generally appropriate with minor inconsistencies
   0.4: too casual or too stiff, lacking empathy
   0.0: dismissive, flippant or cold`,
	incident.DimensionTechnicalBalance: `1.0: just enough detail, technical terms translated to customer language
   0.7: minor over- or under-explanation
   0.4: significantly too technical or too vague
   0.0: exposes internals or is uselessly vague`,
	incident.DimensionFactualGrounding: `1.0: every claim is directly supported by the evidence
   0.7: mostly supported, minor reasonable inference
   0.4: some unsupported claims or speculation presented as fact
   0.0: hallucinations or claims contradicting the evidence`,
	incident.DimensionPhase: `1.0: perfectly matches the incident lifecycle stage
   0.7: generally appropriate with minor misalignment
   0.4: noticeably wrong messaging for the phase
   0.0: completely wrong (e.g. claiming resolution during investigation)`,
}

// Judge scores drafts along the fixed judgment dimensions. Safe for concurrent use.
type Judge struct {
	svc    gemini.Service
	logger *slog.Logger
}

func NewJudge(svc gemini.Service, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = logging.New("judge")
	}
	return &Judge{svc: svc, logger: logger}
}

// Judge returns one score per dimension. Any service failure or invalid reply
// is a JudgmentUnavailableError; caller cancellation is returned as is.
func (j *Judge) Judge(ctx context.Context, d incident.GeneratedDraft, ev incident.ExtractedEvidence, style incident.StyleGuide) (incident.JudgmentScores, error) {
	resp, err := j.svc.Generate(ctx, gemini.Request{
		Shape:           gemini.ShapeJudge,
		SystemPrompt:    judgeSystemPrompt(),
		UserPrompt:      judgeUserPrompt(d, ev, style),
		ResponseSchema:  judgeResponseSchema(),
		Temperature:     0.1,
		MaxOutputTokens: 2048,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("judge draft: %w", ctx.Err())
		}
		return nil, &incident.JudgmentUnavailableError{Reason: "scoring call failed", Err: err}
	}
	scores, err := parseJudgment(resp.Text)
	if err != nil {
		j.logger.Warn("judgment rejected", slog.String("error", err.Error()))
		return nil, err
	}
	j.logger.Info("draft judged", slog.String("prompt_version", judgePromptVersion), slog.Int("attempts", resp.Attempts))
	return scores, nil
}

func judgeSystemPrompt() string {
	return strings.Join([]string{
		"You are an expert evaluator of customer incident communications. Provide honest, specific assessments.",
		"Return ONLY JSON matching the response schema.",
		"All text fields must be plain text: no HTML, no markdown.",
	}, "\n")
}

func judgeUserPrompt(d incident.GeneratedDraft, ev incident.ExtractedEvidence, style incident.StyleGuide) string {
	var b strings.Builder
	b.WriteString("EVALUATION RUBRIC. Score each dimension from 0.0 (poor) to 1.0 (excellent):\n\n")
	for i, dim := range incident.Dimensions {
		fmt.Fprintf(&b, "%d. %s (dimension id: %s)\n   %s\n\n", i+1, dim.Label(), dim, rubric[dim])
	}

	b.WriteString("STYLE GUIDE:\n")
	for _, t := range style.Tone {
		fmt.Fprintf(&b, "- tone: %s\n", t)
	}
	for _, t := range style.MustContain {
		fmt.Fprintf(&b, "- must contain: %s\n", t)
	}
	for _, t := range style.MustExclude {
		fmt.Fprintf(&b, "- must exclude: %s\n", t)
	}
	if ex := style.Examples[d.Status]; ex != "" {
		fmt.Fprintf(&b, "\nREFERENCE EXAMPLE FOR THIS PHASE (scores 0.9-1.0):\n%s\n", ex)
	}

	evJSON, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		evJSON = []byte("{}")
	}
	fmt.Fprintf(&b, "\nEVIDENCE (use this to verify factual grounding):\n%s\n", evJSON)

	fmt.Fprintf(&b, "\nDRAFT TO EVALUATE:\nPhase: %s\nTitle: %s\nMessage: %s\nNext Update: %s\n", d.Status, d.Title, d.Message, d.NextUpdateETA)

	b.WriteString(`
Return exactly one entry per dimension id. For each give a score, a specific rationale,
and, if the score is below 0.8, an improvement_suggestion. Focus especially on whether every
claim matches the evidence and whether the message fits the phase.`)
	return b.String()
}

func judgeResponseSchema() map[string]any {
	dims := make([]any, 0, len(incident.Dimensions))
	for _, d := range incident.Dimensions {
		dims = append(dims, string(d))
	}
	return map[string]any{
		"type":     "object",
		"required": []any{"dimensions"},
		"properties": map[string]any{
			"dimensions": map[string]any{
				"type":     "array",
				"minItems": len(incident.Dimensions),
				"maxItems": len(incident.Dimensions),
				"items": map[string]any{
					"type":     "object",
					"required": []any{"dimension", "score", "rationale"},
					"properties": map[string]any{
						"dimension":              map[string]any{"type": "string", "enum": dims},
						"score":                  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
						"rationale":              map[string]any{"type": "string"},
						"improvement_suggestion": map[string]any{"type": "string"},
					},
					"additionalProperties": false,
				},
			},
			"overall_rationale": map[string]any{"type": "string"},
		},
		"additionalProperties": false,
	}
}

type wireJudgment struct {
	Dimensions []struct {
		Dimension             string   `json:"dimension"`
		Score                 *float64 `json:"score"`
		Rationale             string   `json:"rationale"`
		ImprovementSuggestion string   `json:"improvement_suggestion"`
	} `json:"dimensions"`
	OverallRationale string `json:"overall_rationale"`
}

func unavailable(format string, args ...any) error {
	return &incident.JudgmentUnavailableError{Reason: fmt.Sprintf(format, args...)}
}

func parseJudgment(raw string) (incident.JudgmentScores, error) {
	dec := json.NewDecoder(bytes.NewBufferString(gemini.StripFences(raw)))
	dec.DisallowUnknownFields()
	var w wireJudgment
	if err := dec.Decode(&w); err != nil {
		return nil, &incident.JudgmentUnavailableError{Reason: "unparseable judgment", Err: err}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, unavailable("trailing data after judgment JSON")
	}

	known := make(map[incident.Dimension]bool, len(incident.Dimensions))
	for _, d := range incident.Dimensions {
		known[d] = true
	}
	out := make(incident.JudgmentScores, len(incident.Dimensions))
	for _, entry := range w.Dimensions {
		dim := incident.Dimension(strings.TrimSpace(entry.Dimension))
		if !known[dim] {
			return nil, unavailable("unknown dimension %q", entry.Dimension)
		}
		if _, dup := out[dim]; dup {
			return nil, unavailable("duplicate dimension %s", dim)
		}
		if entry.Score == nil || math.IsNaN(*entry.Score) || *entry.Score < 0 || *entry.Score > 1 {
			return nil, unavailable("%s: score must be within [0,1]", dim)
		}
		rationale := stripMarkup(entry.Rationale)
		if rationale == "" {
			return nil, unavailable("%s: empty rationale", dim)
		}
		out[dim] = incident.DimensionScore{
			Score:                 *entry.Score,
			Status:                StatusForScore(*entry.Score),
			Rationale:             rationale,
			ImprovementSuggestion: stripMarkup(entry.ImprovementSuggestion),
		}
	}
	if len(out) != len(incident.Dimensions) {
		return nil, unavailable("expected %d dimensions, got %d", len(incident.Dimensions), len(out))
	}
	return out, nil
}

// stripMarkup reduces judge text to its plain words: tags are dropped,
// entities decoded and whitespace collapsed.
func stripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}
