// Package draft writes phase-aware customer status updates from extracted evidence.
package draft

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"statuscomms/internal/gemini"
	"statuscomms/internal/incident"
	"statuscomms/internal/logging"
)

// Generator is safe for concurrent use.
type Generator struct {
	svc    gemini.Service
	logger *slog.Logger
}

func New(svc gemini.Service, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = logging.New("draft")
	}
	return &Generator{svc: svc, logger: logger}
}

// Generate writes the draft for phase. Sparse evidence yields the
// conservative template instead of an error.
func (g *Generator) Generate(ctx context.Context, ev incident.ExtractedEvidence, phase incident.Phase, style incident.StyleGuide) (incident.GeneratedDraft, error) {
	if !phase.Valid() {
		return incident.GeneratedDraft{}, fmt.Errorf("invalid phase %q", phase)
	}
	if Sparse(ev, phase) {
		g.logger.Info("evidence too sparse, using conservative template", slog.String("phase", string(phase)))
		return Conservative(ev, phase), nil
	}

	resp, err := g.svc.Generate(ctx, gemini.Request{
		Shape:           gemini.ShapeGenerate,
		SystemPrompt:    buildSystemPrompt(),
		UserPrompt:      buildUserPrompt(ev, phase, style),
		ResponseSchema:  responseSchema(),
		Temperature:     0.3,
		MaxOutputTokens: 2048,
	})
	if errors.Is(err, gemini.ErrEmptyResponse) {
		return incident.GeneratedDraft{}, &incident.GenerationConstraintError{Reason: "empty response", Err: err}
	}
	if err != nil {
		return incident.GeneratedDraft{}, fmt.Errorf("generate draft: %w", err)
	}

	d, err := parseDraft(resp.Text, phase)
	if err != nil {
		g.logger.Warn("draft rejected", slog.String("phase", string(phase)), slog.String("error", err.Error()))
		return incident.GeneratedDraft{}, err
	}
	d.InternalTermsAvoided = incident.AvoidedTerms(d, ev.InternalTermsToAvoid)
	if leaked := incident.LeakedTerms(d.Title+"\n"+d.Message, ev.InternalTermsToAvoid); len(leaked) > 0 {
		g.logger.Warn("draft contains internal terms", slog.Any("terms", leaked))
	}
	g.logger.Info("draft generated",
		slog.String("phase", string(phase)),
		slog.String("prompt_version", promptVersion),
		slog.Int("words", incident.WordCount(d.Message)),
		slog.Int("mappings", len(d.EvidenceMappings)),
		slog.Int("attempts", resp.Attempts),
	)
	return d, nil
}

type wireDraft struct {
	Title            string `json:"title"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	NextUpdateETA    string `json:"next_update_eta"`
	EvidenceMappings []struct {
		GeneratedSpan         string  `json:"generated_span"`
		EvidenceReference     string  `json:"evidence_reference"`
		OriginalTechnicalTerm *string `json:"original_technical_term"`
		CustomerFacingTerm    *string `json:"customer_facing_term"`
	} `json:"evidence_mappings"`
	ConfidenceNotes *string `json:"confidence_notes"`
}

func constraint(format string, args ...any) error {
	return &incident.GenerationConstraintError{Reason: fmt.Sprintf(format, args...)}
}

func parseDraft(raw string, phase incident.Phase) (incident.GeneratedDraft, error) {
	dec := json.NewDecoder(bytes.NewBufferString(gemini.StripFences(raw)))
	dec.DisallowUnknownFields()
	var w wireDraft
	if err := dec.Decode(&w); err != nil {
		return incident.GeneratedDraft{}, &incident.GenerationConstraintError{Reason: "unparseable draft", Err: err}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return incident.GeneratedDraft{}, constraint("trailing data after draft JSON")
	}

	title := strings.TrimSpace(w.Title)
	message := strings.TrimSpace(w.Message)
	if title == "" {
		return incident.GeneratedDraft{}, constraint("draft has no title")
	}
	if message == "" {
		return incident.GeneratedDraft{}, constraint("draft has no message")
	}
	status, err := incident.ParsePhase(w.Status)
	if err != nil || status != phase {
		return incident.GeneratedDraft{}, constraint("draft status %q does not match phase %s", w.Status, phase)
	}

	d := incident.GeneratedDraft{
		Title:            title,
		Status:           status,
		Message:          message,
		NextUpdateETA:    strings.TrimSpace(w.NextUpdateETA),
		EvidenceMappings: []incident.EvidenceMapping{},
		ConfidenceNotes:  incident.StrPtr(incident.Deref(w.ConfidenceNotes, "")),
	}
	for _, m := range w.EvidenceMappings {
		span := strings.TrimSpace(m.GeneratedSpan)
		if span == "" {
			continue
		}
		d.EvidenceMappings = append(d.EvidenceMappings, incident.EvidenceMapping{
			GeneratedSpan:         span,
			EvidenceReference:     strings.TrimSpace(m.EvidenceReference),
			OriginalTechnicalTerm: incident.StrPtr(incident.Deref(m.OriginalTechnicalTerm, "")),
			CustomerFacingTerm:    incident.StrPtr(incident.Deref(m.CustomerFacingTerm, "")),
		})
	}
	return d, nil
}

func responseSchema() map[string]any {
	phases := make([]any, 0, len(incident.Phases))
	for _, p := range incident.Phases {
		phases = append(phases, string(p))
	}
	nullableString := map[string]any{"type": []any{"string", "null"}}
	return map[string]any{
		"type":     "object",
		"required": []any{"title", "status", "message", "next_update_eta", "evidence_mappings"},
		"properties": map[string]any{
			"title":           map[string]any{"type": "string"},
			"status":          map[string]any{"type": "string", "enum": phases},
			"message":         map[string]any{"type": "string"},
			"next_update_eta": map[string]any{"type": "string"},
			"evidence_mappings": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"generated_span", "evidence_reference"},
					"properties": map[string]any{
						"generated_span":          map[string]any{"type": "string"},
						"evidence_reference":      map[string]any{"type": "string"},
						"original_technical_term": nullableString,
						"customer_facing_term":    nullableString,
					},
					"additionalProperties": false,
				},
			},
			"confidence_notes": nullableString,
		},
		"additionalProperties": false,
	}
}
