package incident

import "strings"

// EvidenceMapping links a span of generated text to the evidence that justifies it.
// An empty EvidenceReference marks a section written without supporting evidence.
type EvidenceMapping struct {
	GeneratedSpan         string  `json:"generated_span"`
	EvidenceReference     string  `json:"evidence_reference"`
	OriginalTechnicalTerm *string `json:"original_technical_term,omitempty"`
	CustomerFacingTerm    *string `json:"customer_facing_term,omitempty"`
}

type GeneratedDraft struct {
	Title                string            `json:"title"`
	Status               Phase             `json:"status"`
	Message              string            `json:"message"`
	NextUpdateETA        string            `json:"next_update_eta"`
	EvidenceMappings     []EvidenceMapping `json:"evidence_mappings"`
	InternalTermsAvoided []string          `json:"internal_terms_avoided"`
	ConfidenceNotes      *string           `json:"confidence_notes,omitempty"`
	Templated            bool              `json:"templated"`
}

// LeakedTerms returns the internal terms found in text (case-insensitive substring).
func LeakedTerms(text string, terms []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			out = append(out, t)
		}
	}
	return out
}

// AvoidedTerms returns the internal terms appearing in neither title nor message.
func AvoidedTerms(d GeneratedDraft, terms []string) []string {
	out := []string{}
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(LeakedTerms(d.Title+"\n"+d.Message, []string{t})) == 0 {
			out = append(out, t)
		}
	}
	return out
}
