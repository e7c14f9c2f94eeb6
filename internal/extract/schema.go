package extract

import "statuscomms/internal/incident"

func responseSchema() map[string]any {
	kinds := make([]any, 0, len(incident.SourceKinds))
	for _, k := range incident.SourceKinds {
		kinds = append(kinds, string(k))
	}
	nullableString := map[string]any{"type": []any{"string", "null"}}
	source := map[string]any{"type": "string", "enum": kinds}

	return map[string]any{
		"type": "object",
		"required": []any{
			"incident_metadata",
			"customer_symptoms",
			"investigation_status",
			"timeline",
			"internal_terms_to_avoid",
			"supporting_evidence",
		},
		"properties": map[string]any{
			"incident_metadata": map[string]any{
				"type":     "object",
				"required": []any{"title", "severity", "start_time", "affected_service"},
				"properties": map[string]any{
					"title":            nullableString,
					"severity":         nullableString,
					"start_time":       nullableString,
					"affected_service": nullableString,
				},
				"additionalProperties": false,
			},
			"customer_symptoms": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"text", "confidence", "source"},
					"properties": map[string]any{
						"text":           map[string]any{"type": "string"},
						"confidence":     map[string]any{"type": "number", "minimum": 0, "maximum": 1},
						"source":         source,
						"evidence_notes": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"additionalProperties": false,
				},
			},
			"investigation_status": map[string]any{
				"type":     "object",
				"required": []any{"root_cause_identified", "diagnosis_summary", "mitigation_action"},
				"properties": map[string]any{
					"root_cause_identified": map[string]any{"type": "boolean"},
					"diagnosis_summary":     nullableString,
					"mitigation_action":     nullableString,
					"expected_resolution":   nullableString,
					"next_update_timing":    nullableString,
				},
				"additionalProperties": false,
			},
			"timeline": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"timestamp", "description", "source"},
					"properties": map[string]any{
						"timestamp":   map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"source":      source,
					},
					"additionalProperties": false,
				},
			},
			"internal_terms_to_avoid": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"supporting_evidence": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"kind", "summary", "source"},
					"properties": map[string]any{
						"kind": map[string]any{
							"type": "string",
							"enum": []any{
								string(incident.SignalDeploymentCorrelation),
								string(incident.SignalErrorPattern),
								string(incident.SignalMetricsSummary),
							},
						},
						"summary": map[string]any{"type": "string"},
						"source":  source,
					},
					"additionalProperties": false,
				},
			},
		},
		"additionalProperties": false,
	}
}
