package incident

// Status is the verdict of a single check or dimension.
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Rank orders statuses from best (0) to worst (2).
func (s Status) Rank() int {
	switch s {
	case StatusPass:
		return 0
	case StatusWarning:
		return 1
	}
	return 2
}

// Worst returns the worse of two statuses.
func Worst(a, b Status) Status {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

type CheckName string

const (
	CheckLength            CheckName = "length"
	CheckInternalLeakage   CheckName = "internal_term_leakage"
	CheckRequiredFields    CheckName = "required_fields"
	CheckPhaseProhibition  CheckName = "phase_prohibition"
	CheckEvidenceGrounding CheckName = "evidence_grounding"
)

// CheckOrder is the fixed order in which checks are run and reported.
var CheckOrder = []CheckName{
	CheckLength,
	CheckInternalLeakage,
	CheckRequiredFields,
	CheckPhaseProhibition,
	CheckEvidenceGrounding,
}

type CheckResult struct {
	Status        Status `json:"status"`
	Detail        string `json:"detail"`
	ActionableFix string `json:"actionable_fix,omitempty"`
}

type DeterministicChecks map[CheckName]CheckResult

type Dimension string

const (
	DimensionClarity          Dimension = "clarity_customer_focus"
	DimensionTone             Dimension = "tone_consistency"
	DimensionTechnicalBalance Dimension = "technical_detail_balance"
	DimensionFactualGrounding Dimension = "factual_grounding"
	DimensionPhase            Dimension = "phase_appropriateness"
)

// Dimensions is the fixed set of judgment dimensions in report order.
var Dimensions = []Dimension{
	DimensionClarity,
	DimensionTone,
	DimensionTechnicalBalance,
	DimensionFactualGrounding,
	DimensionPhase,
}

// Label is the human-readable dimension name.
func (d Dimension) Label() string {
	switch d {
	case DimensionClarity:
		return "Clarity and Customer Focus"
	case DimensionTone:
		return "Tone Consistency"
	case DimensionTechnicalBalance:
		return "Technical Detail Balance"
	case DimensionFactualGrounding:
		return "Factual Grounding"
	case DimensionPhase:
		return "Phase Appropriateness"
	}
	return string(d)
}

type DimensionScore struct {
	Score                 float64 `json:"score"`
	Status                Status  `json:"status"`
	Rationale             string  `json:"rationale"`
	ImprovementSuggestion string  `json:"improvement_suggestion,omitempty"`
}

type JudgmentScores map[Dimension]DimensionScore

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// EvaluationReport is the graded verdict on one draft. RawConfidenceScore is
// the judged score before the guardrail ceiling is applied.
type EvaluationReport struct {
	DeterministicChecks DeterministicChecks `json:"deterministic_checks"`
	JudgmentScores      JudgmentScores      `json:"judgment_scores,omitempty"`
	RawConfidenceScore  float64             `json:"raw_confidence_score"`
	ConfidenceScore     float64             `json:"confidence_score"`
	ConfidenceLevel     ConfidenceLevel     `json:"confidence_level"`
	Warnings            []string            `json:"warnings"`
	Suggestions         []string            `json:"suggestions"`
	OverallStatus       Status              `json:"overall_status"`
	PassedChecks        int                 `json:"passed_checks"`
	WarningChecks       int                 `json:"warning_checks"`
	FailedChecks        int                 `json:"failed_checks"`
	Capped              bool                `json:"capped"`
	JudgmentSkipped     bool                `json:"judgment_skipped"`
}
