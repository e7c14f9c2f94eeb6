package incident

import (
	"context"
	"errors"
	"fmt"
)

// MalformedEvidenceError means the extraction response failed schema validation.
type MalformedEvidenceError struct {
	Reason string
	Err    error
}

func (e *MalformedEvidenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed evidence: %s: %v", e.Reason, e.Err)
	}
	return "malformed evidence: " + e.Reason
}

func (e *MalformedEvidenceError) Unwrap() error { return e.Err }

// GenerationConstraintError means the generated draft violates a hard structural
// requirement the generator should have prevented.
type GenerationConstraintError struct {
	Reason string
	Err    error
}

func (e *GenerationConstraintError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation constraint violated: %s: %v", e.Reason, e.Err)
	}
	return "generation constraint violated: " + e.Reason
}

func (e *GenerationConstraintError) Unwrap() error { return e.Err }

// JudgmentUnavailableError means the scoring call failed or was unparseable.
type JudgmentUnavailableError struct {
	Reason string
	Err    error
}

func (e *JudgmentUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("judgment unavailable: %s: %v", e.Reason, e.Err)
	}
	return "judgment unavailable: " + e.Reason
}

func (e *JudgmentUnavailableError) Unwrap() error { return e.Err }

// ServiceTimeoutError means an outbound call exceeded its deadline on every attempt.
type ServiceTimeoutError struct {
	Shape    string
	Attempts int
	Err      error
}

func (e *ServiceTimeoutError) Error() string {
	return fmt.Sprintf("%s call timed out after %d attempt(s): %v", e.Shape, e.Attempts, e.Err)
}

func (e *ServiceTimeoutError) Unwrap() error { return e.Err }

// Classification values returned by Classify.
const (
	ClassMalformedEvidence    = "malformed_evidence"
	ClassGenerationConstraint = "generation_constraint"
	ClassJudgmentUnavailable  = "judgment_unavailable"
	ClassServiceTimeout       = "service_timeout"
	ClassCanceled             = "canceled"
	ClassInternal             = "internal"
)

// Classify maps an error to a stable classification string.
func Classify(err error) string {
	var (
		malformed *MalformedEvidenceError
		genErr    *GenerationConstraintError
		judgeErr  *JudgmentUnavailableError
		timeout   *ServiceTimeoutError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeout):
		return ClassServiceTimeout
	case errors.As(err, &malformed):
		return ClassMalformedEvidence
	case errors.As(err, &genErr):
		return ClassGenerationConstraint
	case errors.As(err, &judgeErr):
		return ClassJudgmentUnavailable
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ClassServiceTimeout
	}
	return ClassInternal
}
