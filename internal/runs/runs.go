// Package runs archives finished pipeline runs.
package runs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"statuscomms/internal/attest"
	"statuscomms/internal/incident"
)

var ErrNotFound = errors.New("run not found")

// Record is one archived pipeline run.
type Record struct {
	RunID       string                     `json:"run_id"`
	CreatedAt   time.Time                  `json:"created_at"`
	Phase       incident.Phase             `json:"phase"`
	Evidence    incident.ExtractedEvidence `json:"evidence"`
	Draft       incident.GeneratedDraft    `json:"draft"`
	Report      incident.EvaluationReport  `json:"report"`
	Attestation *attest.Attestation        `json:"attestation,omitempty"`
}

// IndexEntry summarizes a run for listings.
type IndexEntry struct {
	RunID           string                   `json:"run_id"`
	Phase           incident.Phase           `json:"phase"`
	OverallStatus   incident.Status          `json:"overall_status"`
	ConfidenceScore float64                  `json:"confidence_score"`
	ConfidenceLevel incident.ConfidenceLevel `json:"confidence_level"`
	Timestamp       int64                    `json:"ts"`
}

func (r Record) Entry() IndexEntry {
	return IndexEntry{
		RunID:           r.RunID,
		Phase:           r.Phase,
		OverallStatus:   r.Report.OverallStatus,
		ConfidenceScore: r.Report.ConfidenceScore,
		ConfidenceLevel: r.Report.ConfidenceLevel,
		Timestamp:       r.CreatedAt.Unix(),
	}
}

// Store persists run records.
type Store interface {
	Save(ctx context.Context, r Record) error
	Get(ctx context.Context, runID string) (Record, error)
	// Ping reports whether the store can accept writes.
	Ping(ctx context.Context) error
	Close() error
}

// NewID returns a fresh run id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id is a well-formed run id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
