// Package events publishes pipeline completion events to reviewers and
// downstream systems.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"statuscomms/internal/logging"
)

// RunEvent is emitted once per finished pipeline run.
type RunEvent struct {
	Timestamp       string   `json:"timestamp"`
	RunID           string   `json:"run_id"`
	Phase           string   `json:"phase"`
	Title           string   `json:"title"`
	Message         string   `json:"message"`
	OverallStatus   string   `json:"overall_status"`
	ConfidenceScore float64  `json:"confidence_score"`
	ConfidenceLevel string   `json:"confidence_level"`
	Capped          bool     `json:"capped"`
	JudgmentSkipped bool     `json:"judgment_skipped"`
	Templated       bool     `json:"templated"`
	Warnings        []string `json:"warnings"`
	Commitment      string   `json:"commitment,omitempty"`
	LatencyMs       int64    `json:"latency_ms"`
}

// Emitter delivers run events to one sink.
type Emitter interface {
	Name() string
	Emit(ctx context.Context, ev RunEvent) error
	Close() error
}

func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	logger *slog.Logger
}

func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = logging.New("events")
	}
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Name() string { return "log" }

func (e *LogEmitter) Emit(ctx context.Context, ev RunEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	e.logger.InfoContext(ctx, "run event", slog.String("run_id", ev.RunID), slog.String("event", string(b)))
	return nil
}

func (e *LogEmitter) Close() error { return nil }

// MultiEmitter fans one event out to every emitter. A failing sink does not
// stop delivery to the others.
type MultiEmitter struct {
	emitters []Emitter
}

func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Name() string { return "multi" }

// Emit returns every sink failure, each wrapped in a *SinkError.
func (m *MultiEmitter) Emit(ctx context.Context, ev RunEvent) error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Emit(ctx, ev); err != nil {
			errs = append(errs, &SinkError{Sink: e.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, &SinkError{Sink: e.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Len reports the number of sinks.
func (m *MultiEmitter) Len() int { return len(m.emitters) }

// SinkError names the sink that failed.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string { return e.Sink + ": " + e.Err.Error() }

func (e *SinkError) Unwrap() error { return e.Err }
