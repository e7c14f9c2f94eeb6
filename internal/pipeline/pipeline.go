// Package pipeline runs Extract → Generate → {Guardrails ∥ Judge} → Aggregate
// for one incident and records the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"statuscomms/internal/attest"
	"statuscomms/internal/config"
	"statuscomms/internal/draft"
	"statuscomms/internal/evaluate"
	"statuscomms/internal/events"
	"statuscomms/internal/extract"
	"statuscomms/internal/gemini"
	"statuscomms/internal/incident"
	"statuscomms/internal/logging"
	"statuscomms/internal/metrics"
	"statuscomms/internal/runs"
)

// finishTimeout bounds archiving and event delivery after the response is ready.
const finishTimeout = 15 * time.Second

type Options struct {
	Model         string
	Cache         *extract.Cache
	Style         config.StyleFile
	AllowDegraded bool
	// Attester, Store and Emitter are optional; nil skips that step.
	Attester *attest.Attester
	Store    runs.Store
	Emitter  events.Emitter
	Logger   *slog.Logger
}

// Pipeline holds the long-lived stage components. It keeps no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	extractor     *extract.Extractor
	generator     *draft.Generator
	judge         *evaluate.Judge
	style         config.StyleFile
	allowDegraded bool
	attester      *attest.Attester
	store         runs.Store
	emitter       events.Emitter
	logger        *slog.Logger

	// check is evaluate.Check; tests replace it to observe stage ordering.
	check func(incident.GeneratedDraft, incident.ExtractedEvidence, incident.Phase) incident.DeterministicChecks
}

func New(svc gemini.Service, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("pipeline")
	}
	style := opts.Style
	if style.Weights == nil {
		style = config.DefaultStyleFile()
	}
	return &Pipeline{
		extractor:     extract.New(svc, extract.Options{Model: opts.Model, Cache: opts.Cache}),
		generator:     draft.New(svc, nil),
		judge:         evaluate.NewJudge(svc, nil),
		style:         style,
		allowDegraded: opts.AllowDegraded,
		attester:      opts.Attester,
		store:         opts.Store,
		emitter:       opts.Emitter,
		logger:        logger,
		check:         evaluate.Check,
	}
}

// Style returns the active style guide.
func (p *Pipeline) Style() incident.StyleGuide {
	return p.style.Style
}

// Result is the full outcome of one run.
type Result struct {
	RunID       string                     `json:"run_id"`
	Evidence    incident.ExtractedEvidence `json:"evidence"`
	Draft       incident.GeneratedDraft    `json:"draft"`
	Report      incident.EvaluationReport  `json:"report"`
	Attestation *attest.Attestation        `json:"attestation,omitempty"`
}

func observeStage(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Extract runs the extraction stage alone.
func (p *Pipeline) Extract(ctx context.Context, sources []incident.RawSource, phase incident.Phase) (incident.ExtractedEvidence, error) {
	defer observeStage("extract", time.Now())
	return p.extractor.Extract(ctx, sources, phase)
}

// Generate runs the generation stage alone.
func (p *Pipeline) Generate(ctx context.Context, ev incident.ExtractedEvidence, phase incident.Phase) (incident.GeneratedDraft, error) {
	defer observeStage("generate", time.Now())
	return p.generator.Generate(ctx, ev, phase, p.style.Style)
}

// Check runs the guardrails alone.
func (p *Pipeline) Check(d incident.GeneratedDraft, ev incident.ExtractedEvidence, phase incident.Phase) incident.DeterministicChecks {
	defer observeStage("guardrails", time.Now())
	checks := p.check(d, ev, phase)
	evaluate.RecordVerdicts(checks)
	return checks
}

// Judge runs the judgment stage alone.
func (p *Pipeline) Judge(ctx context.Context, d incident.GeneratedDraft, ev incident.ExtractedEvidence) (incident.JudgmentScores, error) {
	defer observeStage("judge", time.Now())
	return p.judge.Judge(ctx, d, ev, p.style.Style)
}

// Evaluate runs the guardrails and the judge concurrently and aggregates
// both. A judgment failure fails the evaluation unless degraded reports are
// allowed.
func (p *Pipeline) Evaluate(ctx context.Context, d incident.GeneratedDraft, ev incident.ExtractedEvidence, phase incident.Phase) (incident.EvaluationReport, error) {
	var (
		checks   incident.DeterministicChecks
		judgment incident.JudgmentScores
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks = p.Check(d, ev, phase)
		return nil
	})
	g.Go(func() error {
		var err error
		judgment, err = p.Judge(gctx, d, ev)
		return err
	})
	err := g.Wait()

	defer observeStage("aggregate", time.Now())
	if err != nil {
		var unavailable *incident.JudgmentUnavailableError
		if !p.allowDegraded || !errors.As(err, &unavailable) {
			return incident.EvaluationReport{}, err
		}
		p.logger.Warn("judgment unavailable, returning degraded report",
			slog.String("phase", string(phase)),
			slog.String("reason", unavailable.Reason),
		)
		return evaluate.AggregateWithoutJudgment(checks, unavailable.Reason), nil
	}
	return evaluate.Aggregate(checks, judgment, p.style.Weights), nil
}

// Run executes every stage for one request. Attestation, archiving and event
// delivery never fail the run; their errors are logged.
func (p *Pipeline) Run(ctx context.Context, sources []incident.RawSource, phase incident.Phase) (Result, error) {
	start := time.Now()
	res, err := p.run(ctx, sources, phase)
	outcome := "ok"
	if err != nil {
		outcome = incident.Classify(err)
	}
	metrics.PipelineRuns.WithLabelValues(string(phase), outcome).Inc()
	if err != nil {
		p.logger.Warn("pipeline failed",
			slog.String("phase", string(phase)),
			slog.String("class", outcome),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}
	if !res.Report.JudgmentSkipped {
		metrics.ConfidenceScore.Observe(res.Report.ConfidenceScore)
	}

	res.Attestation = p.attest(res)
	elapsed := time.Since(start)
	p.logger.Info("pipeline finished",
		slog.String("run_id", res.RunID),
		slog.String("phase", string(phase)),
		slog.String("overall_status", string(res.Report.OverallStatus)),
		slog.Float64("confidence_score", res.Report.ConfidenceScore),
		slog.Bool("capped", res.Report.Capped),
		slog.Duration("elapsed", elapsed),
	)

	// The caller may go away once the result exists; archive and emit anyway.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	p.archive(fctx, res, phase)
	p.emit(fctx, res, phase, elapsed)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, sources []incident.RawSource, phase incident.Phase) (Result, error) {
	if !phase.Valid() {
		return Result{}, fmt.Errorf("invalid phase %q", phase)
	}
	ev, err := p.Extract(ctx, sources, phase)
	if err != nil {
		return Result{}, err
	}
	d, err := p.Generate(ctx, ev, phase)
	if err != nil {
		return Result{}, err
	}
	report, err := p.Evaluate(ctx, d, ev, phase)
	if err != nil {
		return Result{}, err
	}
	return Result{RunID: runs.NewID(), Evidence: ev, Draft: d, Report: report}, nil
}

func (p *Pipeline) attest(res Result) *attest.Attestation {
	if p.attester == nil {
		return nil
	}
	defer observeStage("attest", time.Now())
	a, err := p.attester.Attest(res.Draft, res.Report)
	if err != nil {
		p.logger.Error("attestation failed", slog.String("run_id", res.RunID), slog.String("error", err.Error()))
		return nil
	}
	return &a
}

func (p *Pipeline) archive(ctx context.Context, res Result, phase incident.Phase) {
	if p.store == nil {
		return
	}
	err := p.store.Save(ctx, runs.Record{
		RunID:       res.RunID,
		CreatedAt:   time.Now().UTC(),
		Phase:       phase,
		Evidence:    res.Evidence,
		Draft:       res.Draft,
		Report:      res.Report,
		Attestation: res.Attestation,
	})
	if err != nil {
		p.logger.Warn("archive run failed", slog.String("run_id", res.RunID), slog.String("error", err.Error()))
	}
}

func (p *Pipeline) emit(ctx context.Context, res Result, phase incident.Phase, elapsed time.Duration) {
	if p.emitter == nil {
		return
	}
	ev := events.RunEvent{
		Timestamp:       events.Now(),
		RunID:           res.RunID,
		Phase:           string(phase),
		Title:           res.Draft.Title,
		Message:         res.Draft.Message,
		OverallStatus:   string(res.Report.OverallStatus),
		ConfidenceScore: res.Report.ConfidenceScore,
		ConfidenceLevel: string(res.Report.ConfidenceLevel),
		Capped:          res.Report.Capped,
		JudgmentSkipped: res.Report.JudgmentSkipped,
		Templated:       res.Draft.Templated,
		Warnings:        res.Report.Warnings,
		LatencyMs:       elapsed.Milliseconds(),
	}
	if res.Attestation != nil {
		ev.Commitment = res.Attestation.Commitment
	}
	err := p.emitter.Emit(ctx, ev)
	if err == nil {
		return
	}
	sinks := sinkNames(err)
	if len(sinks) == 0 {
		sinks = []string{p.emitter.Name()}
	}
	for _, s := range sinks {
		metrics.EmitFailures.WithLabelValues(s).Inc()
	}
	p.logger.Warn("emit run event failed", slog.String("run_id", res.RunID), slog.String("error", err.Error()))
}

// sinkNames lists the sinks named by err, which may be a joined error.
func sinkNames(err error) []string {
	var out []string
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			out = append(out, sinkNames(e)...)
		}
		return out
	}
	var se *events.SinkError
	if errors.As(err, &se) {
		out = append(out, se.Sink)
	}
	return out
}
