// Package extract turns raw multi-source incident material into provenance-tagged evidence.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"statuscomms/internal/config"
	"statuscomms/internal/gemini"
	"statuscomms/internal/incident"
	"statuscomms/internal/logging"
	"statuscomms/internal/metrics"
)

type Options struct {
	Model  string
	Cache  *Cache
	Logger *slog.Logger
}

// Extractor is safe for concurrent use.
type Extractor struct {
	svc    gemini.Service
	model  string
	cache  *Cache
	logger *slog.Logger
}

func New(svc gemini.Service, opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("extract")
	}
	return &Extractor{svc: svc, model: opts.Model, cache: opts.Cache, logger: logger}
}

// ValidateSources rejects unknown source kinds and oversized payloads.
func ValidateSources(sources []incident.RawSource) error {
	if len(sources) > config.MaxSources {
		return fmt.Errorf("at most %d sources allowed", config.MaxSources)
	}
	for i, s := range sources {
		if !s.Kind.Valid() {
			return fmt.Errorf("sources[%d].source_kind: unknown source kind %q", i, s.Kind)
		}
		if len(s.Payload) > config.MaxSourceBytes {
			return fmt.Errorf("sources[%d].payload exceeds %d bytes", i, config.MaxSourceBytes)
		}
	}
	return nil
}

// Extract interprets sources for the given phase. With no usable sources it
// returns evidence with every field unknown and makes no service call.
func (e *Extractor) Extract(ctx context.Context, sources []incident.RawSource, phase incident.Phase) (incident.ExtractedEvidence, error) {
	if !phase.Valid() {
		return incident.ExtractedEvidence{}, fmt.Errorf("invalid phase %q", phase)
	}
	if err := ValidateSources(sources); err != nil {
		return incident.ExtractedEvidence{}, err
	}

	usable := make([]incident.RawSource, 0, len(sources))
	for _, s := range sources {
		if !s.Empty() {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		e.logger.Info("no usable sources, returning unknown evidence", slog.String("phase", string(phase)))
		return incident.UnknownEvidence(), nil
	}
	supplied := suppliedKinds(usable)

	var key string
	if e.cache != nil {
		key = cacheKey(usable, phase, e.model)
		if cached, err := e.cache.Load(key); err == nil && cached.PromptVersion == promptVersion {
			metrics.ExtractCache.WithLabelValues("hit").Inc()
			e.logger.Debug("extraction cache hit", slog.String("key", key))
			return cached.Evidence, nil
		}
		metrics.ExtractCache.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	resp, err := e.svc.Generate(ctx, gemini.Request{
		Shape:           gemini.ShapeExtract,
		SystemPrompt:    buildSystemPrompt(),
		UserPrompt:      buildUserPrompt(phase, usable),
		ResponseSchema:  responseSchema(),
		Temperature:     0,
		MaxOutputTokens: 4096,
	})
	if errors.Is(err, gemini.ErrEmptyResponse) {
		return incident.ExtractedEvidence{}, &incident.MalformedEvidenceError{Reason: "empty response", Err: err}
	}
	if err != nil {
		return incident.ExtractedEvidence{}, fmt.Errorf("extract evidence: %w", err)
	}

	ev, err := parseEvidence(resp.Text, phase, supplied)
	if err != nil {
		e.logger.Warn("extraction response rejected", slog.String("phase", string(phase)), slog.String("error", err.Error()))
		return incident.ExtractedEvidence{}, err
	}
	e.logger.Info("evidence extracted",
		slog.String("phase", string(phase)),
		slog.Int("sources", len(usable)),
		slog.Int("symptoms", len(ev.CustomerSymptoms)),
		slog.Int("internal_terms", len(ev.InternalTermsToAvoid)),
		slog.Int("attempts", resp.Attempts),
		slog.Duration("elapsed", time.Since(start)),
	)

	if e.cache != nil && ctx.Err() == nil {
		if err := e.cache.Save(key, CachedExtraction{
			Model:         resp.Model,
			PromptVersion: promptVersion,
			Phase:         phase,
			Evidence:      ev,
			RawText:       resp.Text,
			Usage:         resp.Usage,
		}); err != nil {
			e.logger.Warn("extraction cache save failed", slog.String("error", err.Error()))
		}
	}
	return ev, nil
}

func suppliedKinds(sources []incident.RawSource) []incident.SourceKind {
	present := make(map[incident.SourceKind]bool, len(sources))
	for _, s := range sources {
		present[s.Kind] = true
	}
	out := make([]incident.SourceKind, 0, len(present))
	for _, k := range incident.SourceKinds {
		if present[k] {
			out = append(out, k)
		}
	}
	return out
}
