package main

import (
	"context"
	"fmt"
	"log/slog"

	gax "github.com/googleapis/gax-go/v2"

	"statuscomms/internal/attest"
	"statuscomms/internal/config"
	"statuscomms/internal/events"
	"statuscomms/internal/extract"
	"statuscomms/internal/gemini"
	"statuscomms/internal/logging"
	"statuscomms/internal/pipeline"
	"statuscomms/internal/runs"
)

// app holds the process-wide components shared by every command.
type app struct {
	pipeline *pipeline.Pipeline
	store    runs.Store
	attester *attest.Attester
	emitter  *events.MultiEmitter
	logger   *slog.Logger
}

func newApp(ctx context.Context) (*app, error) {
	logger := logging.New("statuscomms")

	style, err := config.LoadStyleFile(config.StyleGuidePath())
	if err != nil {
		return nil, err
	}

	client, err := gemini.New(ctx, gemini.Options{
		APIKey: config.GeminiAPIKey(),
		Model:  config.GeminiModel(),
		Retry: gemini.RetryPolicy{
			Timeout:     config.ServiceTimeout(),
			MaxAttempts: config.ServiceMaxAttempts(),
			Backoff: gax.Backoff{
				Initial:    config.ServiceBackoffInitial(),
				Max:        config.ServiceBackoffMax(),
				Multiplier: 2,
			},
		},
		Logger: logging.New("gemini"),
	})
	if err != nil {
		return nil, err
	}

	attester, err := attest.New(config.AttestMode(), logging.New("attest"))
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	emitter, err := openEmitters(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open event sinks: %w", err)
	}

	var cache *extract.Cache
	if dir := config.ExtractCacheDir(); dir != "" {
		cache = extract.NewCache(dir)
	}

	p := pipeline.New(client, pipeline.Options{
		Model:         client.Model(),
		Cache:         cache,
		Style:         style,
		AllowDegraded: config.AllowDegradedJudgment(),
		Attester:      attester,
		Store:         store,
		Emitter:       emitter,
	})
	logger.Info("components ready",
		slog.String("model", client.Model()),
		slog.String("attest_mode", attester.Mode()),
		slog.Int("event_sinks", emitter.Len()),
		slog.Bool("degraded_judgment", config.AllowDegradedJudgment()),
		slog.Bool("extract_cache", cache != nil),
	)
	return &app{pipeline: p, store: store, attester: attester, emitter: emitter, logger: logger}, nil
}

func openStore(ctx context.Context) (runs.Store, error) {
	if url := config.RunsDatabaseURL(); url != "" {
		return runs.OpenPG(ctx, url, config.RunsMax())
	}
	return runs.NewFileStore(config.RunsDir(), config.RunsIndexLimit(), config.RunsMax())
}

func openEmitters(ctx context.Context) (*events.MultiEmitter, error) {
	sinks := []events.Emitter{events.NewLogEmitter(logging.New("events"))}
	if project, topic := config.PubSubProject(), config.PubSubTopic(); project != "" && topic != "" {
		ps, err := events.NewPubSubEmitter(ctx, project, topic)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ps)
	}
	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		sinks = append(sinks, events.NewKafkaEmitter(brokers, config.KafkaTopic()))
	}
	if token, channel := config.DiscordBotToken(), config.DiscordChannelID(); token != "" && channel != "" {
		d, err := events.NewDiscordEmitter(token, channel)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, d)
	}
	return events.NewMultiEmitter(sinks...), nil
}

func (a *app) Close() {
	if err := a.emitter.Close(); err != nil {
		a.logger.Warn("close event sinks", slog.String("error", err.Error()))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close run archive", slog.String("error", err.Error()))
	}
}
