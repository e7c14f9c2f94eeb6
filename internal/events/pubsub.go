package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
)

type PubSubEmitter struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSubEmitter(ctx context.Context, projectID, topicID string) (*PubSubEmitter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return &PubSubEmitter{client: client, topic: client.Topic(topicID)}, nil
}

func (e *PubSubEmitter) Name() string { return "pubsub" }

func (e *PubSubEmitter) Emit(ctx context.Context, ev RunEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	res := e.topic.Publish(ctx, &pubsub.Message{Data: b, Attributes: attributes(ev)})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("pubsub publish: %w", err)
	}
	return nil
}

func (e *PubSubEmitter) Close() error {
	e.topic.Stop()
	return e.client.Close()
}

// attributes lets subscribers filter without decoding the payload.
func attributes(ev RunEvent) map[string]string {
	return map[string]string{
		"phase":            ev.Phase,
		"overall_status":   ev.OverallStatus,
		"confidence_level": ev.ConfidenceLevel,
		"capped":           strconv.FormatBool(ev.Capped),
	}
}
