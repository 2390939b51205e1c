package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeQuoteEvaluated = "pricing.quote.evaluated"
	TypeRuleUpserted   = "pricing.rule.upserted"
	TypeRuleDeleted    = "pricing.rule.deleted"
)

// Event represents a domain event
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Aggregate string                 `json:"aggregate"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
	Version   int                    `json:"version"`
}

// Publisher defines the interface for publishing events
type Publisher interface {
	// Publish publishes an event
	Publish(ctx context.Context, event *Event) error

	// PublishBatch publishes multiple events
	PublishBatch(ctx context.Context, events []*Event) error

	// Close closes the publisher
	Close() error
}

// NewEvent creates a new event
func NewEvent(eventType, aggregate string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Aggregate: aggregate,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		Version:   1,
	}
}

// NoopPublisher is a no-operation publisher for testing and development
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(ctx context.Context, event *Event) error { return nil }

// PublishBatch discards the events.
func (NoopPublisher) PublishBatch(ctx context.Context, events []*Event) error { return nil }

// Close is a no-op.
func (NoopPublisher) Close() error { return nil }

func publishEach(ctx context.Context, p Publisher, events []*Event) error {
	for _, event := range events {
		if err := p.Publish(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
		}
	}
	return nil
}
