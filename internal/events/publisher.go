// Package events publishes registration changes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/pkg/kafka"
	"github.com/prohmpiriya/event-registration/pkg/logger"
)

// DefaultTopic carries both registration.joined and registration.left
const DefaultTopic = "registration-events"

// HeaderEventType names the record header holding the event type
const HeaderEventType = "event_type"

// RegistrationEvent is the wire form of a committed membership change
type RegistrationEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	AccountID     string    `json:"account_id"`
	AttendeeCount int       `json:"attendee_count"`
	Capacity      int       `json:"capacity"`
	Timestamp     time.Time `json:"timestamp"`
}

// Key returns the Kafka message key. Keying by event keeps one event's
// changes in one partition, in order.
func (e *RegistrationEvent) Key() string {
	return e.EventID
}

// RecordProducer is the subset of kafka.Producer used by Publisher
type RecordProducer interface {
	ProduceAsync(ctx context.Context, topic, key string, value []byte, done func(error), headers ...kafka.Header)
}

// Publisher implements registration.Notifier
type Publisher struct {
	producer RecordProducer
	topic    string
	log      *logger.Logger
}

// NewPublisher creates a Publisher writing to topic
func NewPublisher(producer RecordProducer, topic string, log *logger.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{producer: producer, topic: topic, log: log.Named("events")}
}

// Publish encodes n and hands it to the producer without waiting for delivery.
// Delivery failures are logged.
func (p *Publisher) Publish(ctx context.Context, n registration.Notification) error {
	event := &RegistrationEvent{
		EventType:     n.Type,
		EventID:       n.EventID,
		AccountID:     n.AccountID,
		AttendeeCount: n.AttendeeCount,
		Capacity:      n.Capacity,
		Timestamp:     n.OccurredAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", n.Type, err)
	}

	p.producer.ProduceAsync(ctx, p.topic, event.Key(), payload, func(err error) {
		if err != nil {
			p.log.Warn("registration event not delivered",
				zap.String("type", event.EventType),
				logger.EventID(event.EventID),
				logger.AccountID(event.AccountID),
				zap.Error(err),
			)
		}
	}, kafka.Header{Key: HeaderEventType, Value: event.EventType})
	return nil
}
