package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Config holds producer settings
type Config struct {
	Brokers        []string
	ClientID       string
	ProduceTimeout time.Duration
}

// DefaultConfig returns default producer configuration
func DefaultConfig() *Config {
	return &Config{
		Brokers:        []string{"localhost:9092"},
		ClientID:       "event-registration",
		ProduceTimeout: 5 * time.Second,
	}
}

// Header is a record header
type Header struct {
	Key   string
	Value string
}

// Producer wraps a franz-go client for publishing records
type Producer struct {
	client  *kgo.Client
	timeout time.Duration
}

// NewProducer creates a producer and checks that a broker is reachable
func NewProducer(ctx context.Context, cfg *Config) (*Producer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to create client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: failed to reach brokers %v: %w", cfg.Brokers, err)
	}

	timeout := cfg.ProduceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Producer{client: client, timeout: timeout}, nil
}

func newRecord(topic, key string, value []byte, headers []Header) *kgo.Record {
	rec := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	for _, h := range headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: h.Key, Value: []byte(h.Value)})
	}
	return rec
}

// ProduceAsync buffers a record and returns immediately. done, if set, is
// called with the delivery result from the client's callback goroutine.
func (p *Producer) ProduceAsync(ctx context.Context, topic, key string, value []byte, done func(error), headers ...Header) {
	p.client.Produce(ctx, newRecord(topic, key, value, headers), func(_ *kgo.Record, err error) {
		if done != nil {
			done(err)
		}
	})
}

// Flush waits until buffered records are delivered
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

// Health pings the brokers
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes pending records and closes the client
func (p *Producer) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
