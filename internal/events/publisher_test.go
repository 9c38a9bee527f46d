package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/event-registration/internal/registration"
	"github.com/prohmpiriya/event-registration/pkg/kafka"
)

type producedRecord struct {
	topic   string
	key     string
	value   []byte
	headers []kafka.Header
}

type fakeProducer struct {
	mu      sync.Mutex
	records []producedRecord
	deliver error
}

func (f *fakeProducer) ProduceAsync(_ context.Context, topic, key string, value []byte, done func(error), headers ...kafka.Header) {
	f.mu.Lock()
	f.records = append(f.records, producedRecord{topic: topic, key: key, value: value, headers: headers})
	f.mu.Unlock()
	if done != nil {
		done(f.deliver)
	}
}

func TestPublisher_Publish(t *testing.T) {
	producer := &fakeProducer{}
	p := NewPublisher(producer, "", nil)

	occurred := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), registration.Notification{
		Type:          registration.NotificationJoined,
		EventID:       "event-1",
		AccountID:     "account-1",
		AttendeeCount: 3,
		Capacity:      10,
		OccurredAt:    occurred,
	})
	require.NoError(t, err)

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, DefaultTopic, rec.topic)
	assert.Equal(t, "event-1", rec.key)
	assert.Equal(t, []kafka.Header{{Key: HeaderEventType, Value: registration.NotificationJoined}}, rec.headers)

	var decoded RegistrationEvent
	require.NoError(t, json.Unmarshal(rec.value, &decoded))
	assert.Equal(t, "registration.joined", decoded.EventType)
	assert.Equal(t, "account-1", decoded.AccountID)
	assert.Equal(t, 3, decoded.AttendeeCount)
	assert.True(t, occurred.Equal(decoded.Timestamp))
}

func TestPublisher_DeliveryFailureIsNotReturned(t *testing.T) {
	producer := &fakeProducer{deliver: errors.New("broker unavailable")}
	p := NewPublisher(producer, "custom-topic", nil)

	err := p.Publish(context.Background(), registration.Notification{
		Type:    registration.NotificationLeft,
		EventID: "event-1",
	})
	assert.NoError(t, err)
	require.Len(t, producer.records, 1)
	assert.Equal(t, "custom-topic", producer.records[0].topic)
}
