//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/prohmpiriya/event-registration/internal/testutil/containers"
	"github.com/prohmpiriya/event-registration/pkg/kafka"
)

func TestProducer_Integration(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	producer, err := kafka.NewProducer(ctx, &kafka.Config{Brokers: []string{rp.Broker}, ClientID: "producer-it"})
	require.NoError(t, err)
	require.NoError(t, producer.Health(ctx))

	const topic = "producer-it"
	delivered := make(chan error, 1)
	producer.ProduceAsync(ctx, topic, "event-9", []byte("payload"), func(err error) { delivered <- err },
		kafka.Header{Key: "event_type", Value: "registration.left"})

	select {
	case err := <-delivered:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("record was not acknowledged")
	}
	require.NoError(t, producer.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "event-9", string(records[0].Key))
	assert.Equal(t, "payload", string(records[0].Value))
	require.Len(t, records[0].Headers, 1)
	assert.Equal(t, "registration.left", string(records[0].Headers[0].Value))
}
