//go:build integration

package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"example.com/wellness/internal/events"
)

type channelHandler chan Message

func (h channelHandler) Handle(_ context.Context, msg Message) error {
	h <- msg
	return nil
}

func TestKafkaRecordEventRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.Run(ctx, "confluentinc/confluent-local:7.5.0", testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             events.DefaultTopic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	reader := NewKafkaReader(brokers, events.DefaultTopic, "wellness-integration")
	defer reader.Close()

	received := make(channelHandler, 1)
	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		_ = NewProcessor(reader, received).Run(consumerCtx)
	}()

	publisher := events.NewKafkaPublisher(brokers, events.DefaultTopic)
	defer publisher.Close()

	evt, err := events.NewRecordChanged("sleep", "ana", events.ActionCreated, 42,
		map[string]any{"date": "06/01/2025", "duration": 7.5}, time.Now())
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, evt))

	select {
	case msg := <-received:
		require.Equal(t, "wellness.record.created", msg.EventType)
		require.Equal(t, "ana", msg.UserID)
		require.Equal(t, "sleep", msg.Domain)
		require.Equal(t, evt.EventID, msg.Event.EventID)
		require.EqualValues(t, 42, msg.Event.RecordID)
	case <-time.After(60 * time.Second):
		t.Fatal("record event not consumed")
	}
}
