package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Writer is the subset of kafka.Writer used by KafkaPublisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic, keyed by user so each user's changes stay ordered.
type KafkaPublisher struct {
	topic  string
	mu     sync.Mutex
	writer Writer
	newW   func(topic string) Writer
}

// NewKafkaPublisher creates a publisher that lazily dials brokers on first use.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		topic: topic,
		newW: func(topic string) Writer {
			return &kafka.Writer{
				Addr:         kafka.TCP(brokers...),
				Topic:        topic,
				Balancer:     &kafka.Hash{},
				RequiredAcks: kafka.RequireAll,
				Compression:  kafka.Snappy,
				Async:        false,
			}
		},
	}
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(writer Writer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{topic: topic, writer: writer}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, evt RecordChanged) error {
	msg, err := Encode(evt)
	if err != nil {
		return err
	}
	if err := p.writerForTopic().WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventID, err)
	}
	return nil
}

// Encode renders evt as a Kafka message with routing headers.
func Encode(evt RecordChanged) (kafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(evt.UserID),
		Value: payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(evt.Action.EventType())},
			{Key: HeaderUserID, Value: []byte(evt.UserID)},
			{Key: HeaderDomain, Value: []byte(evt.Domain)},
			{Key: "record_id", Value: []byte(strconv.FormatInt(evt.RecordID, 10))},
		},
	}, nil
}

func (p *KafkaPublisher) writerForTopic() Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		p.writer = p.newW(p.topic)
	}
	return p.writer
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
