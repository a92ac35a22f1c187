// Package kafka publishes audit events straight to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "trustboard/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Store implements audit.Store by producing one record per event, keyed by
// aggregate id so events for a query stay ordered within a partition.
type Store struct {
	producer Producer
	topic    string
}

// New connects a franz-go client to the brokers.
func New(brokers []string, topic string, opts ...kgo.Opt) (*Store, *kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, nil, errors.New("kafka topic is required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka client: %w", err)
	}
	return NewWithProducer(client, topic), client, nil
}

// NewWithProducer wraps an existing producer.
func NewWithProducer(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

// Append produces the event synchronously.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.NewString()
	payload, err := audit.Marshal(eventID, event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, key := audit.AggregateID(event)
	if key == "" {
		key = eventID
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Action)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() {
	s.producer.Close()
}

// EnsureTopic creates the audit topic if it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
