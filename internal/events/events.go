package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const (
	TypeInviteCreated   = "invite.created"
	TypeInviteResponded = "invite.responded"
	TypeCommentCreated  = "comment.created"
	TypeBloodDataSaved  = "blood_data.saved"
	TypeExportArchived  = "export.archived"
)

// Event is one activity record. PatientID keys the Kafka message so a
// patient's events stay ordered within a partition.
type Event struct {
	Type       string         `json:"type"`
	PatientID  uint           `json:"patientId"`
	ActorID    uint           `json:"actorId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer)
}

func newKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, timeout: 5 * time.Second, now: time.Now}
}

func (publisher *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = publisher.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, publisher.timeout)
	defer cancel()

	message := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.PatientID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}
	if err := publisher.writer.WriteMessages(writeCtx, message); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	return nil
}

func (publisher *KafkaPublisher) Close() error {
	return publisher.writer.Close()
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(brokers []string, topic string, logger zerolog.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Info().Msg("activity events disabled: KAFKA_BROKERS not set")
		return NopPublisher{}
	}
	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("publishing activity events to kafka")
	return NewKafkaPublisher(brokers, topic)
}
