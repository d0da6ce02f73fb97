package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

var _ model.EventPublisher = (*KafkaPublisher)(nil)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes auth events as JSON keyed by user ID, so that events of
// one user stay ordered within a partition.
type KafkaPublisher struct {
	w      Writer
	topic  string
	logger *logger.Logger
}

// NewKafkaPublisher creates an asynchronous publisher. Delivery errors are logged.
func NewKafkaPublisher(brokers []string, topic string, logger *logger.Logger) *KafkaPublisher {
	log := logger.With("component", "kafka.publisher", "topic", topic)
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("Kafka publisher: delivery failed", "messages", len(messages), "error", err)
			}
		},
	}
	return NewKafkaPublisherWithWriter(w, topic, logger)
}

func NewKafkaPublisherWithWriter(w Writer, topic string, logger *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		w:      w,
		topic:  topic,
		logger: logger.With("component", "kafka.publisher", "topic", topic),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.AuthEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}

	ctx, span := otel.Tracer("kafka.publisher").Start(ctx, "kafka.produce "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("kafka"),
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	headers := headerCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, headers)

	msg := kafka.Message{
		Key:     []byte(event.UserID.String()),
		Value:   value,
		Headers: headers.toKafka(string(event.Type)),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish auth event: %w", err)
	}

	p.logger.Debug("Kafka publisher: event published", "type", event.Type, "user_id", event.UserID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

type headerCarrier map[string]string

func (h headerCarrier) Get(k string) string { return h[k] }
func (h headerCarrier) Set(k, v string)     { h[k] = v }
func (h headerCarrier) Keys() []string {
	ks := make([]string, 0, len(h))
	for k := range h {
		ks = append(ks, k)
	}
	return ks
}

func (h headerCarrier) toKafka(eventType string) []kafka.Header {
	hs := make([]kafka.Header, 0, len(h)+1)
	hs = append(hs, kafka.Header{Key: "event-type", Value: []byte(eventType)})
	for k, v := range h {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}
