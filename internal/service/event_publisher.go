package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/hellyrj/smart-parking-system/internal/domain"
	"github.com/hellyrj/smart-parking-system/pkg/kafka"
)

// EventPublisher emits booking lifecycle events after a transition commits.
// Publish failures never roll back the transition.
type EventPublisher interface {
	Publish(ctx context.Context, eventType domain.BookingEventType, booking *domain.Booking) error
	Close() error
}

// MessageProducer is the part of kafka.Producer the publisher uses
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

const (
	defaultEventTopic = "parking.booking-events"
	defaultClientID   = "smart-parking-producer"
)

// KafkaEventPublisher writes events keyed by booking id, so one booking's
// events land on one partition in order.
type KafkaEventPublisher struct {
	producer MessageProducer
	topic    string
	source   string
	now      func() time.Time
}

// NewKafkaEventPublisher dials the brokers and returns a publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:          cfg.Brokers,
		ClientID:         clientID,
		MaxRetries:       3,
		RetryInterval:    2 * time.Second,
		LingerMs:         10,
		AutoCreateTopics: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewEventPublisherWithProducer(producer, cfg.Topic, cfg.ServiceName), nil
}

func NewEventPublisherWithProducer(producer MessageProducer, topic, source string) *KafkaEventPublisher {
	if topic == "" {
		topic = defaultEventTopic
	}
	if source == "" {
		source = "smart-parking"
	}
	return &KafkaEventPublisher{producer: producer, topic: topic, source: source, now: time.Now}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType domain.BookingEventType, b *domain.Booking) error {
	now := p.now().UTC()
	event := domain.NewBookingEvent(uuid.NewString(), eventType, b, now)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     event.EventID,
		"source":       p.source,
		"content_type": "application/json",
	}
	// carry the trace so consumers can continue it
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	err = p.producer.Produce(ctx, &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(b.ID),
		Value:     value,
		Headers:   headers,
		Timestamp: now,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// NoOpEventPublisher drops events. Used when Kafka is disabled.
type NoOpEventPublisher struct{}

func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (NoOpEventPublisher) Publish(context.Context, domain.BookingEventType, *domain.Booking) error {
	return nil
}

func (NoOpEventPublisher) Close() error { return nil }
