// Package events publishes auth lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeOTPRequested = "otp.requested"
	TypeOTPVerified  = "otp.verified"
	TypeOTPFailed    = "otp.failed"
)

// Failure reasons carried by otp.failed
const (
	ReasonInvalidOrExpired = "invalid_or_expired"
	ReasonTooManyAttempts  = "too_many_attempts"
	ReasonInvalidCode      = "invalid_code"
)

type Event struct {
	Type       string    `json:"type"`
	Identifier string    `json:"identifier"`
	Channel    string    `json:"channel,omitempty"`
	Delivered  *bool     `json:"delivered,omitempty"`
	Challenge  *bool     `json:"challenge,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	NewUser    *bool     `json:"new_user,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is fire-and-forget, failures are logged and never returned.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
}

// NewKafkaPublisher uses an async writer; delivery errors surface in the completion callback.
func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	log = log.With(zap.String("component", "events"))

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error("failed to write kafka messages",
					zap.Error(err),
					zap.Int("message_count", len(messages)),
				)
			}
		},
	}

	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(e)
	if err != nil {
		p.log.Error("failed to encode event", zap.Error(err), zap.String("type", e.Type))
		return
	}

	msg := kafka.Message{
		Key:   []byte(e.Identifier),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish event", zap.Error(err), zap.String("type", e.Type))
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

func (Nop) Close() error { return nil }

// Bool is a helper for the optional flags on Event
func Bool(v bool) *bool { return &v }
