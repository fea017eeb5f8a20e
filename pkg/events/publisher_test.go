package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisherPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, log: zap.NewNop()}

	p.Publish(context.Background(), Event{
		Type:       TypeOTPRequested,
		Identifier: "alice@example.com",
		Channel:    "email",
		Delivered:  Bool(true),
	})

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("alice@example.com"), msg.Key)
	assert.Equal(t, "event_type", msg.Headers[0].Key)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, TypeOTPRequested, got.Type)
	assert.False(t, got.OccurredAt.IsZero())
	require.NotNil(t, got.Delivered)
	assert.True(t, *got.Delivered)
}

func TestKafkaPublisherLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, log: zap.New(core)}

	p.Publish(context.Background(), Event{Type: TypeOTPFailed, Identifier: "bob@example.com", Reason: ReasonInvalidCode})

	assert.Equal(t, 1, logs.FilterMessage("failed to publish event").Len())
}
