package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockWriter struct {
	Messages []kafka.Message
	Err      error
	Closed   bool
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.Closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &MockWriter{}
	p := &KafkaPublisher{writer: w, log: zap.NewNop()}

	err := p.Publish(context.Background(), Event{
		Type:           CheckoutCompleted,
		OrderID:        "ord-1",
		IdempotencyKey: "key-1",
		Amount:         decimal.RequireFromString("60.00"),
	})

	require.NoError(t, err)
	require.Len(t, w.Messages, 1)
	msg := w.Messages[0]
	assert.Equal(t, "key-1", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "checkout.completed", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "ord-1", decoded["order_id"])
	assert.Equal(t, "60", decoded["amount"])

	require.NoError(t, p.Close())
	assert.True(t, w.Closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &MockWriter{Err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w, log: zap.NewNop()}

	err := p.Publish(context.Background(), Event{Type: CheckoutFailed})

	assert.ErrorContains(t, err, "broker down")
}

func TestLogPublisher_DivergenceLogsAtError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), Event{Type: CheckoutCompleted, OrderID: "a"}))
	require.NoError(t, p.Publish(context.Background(), Event{Type: CheckoutDivergence, OrderID: "b", Reason: "backend unreachable"}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "backend unreachable", entries[1].ContextMap()["reason"])
}
