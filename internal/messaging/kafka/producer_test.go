package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func testLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("component", "kafka-producer-test")
}

func TestProducer_PublishOrderEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, "", testLogger())
	assert.Equal(t, DefaultTopic, producer.Topic())

	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, DefaultTopic, msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "ORD-1", string(key))

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var event OrderEvent
		require.NoError(t, json.Unmarshal(value, &event))
		assert.Equal(t, domain.OrderEventCreated, event.EventType)
		assert.Equal(t, "processing", event.Status)
		assert.Equal(t, "50.00", event.Total)
		assert.Equal(t, "1", event.CustomerID)
		assert.True(t, occurred.Equal(event.Timestamp))
		assert.NotEmpty(t, event.EventID)

		require.Len(t, msg.Headers, 2)
		assert.Equal(t, HeaderEventType, string(msg.Headers[0].Key))
		assert.Equal(t, string(domain.OrderEventCreated), string(msg.Headers[0].Value))
		return nil
	})

	err := producer.PublishOrderEvent(context.Background(), domain.OrderEvent{
		Type:       domain.OrderEventCreated,
		OrderID:    "ORD-1",
		CustomerID: "1",
		Status:     domain.OrderStatusProcessing,
		Total:      "50.00",
		OccurredAt: occurred,
	})
	require.NoError(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_PublishOrderEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, "orders", testLogger())

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishOrderEvent(context.Background(), domain.OrderEvent{
		Type:    domain.OrderEventCanceled,
		OrderID: "ORD-2",
	})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_PublishOrderEvent_CancelledContext(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := producer.PublishOrderEvent(ctx, domain.OrderEvent{Type: domain.OrderEventCreated, OrderID: "ORD-3"})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, mockProducer.Close())
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(domain.OrderEvent{Type: domain.OrderEventsCleared})

	assert.Equal(t, domain.OrderEventsCleared, event.EventType)
	assert.Empty(t, event.OrderID)
	assert.Equal(t, string(domain.OrderEventsCleared), event.Key())
	assert.False(t, event.Timestamp.IsZero())
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Second)

	other := NewOrderEvent(domain.OrderEvent{Type: domain.OrderEventsCleared})
	assert.NotEqual(t, event.EventID, other.EventID)
}
