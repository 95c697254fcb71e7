package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusMessage(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	msg, err := orderStatusMessage(OrderStatusChanged{
		OrderID:      "3f2a9c1e-0000-4000-8000-000000000000",
		RestaurantID: 7,
		From:         "outForDelivery",
		To:           "delivered",
		ActorID:      42,
		ActorRole:    "courier",
		Timestamp:    at,
	})
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c1e-0000-4000-8000-000000000000", string(msg.Key))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, TypeOrderStatusChanged, got["type"])
	assert.Equal(t, "delivered", got["to"])
	assert.Equal(t, float64(7), got["restaurantId"])
	assert.NotContains(t, got, "back")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter("localhost:9092", "order-events")
	defer w.Close()

	assert.Equal(t, "order-events", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishOrderStatus(context.Background(), OrderStatusChanged{OrderID: "x"}))
	assert.NoError(t, p.Close())
}
