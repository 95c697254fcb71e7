package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const TypeOrderStatusChanged = "order.status_changed"

// OrderStatusChanged is published after a status change is committed.
type OrderStatusChanged struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"orderId"`
	RestaurantID int64     `json:"restaurantId"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	ActorID      int64     `json:"actorId"`
	ActorRole    string    `json:"actorRole"`
	Back         bool      `json:"back,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishOrderStatus(ctx context.Context, evt OrderStatusChanged) error
	Close() error
}

type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: writer}
}

// PublishOrderStatus keys messages by order id so one order's events stay on
// one partition, in order.
func (p *KafkaPublisher) PublishOrderStatus(ctx context.Context, evt OrderStatusChanged) error {
	msg, err := orderStatusMessage(evt)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, msg)
}

func orderStatusMessage(evt OrderStatusChanged) (kafka.Message, error) {
	if evt.Type == "" {
		evt.Type = TypeOrderStatusChanged
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(evt.OrderID), Value: payload}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.Writer.Close()
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderStatus(context.Context, OrderStatusChanged) error { return nil }
func (NopPublisher) Close() error                                                { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
)
