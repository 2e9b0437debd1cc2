package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Routing keys for the UI subscription bridge.
const (
	KeyMessageReceived     = "crm.message.received"
	KeyMessageStatus       = "crm.message.status"
	KeyConversationUpdated = "crm.conversation.updated"
)

// Meta travels with every event so consumers can trace and order them.
type Meta struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Producer string    `json:"producer,omitempty"`
	Time     time.Time `json:"time"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Publisher fans persisted state changes out to the hosted UI's realtime
// transport. The transport itself is external; we only emit.
type Publisher interface {
	Publish(ctx context.Context, key string, data any) error
	// Healthy reports whether the underlying transport is still usable.
	Healthy() bool
	Close() error
}

// --- AMQP implementation ---

type amqpPublisher struct {
	conn     *amqp091.Connection
	exchange string
	producer string
}

func NewAMQPPublisher(url, exchange, producer string) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &amqpPublisher{
		conn:     conn,
		exchange: exchange,
		producer: producer,
	}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, key string, data any) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	env := Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Type:     key,
			Producer: p.producer,
			Time:     time.Now().UTC(),
		},
		Data: data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    env.Meta.ID,
			Timestamp:    env.Meta.Time,
			Body:         body,
		},
	)
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"key":      key,
			"exchange": p.exchange,
		}).Debug("[EVENTS] published")
	}
	return err
}

func (p *amqpPublisher) Healthy() bool {
	return !p.conn.IsClosed()
}

func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}

// --- No-op fallback when no broker is configured ---

type noopPublisher struct{}

func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(ctx context.Context, key string, data any) error { return nil }
func (noopPublisher) Healthy() bool                                           { return true }
func (noopPublisher) Close() error                                            { return nil }
