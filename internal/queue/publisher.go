package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to a broker.  Implementations must be safe for
// concurrent use; callers log and otherwise ignore returned errors.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards events.  Used when EVENTS_BROKER=none.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// RabbitPublisher publishes events to the TaskEventsQueue.  Each publish
// opens its own connection, so the publisher holds no long-lived state and
// survives broker restarts without a reconnect loop.
type RabbitPublisher struct {
	URL string
}

// dialTimeout bounds a publish whose context carries no deadline.
const dialTimeout = 5 * time.Second

func NewRabbitPublisher(url string) *RabbitPublisher { return &RabbitPublisher{URL: url} }

// Publish declares the queue (idempotent, durable) and sends ev as a
// persistent JSON message through the default exchange.
func (p *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev.Stamp())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	timeout := dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return fmt.Errorf("rabbitmq dial: %w", context.DeadlineExceeded)
		}
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		// DefaultDial bounds the TCP connect and the AMQP handshake.
		Dial: amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		TaskEventsQueue, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", TaskEventsQueue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// NATSPublisher publishes events on subject "tasks.<type>" over a shared
// connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url.  The connection reconnects on its own.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("task-tracker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("nats: disconnected: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if p.conn == nil || p.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	body, err := json.Marshal(ev.Stamp())
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.conn.Publish(Subject(ev.Type), body)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Subject is the NATS subject an event type is published on.
func Subject(eventType string) string { return "tasks." + eventType }
