package events

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/littlelemon/internal/domain/order"
)

// DefaultExchange is the topic exchange order events are published to. The
// routing key is the event type, e.g. "order.placed".
const DefaultExchange = "orders_topic"

var _ order.Publisher = (*RabbitMQ)(nil)

// RabbitMQ publishes events to a durable topic exchange.
type RabbitMQ struct {
	exchange string
	timeout  time.Duration

	conn *amqp.Connection
	mu   sync.Mutex // guards ch; amqp channels are not safe for concurrent publishing
	ch   *amqp.Channel
}

// DialRabbitMQ connects to url and declares the exchange.
func DialRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %q", exchange)
	}

	return &RabbitMQ{
		exchange: exchange,
		timeout:  5 * time.Second,
		conn:     conn,
		ch:       ch,
	}, nil
}

// Publish sends e as a persistent message.
func (r *RabbitMQ) Publish(ctx context.Context, e order.Event) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    e.At,
		Headers:      amqp.Table{"order_id": strconv.FormatInt(e.OrderID, 10)},
		Body:         Encode(e),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ch.PublishWithContext(ctx, r.exchange, string(e.Type), false, false, msg); err != nil {
		return errors.Wrapf(err, "publish %s", e.Type)
	}
	return nil
}

// Close closes the channel and the connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		_ = r.conn.Close()
		return errors.Wrap(err, "close channel")
	}
	return r.conn.Close()
}
