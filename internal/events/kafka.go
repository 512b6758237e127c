package events

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/littlelemon/internal/domain/order"
)

// DefaultTopic is the Kafka topic order events are written to.
const DefaultTopic = "littlelemon.orders"

var _ order.Publisher = (*Kafka)(nil)

// Kafka writes events to a topic keyed by order id, so all events of one
// order land on the same partition in commit order.
type Kafka struct {
	w *kafka.Writer
}

// NewKafka creates a synchronous writer for brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}, nil
}

// Publish writes e and waits for the broker acknowledgement.
func (k *Kafka) Publish(ctx context.Context, e order.Event) error {
	err := k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(e.OrderID, 10)),
		Value: Encode(e),
		Time:  e.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
			{Key: "content-type", Value: []byte(ContentType)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "write %s", e.Type)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (k *Kafka) Close() error {
	return k.w.Close()
}
