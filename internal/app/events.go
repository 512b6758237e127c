package app

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/order"
	"github.com/xenking/littlelemon/internal/events"
)

type publisher interface {
	order.Publisher
	Close() error
}

// openPublisher connects the configured event publisher. It returns nil for
// the "none" driver.
func openPublisher(ctx context.Context, cfg EventsConfig) (publisher, error) {
	lg := zctx.From(ctx)

	switch cfg.Driver {
	case "", EventsNone:
		return nil, nil
	case EventsAMQP:
		p, err := events.DialRabbitMQ(cfg.AMQPURL, cfg.Exchange)
		if err != nil {
			return nil, errors.Wrap(err, "rabbitmq")
		}
		lg.Info("Publishing order events to RabbitMQ", zap.String("exchange", cfg.Exchange))
		return p, nil
	case EventsKafka:
		p, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, errors.Wrap(err, "kafka")
		}
		lg.Info("Publishing order events to Kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
		return p, nil
	default:
		return nil, errors.Errorf("unknown events driver %q", cfg.Driver)
	}
}
