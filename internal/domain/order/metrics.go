package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/xenking/littlelemon/internal/domain/order"

type metrics struct {
	placed  metric.Int64Counter
	updated metric.Int64Counter
	deleted metric.Int64Counter
	totals  metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   metrics
		err error
	)
	if m.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders created from carts"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed")
	}
	if m.updated, err = meter.Int64Counter("orders.updated",
		metric.WithDescription("Order status or assignment updates"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.updated")
	}
	if m.deleted, err = meter.Int64Counter("orders.deleted",
		metric.WithDescription("Orders deleted by managers"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.deleted")
	}
	if m.totals, err = meter.Float64Histogram("orders.total",
		metric.WithDescription("Order totals at placement"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.total")
	}
	return &m, nil
}

func (m *metrics) recordPlaced(ctx context.Context, o *Order) {
	m.placed.Add(ctx, 1)
	m.totals.Record(ctx, o.Total.InexactFloat64())
}

func (m *metrics) recordUpdated(ctx context.Context, role string) {
	m.updated.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}

func (m *metrics) recordDeleted(ctx context.Context) {
	m.deleted.Add(ctx, 1)
}
