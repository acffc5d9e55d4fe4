package relay

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumenter traces and counts messages moved by a background relay loop
type Instrumenter struct {
	tracer          trace.Tracer
	relaysActive    metric.Int64UpDownCounter
	deliverDuration metric.Float64Histogram
	deliveriesTotal metric.Int64Counter
}

// NewInstrumenter creates a relay instrumenter
func NewInstrumenter(tracer trace.Tracer, meter metric.Meter, serviceName string) (*Instrumenter, error) {
	relaysActive, err := meter.Int64UpDownCounter(
		fmt.Sprintf("websearch_%s_relays_active", serviceName),
		metric.WithDescription("Number of running relay loops"),
	)
	if err != nil {
		return nil, err
	}

	deliverDuration, err := meter.Float64Histogram(
		fmt.Sprintf("websearch_%s_relay_delivery_seconds", serviceName),
		metric.WithDescription("Time spent delivering one relayed message"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	deliveriesTotal, err := meter.Int64Counter(
		fmt.Sprintf("websearch_%s_relay_deliveries_total", serviceName),
		metric.WithDescription("Total relayed messages"),
	)
	if err != nil {
		return nil, err
	}

	return &Instrumenter{
		tracer:          tracer,
		relaysActive:    relaysActive,
		deliverDuration: deliverDuration,
		deliveriesTotal: deliveriesTotal,
	}, nil
}

// TrackLoop marks a relay loop as running until the returned func is called
func (r *Instrumenter) TrackLoop(ctx context.Context, source string) func() {
	attrs := metric.WithAttributes(attribute.String("relay.source", source))
	r.relaysActive.Add(ctx, 1, attrs)
	return func() {
		r.relaysActive.Add(context.WithoutCancel(ctx), -1, attrs)
	}
}

// InstrumentDelivery wraps delivery of one message with a span and metrics
func (r *Instrumenter) InstrumentDelivery(ctx context.Context, source, channel string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("relay.%s", source),
		trace.WithAttributes(
			attribute.String("relay.source", source),
			attribute.String("relay.channel", channel),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}

	attrs := metric.WithAttributes(
		attribute.String("relay.source", source),
		attribute.String("status", status),
	)
	r.deliverDuration.Record(ctx, duration, attrs)
	r.deliveriesTotal.Add(ctx, 1, attrs)

	return err
}
