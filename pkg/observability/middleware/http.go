package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing instruments gin routes with a server span plus request duration and count
func Tracing(tracer trace.Tracer, meter metric.Meter, serviceName string) gin.HandlerFunc {
	requestDuration, _ := meter.Float64Histogram(
		fmt.Sprintf("websearch_%s_request_duration_seconds", serviceName),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)

	requestsTotal, _ := meter.Int64Counter(
		fmt.Sprintf("websearch_%s_requests_total", serviceName),
		metric.WithDescription("Total HTTP requests"),
	)

	return func(c *gin.Context) {
		start := time.Now()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		parent := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(parent, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(c.Request.Method),
				semconv.HTTPRoute(route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.Int("status", status),
		)
		if requestDuration != nil {
			requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		if requestsTotal != nil {
			requestsTotal.Add(ctx, 1, attrs)
		}

		span.SetAttributes(semconv.HTTPStatusCode(status))
		if status >= 400 {
			span.RecordError(fmt.Errorf("HTTP %d", status))
		}
	}
}
