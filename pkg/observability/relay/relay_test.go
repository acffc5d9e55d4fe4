package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func newTestInstrumenter(t *testing.T) *Instrumenter {
	t.Helper()
	inst, err := NewInstrumenter(
		tracenoop.NewTracerProvider().Tracer("test"),
		metricnoop.NewMeterProvider().Meter("test"),
		"gateway",
	)
	require.NoError(t, err)
	return inst
}

func TestInstrumentDelivery_PassesThroughResult(t *testing.T) {
	inst := newTestInstrumenter(t)
	ctx := context.Background()

	called := false
	err := inst.InstrumentDelivery(ctx, "redis", "session:abc", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("hub closed")
	err = inst.InstrumentDelivery(ctx, "redis", "session:abc", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestTrackLoop_ReleaseIsSafe(t *testing.T) {
	inst := newTestInstrumenter(t)
	ctx, cancel := context.WithCancel(context.Background())
	release := inst.TrackLoop(ctx, "redis")
	cancel()
	assert.NotPanics(t, release)
}
