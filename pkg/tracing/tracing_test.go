package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), Config{ServiceName: "catalog-search"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}

func TestInitTracer_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := Config{
		Enabled:      true,
		ServiceName:  "catalog-search",
		Environment:  "test",
		OTLPEndpoint: "127.0.0.1:0",
		Insecure:     true,
		SampleRate:   1,
	}
	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestConfig_Sampler(t *testing.T) {
	assert.Contains(t, Config{SampleRate: 1}.Sampler().Description(), "AlwaysOnSampler")
	assert.Contains(t, Config{SampleRate: 0}.Sampler().Description(), "AlwaysOffSampler")
	assert.Contains(t, Config{SampleRate: 0.25}.Sampler().Description(), "TraceIDRatioBased")
}
