package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracerProviderWithoutEndpointIsNoop(testContext *testing.T) {
	provider, shutdown, err := NewTracerProvider(context.Background(), TracingConfig{ServiceName: "donor-api"})
	require.NoError(testContext, err)
	_, isSDK := provider.(*sdktrace.TracerProvider)
	require.False(testContext, isSDK)

	_, span := provider.Tracer("test").Start(context.Background(), "noop")
	require.False(testContext, span.SpanContext().IsValid())
	span.End()
	require.NoError(testContext, shutdown(context.Background()))
}

func TestNewTracerProviderWithEndpointBuildsSDKProvider(testContext *testing.T) {
	provider, shutdown, err := NewTracerProvider(context.Background(), TracingConfig{
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "donor-api",
	})
	require.NoError(testContext, err)
	_, isSDK := provider.(*sdktrace.TracerProvider)
	require.True(testContext, isSDK)

	_, span := provider.Tracer("test").Start(context.Background(), "exported")
	require.True(testContext, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
