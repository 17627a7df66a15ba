package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/station-placer/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("PLACER_TRACING_ENABLED", "TRUE")
	t.Setenv("PLACER_TRACING_EXPORTER", "OTLP")
	t.Setenv("PLACER_TRACING_SERVICE_NAME", "")
	t.Setenv("PLACER_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("PLACER_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.ServiceName != "station-placer" ||
		cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("PLACER_TRACING_SAMPLE_RATIO", "7")
	if got := TracingConfigFromEnv().SampleRatio; got != 1 {
		t.Fatalf("out-of-range ratio = %v, want default 1", got)
	}
}

func TestInitTracingDisabledAndUnknownExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}

	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin", SampleRatio: 1}, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

func TestStartSpanAttributes(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	ctx := logging.ContextWithPlacementID(context.Background(), "pid-1")
	_, span := StartSpan(ctx, "placement.Place", "sys-1")
	EndSpan(span, errors.New("no luck"))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	s := ended[0]
	if s.Name() != "placement.Place" {
		t.Fatalf("span name = %q", s.Name())
	}
	attrs := map[string]string{}
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	if attrs["system_id"] != "sys-1" || attrs["placement_id"] != "pid-1" {
		t.Fatalf("span attributes = %v", attrs)
	}
	if s.Status().Code != codes.Error {
		t.Fatalf("span status = %v, want Error", s.Status().Code)
	}
}

func TestShutdownWithTimeoutLogsFailure(t *testing.T) {
	called := false
	ShutdownWithTimeout(context.Background(), func(ctx context.Context) error {
		called = true
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("shutdown context has no deadline")
		}
		return errors.New("flush failed")
	}, logging.Noop())
	if !called {
		t.Fatalf("shutdown func not invoked")
	}
	ShutdownWithTimeout(context.Background(), nil, nil)
}
