package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/paristimemachine/galligeo/internal/config"
)

func enabledConfig() config.OTELConfig {
	return config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "galligeo",
		SampleRatio: 1,
	}
}

func TestSetupOTel_DisabledIsNoOp(t *testing.T) {
	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown must not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_ExporterFailurePropagates(t *testing.T) {
	orig := buildExporter
	defer func() { buildExporter = orig }()

	wantErr := errors.New("no collector here")
	buildExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return nil, wantErr
	}

	_, err := SetupOTel(context.Background(), enabledConfig(), "test")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected exporter error, got %v", err)
	}
}

func TestSetupOTel_ResourceFailurePropagates(t *testing.T) {
	origExp := buildExporter
	origRes := buildResource
	defer func() {
		buildExporter = origExp
		buildResource = origRes
	}()

	buildExporter = func(context.Context, config.OTELConfig) (sdktrace.SpanExporter, error) {
		return tracetest.NewInMemoryExporter(), nil
	}
	wantErr := errors.New("bad resource")
	buildResource = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, wantErr
	}

	_, err := SetupOTel(context.Background(), enabledConfig(), "test")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected resource error, got %v", err)
	}
}
