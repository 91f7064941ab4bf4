package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/tbourn/go-alert-relay/internal/config"
)

func TestSetupOTel_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupOTel_ExporterFailure(t *testing.T) {
	orig := newOTLPExporterFn
	t.Cleanup(func() { newOTLPExporterFn = orig })

	wantErr := errors.New("collector unreachable")
	newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, wantErr
	}

	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test",
		SampleRatio: 1,
	}, "test")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want exporter failure", err)
	}
}

func TestSetupOTel_ResourceFailure(t *testing.T) {
	origRes := newServiceResourceFn
	t.Cleanup(func() { newServiceResourceFn = origRes })

	wantErr := errors.New("bad resource")
	newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, wantErr
	}

	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Endpoint:    "localhost:4317",
		Insecure:    true,
		ServiceName: "test",
		SampleRatio: 1,
	}, "test")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want resource failure", err)
	}
}
