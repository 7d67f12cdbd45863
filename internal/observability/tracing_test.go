package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
)

func TestInitTracing_Disabled(t *testing.T) {
	log, _ := test.NewNullLogger()
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, log)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("t").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Fatalf("noop provider produced a valid span context")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracing_ExportsSpans(t *testing.T) {
	log, hook := test.NewNullLogger()
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: true, ServiceName: "trajectory-test", Writer: &buf}, log)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}

	_, span := otel.Tracer("t").Start(context.Background(), "route.resolve")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, log)

	if !strings.Contains(buf.String(), "route.resolve") {
		t.Fatalf("exported spans missing route.resolve: %s", buf.String())
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "tracing enabled" {
		t.Fatalf("expected 'tracing enabled' log entry")
	}
}
