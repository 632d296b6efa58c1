package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// testTracerProvider returns a TracerProvider backed by an in-memory
// exporter so tests can inspect recorded spans.
func testTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exp
}

func TestCorrelationID(t *testing.T) {
	t.Run("empty without a span", func(t *testing.T) {
		if got := CorrelationID(context.Background()); got != "" {
			t.Errorf("CorrelationID(background) = %q, want empty", got)
		}
	})

	t.Run("hex trace id inside a span", func(t *testing.T) {
		tp, _ := testTracerProvider(t)
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		cid := CorrelationID(ctx)
		if len(cid) != 32 {
			t.Fatalf("correlation ID length = %d, want 32", len(cid))
		}
		if strings.Trim(cid, "0123456789abcdef") != "" {
			t.Errorf("correlation ID %q is not lowercase hex", cid)
		}
	})

	t.Run("unique per trace", func(t *testing.T) {
		tp, _ := testTracerProvider(t)
		tracer := tp.Tracer("test")

		ids := make(map[string]struct{}, 100)
		for range 100 {
			ctx, span := tracer.Start(context.Background(), "op")
			cid := CorrelationID(ctx)
			span.End()
			if _, dup := ids[cid]; dup {
				t.Fatalf("duplicate correlation ID: %s", cid)
			}
			ids[cid] = struct{}{}
		}
	})
}

func TestStartSpan_RecordsSpan(t *testing.T) {
	tp, exp := testTracerProvider(t)

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	ctx, span := StartSpan(context.Background(), "transcode")
	if CorrelationID(ctx) == "" {
		t.Error("StartSpan did not produce a trace ID")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	if spans[0].Name != "transcode" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "transcode")
	}
}

func TestLogger(t *testing.T) {
	logTo := func(t *testing.T) *bytes.Buffer {
		t.Helper()
		var buf bytes.Buffer
		slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
		t.Cleanup(func() { slog.SetDefault(slog.Default()) })
		return &buf
	}

	t.Run("includes trace info inside a span", func(t *testing.T) {
		tp, _ := testTracerProvider(t)
		buf := logTo(t)

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()
		Logger(ctx).Info("turn started")

		out := buf.String()
		if !strings.Contains(out, "trace_id=") || !strings.Contains(out, "span_id=") {
			t.Errorf("log output missing trace info: %s", out)
		}
	})

	t.Run("plain without a span", func(t *testing.T) {
		buf := logTo(t)
		Logger(context.Background()).Info("turn started")

		if strings.Contains(buf.String(), "trace_id") {
			t.Errorf("log output should not contain trace_id: %s", buf.String())
		}
	})
}

func TestTracer_NotNil(t *testing.T) {
	if Tracer() == nil {
		t.Fatal("Tracer() returned nil")
	}
}
