package observability

import (
	"context"
	"testing"

	"github.com/timeweave/engine/internal/config"
	"github.com/timeweave/engine/internal/core/event"
	"github.com/timeweave/engine/internal/tempo"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func newRecordingTracer(t *testing.T) (*TempoTracer, *tracetest.SpanRecorder, *event.Bus) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tr := NewTempoTracer(tp)
	bus := event.NewBus()
	tr.Subscribe(bus)
	return tr, sr, bus
}

func dispatch(bus *event.Bus) {
	bus.SwapBuffers()
	bus.DispatchAll()
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRewindSpan(t *testing.T) {
	_, sr, bus := newRecordingTracer(t)

	event.Emit(bus, event.RewindStarted{Duration: 2, Anchor: 10})
	dispatch(bus)
	if len(sr.Ended()) != 0 {
		t.Fatalf("span ended before rewind end")
	}

	event.Emit(bus, event.RewindEnded{Reason: tempo.RewindExpired, RestoredTo: 8})
	dispatch(bus)

	ended := sr.Ended()
	if len(ended) != 1 || ended[0].Name() != "tempo.rewind" {
		t.Fatalf("ended spans = %v", ended)
	}
	if v, ok := attr(ended[0], "rewind.reason"); !ok || v.AsString() != "expired" {
		t.Fatalf("rewind.reason = %v, %v", v.AsString(), ok)
	}
	if v, ok := attr(ended[0], "rewind.restored_to"); !ok || v.AsFloat64() != 8 {
		t.Fatalf("rewind.restored_to = %v, %v", v.AsFloat64(), ok)
	}
}

func TestBubbleSpans(t *testing.T) {
	tr, sr, bus := newRecordingTracer(t)

	event.Emit(bus, event.BubbleCreated{ID: 1, Radius: 3, Scale: 0.5})
	event.Emit(bus, event.BubbleCreated{ID: 2, Radius: 1, Scale: 0})
	event.Emit(bus, event.BubbleCreated{ID: 3, Radius: 1, Scale: 2})
	dispatch(bus)

	event.Emit(bus, event.BubbleExpired{ID: 1})
	event.Emit(bus, event.BubbleRemoved{ID: 2})
	event.Emit(bus, event.BubbleExpired{ID: 99})
	dispatch(bus)

	ended := sr.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended %d spans, want 2", len(ended))
	}
	ends := map[int64]string{}
	for _, s := range ended {
		id, _ := attr(s, "bubble.id")
		how, _ := attr(s, "bubble.end")
		ends[id.AsInt64()] = how.AsString()
	}
	if ends[1] != "expired" || ends[2] != "removed" {
		t.Fatalf("bubble ends = %v", ends)
	}

	tr.Close()
	if len(sr.Ended()) != 3 {
		t.Fatalf("Close left spans open: %d ended", len(sr.Ended()))
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), config.TracingConfig{
		Enabled:     true,
		Exporter:    "carrier-pigeon",
		SampleRatio: 1,
	}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}
