package observability

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/timeweave/engine/internal/config"
	"github.com/timeweave/engine/internal/core/event"
	"github.com/timeweave/engine/internal/tempo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const tracerName = "github.com/timeweave/engine/internal/observability"

// InitTracing wires a tracer provider, exporter, propagators, and sampler based
// on the provided configuration. It returns a shutdown function to flush spans.
func InitTracing(ctx context.Context, cfg config.TracingConfig, log *zap.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug("tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "timeweave"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log.Info("tracing enabled",
		zap.String("exporter", cfg.Exporter),
		zap.String("service_name", cfg.ServiceName),
		zap.String("sampler", fmt.Sprintf("parentbased_traceidratio_%0.2f", cfg.SampleRatio)),
	)

	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		return stdouttrace.New(
			stdouttrace.WithWriter(os.Stdout),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout invokes the provided shutdown function with a bounded
// timeout, logging rather than returning errors in the shutdown path.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log *zap.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn("tracing shutdown failed", zap.Error(err))
	}
}

// TempoTracer turns rewinds and bubble lifetimes into spans. A span opens
// when the start event is dispatched and ends with the matching end event,
// so span durations are wall-clock time.
// Event handlers run on the game loop goroutine, no locks needed.
type TempoTracer struct {
	tracer  trace.Tracer
	rewind  trace.Span
	bubbles map[tempo.BubbleID]trace.Span
}

// NewTempoTracer uses tp, or the global provider when tp is nil.
func NewTempoTracer(tp trace.TracerProvider) *TempoTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TempoTracer{
		tracer:  tp.Tracer(tracerName),
		bubbles: make(map[tempo.BubbleID]trace.Span),
	}
}

// Subscribe hooks the tracer to engine events.
func (t *TempoTracer) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(e event.RewindStarted) {
		if t.rewind != nil {
			t.rewind.End()
		}
		_, t.rewind = t.tracer.Start(context.Background(), "tempo.rewind",
			trace.WithAttributes(
				attribute.Float64("rewind.duration", e.Duration),
				attribute.Float64("rewind.anchor", e.Anchor),
			))
	})
	event.Subscribe(bus, func(e event.RewindEnded) {
		if t.rewind == nil {
			return
		}
		t.rewind.SetAttributes(
			attribute.String("rewind.reason", e.Reason.String()),
			attribute.Float64("rewind.restored_to", e.RestoredTo),
		)
		t.rewind.End()
		t.rewind = nil
	})
	event.Subscribe(bus, func(e event.BubbleCreated) {
		_, span := t.tracer.Start(context.Background(), "tempo.bubble",
			trace.WithAttributes(
				attribute.Int64("bubble.id", int64(e.ID)),
				attribute.Float64("bubble.radius", e.Radius),
				attribute.Float64("bubble.scale", e.Scale),
				attribute.Float64Slice("bubble.center", []float64{e.Center.X, e.Center.Y, e.Center.Z}),
			))
		t.bubbles[e.ID] = span
	})
	event.Subscribe(bus, func(e event.BubbleExpired) { t.endBubble(e.ID, "expired") })
	event.Subscribe(bus, func(e event.BubbleRemoved) { t.endBubble(e.ID, "removed") })
}

func (t *TempoTracer) endBubble(id tempo.BubbleID, how string) {
	span, ok := t.bubbles[id]
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("bubble.end", how))
	span.End()
	delete(t.bubbles, id)
}

// Close ends spans still open, e.g. infinite bubbles at shutdown.
func (t *TempoTracer) Close() {
	if t.rewind != nil {
		t.rewind.End()
		t.rewind = nil
	}
	for id, span := range t.bubbles {
		span.SetAttributes(attribute.Bool("bubble.open_at_shutdown", true))
		span.End()
		delete(t.bubbles, id)
	}
}
