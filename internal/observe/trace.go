package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/versecap"

var attrStreamID = attribute.Key("stream.id")

// Tracer returns the versecap tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span on [Tracer]. When ctx carries a stream id the span
// gets a stream.id attribute. The caller must end the span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := Tracer().Start(ctx, name, opts...)
	if id := StreamID(ctx); id != "" {
		span.SetAttributes(attrStreamID.String(id))
	}
	return ctx, span
}

type streamIDKey struct{}

// WithStreamID returns a copy of ctx that names the caption stream id.
// [Logger] and [StartSpan] pick it up.
func WithStreamID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, streamIDKey{}, id)
}

// StreamID returns the caption stream id stored by [WithStreamID], or "".
func StreamID(ctx context.Context) string {
	id, _ := ctx.Value(streamIDKey{}).(string)
	return id
}

// CorrelationID is the trace id of the span in ctx, or "" without one. The
// middleware returns it to clients as X-Correlation-ID.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger with the stream_id, trace_id and span_id
// found in ctx.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := StreamID(ctx); id != "" {
		l = l.With(slog.String("stream_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
