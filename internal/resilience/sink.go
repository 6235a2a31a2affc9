package resilience

import (
	"context"
)

// CaptionWriter is the archive write path protected by a [FallbackSink].
type CaptionWriter[T any] interface {
	WriteCaption(ctx context.Context, streamID string, caption T) error
}

// FallbackSink routes archive writes through a [FallbackGroup] of writers.
// A backend whose breaker is open is skipped without being called; when every
// backend is unavailable the write fails with [ErrAllFailed].
type FallbackSink[T any] struct {
	group *FallbackGroup[CaptionWriter[T]]
}

// NewFallbackSink wraps g.
func NewFallbackSink[T any](g *FallbackGroup[CaptionWriter[T]]) *FallbackSink[T] {
	return &FallbackSink[T]{group: g}
}

// WriteCaption implements [CaptionWriter].
func (s *FallbackSink[T]) WriteCaption(ctx context.Context, streamID string, caption T) error {
	return s.group.Execute(ctx, func(ctx context.Context, w CaptionWriter[T]) error {
		return w.WriteCaption(ctx, streamID, caption)
	})
}

// Group returns the backends behind the sink.
func (s *FallbackSink[T]) Group() *FallbackGroup[CaptionWriter[T]] {
	return s.group
}
