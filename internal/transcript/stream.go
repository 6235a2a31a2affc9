// Package transcript runs live caption streams through the scripture
// reference canonicalizer.
//
// A [Stream] owns the carried state of exactly one caption stream. Segments
// are processed strictly in arrival order: interim segments are echoed as-is,
// finalized segments are canonicalized and, when an [ArchiveSink] is
// configured, archived asynchronously. Archive failures are logged and
// counted but never delay or alter caption output.
package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/observe"
	"github.com/MrWong99/versecap/internal/resilience"
)

const (
	defaultArchiveQueue   = 64
	defaultArchiveTimeout = 5 * time.Second
)

// Caption is one rendered caption segment.
type Caption struct {
	// ID echoes the segment ID.
	ID string `json:"id"`

	// Text is the display text. For finalized segments every resolved
	// scripture reference is in canonical form.
	Text string `json:"text"`

	// Raw is the segment text as received.
	Raw string `json:"raw"`

	IsFinal bool `json:"is_final"`

	// Rewrites lists the substitutions applied to Raw. Empty for interim
	// segments.
	Rewrites []caption.Rewrite `json:"rewrites,omitempty"`

	// Pending is the carried state after this segment.
	Pending caption.PendingKind `json:"pending"`
}

// ArchiveSink persists finalized captions. Implementations must be safe for
// concurrent use.
type ArchiveSink interface {
	WriteCaption(ctx context.Context, streamID string, c Caption) error
}

// StreamOption is a functional option for configuring a [Stream].
type StreamOption func(*Stream)

// WithStreamID sets the stream identifier used in archive rows, spans and
// logs. Default: a random UUID.
func WithStreamID(id string) StreamOption {
	return func(s *Stream) {
		if id != "" {
			s.id = id
		}
	}
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) StreamOption {
	return func(s *Stream) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithArchive enables archiving of finalized captions in [Stream.Run].
func WithArchive(sink ArchiveSink) StreamOption {
	return func(s *Stream) {
		s.archive = sink
	}
}

// WithArchiveQueue sets how many finalized captions may wait for the archive
// before new ones are dropped. Default: 64.
func WithArchiveQueue(n int) StreamOption {
	return func(s *Stream) {
		if n > 0 {
			s.archiveQueue = n
		}
	}
}

// WithArchiveTimeout bounds a single archive write. Default: 5s.
func WithArchiveTimeout(d time.Duration) StreamOption {
	return func(s *Stream) {
		if d > 0 {
			s.archiveTimeout = d
		}
	}
}

// Stream processes one caption stream. It is not safe for concurrent use:
// [Stream.Process] and [Stream.Run] must not be called from more than one
// goroutine at a time.
type Stream struct {
	id             string
	renderer       *caption.Renderer
	metrics        *observe.Metrics
	archive        ArchiveSink
	archiveQueue   int
	archiveTimeout time.Duration
}

// NewStream returns a stream that canonicalizes with c.
func NewStream(c *caption.Canonicalizer, opts ...StreamOption) *Stream {
	s := &Stream{
		id:             uuid.NewString(),
		renderer:       caption.NewRenderer(c),
		archiveQueue:   defaultArchiveQueue,
		archiveTimeout: defaultArchiveTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// ID returns the stream identifier.
func (s *Stream) ID() string {
	return s.id
}

// Pending returns the state carried into the next finalized segment.
func (s *Stream) Pending() caption.Pending {
	return s.renderer.Pending()
}

// Process renders one segment and records metrics. Finalized segments get a
// span of their own. Process does not archive; see [Stream.Run].
func (s *Stream) Process(ctx context.Context, seg caption.Segment) Caption {
	if observe.StreamID(ctx) != s.id {
		ctx = observe.WithStreamID(ctx, s.id)
	}
	s.metrics.RecordSegment(ctx, seg.IsFinal)
	if !seg.IsFinal {
		out := s.renderer.Push(seg)
		return Caption{
			ID:      out.ID,
			Text:    out.Text,
			Raw:     seg.Text,
			Pending: s.renderer.Pending().Kind(),
		}
	}

	ctx, span := observe.StartSpan(ctx, "caption.format",
		trace.WithAttributes(attribute.String("segment.id", seg.ID)),
	)
	defer span.End()

	start := time.Now()
	out := s.renderer.Push(seg)
	s.metrics.FormatDuration.Record(ctx, time.Since(start).Seconds())

	res := out.Result
	for _, rw := range res.Rewrites {
		s.metrics.RecordRewrite(ctx, string(rw.Stage))
	}
	if res.Expired {
		s.metrics.PendingExpired.Add(ctx, 1)
	}
	kind := res.Pending.Kind()
	if kind != caption.KindNone && !res.Advanced {
		s.metrics.RecordPendingSeeded(ctx, string(kind))
	}
	span.SetAttributes(
		attribute.Int("caption.rewrites", len(res.Rewrites)),
		attribute.String("caption.pending", string(kind)),
	)
	if len(res.Rewrites) > 0 {
		observe.Logger(ctx).Debug("caption rewritten",
			"segment_id", seg.ID,
			"rewrites", len(res.Rewrites),
			"text", res.Text,
		)
	}

	return Caption{
		ID:       out.ID,
		Text:     out.Text,
		Raw:      seg.Text,
		IsFinal:  true,
		Rewrites: res.Rewrites,
		Pending:  kind,
	}
}

// Run processes segments from in until in is closed or ctx is cancelled,
// sending one [Caption] per segment to out in arrival order. Run closes out
// when it returns. When an archive is configured, finalized captions are
// written by a separate goroutine so a slow archive never delays out.
//
// Run returns nil when in is closed and ctx.Err() when cancelled.
func (s *Stream) Run(ctx context.Context, in <-chan caption.Segment, out chan<- Caption) error {
	defer close(out)

	ctx = observe.WithStreamID(ctx, s.id)
	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)

	g, gctx := errgroup.WithContext(ctx)

	var queue chan Caption
	if s.archive != nil {
		queue = make(chan Caption, s.archiveQueue)
		g.Go(func() error {
			s.drainArchive(gctx, queue)
			return nil
		})
	}

	g.Go(func() error {
		if queue != nil {
			defer close(queue)
		}
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case seg, ok := <-in:
				if !ok {
					return nil
				}
				c := s.Process(gctx, seg)
				select {
				case out <- c:
				case <-gctx.Done():
					return gctx.Err()
				}
				if c.IsFinal && queue != nil {
					s.enqueue(gctx, queue, c)
				}
			}
		}
	})

	return g.Wait()
}

func (s *Stream) enqueue(ctx context.Context, queue chan<- Caption, c Caption) {
	select {
	case queue <- c:
	default:
		s.metrics.RecordArchiveError(ctx, "queue_full")
		observe.Logger(ctx).Warn("caption archive queue full, dropping caption", "segment_id", c.ID)
	}
}

// drainArchive writes queued captions until queue is closed. Captions already
// queued when the stream ends are still written, each bounded by the archive
// timeout.
func (s *Stream) drainArchive(ctx context.Context, queue <-chan Caption) {
	ctx = context.WithoutCancel(ctx)
	for c := range queue {
		wctx, cancel := context.WithTimeout(ctx, s.archiveTimeout)
		err := s.archive.WriteCaption(wctx, s.id, c)
		cancel()
		if err == nil {
			continue
		}
		reason := "write_failed"
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			reason = "circuit_open"
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		}
		s.metrics.RecordArchiveError(ctx, reason)
		observe.Logger(ctx).Warn("caption archive write failed",
			"segment_id", c.ID,
			"reason", reason,
			"err", err,
		)
	}
}
