package transcript_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/observe"
	"github.com/MrWong99/versecap/internal/resilience"
	"github.com/MrWong99/versecap/internal/transcript"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// counter returns the value of the int64 sum metric name whose attribute key
// equals value. A missing data point counts as zero.
func counter(t *testing.T, reader *sdkmetric.ManualReader, name, key, value string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != name {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not an int64 sum", name)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				if key == "" {
					total += dp.Value
					continue
				}
				if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.Emit() == value {
					total += dp.Value
				}
			}
			return total
		}
	}
	return 0
}

// mockSink records archived captions. When block is non-nil every write waits
// for it to be closed.
type mockSink struct {
	mu     sync.Mutex
	got    []transcript.Caption
	ids    []string
	err    error
	block  chan struct{}
	writes chan struct{}
}

func (s *mockSink) WriteCaption(ctx context.Context, streamID string, c transcript.Caption) error {
	if s.writes != nil {
		s.writes <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, c)
	s.ids = append(s.ids, streamID)
	return nil
}

func (s *mockSink) captions() []transcript.Caption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.got)
}

// runAll feeds segs through s.Run and collects every caption.
func runAll(t *testing.T, s *transcript.Stream, segs []caption.Segment) []transcript.Caption {
	t.Helper()
	in := make(chan caption.Segment, len(segs))
	for _, seg := range segs {
		in <- seg
	}
	close(in)

	out := make(chan transcript.Caption)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background(), in, out) }()

	var got []transcript.Caption
	for c := range out {
		got = append(got, c)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
	return got
}

var sermon = []caption.Segment{
	{ID: "1", Text: "Turn with me to Matthew chapter.", IsFinal: true},
	{ID: "2", Text: "twel", IsFinal: false},
	{ID: "3", Text: "Twelve.", IsFinal: true},
	{ID: "4", Text: "Verse one.", IsFinal: true},
	{ID: "5", Text: "And Romans chapter five verse eight.", IsFinal: true},
}

// ─── Process ─────────────────────────────────────────────────────────────────

func TestStream_ProcessCarriesAcrossSegments(t *testing.T) {
	t.Parallel()

	m, _ := newTestMetrics(t)
	s := transcript.NewStream(caption.New(), transcript.WithMetrics(m))

	var texts []string
	var pending []caption.PendingKind
	for _, seg := range sermon {
		c := s.Process(context.Background(), seg)
		texts = append(texts, c.Text)
		pending = append(pending, c.Pending)
		if c.Raw != seg.Text {
			t.Errorf("segment %s: Raw = %q, want %q", seg.ID, c.Raw, seg.Text)
		}
		if c.IsFinal != seg.IsFinal {
			t.Errorf("segment %s: IsFinal = %v, want %v", seg.ID, c.IsFinal, seg.IsFinal)
		}
	}

	wantTexts := []string{
		"Turn with me to Matthew chapter.",
		"twel",
		"Twelve.",
		"Matthew 12:1.",
		"And Romans 5:8.",
	}
	if !slices.Equal(texts, wantTexts) {
		t.Errorf("texts = %q, want %q", texts, wantTexts)
	}
	wantPending := []caption.PendingKind{
		caption.KindAwaitingChapter,
		caption.KindAwaitingChapter,
		caption.KindAwaitingVerse,
		caption.KindNone,
		caption.KindNone,
	}
	if !slices.Equal(pending, wantPending) {
		t.Errorf("pending = %q, want %q", pending, wantPending)
	}
}

func TestStream_ProcessInterimHasNoRewrites(t *testing.T) {
	t.Parallel()

	s := transcript.NewStream(caption.New())
	c := s.Process(context.Background(), caption.Segment{ID: "i", Text: "Romans chapter five verse eight"})
	if c.Text != "Romans chapter five verse eight" {
		t.Errorf("Text = %q, want interim text verbatim", c.Text)
	}
	if len(c.Rewrites) != 0 {
		t.Errorf("Rewrites = %+v, want none", c.Rewrites)
	}
}

func TestStream_ProcessRecordsMetrics(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	s := transcript.NewStream(caption.New(), transcript.WithMetrics(m))
	ctx := context.Background()
	for _, seg := range sermon {
		s.Process(ctx, seg)
	}
	// Seeded, then expired by an unrelated final segment.
	s.Process(ctx, caption.Segment{ID: "6", Text: "Psalms chapter.", IsFinal: true})
	s.Process(ctx, caption.Segment{ID: "7", Text: "Let us pray.", IsFinal: true})

	if got := counter(t, reader, "versecap.segments", "", ""); got != 7 {
		t.Errorf("segments = %d, want 7", got)
	}
	if got := counter(t, reader, "versecap.rewrites", "stage", "carry"); got != 1 {
		t.Errorf("carry rewrites = %d, want 1", got)
	}
	if got := counter(t, reader, "versecap.rewrites", "stage", "inline"); got != 1 {
		t.Errorf("inline rewrites = %d, want 1", got)
	}
	if got := counter(t, reader, "versecap.pending.expired", "", ""); got != 1 {
		t.Errorf("expired = %d, want 1", got)
	}
	if got := counter(t, reader, "versecap.pending.seeded", "state", "awaiting_chapter"); got != 2 {
		t.Errorf("seeded awaiting_chapter = %d, want 2", got)
	}
	// "Twelve." only advances the carried Matthew reference.
	if got := counter(t, reader, "versecap.pending.seeded", "state", "awaiting_verse"); got != 0 {
		t.Errorf("seeded awaiting_verse = %d, want 0", got)
	}
}

func TestStream_ID(t *testing.T) {
	t.Parallel()

	a := transcript.NewStream(caption.New())
	b := transcript.NewStream(caption.New())
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("generated ids %q and %q, want distinct non-empty", a.ID(), b.ID())
	}
	c := transcript.NewStream(caption.New(), transcript.WithStreamID("sunday-am"))
	if c.ID() != "sunday-am" {
		t.Errorf("ID() = %q, want sunday-am", c.ID())
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

func TestStream_RunPreservesOrderAndArchivesFinals(t *testing.T) {
	t.Parallel()

	sink := &mockSink{}
	s := transcript.NewStream(caption.New(),
		transcript.WithStreamID("s1"),
		transcript.WithArchive(sink),
	)

	got := runAll(t, s, sermon)
	if len(got) != len(sermon) {
		t.Fatalf("got %d captions, want %d", len(got), len(sermon))
	}
	for i, c := range got {
		if c.ID != sermon[i].ID {
			t.Errorf("caption[%d].ID = %q, want %q", i, c.ID, sermon[i].ID)
		}
	}

	archived := sink.captions()
	var ids []string
	for _, c := range archived {
		ids = append(ids, c.ID)
	}
	if want := []string{"1", "3", "4", "5"}; !slices.Equal(ids, want) {
		t.Errorf("archived ids = %q, want %q", ids, want)
	}
	for _, id := range sink.ids {
		if id != "s1" {
			t.Errorf("archived stream id = %q, want s1", id)
		}
	}
	if archived[2].Text != "Matthew 12:1." || archived[2].Raw != "Verse one." {
		t.Errorf("archived[2] = %+v", archived[2])
	}
}

func TestStream_RunArchiveFailureDoesNotAffectOutput(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	sink := &mockSink{err: resilience.ErrCircuitOpen}
	s := transcript.NewStream(caption.New(), transcript.WithMetrics(m), transcript.WithArchive(sink))

	got := runAll(t, s, sermon)
	if got[3].Text != "Matthew 12:1." {
		t.Errorf("caption[3].Text = %q, want Matthew 12:1.", got[3].Text)
	}
	if n := counter(t, reader, "versecap.archive.errors", "reason", "circuit_open"); n != 4 {
		t.Errorf("circuit_open errors = %d, want 4", n)
	}
}

func TestStream_RunDropsWhenArchiveQueueFull(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	sink := &mockSink{block: make(chan struct{}), writes: make(chan struct{}, 16)}
	s := transcript.NewStream(caption.New(),
		transcript.WithMetrics(m),
		transcript.WithArchive(sink),
		transcript.WithArchiveQueue(1),
	)

	in := make(chan caption.Segment)
	out := make(chan transcript.Caption)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background(), in, out) }()

	send := func(id string) {
		in <- caption.Segment{ID: id, Text: "Amen.", IsFinal: true}
		<-out
	}
	send("1")
	<-sink.writes // the drain goroutine holds caption 1
	send("2")     // fills the queue
	send("3")     // dropped
	// An interim segment is only accepted once caption 3 has been enqueued or dropped.
	in <- caption.Segment{ID: "4", Text: "amen"}
	<-out
	close(sink.block)
	close(in)
	for range out {
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if n := counter(t, reader, "versecap.archive.errors", "reason", "queue_full"); n != 1 {
		t.Errorf("queue_full errors = %d, want 1", n)
	}
	if n := len(sink.captions()); n != 2 {
		t.Errorf("archived %d captions, want 2", n)
	}
}

func TestStream_RunCancelled(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	s := transcript.NewStream(caption.New(), transcript.WithMetrics(m))
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan caption.Segment)
	out := make(chan transcript.Caption)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, in, out) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-out; ok {
		t.Error("out not closed after Run returned")
	}
	if n := counter(t, reader, "versecap.active_streams", "", ""); n != 0 {
		t.Errorf("active streams = %d, want 0", n)
	}
}
