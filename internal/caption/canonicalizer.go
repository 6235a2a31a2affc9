package caption

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/MrWong99/versecap/pkg/scripture"
)

// Stage names the step of the canonicalizer that produced a [Rewrite].
type Stage string

const (
	// StageCarry completes a reference carried over from the previous segment.
	StageCarry Stage = "carry"
	// StageInline rewrites a complete spoken reference inside one segment.
	StageInline Stage = "inline"
	// StageNumeric promotes a digit-bearing reference found by the
	// [NumericDetector].
	StageNumeric Stage = "numeric"
)

// Rewrite records one substitution applied to a segment.
type Rewrite struct {
	Stage     Stage  `json:"stage"`
	Original  string `json:"original"`
	Canonical string `json:"canonical"`
}

// FormatResult is the output of formatting one finalized segment.
type FormatResult struct {
	// Text is the segment text with every resolved reference rewritten.
	Text string

	// Pending is the carry for the next finalized segment. Never nil.
	Pending Pending

	// Rewrites lists the substitutions in the order they were applied.
	Rewrites []Rewrite

	// Expired is true when an incoming awaiting state could not be
	// completed or continued and was dropped.
	Expired bool

	// Advanced is true when Pending is the incoming AwaitingChapter moved on
	// to AwaitingVerse rather than a state seeded from this segment.
	Advanced bool
}

// NumericMatch is a reference-shaped substring found by a [NumericDetector].
// Start and End are byte offsets into the text passed to Detect.
type NumericMatch struct {
	Start, End int
	Canonical  string
}

// NumericDetector finds already numeric or partially numeric references such
// as "Rom 5 8" and reports their canonical display form ("Romans 5:8").
//
// Implementations must be safe for concurrent use.
type NumericDetector interface {
	Detect(text string) []NumericMatch
}

// Option configures a [Canonicalizer].
type Option func(*Canonicalizer)

// WithValidator sets the book/reference validator. Its catalog also supplies
// the book aliases the extractors match. Default: the built-in catalog.
func WithValidator(v *scripture.Validator) Option {
	return func(c *Canonicalizer) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithNumericDetector enables the generic numeric canonicalization step. When
// nil (the default) the step is skipped.
func WithNumericDetector(d NumericDetector) Option {
	return func(c *Canonicalizer) {
		c.detector = d
	}
}

// WithLogger sets the logger used for pending-state transitions. Only Debug
// records are emitted. Default: [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *Canonicalizer) {
		if l != nil {
			c.log = l
		}
	}
}

// Canonicalizer rewrites spoken scripture references in finalized caption
// segments. It holds no mutable state: the carry between segments is passed
// in and returned explicitly, so a Canonicalizer is safe for concurrent use
// and re-processing the same segments always yields the same output.
type Canonicalizer struct {
	validator  *scripture.Validator
	detector   NumericDetector
	extractors *Extractors
	log        *slog.Logger
}

// New builds a [Canonicalizer].
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{
		validator: scripture.NewValidator(nil),
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.extractors = NewExtractors(c.validator.Catalog().Aliases())
	return c
}

// Format canonicalizes a single segment with no carried state.
func (c *Canonicalizer) Format(text string) string {
	return c.FormatWithCarry(text, NoPending{}).Text
}

// FormatWithCarry canonicalizes one finalized segment given the state carried
// from the previous one. Steps, in order:
//
//  1. Resolve the incoming pending state against the start of text.
//  2. Rewrite complete "<book> chapter <n> verse <n>" references.
//  3. Promote numeric detector hits whose canonical form names a verse.
//  4. Unless step 1 produced a new awaiting state, seed one from the end of
//     text.
//
// Spans rewritten by an earlier step are never touched by a later one.
func (c *Canonicalizer) FormatWithCarry(text string, pending Pending) FormatResult {
	w := &rewriter{text: text}
	res := FormatResult{Pending: NoPending{}}

	switch p := pending.(type) {
	case AwaitingChapter:
		var completed bool
		res.Pending, completed = c.resolveAwaitingChapter(w, p)
		res.Expired = !completed && res.Pending.Kind() == KindNone
		res.Advanced = res.Pending.Kind() != KindNone
	case AwaitingVerse:
		res.Expired = !c.resolveAwaitingVerse(w, p)
	}
	if res.Expired {
		c.log.Debug("caption: pending reference expired", "state", kindOf(pending), "text", text)
	}

	if MayContainInline(w.text) {
		w.apply(StageInline, c.inlineEdits(w.text))
	}
	if c.detector != nil {
		w.apply(StageNumeric, c.numericEdits(w.text))
	}

	if res.Pending.Kind() == KindNone {
		res.Pending = c.seed(w.text)
		if res.Pending.Kind() != KindNone {
			c.log.Debug("caption: pending reference seeded", "state", res.Pending.Kind(), "text", w.text)
		}
	}

	res.Text = w.text
	res.Rewrites = w.rewrites
	return res
}

// resolveAwaitingChapter runs NumberAtStart. A chapter alone advances to
// AwaitingVerse; chapter and verse complete the reference and report true.
func (c *Canonicalizer) resolveAwaitingChapter(w *rewriter, p AwaitingChapter) (Pending, bool) {
	m, ok := c.extractors.NumberAtStart(w.text)
	if !ok {
		return NoPending{}, false
	}
	chapter, ok := ParseSpokenNumber(m.Chapter)
	if !ok {
		return NoPending{}, false
	}
	if m.Verse == "" {
		ref, err := c.validator.Validate(fmt.Sprintf("%s %d", p.Book, chapter))
		if err != nil {
			return NoPending{}, false
		}
		next, err := NewAwaitingVerse(p.BookRaw, ref.Book, ref.Chapter)
		if err != nil {
			return NoPending{}, false
		}
		c.log.Debug("caption: pending chapter resolved", "book", next.Book, "chapter", next.Chapter)
		return next, false
	}
	verse, ok := ParseSpokenNumber(m.Verse)
	if !ok {
		return NoPending{}, false
	}
	ref, err := c.validator.Validate(fmt.Sprintf("%s %d:%d", p.Book, chapter, verse))
	if err != nil {
		return NoPending{}, false
	}
	w.apply(StageCarry, []edit{{start: m.Start, end: m.End, repl: ref.String()}})
	return NoPending{}, true
}

// resolveAwaitingVerse runs VerseAtStart and reports whether the reference
// was completed.
func (c *Canonicalizer) resolveAwaitingVerse(w *rewriter, p AwaitingVerse) bool {
	m, ok := c.extractors.VerseAtStart(w.text)
	if !ok {
		return false
	}
	verse, ok := ParseSpokenNumber(m.Verse)
	if !ok {
		return false
	}
	ref, err := c.validator.Validate(fmt.Sprintf("%s %d:%d", p.Book, p.Chapter, verse))
	if err != nil {
		return false
	}
	w.apply(StageCarry, []edit{{start: m.Start, end: m.End, repl: ref.String()}})
	return true
}

func (c *Canonicalizer) inlineEdits(text string) []edit {
	matches := c.extractors.ChapterVerseInline(text)
	edits := make([]edit, 0, len(matches))
	for _, m := range matches {
		chapter, ok := ParseSpokenNumber(m.Chapter)
		if !ok {
			continue
		}
		verse, ok := ParseSpokenNumber(m.Verse)
		if !ok {
			continue
		}
		ref, err := c.validator.Validate(fmt.Sprintf("%s %d:%d", m.Book, chapter, verse))
		if err != nil {
			continue
		}
		edits = append(edits, edit{start: m.Start, end: m.End, repl: ref.String()})
	}
	return edits
}

// numericEdits keeps only detector hits that resolve to a verse; bare
// chapter hits are not promoted.
func (c *Canonicalizer) numericEdits(text string) []edit {
	var edits []edit
	for _, m := range c.detector.Detect(text) {
		if !strings.Contains(m.Canonical, ":") {
			continue
		}
		edits = append(edits, edit{start: m.Start, end: m.End, repl: m.Canonical})
	}
	return edits
}

// seed inspects the end of text. The form with a trailing number is tried
// first since it is the more specific of the two.
func (c *Canonicalizer) seed(text string) Pending {
	if m, ok := c.extractors.BookChapterWithNumberAtEnd(text); ok {
		chapter, ok := ParseSpokenNumber(m.Chapter)
		if !ok {
			return NoPending{}
		}
		ref, err := c.validator.Validate(fmt.Sprintf("%s %d", m.Book, chapter))
		if err != nil {
			return NoPending{}
		}
		p, err := NewAwaitingVerse(m.Book, ref.Book, ref.Chapter)
		if err != nil {
			return NoPending{}
		}
		return p
	}
	if m, ok := c.extractors.BookChapterNoNumberAtEnd(text); ok {
		ref, err := c.validator.Validate(m.Book)
		if err != nil {
			return NoPending{}
		}
		p, err := NewAwaitingChapter(m.Book, ref.Book)
		if err != nil {
			return NoPending{}
		}
		return p
	}
	return NoPending{}
}

type edit struct {
	start, end int
	repl       string
}

type span struct {
	start, end int
}

// rewriter applies edits to text while remembering which byte ranges have
// already been rewritten.
type rewriter struct {
	text      string
	protected []span
	rewrites  []Rewrite
}

func (w *rewriter) overlapsProtected(e edit) bool {
	for _, p := range w.protected {
		if e.start < p.end && p.start < e.end {
			return true
		}
	}
	return false
}

// apply replaces the given edits left to right. Edits that overlap a
// protected span or an edit accepted earlier in the same call are dropped.
func (w *rewriter) apply(stage Stage, edits []edit) {
	slices.SortStableFunc(edits, func(a, b edit) int { return a.start - b.start })

	accepted := edits[:0:0]
	last := 0
	for _, e := range edits {
		if e.start < last || e.start >= e.end || e.end > len(w.text) || w.overlapsProtected(e) {
			continue
		}
		accepted = append(accepted, e)
		last = e.end
	}
	if len(accepted) == 0 {
		return
	}

	var b strings.Builder
	b.Grow(len(w.text))
	protected := make([]span, 0, len(w.protected)+len(accepted))
	prev, delta := 0, 0
	for _, e := range accepted {
		b.WriteString(w.text[prev:e.start])
		b.WriteString(e.repl)
		start := e.start + delta
		protected = append(protected, span{start: start, end: start + len(e.repl)})
		if original := w.text[e.start:e.end]; original != e.repl {
			w.rewrites = append(w.rewrites, Rewrite{Stage: stage, Original: original, Canonical: e.repl})
		}
		delta += len(e.repl) - (e.end - e.start)
		prev = e.end
	}
	b.WriteString(w.text[prev:])

	for _, p := range w.protected {
		shift := 0
		for _, e := range accepted {
			if e.end <= p.start {
				shift += len(e.repl) - (e.end - e.start)
			}
		}
		protected = append(protected, span{start: p.start + shift, end: p.end + shift})
	}
	w.text = b.String()
	w.protected = protected
}
