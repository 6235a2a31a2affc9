package caption

// RenderSegments folds c over segments in arrival order and returns one
// [Rendered] per segment. Interim segments are echoed verbatim and do not
// touch the carried state, so pending only advances across consecutive
// finalized segments.
func RenderSegments(c *Canonicalizer, segments []Segment) []Rendered {
	r := NewRenderer(c)
	out := make([]Rendered, 0, len(segments))
	for _, seg := range segments {
		out = append(out, r.Push(seg).Rendered)
	}
	return out
}

// Output is the result of pushing one segment through a [Renderer].
type Output struct {
	Rendered

	// Final reports whether the segment went through the canonicalizer.
	Final bool

	// Result is the canonicalizer output. Zero for interim segments.
	Result FormatResult
}

// Renderer is the stateful form of [RenderSegments] for live streams. It owns
// the pending state of exactly one caption stream.
//
// A Renderer is not safe for concurrent use; segments of one stream must be
// pushed in arrival order.
type Renderer struct {
	c       *Canonicalizer
	pending Pending
}

// NewRenderer returns a renderer starting with [NoPending].
func NewRenderer(c *Canonicalizer) *Renderer {
	return &Renderer{c: c, pending: NoPending{}}
}

// Push renders seg and advances the pending state when seg is final.
func (r *Renderer) Push(seg Segment) Output {
	if !seg.IsFinal {
		return Output{Rendered: Rendered{ID: seg.ID, Text: seg.Text}}
	}
	res := r.c.FormatWithCarry(seg.Text, r.pending)
	r.pending = res.Pending
	return Output{
		Rendered: Rendered{ID: seg.ID, Text: res.Text},
		Final:    true,
		Result:   res,
	}
}

// Pending returns the state that will be applied to the next final segment.
func (r *Renderer) Pending() Pending {
	return r.pending
}

// Reset drops any carried state.
func (r *Renderer) Reset() {
	r.pending = NoPending{}
}
