// Package caption implements the stateful cross-segment scripture reference
// canonicalizer for live captions.
//
// Transcription engines cut their output into segments that ignore reference
// boundaries, so "Matthew chapter twelve. And verse one." may arrive as two
// finalized segments. The [Canonicalizer] threads a small [Pending] state from
// one finalized segment to the next, recognizes spoken and partial references,
// converts spoken numbers to integers and rewrites complete references to
// their canonical display form ("Matthew 12:1").
//
// Every decision point prefers leaving text untouched: an unknown book, an
// unparseable number or an out-of-range chapter is treated as no match. The
// canonicalizer never returns an error.
//
// The [Renderer] folds the canonicalizer over an ordered caption stream.
// Interim segments pass through verbatim and never read or write the carried
// state.
package caption

// Segment is one caption segment as emitted by the transcription engine.
type Segment struct {
	// ID is opaque and only echoed back in the rendered output.
	ID string `json:"id"`

	// Text is the caption text as transcribed.
	Text string `json:"text"`

	// IsFinal is true when the engine will not revise this segment again.
	// Interim segments are never rewritten.
	IsFinal bool `json:"is_final"`
}

// Rendered is the display form of one segment.
type Rendered struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
