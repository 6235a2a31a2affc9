// Package captionio reads caption segments from files and writes rendered
// captions back out.
//
// Two input formats are supported: JSON Lines with one segment object per
// line, and WebVTT where every cue is a finalized segment. Input text is
// normalized to Unicode NFC so composed and decomposed forms of the same
// book name match identically.
package captionio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/MrWong99/versecap/internal/caption"
)

// ErrNotWebVTT is returned by [ReadWebVTT] when the input lacks the WEBVTT
// signature line.
var ErrNotWebVTT = errors.New("captionio: missing WEBVTT header")

// maxLine bounds a single input line.
const maxLine = 1 << 20

// ReadJSONL reads one {"id","text","is_final"} object per line. Blank lines
// are skipped. Errors name the offending line.
func ReadJSONL(r io.Reader) ([]caption.Segment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var segs []caption.Segment
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var seg caption.Segment
		if err := json.Unmarshal([]byte(raw), &seg); err != nil {
			return nil, fmt.Errorf("captionio: line %d: %w", line, err)
		}
		seg.Text = norm.NFC.String(seg.Text)
		segs = append(segs, seg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("captionio: read jsonl: %w", err)
	}
	return segs, nil
}

// ReadWebVTT reads the cues of a WebVTT document as finalized segments. A
// cue's identifier becomes the segment ID; cues without one are numbered
// from 1. Multi-line payloads are joined with single spaces. NOTE, STYLE and
// REGION blocks are skipped.
func ReadWebVTT(r io.Reader) ([]caption.Segment, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("captionio: read webvtt: %w", err)
		}
		return nil, ErrNotWebVTT
	}
	header := strings.TrimRight(strings.TrimPrefix(sc.Text(), "\ufeff"), "\r")
	if header != "WEBVTT" && !strings.HasPrefix(header, "WEBVTT ") && !strings.HasPrefix(header, "WEBVTT\t") {
		return nil, ErrNotWebVTT
	}

	var (
		segs  []caption.Segment
		block []string
	)
	flush := func() {
		if seg, ok := parseCue(block, len(segs)+1); ok {
			segs = append(segs, seg)
		}
		block = block[:0]
	}
	for sc.Scan() {
		l := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(l) == "" {
			flush()
			continue
		}
		block = append(block, l)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("captionio: read webvtt: %w", err)
	}
	flush()
	return segs, nil
}

// parseCue turns one blank-line separated block into a segment. ordinal is
// used as the ID when the cue has no identifier line.
func parseCue(block []string, ordinal int) (caption.Segment, bool) {
	if len(block) == 0 {
		return caption.Segment{}, false
	}
	switch first := block[0]; {
	case first == "NOTE" || strings.HasPrefix(first, "NOTE ") ||
		first == "STYLE" || first == "REGION":
		return caption.Segment{}, false
	}

	id := strconv.Itoa(ordinal)
	timing := 0
	if !strings.Contains(block[0], "-->") {
		if len(block) < 2 || !strings.Contains(block[1], "-->") {
			return caption.Segment{}, false
		}
		id = strings.TrimSpace(block[0])
		timing = 1
	}

	payload := make([]string, 0, len(block)-timing-1)
	for _, l := range block[timing+1:] {
		payload = append(payload, strings.TrimSpace(l))
	}
	text := strings.Join(payload, " ")
	if text == "" {
		return caption.Segment{}, false
	}
	return caption.Segment{ID: id, Text: norm.NFC.String(text), IsFinal: true}, true
}

// WriteJSONL writes one {"id","text"} object per rendered caption.
func WriteJSONL(w io.Writer, rendered []caption.Rendered) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range rendered {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("captionio: write jsonl: %w", err)
		}
	}
	return nil
}

// WriteText writes each caption's text on its own line.
func WriteText(w io.Writer, rendered []caption.Rendered) error {
	bw := bufio.NewWriter(w)
	for _, r := range rendered {
		if _, err := bw.WriteString(r.Text + "\n"); err != nil {
			return fmt.Errorf("captionio: write text: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("captionio: write text: %w", err)
	}
	return nil
}
