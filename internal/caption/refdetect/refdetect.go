// Package refdetect finds scripture references that are already written with
// digits ("Rom 5 8", "1 Cor 13:4", "John 3") and reports their canonical
// display form. It is the default [caption.NumericDetector].
package refdetect

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/pkg/scripture"
)

// BookMatcher resolves a misheard word to a canonical book name.
type BookMatcher interface {
	MatchBook(word string) (name string, confidence float64, matched bool)
}

// Option configures a [Detector].
type Option func(*Detector)

// WithPhoneticMatcher enables fuzzy book resolution: an unknown word directly
// before "<chapter>:<verse>" is resolved through m ("Romanz 5:8" becomes
// "Romans 5:8"). Disabled by default.
func WithPhoneticMatcher(m BookMatcher) Option {
	return func(d *Detector) {
		d.matcher = m
	}
}

// Detector is safe for concurrent use.
type Detector struct {
	validator *scripture.Validator
	exact     *regexp.Regexp
	fuzzy     *regexp.Regexp
	matcher   BookMatcher
}

var _ caption.NumericDetector = (*Detector)(nil)

// fuzzyPattern only accepts the explicit colon form to keep false positives
// out of ordinary prose.
var fuzzyPattern = regexp.MustCompile(`\b([A-Za-z]{4,})\s+(\d{1,3})\s*:\s*(\d{1,3})\b`)

// New returns a detector for the books of v's catalog. A nil v selects the
// built-in catalog.
func New(v *scripture.Validator, opts ...Option) *Detector {
	if v == nil {
		v = scripture.NewValidator(nil)
	}
	d := &Detector{
		validator: v,
		exact:     regexp.MustCompile(`(?i)\b(` + bookAlternation(v.Catalog().Aliases()) + `)\.?\s*(\d{1,3})(?:(?:\s*:\s*|\.|\s+)(\d{1,3}))?\b`),
		fuzzy:     fuzzyPattern,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect returns every validated reference in text, ordered by position and
// non-overlapping. Chapter-only hits are included with a canonical form
// without a verse.
func (d *Detector) Detect(text string) []caption.NumericMatch {
	var out []caption.NumericMatch
	for _, m := range d.exact.FindAllStringSubmatchIndex(text, -1) {
		alias := text[m[2]:m[3]]
		if m[6] >= 0 && strings.TrimSpace(text[m[5]:m[6]]) == "" && commonWordAlias(alias) {
			continue
		}
		candidate := alias + " " + text[m[4]:m[5]]
		if m[6] >= 0 {
			candidate += ":" + text[m[6]:m[7]]
		}
		ref, err := d.validator.Validate(candidate)
		if err != nil {
			continue
		}
		out = append(out, caption.NumericMatch{Start: m[0], End: m[1], Canonical: ref.String()})
	}

	if d.matcher != nil {
		out = append(out, d.detectFuzzy(text, out)...)
		slices.SortFunc(out, func(a, b caption.NumericMatch) int { return cmp.Compare(a.Start, b.Start) })
	}
	return out
}

func (d *Detector) detectFuzzy(text string, exact []caption.NumericMatch) []caption.NumericMatch {
	var out []caption.NumericMatch
	for _, m := range d.fuzzy.FindAllStringSubmatchIndex(text, -1) {
		if overlapsAny(m[0], m[1], exact) {
			continue
		}
		word := text[m[2]:m[3]]
		if _, known := d.validator.Catalog().Lookup(word); known {
			continue
		}
		name, _, ok := d.matcher.MatchBook(word)
		if !ok {
			continue
		}
		ref, err := d.validator.Validate(name + " " + text[m[4]:m[5]] + ":" + text[m[6]:m[7]])
		if err != nil {
			continue
		}
		out = append(out, caption.NumericMatch{Start: m[0], End: m[1], Canonical: ref.String()})
	}
	return out
}

// commonWordAliases are book aliases that are also ordinary English words.
// After one of them a verse needs an explicit ":" or "." separator, so
// "act 2 3 times" stays prose.
var commonWordAliases = map[string]bool{
	"act": true, "acts": true, "ex": true, "exo": true, "est": true,
	"job": true, "jon": true, "mark": true, "mat": true, "numbers": true,
	"pro": true, "song": true, "sos": true, "tit": true,
}

func commonWordAlias(alias string) bool {
	return commonWordAliases[strings.ToLower(alias)]
}

func overlapsAny(start, end int, ms []caption.NumericMatch) bool {
	for _, m := range ms {
		if start < m.End && m.Start < end {
			return true
		}
	}
	return false
}

// bookAlternation quotes aliases for a regular expression, longest first.
func bookAlternation(aliases []string) string {
	parts := make([]string, 0, len(aliases))
	for _, a := range aliases {
		words := strings.Fields(a)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		parts = append(parts, strings.Join(words, `\s+`))
	}
	return strings.Join(parts, "|")
}
