// Package phonetic resolves misheard book names ("Romanz", "Filipians") to
// canonical scripture book names using Double Metaphone encoding combined with
// Jaro-Winkler similarity.
//
// The algorithm proceeds in two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each token of the input and of every candidate. A candidate whose codes
//     overlap the input's is a phonetic candidate.
//
//  2. Jaro-Winkler ranking: among phonetic candidates the one with the highest
//     similarity wins, provided the score reaches the phonetic threshold.
//     Without a phonetic candidate, pure Jaro-Winkler similarity is tested
//     against all candidates using the stricter fuzzy threshold.
//
// Numbered books ("1 Corinthians") are compared token by token, so the number
// itself never decides a match.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/versecap/pkg/scripture"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85

	// minWordLength keeps short function words ("is", "am") from being
	// promoted to book names.
	minWordLength = 4
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched candidate to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.phoneticThreshold = threshold
		}
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate exists. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.fuzzyThreshold = threshold
		}
	}
}

// WithCatalog sets the catalog whose book names [Matcher.MatchBook] resolves
// to. Default: [scripture.DefaultCatalog].
func WithCatalog(c *scripture.Catalog) Option {
	return func(m *Matcher) {
		if c != nil {
			m.catalog = c
		}
	}
}

// candidate is a precomputed match target.
type candidate struct {
	name   string
	lower  string
	tokens []string
	codes  map[string]struct{}
}

func newCandidate(name string) candidate {
	lower := strings.ToLower(strings.TrimSpace(name))
	tokens := strings.Fields(lower)
	return candidate{name: name, lower: lower, tokens: tokens, codes: codesForTokens(tokens)}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	catalog           *scripture.Catalog
	books             []candidate
}

// New returns a [Matcher] with the book candidates of its catalog
// precomputed.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		catalog:           scripture.DefaultCatalog(),
	}
	for _, o := range opts {
		o(m)
	}
	for _, name := range m.catalog.Names() {
		m.books = append(m.books, newCandidate(name))
	}
	return m
}

// MatchBook resolves word to a canonical book name. Exact catalog aliases
// resolve with confidence 1. When matched is false, name is empty.
func (m *Matcher) MatchBook(word string) (name string, confidence float64, matched bool) {
	if b, ok := m.catalog.Lookup(word); ok {
		return b.Name, 1, true
	}
	return m.best(word, m.books)
}

// Match finds the entry of candidates most phonetically similar to word.
// When matched is false, corrected equals word and confidence is 0.
func (m *Matcher) Match(word string, candidates []string) (corrected string, confidence float64, matched bool) {
	cands := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			cands = append(cands, newCandidate(c))
		}
	}
	name, score, ok := m.best(word, cands)
	if !ok {
		return word, 0, false
	}
	return name, score, true
}

func (m *Matcher) best(word string, cands []candidate) (string, float64, bool) {
	wordLower := strings.ToLower(strings.TrimSpace(word))
	if len(cands) == 0 || len(wordLower) < minWordLength {
		return "", 0, false
	}
	wordTokens := strings.Fields(wordLower)
	inputCodes := codesForTokens(wordTokens)

	var (
		bestName     string
		bestScore    float64
		bestPhonetic bool
	)
	for _, c := range cands {
		score := bestJWScore(wordTokens, c.tokens, wordLower, c.lower)
		if codesOverlap(inputCodes, c.codes) {
			if score >= m.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				bestName, bestScore, bestPhonetic = c.name, score, true
			}
			continue
		}
		if !bestPhonetic && score >= m.fuzzyThreshold && score > bestScore {
			bestName, bestScore = c.name, score
		}
	}
	return bestName, bestScore, bestName != ""
}

// codesForTokens returns the union of the Double Metaphone codes of tokens.
// Tokens without letters (the "1" of "1 John") yield no code.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore is the highest Jaro-Winkler similarity over the full strings,
// the space-stripped strings and every token pair.
func bestJWScore(inputTokens, candTokens []string, inputFull, candFull string) float64 {
	score := matchr.JaroWinkler(inputFull, candFull, false)

	if len(inputTokens) > 1 || len(candTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(inputTokens, ""), strings.Join(candTokens, ""), false); s > score {
			score = s
		}
	}
	for _, it := range inputTokens {
		for _, ct := range candTokens {
			if s := matchr.JaroWinkler(it, ct, false); s > score {
				score = s
			}
		}
	}
	return score
}
