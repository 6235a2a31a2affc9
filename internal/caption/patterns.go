package caption

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// Match is a span located by one of the [Extractors]. Start and End are byte
// offsets into the searched text. Fields an extractor does not capture are
// empty.
type Match struct {
	Start, End int

	// Book is the raw book name as written in the text.
	Book string

	// Chapter and Verse are the raw number phrases.
	Chapter string
	Verse   string
}

// Extractors holds the compiled structural matchers. Patterns are built once
// from a book alias list and are safe for concurrent use.
type Extractors struct {
	withNumberAtEnd *regexp.Regexp
	noNumberAtEnd   *regexp.Regexp
	verseAtStart    *regexp.Regexp
	numberAtStart   *regexp.Regexp
	inline          *regexp.Regexp
}

// NewExtractors compiles the matchers for the given book aliases. Aliases are
// matched case-insensitively; on overlap the longest alias wins.
func NewExtractors(aliases []string) *Extractors {
	book := alternation(aliases)
	num := numberPhrasePattern()

	return &Extractors{
		withNumberAtEnd: regexp.MustCompile(`(?i)\b(` + book + `)\s+chapter\s+(` + num + `)[.,!?;:]*\s*$`),
		noNumberAtEnd:   regexp.MustCompile(`(?i)\b(` + book + `)\s+chapter[.,!?;:]*\s*$`),
		verseAtStart:    regexp.MustCompile(`(?i)^\s*((?:and\s+)?verse\s+(` + num + `))`),
		numberAtStart:   regexp.MustCompile(`(?i)^\s*((` + num + `)(?:[.,]?\s+(?:and\s+)?verse\s+(` + num + `))?)`),
		inline:          regexp.MustCompile(`(?i)\b(` + book + `)\s+chapter\s+(` + num + `)[.,]?\s+(?:and\s+)?verse\s+(` + num + `)`),
	}
}

// numberPhrasePattern matches a digit run or one to four number words joined
// by whitespace or hyphens.
func numberPhrasePattern() string {
	word := `(?:` + alternation(numberVocabulary()) + `)\b`
	return `\d+\b|` + word + `(?:[\s-]+` + word + `){0,3}`
}

// alternation joins words longest first so leftmost-first matching prefers
// "1 john" over "john". Inner spaces match any whitespace run.
func alternation(words []string) string {
	sorted := slices.Clone(words)
	slices.SortFunc(sorted, func(a, b string) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	quoted := make([]string, 0, len(sorted))
	for _, w := range slices.Compact(sorted) {
		parts := strings.Fields(w)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		if len(parts) > 0 {
			quoted = append(quoted, strings.Join(parts, `\s+`))
		}
	}
	return strings.Join(quoted, "|")
}

// BookChapterWithNumberAtEnd matches "<book> chapter <number>" at the end of
// text, optionally followed by punctuation.
func (e *Extractors) BookChapterWithNumberAtEnd(text string) (Match, bool) {
	m := e.withNumberAtEnd.FindStringSubmatchIndex(text)
	if m == nil {
		return Match{}, false
	}
	return Match{Start: m[2], End: m[5], Book: text[m[2]:m[3]], Chapter: text[m[4]:m[5]]}, true
}

// BookChapterNoNumberAtEnd matches a trailing "<book> chapter" with no number
// after it.
func (e *Extractors) BookChapterNoNumberAtEnd(text string) (Match, bool) {
	m := e.noNumberAtEnd.FindStringSubmatchIndex(text)
	if m == nil {
		return Match{}, false
	}
	return Match{Start: m[2], End: m[3], Book: text[m[2]:m[3]]}, true
}

// VerseAtStart matches "[and] verse <number>" at the start of text. The span
// excludes leading whitespace and trailing punctuation.
func (e *Extractors) VerseAtStart(text string) (Match, bool) {
	m := e.verseAtStart.FindStringSubmatchIndex(text)
	if m == nil {
		return Match{}, false
	}
	return Match{Start: m[2], End: m[3], Verse: text[m[4]:m[5]]}, true
}

// NumberAtStart matches a number at the start of text, optionally followed by
// "[and] verse <number>". Verse is empty when only a chapter was spoken.
func (e *Extractors) NumberAtStart(text string) (Match, bool) {
	m := e.numberAtStart.FindStringSubmatchIndex(text)
	if m == nil {
		return Match{}, false
	}
	out := Match{Start: m[2], End: m[3], Chapter: text[m[4]:m[5]]}
	if m[6] >= 0 {
		out.Verse = text[m[6]:m[7]]
	}
	return out, true
}

// ChapterVerseInline returns every non-overlapping
// "<book> chapter <number> verse <number>" in text, left to right.
func (e *Extractors) ChapterVerseInline(text string) []Match {
	all := e.inline.FindAllStringSubmatchIndex(text, -1)
	out := make([]Match, 0, len(all))
	for _, m := range all {
		out = append(out, Match{
			Start:   m[0],
			End:     m[1],
			Book:    text[m[2]:m[3]],
			Chapter: text[m[4]:m[5]],
			Verse:   text[m[6]:m[7]],
		})
	}
	return out
}

// MayContainInline is the cheap pre-filter for [Extractors.ChapterVerseInline]:
// text must mention both "chapter" and "verse".
func MayContainInline(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "chapter") && strings.Contains(lower, "verse")
}
