package scripture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	// ErrUnknownBook is returned when a candidate's book name is not in the catalog.
	ErrUnknownBook = errors.New("scripture: unknown book")

	// ErrChapterOutOfRange is returned when the chapter is below 1 or beyond
	// the book's chapter count.
	ErrChapterOutOfRange = errors.New("scripture: chapter out of range")

	// ErrInvalidVerse is returned for an explicit verse below 1. Verses are
	// 1-indexed.
	ErrInvalidVerse = errors.New("scripture: invalid verse")

	// ErrMalformed is returned when the candidate does not have the shape
	// "<book> [<chapter>[:<verse>]]".
	ErrMalformed = errors.New("scripture: malformed reference")
)

// Reference is a resolved scripture location. Chapter and Verse are 0 when
// absent.
type Reference struct {
	Book    string
	Chapter int
	Verse   int
}

// String renders the canonical display form: "Romans 5:8", "Romans 5" or
// "Romans".
func (r Reference) String() string {
	switch {
	case r.Chapter == 0:
		return r.Book
	case r.Verse == 0:
		return fmt.Sprintf("%s %d", r.Book, r.Chapter)
	default:
		return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
	}
}

// HasVerse reports whether r points at a single verse.
func (r Reference) HasVerse() bool {
	return r.Chapter > 0 && r.Verse > 0
}

// referenceAST is the participle grammar for a candidate reference.
type referenceAST struct {
	Prefix  *string  `@(Ordinal | Number)?`
	Words   []string `@Word+`
	Chapter *int     `( @Number`
	Verse   *int     `  ( ":" @Number )? )?`
}

var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ordinal", Pattern: `[1-3](?:st|nd|rd)\b`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Word", Pattern: `[A-Za-z]+\.?`},
	{Name: "Punct", Pattern: `:`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var referenceParser = participle.MustBuild[referenceAST](
	participle.Lexer(referenceLexer),
	participle.Elide("Whitespace"),
)

// Validator resolves candidate reference strings against a [Catalog].
// It is safe for concurrent use.
type Validator struct {
	catalog *Catalog
}

// NewValidator returns a validator backed by catalog. A nil catalog selects
// [DefaultCatalog].
func NewValidator(catalog *Catalog) *Validator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Validator{catalog: catalog}
}

// Catalog returns the validator's book catalog.
func (v *Validator) Catalog() *Catalog {
	return v.catalog
}

// Validate parses candidate ("Rom 5:8", "first corinthians 13:4",
// "Matthew 12") and returns the canonical reference. Unknown or ambiguous
// book names, out-of-range chapters and explicit zero verses are rejected.
func (v *Validator) Validate(candidate string) (Reference, error) {
	ast, err := referenceParser.ParseString("", strings.TrimSpace(candidate))
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %q: %v", ErrMalformed, candidate, err)
	}

	raw := strings.Join(ast.Words, " ")
	if ast.Prefix != nil {
		raw = *ast.Prefix + " " + raw
	}
	book, ok := v.catalog.Lookup(raw)
	if !ok {
		return Reference{}, fmt.Errorf("%w: %q", ErrUnknownBook, raw)
	}

	ref := Reference{Book: book.Name}
	if ast.Chapter == nil {
		return ref, nil
	}
	if *ast.Chapter < 1 || *ast.Chapter > book.Chapters {
		return Reference{}, fmt.Errorf("%w: %s has %d chapters, got %d", ErrChapterOutOfRange, book.Name, book.Chapters, *ast.Chapter)
	}
	ref.Chapter = *ast.Chapter

	if ast.Verse != nil {
		if *ast.Verse < 1 {
			return Reference{}, fmt.Errorf("%w: %d", ErrInvalidVerse, *ast.Verse)
		}
		ref.Verse = *ast.Verse
	}
	return ref, nil
}
