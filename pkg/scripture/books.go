// Package scripture holds the canonical Protestant book catalog and the
// reference validator used to turn raw, possibly abbreviated or spoken book
// names into canonical references such as "1 Corinthians 13:4".
//
// A [Catalog] is immutable after construction and safe for concurrent use.
// The built-in catalog ([DefaultCatalog]) carries all 66 books; a catalog can
// also be loaded from the books table of a SQLite bible database with
// [OpenCatalog].
package scripture

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Testament identifies the half of the canon a book belongs to.
type Testament string

const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

// Book describes one canonical book.
type Book struct {
	// ID is the 1-based canonical order (Genesis = 1, Revelation = 66).
	ID int

	// Name is the canonical display name, e.g. "Song of Solomon" or "1 John".
	Name string

	// Abbreviation is the short OSIS-style form, e.g. "1John".
	Abbreviation string

	Testament Testament

	// Chapters is the number of chapters in the book.
	Chapters int

	// Category groups books (Pentateuch, Gospels, ...).
	Category string
}

// defaultBooks mirrors the books table of the bible database pipeline.
var defaultBooks = []Book{
	{1, "Genesis", "Gen", OldTestament, 50, "Pentateuch"},
	{2, "Exodus", "Exod", OldTestament, 40, "Pentateuch"},
	{3, "Leviticus", "Lev", OldTestament, 27, "Pentateuch"},
	{4, "Numbers", "Num", OldTestament, 36, "Pentateuch"},
	{5, "Deuteronomy", "Deut", OldTestament, 34, "Pentateuch"},
	{6, "Joshua", "Josh", OldTestament, 24, "Historical"},
	{7, "Judges", "Judg", OldTestament, 21, "Historical"},
	{8, "Ruth", "Ruth", OldTestament, 4, "Historical"},
	{9, "1 Samuel", "1Sam", OldTestament, 31, "Historical"},
	{10, "2 Samuel", "2Sam", OldTestament, 24, "Historical"},
	{11, "1 Kings", "1Kgs", OldTestament, 22, "Historical"},
	{12, "2 Kings", "2Kgs", OldTestament, 25, "Historical"},
	{13, "1 Chronicles", "1Chr", OldTestament, 29, "Historical"},
	{14, "2 Chronicles", "2Chr", OldTestament, 36, "Historical"},
	{15, "Ezra", "Ezra", OldTestament, 10, "Historical"},
	{16, "Nehemiah", "Neh", OldTestament, 13, "Historical"},
	{17, "Esther", "Esth", OldTestament, 10, "Historical"},
	{18, "Job", "Job", OldTestament, 42, "Wisdom"},
	{19, "Psalms", "Ps", OldTestament, 150, "Wisdom"},
	{20, "Proverbs", "Prov", OldTestament, 31, "Wisdom"},
	{21, "Ecclesiastes", "Eccl", OldTestament, 12, "Wisdom"},
	{22, "Song of Solomon", "Song", OldTestament, 8, "Wisdom"},
	{23, "Isaiah", "Isa", OldTestament, 66, "MajorProphets"},
	{24, "Jeremiah", "Jer", OldTestament, 52, "MajorProphets"},
	{25, "Lamentations", "Lam", OldTestament, 5, "MajorProphets"},
	{26, "Ezekiel", "Ezek", OldTestament, 48, "MajorProphets"},
	{27, "Daniel", "Dan", OldTestament, 12, "MajorProphets"},
	{28, "Hosea", "Hos", OldTestament, 14, "MinorProphets"},
	{29, "Joel", "Joel", OldTestament, 3, "MinorProphets"},
	{30, "Amos", "Amos", OldTestament, 9, "MinorProphets"},
	{31, "Obadiah", "Obad", OldTestament, 1, "MinorProphets"},
	{32, "Jonah", "Jonah", OldTestament, 4, "MinorProphets"},
	{33, "Micah", "Mic", OldTestament, 7, "MinorProphets"},
	{34, "Nahum", "Nah", OldTestament, 3, "MinorProphets"},
	{35, "Habakkuk", "Hab", OldTestament, 3, "MinorProphets"},
	{36, "Zephaniah", "Zeph", OldTestament, 3, "MinorProphets"},
	{37, "Haggai", "Hag", OldTestament, 2, "MinorProphets"},
	{38, "Zechariah", "Zech", OldTestament, 14, "MinorProphets"},
	{39, "Malachi", "Mal", OldTestament, 4, "MinorProphets"},
	{40, "Matthew", "Matt", NewTestament, 28, "Gospels"},
	{41, "Mark", "Mark", NewTestament, 16, "Gospels"},
	{42, "Luke", "Luke", NewTestament, 24, "Gospels"},
	{43, "John", "John", NewTestament, 21, "Gospels"},
	{44, "Acts", "Acts", NewTestament, 28, "Acts"},
	{45, "Romans", "Rom", NewTestament, 16, "PaulineEpistles"},
	{46, "1 Corinthians", "1Cor", NewTestament, 16, "PaulineEpistles"},
	{47, "2 Corinthians", "2Cor", NewTestament, 13, "PaulineEpistles"},
	{48, "Galatians", "Gal", NewTestament, 6, "PaulineEpistles"},
	{49, "Ephesians", "Eph", NewTestament, 6, "PaulineEpistles"},
	{50, "Philippians", "Phil", NewTestament, 4, "PaulineEpistles"},
	{51, "Colossians", "Col", NewTestament, 4, "PaulineEpistles"},
	{52, "1 Thessalonians", "1Thess", NewTestament, 5, "PaulineEpistles"},
	{53, "2 Thessalonians", "2Thess", NewTestament, 3, "PaulineEpistles"},
	{54, "1 Timothy", "1Tim", NewTestament, 6, "PaulineEpistles"},
	{55, "2 Timothy", "2Tim", NewTestament, 4, "PaulineEpistles"},
	{56, "Titus", "Titus", NewTestament, 3, "PaulineEpistles"},
	{57, "Philemon", "Phlm", NewTestament, 1, "PaulineEpistles"},
	{58, "Hebrews", "Heb", NewTestament, 13, "GeneralEpistles"},
	{59, "James", "Jas", NewTestament, 5, "GeneralEpistles"},
	{60, "1 Peter", "1Pet", NewTestament, 5, "GeneralEpistles"},
	{61, "2 Peter", "2Pet", NewTestament, 3, "GeneralEpistles"},
	{62, "1 John", "1John", NewTestament, 5, "GeneralEpistles"},
	{63, "2 John", "2John", NewTestament, 1, "GeneralEpistles"},
	{64, "3 John", "3John", NewTestament, 1, "GeneralEpistles"},
	{65, "Jude", "Jude", NewTestament, 1, "GeneralEpistles"},
	{66, "Revelation", "Rev", NewTestament, 22, "Apocalyptic"},
}

// extraAliases lists standard abbreviations and spoken variants keyed by
// canonical name. Numbered-book ordinal forms are derived automatically.
var extraAliases = map[string][]string{
	"Genesis":         {"gen"},
	"Exodus":          {"exo", "ex"},
	"Deuteronomy":     {"deu"},
	"Joshua":          {"jos"},
	"Judges":          {"jdg"},
	"1 Samuel":        {"1 sam"},
	"2 Samuel":        {"2 sam"},
	"1 Kings":         {"1 kgs"},
	"2 Kings":         {"2 kgs"},
	"1 Chronicles":    {"1 chr"},
	"2 Chronicles":    {"2 chr"},
	"Ezra":            {"ezr"},
	"Esther":          {"est"},
	"Psalms":          {"psalm", "psa"},
	"Proverbs":        {"pro"},
	"Ecclesiastes":    {"ecc"},
	"Song of Solomon": {"song of songs", "sos", "canticles"},
	"Ezekiel":         {"eze"},
	"Obadiah":         {"oba"},
	"Jonah":           {"jon"},
	"Zephaniah":       {"zep"},
	"Zechariah":       {"zec"},
	"Matthew":         {"mat", "mt"},
	"Mark":            {"mrk", "mk"},
	"Luke":            {"luk", "lk"},
	"John":            {"joh", "jn"},
	"Acts":            {"act"},
	"1 Corinthians":   {"1 cor"},
	"2 Corinthians":   {"2 cor"},
	"1 Thessalonians": {"1 thess"},
	"2 Thessalonians": {"2 thess"},
	"1 Timothy":       {"1 tim"},
	"2 Timothy":       {"2 tim"},
	"Titus":           {"tit"},
	"Philemon":        {"phm"},
	"1 Peter":         {"1 pet"},
	"2 Peter":         {"2 pet"},
	"1 John":          {"1 jn"},
	"2 John":          {"2 jn"},
	"3 John":          {"3 jn"},
	"Revelation":      {"revelations"},
}

// ordinalWords maps the leading digit of a numbered book to its spoken forms.
var ordinalWords = map[string][]string{
	"1": {"first", "1st"},
	"2": {"second", "2nd"},
	"3": {"third", "3rd"},
}

// Catalog is an immutable book lookup table.
type Catalog struct {
	books   []Book
	byAlias map[string]int // normalized alias -> index into books
	aliases []string       // sorted longest first
}

// NewCatalog builds a catalog from books. Duplicate names are rejected;
// alias collisions keep the first book that claimed the alias.
func NewCatalog(books []Book) (*Catalog, error) {
	if len(books) == 0 {
		return nil, errors.New("scripture: catalog needs at least one book")
	}
	c := &Catalog{
		books:   slices.Clone(books),
		byAlias: make(map[string]int, len(books)*6),
	}
	slices.SortStableFunc(c.books, func(a, b Book) int { return cmp.Compare(a.ID, b.ID) })

	for i, b := range c.books {
		if b.Name == "" {
			return nil, fmt.Errorf("scripture: book %d has no name", b.ID)
		}
		if b.Chapters <= 0 {
			return nil, fmt.Errorf("scripture: book %q has no chapters", b.Name)
		}
		key := normalizeAlias(b.Name)
		if prev, ok := c.byAlias[key]; ok && normalizeAlias(c.books[prev].Name) == key {
			return nil, fmt.Errorf("scripture: duplicate book name %q", b.Name)
		}
		for _, alias := range aliasesFor(b) {
			c.addAlias(alias, i)
		}
	}

	c.aliases = make([]string, 0, len(c.byAlias))
	for alias := range c.byAlias {
		c.aliases = append(c.aliases, alias)
	}
	slices.SortFunc(c.aliases, func(a, b string) int {
		if n := cmp.Compare(len(b), len(a)); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})
	return c, nil
}

func (c *Catalog) addAlias(alias string, idx int) {
	key := normalizeAlias(alias)
	if key == "" {
		return
	}
	if _, taken := c.byAlias[key]; !taken {
		c.byAlias[key] = idx
	}
}

// aliasesFor derives every accepted spelling of b.
func aliasesFor(b Book) []string {
	out := []string{b.Name, b.Abbreviation}
	out = append(out, extraAliases[b.Name]...)

	// "1 Corinthians" -> "1corinthians", "first corinthians", "1st corinthians".
	if num, rest, ok := strings.Cut(b.Name, " "); ok && len(num) == 1 && num[0] >= '1' && num[0] <= '3' {
		out = append(out, num+rest)
		for _, ord := range ordinalWords[num] {
			out = append(out, ord+" "+rest)
		}
	}
	return out
}

// normalizeAlias lowercases s, drops a trailing period and collapses runs of
// whitespace to single spaces.
func normalizeAlias(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Lookup resolves a raw book name (any case, abbreviated or spoken) to its
// canonical book.
func (c *Catalog) Lookup(name string) (Book, bool) {
	idx, ok := c.byAlias[normalizeAlias(name)]
	if !ok {
		return Book{}, false
	}
	return c.books[idx], true
}

// Books returns the catalog's books in canonical order.
func (c *Catalog) Books() []Book {
	return slices.Clone(c.books)
}

// Names returns the canonical book names in canonical order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.books))
	for i, b := range c.books {
		names[i] = b.Name
	}
	return names
}

// Aliases returns every accepted lowercase alias, longest first so that a
// regular-expression alternation built from it prefers "1 john" over "john".
func (c *Catalog) Aliases() []string {
	return slices.Clone(c.aliases)
}

var defaultCatalog = mustCatalog(defaultBooks)

func mustCatalog(books []Book) *Catalog {
	c, err := NewCatalog(books)
	if err != nil {
		panic("scripture: invalid built-in catalog: " + err.Error())
	}
	return c
}

// DefaultCatalog returns the built-in 66-book catalog.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}
