package caption

import (
	"errors"
	"fmt"
)

// PendingKind names the state of a [Pending] value.
type PendingKind string

const (
	KindNone            PendingKind = "none"
	KindAwaitingChapter PendingKind = "awaiting_chapter"
	KindAwaitingVerse   PendingKind = "awaiting_verse"
)

// Pending is the partial reference carried from one finalized segment to the
// next. It is one of [NoPending], [AwaitingChapter] or [AwaitingVerse]; the set
// is closed. A nil Pending is treated as [NoPending].
//
// A pending value lives for exactly one hop: it is produced while formatting
// one finalized segment and consumed, completed or expired, by the next.
type Pending interface {
	Kind() PendingKind
	pending()
}

// NoPending means no partial reference is being carried.
type NoPending struct{}

// AwaitingChapter follows a segment ending in "<book> chapter".
type AwaitingChapter struct {
	// BookRaw is the book name as spoken.
	BookRaw string
	// Book is the canonical book name.
	Book string
}

// AwaitingVerse follows a segment ending in "<book> chapter <number>". Chapter
// is always at least 1.
type AwaitingVerse struct {
	BookRaw string
	Book    string
	Chapter int
}

func (NoPending) Kind() PendingKind       { return KindNone }
func (AwaitingChapter) Kind() PendingKind { return KindAwaitingChapter }
func (AwaitingVerse) Kind() PendingKind   { return KindAwaitingVerse }

func (NoPending) pending()       {}
func (AwaitingChapter) pending() {}
func (AwaitingVerse) pending()   {}

// NewAwaitingVerse returns an [AwaitingVerse] or an error when chapter is not
// positive or book is empty.
func NewAwaitingVerse(bookRaw, book string, chapter int) (AwaitingVerse, error) {
	if book == "" {
		return AwaitingVerse{}, errors.New("caption: awaiting verse without book")
	}
	if chapter < 1 {
		return AwaitingVerse{}, fmt.Errorf("caption: awaiting verse with chapter %d", chapter)
	}
	return AwaitingVerse{BookRaw: bookRaw, Book: book, Chapter: chapter}, nil
}

// NewAwaitingChapter returns an [AwaitingChapter] or an error when book is
// empty.
func NewAwaitingChapter(bookRaw, book string) (AwaitingChapter, error) {
	if book == "" {
		return AwaitingChapter{}, errors.New("caption: awaiting chapter without book")
	}
	return AwaitingChapter{BookRaw: bookRaw, Book: book}, nil
}

// PendingState is the wire form of a [Pending] value, used by callers that
// keep the carry between requests:
//
//	{"state":"awaiting_verse","book":"Matthew","book_raw":"matthew","chapter":12}
type PendingState struct {
	State   PendingKind `json:"state"`
	Book    string      `json:"book,omitempty"`
	BookRaw string      `json:"book_raw,omitempty"`
	Chapter int         `json:"chapter,omitempty"`
}

// StateOf converts p to its wire form.
func StateOf(p Pending) PendingState {
	switch v := p.(type) {
	case AwaitingChapter:
		return PendingState{State: KindAwaitingChapter, Book: v.Book, BookRaw: v.BookRaw}
	case AwaitingVerse:
		return PendingState{State: KindAwaitingVerse, Book: v.Book, BookRaw: v.BookRaw, Chapter: v.Chapter}
	default:
		return PendingState{State: KindNone}
	}
}

// Pending converts s back to a [Pending] value, enforcing the same invariants
// as the constructors. An empty state is [NoPending].
func (s PendingState) Pending() (Pending, error) {
	switch s.State {
	case "", KindNone:
		return NoPending{}, nil
	case KindAwaitingChapter:
		if s.Chapter != 0 {
			return nil, errors.New("caption: awaiting chapter must not carry a chapter")
		}
		return NewAwaitingChapter(s.BookRaw, s.Book)
	case KindAwaitingVerse:
		return NewAwaitingVerse(s.BookRaw, s.Book, s.Chapter)
	default:
		return nil, fmt.Errorf("caption: unknown pending state %q", s.State)
	}
}

func kindOf(p Pending) PendingKind {
	if p == nil {
		return KindNone
	}
	return p.Kind()
}
