package caption_test

import (
	"testing"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/pkg/scripture"
)

func newExtractors() *caption.Extractors {
	return caption.NewExtractors(scripture.DefaultCatalog().Aliases())
}

func TestBookChapterWithNumberAtEnd(t *testing.T) {
	t.Parallel()

	e := newExtractors()
	tests := []struct {
		text    string
		book    string
		chapter string
		ok      bool
	}{
		{"We read Matthew chapter twelve.", "Matthew", "twelve", true},
		{"first John chapter two", "first John", "two", true},
		{"Romans chapter 8!  ", "Romans", "8", true},
		{"Psalm chapter one hundred and nineteen", "Psalm", "one hundred and nineteen", true},
		{"Matthew chapter twelve and more", "", "", false},
		{"Matthew chapter.", "", "", false},
		{"Zorgon chapter five.", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			m, ok := e.BookChapterWithNumberAtEnd(tc.text)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if m.Book != tc.book || m.Chapter != tc.chapter {
				t.Errorf("got book=%q chapter=%q, want %q %q", m.Book, m.Chapter, tc.book, tc.chapter)
			}
		})
	}
}

func TestBookChapterNoNumberAtEnd(t *testing.T) {
	t.Parallel()

	e := newExtractors()
	m, ok := e.BookChapterNoNumberAtEnd("Turn to Matthew chapter.")
	if !ok || m.Book != "Matthew" {
		t.Errorf("got (%+v, %v), want book Matthew", m, ok)
	}
	if _, ok := e.BookChapterNoNumberAtEnd("Matthew chapter twelve."); ok {
		t.Error("matched text with a trailing number")
	}
	if _, ok := e.BookChapterNoNumberAtEnd("Matthew chapter is long. Amen"); ok {
		t.Error("matched text not ending in chapter")
	}
}

func TestVerseAtStart(t *testing.T) {
	t.Parallel()

	e := newExtractors()
	tests := []struct {
		text       string
		start, end int
		verse      string
		ok         bool
	}{
		{"And verse one.", 0, 13, "one", true},
		{"  verse twenty-five!", 2, 19, "twenty-five", true},
		{"verse one hundred and one.", 0, 25, "one hundred and one", true},
		{"verse one and two", 0, 9, "one", true},
		{"verse 16", 0, 8, "16", true},
		{"The verse one", 0, 0, "", false},
		{"versed in it", 0, 0, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			m, ok := e.VerseAtStart(tc.text)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if m.Start != tc.start || m.End != tc.end || m.Verse != tc.verse {
				t.Errorf("got [%d,%d) verse=%q, want [%d,%d) %q", m.Start, m.End, m.Verse, tc.start, tc.end, tc.verse)
			}
		})
	}
}

func TestNumberAtStart(t *testing.T) {
	t.Parallel()

	e := newExtractors()
	tests := []struct {
		text    string
		end     int
		chapter string
		verse   string
		ok      bool
	}{
		{"Twelve.", 6, "Twelve", "", true},
		{"Twelve, verse one.", 17, "Twelve", "one", true},
		{"12 and verse 3", 14, "12", "3", true},
		{"twenty-one verse four", 21, "twenty-one", "four", true},
		{"Nothing here", 0, "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			t.Parallel()
			m, ok := e.NumberAtStart(tc.text)
			if ok != tc.ok {
				t.Fatalf("ok=%v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if m.Start != 0 || m.End != tc.end || m.Chapter != tc.chapter || m.Verse != tc.verse {
				t.Errorf("got %+v, want end=%d chapter=%q verse=%q", m, tc.end, tc.chapter, tc.verse)
			}
		})
	}
}

func TestChapterVerseInline(t *testing.T) {
	t.Parallel()

	e := newExtractors()
	text := "Romans chapter five verse eight and John chapter three, and verse sixteen."
	got := e.ChapterVerseInline(text)
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2: %+v", len(got), got)
	}
	if got[0].Book != "Romans" || got[0].Chapter != "five" || got[0].Verse != "eight" {
		t.Errorf("got[0]=%+v", got[0])
	}
	if text[got[0].Start:got[0].End] != "Romans chapter five verse eight" {
		t.Errorf("got[0] span=%q", text[got[0].Start:got[0].End])
	}
	if got[1].Book != "John" || got[1].Chapter != "three" || got[1].Verse != "sixteen" {
		t.Errorf("got[1]=%+v", got[1])
	}
}

func TestMayContainInline(t *testing.T) {
	t.Parallel()

	if !caption.MayContainInline("Chapter one, VERSE two") {
		t.Error("want true for text with chapter and verse")
	}
	if caption.MayContainInline("Matthew chapter twelve") {
		t.Error("want false without verse")
	}
}
