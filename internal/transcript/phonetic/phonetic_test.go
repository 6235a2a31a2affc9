package phonetic_test

import (
	"testing"

	"github.com/MrWong99/versecap/internal/transcript/phonetic"
	"github.com/MrWong99/versecap/pkg/scripture"
)

func TestMatcher_MatchBook(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	tests := []struct {
		word string
		want string
	}{
		{"Romanz", "Romans"},
		{"Genisis", "Genesis"},
		{"matthew", "Matthew"},
		{"1 cor", "1 Corinthians"},
	}
	for _, tc := range tests {
		t.Run(tc.word, func(t *testing.T) {
			t.Parallel()
			got, conf, ok := m.MatchBook(tc.word)
			if !ok {
				t.Fatalf("MatchBook(%q): matched=false, want true", tc.word)
			}
			if got != tc.want {
				t.Errorf("MatchBook(%q)=%q, want %q", tc.word, got, tc.want)
			}
			if conf < 0.7 {
				t.Errorf("MatchBook(%q): confidence=%f, want >= 0.7", tc.word, conf)
			}
		})
	}
}

func TestMatcher_MatchBookExactHasFullConfidence(t *testing.T) {
	t.Parallel()

	_, conf, ok := phonetic.New().MatchBook("Rom")
	if !ok || conf != 1 {
		t.Errorf("MatchBook(Rom) = (%f, %v), want (1, true)", conf, ok)
	}
}

func TestMatcher_MatchBookNoMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	for _, word := range []string{"hello", "", "is", "banana"} {
		if got, _, ok := m.MatchBook(word); ok {
			t.Errorf("MatchBook(%q)=%q, want no match", word, got)
		}
	}
}

func TestMatcher_Match(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	corrected, conf, matched := m.Match("Thessalonions", []string{"Titus", "Thessalonians"})
	if !matched || corrected != "Thessalonians" {
		t.Fatalf("Match = (%q, %v), want Thessalonians", corrected, matched)
	}
	if conf < 0.9 {
		t.Errorf("confidence=%f, want >= 0.9", conf)
	}
}

func TestMatcher_MatchEmpty(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	corrected, conf, matched := m.Match("Romanz", nil)
	if matched || corrected != "Romanz" || conf != 0 {
		t.Errorf("Match with nil candidates = (%q, %f, %v)", corrected, conf, matched)
	}
	corrected, conf, matched = m.Match("", []string{"Romans"})
	if matched || corrected != "" || conf != 0 {
		t.Errorf("Match with empty word = (%q, %f, %v)", corrected, conf, matched)
	}
}

func TestMatcher_ThresholdFiltering(t *testing.T) {
	t.Parallel()

	m := phonetic.New(
		phonetic.WithPhoneticThreshold(0.99),
		phonetic.WithFuzzyThreshold(0.99),
	)
	if got, _, ok := m.MatchBook("Romanz"); ok {
		t.Errorf("MatchBook with threshold 0.99 matched %q", got)
	}
}

func TestMatcher_WithCatalog(t *testing.T) {
	t.Parallel()

	cat, err := scripture.NewCatalog([]scripture.Book{
		{ID: 45, Name: "Romans", Abbreviation: "Rom", Chapters: 16},
		{ID: 65, Name: "Jude", Abbreviation: "Jude", Chapters: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	m := phonetic.New(phonetic.WithCatalog(cat))
	if got, _, ok := m.MatchBook("Genisis"); ok {
		t.Errorf("MatchBook(Genisis)=%q with a catalog lacking Genesis", got)
	}
	if got, _, ok := m.MatchBook("Romanz"); !ok || got != "Romans" {
		t.Errorf("MatchBook(Romanz)=(%q, %v), want Romans", got, ok)
	}
}
