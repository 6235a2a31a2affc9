package caption_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/versecap/internal/caption"
)

func TestParseSpokenNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phrase string
		want   int
		ok     bool
	}{
		{"twelve", 12, true},
		{"twenty-five", 25, true},
		{"one hundred and one", 101, true},
		{"fifth", 5, true},
		{"banana", 0, false},
		{"12", 12, true},
		{"Twenty Five.", 25, true},
		{"twenty first", 21, true},
		{"twentieth", 20, true},
		{"hundred", 100, true},
		{"one hundred fifty", 150, true},
		{"one hundred, twenty", 120, true},
		{"zero", 0, false},
		{"0", 0, false},
		{"", 0, false},
		{"  ", 0, false},
		{"one banana", 0, false},
		{"and", 0, false},
		{"one hundred hundred hundred", 1_000_000, true},
		{"one hundred hundred hundred five", 0, false},
		{"ten hundred hundred hundred", 0, false},
		{strings.Repeat("hundred ", 10), 0, false},
		{"1000001", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.phrase, func(t *testing.T) {
			t.Parallel()
			got, ok := caption.ParseSpokenNumber(tc.phrase)
			if ok != tc.ok || got != tc.want {
				t.Errorf("ParseSpokenNumber(%q) = (%d, %v), want (%d, %v)", tc.phrase, got, ok, tc.want, tc.ok)
			}
		})
	}
}
