package caption

import (
	"strconv"
	"strings"
)

var unitWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

// ordinalNumberWords map to the same value as their cardinal.
var ordinalNumberWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
	"eleventh": 11, "twelfth": 12, "thirteenth": 13, "fourteenth": 14, "fifteenth": 15,
	"sixteenth": 16, "seventeenth": 17, "eighteenth": 18, "nineteenth": 19, "twentieth": 20,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// maxSpokenNumber bounds parsed values well above any chapter or verse so
// that repeated "hundred" cannot overflow.
const maxSpokenNumber = 1_000_000

var phraseCleaner = strings.NewReplacer("-", " ", ",", "", ".", "")

// ParseSpokenNumber converts a spoken or digit number phrase ("12",
// "twenty-five", "one hundred and one", "fifth") to a positive integer.
//
// Any token outside the number vocabulary fails the whole parse; the parser
// never guesses. A value of zero is reported as a failure because chapters
// and verses are 1-indexed.
func ParseSpokenNumber(phrase string) (int, bool) {
	s := strings.TrimSpace(phraseCleaner.Replace(strings.ToLower(phrase)))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0 && n <= maxSpokenNumber
	}

	total := 0
	for _, tok := range strings.Fields(s) {
		switch tok {
		case "and":
			continue
		case "hundred":
			if total == 0 {
				total = 1
			}
			total *= 100
			if total > maxSpokenNumber {
				return 0, false
			}
			continue
		}
		v, ok := unitWords[tok]
		if !ok {
			v, ok = ordinalNumberWords[tok]
		}
		if !ok {
			v, ok = tensWords[tok]
		}
		if !ok {
			return 0, false
		}
		total += v
	}
	if total == 0 || total > maxSpokenNumber {
		return 0, false
	}
	return total, true
}

// numberVocabulary returns every word the number-phrase matcher accepts.
// "and" is only accepted directly after "hundred" so that "verse one and
// two" is not read as three.
func numberVocabulary() []string {
	words := []string{"hundred and", "hundred"}
	for _, m := range []map[string]int{unitWords, ordinalNumberWords, tensWords} {
		for w := range m {
			words = append(words, w)
		}
	}
	return words
}
