package capture

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// digitWords maps spoken number words to their digit, covering German,
// English, and French since those are the languages the assistant speaks.
// "plus" is included so "plus three three ..." survives as an international
// prefix.
var digitWords = map[string]string{
	"null": "0", "zero": "0", "zéro": "0",
	"eins": "1", "ein": "1", "one": "1", "un": "1", "une": "1",
	"zwei": "2", "zwo": "2", "two": "2", "deux": "2",
	"drei": "3", "three": "3", "trois": "3",
	"vier": "4", "four": "4", "quatre": "4",
	"fünf": "5", "five": "5", "cinq": "5",
	"sechs": "6", "six": "6",
	"sieben": "7", "seven": "7", "sept": "7",
	"acht": "8", "eight": "8", "huit": "8",
	"neun": "9", "nine": "9", "neuf": "9",
	"plus": "+",
}

// jaroWinklerThreshold is the minimum similarity for a fuzzy match between a
// transcribed token and a known digit word.
const jaroWinklerThreshold = 0.85

// RepairSpokenDigits rewrites number words in a transcription to their digit
// characters, leaving everything else untouched. Exact (case-insensitive)
// matches are taken first; letters-only tokens that match no word directly
// are compared phonetically via Double Metaphone and by Jaro-Winkler
// similarity, so common mistranscriptions like "to" for "two" or "for" for
// "four" still resolve.
func RepairSpokenDigits(raw string) string {
	fields := strings.Fields(raw)
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		out = append(out, repairToken(field))
	}
	return strings.Join(out, " ")
}

func repairToken(token string) string {
	lower := strings.ToLower(strings.Trim(token, ".,;:!?"))
	if lower == "" {
		return token
	}
	if digit, ok := digitWords[lower]; ok {
		return digit
	}
	if !lettersOnly(lower) {
		return token
	}

	primary, secondary := matchr.DoubleMetaphone(lower)
	for word, digit := range digitWords {
		wp, ws := matchr.DoubleMetaphone(word)
		if !phoneticOverlap(primary, secondary, wp, ws) {
			continue
		}
		if matchr.JaroWinkler(lower, word, false) >= jaroWinklerThreshold {
			return digit
		}
	}
	return token
}

func lettersOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func phoneticOverlap(ap, as, bp, bs string) bool {
	if ap == "" && as == "" {
		return false
	}
	for _, a := range []string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || (bs != "" && a == bs) {
			return true
		}
	}
	return false
}
