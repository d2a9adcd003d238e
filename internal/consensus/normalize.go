package consensus

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// numberPattern matches an integer with an optional decimal fraction.
var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

var (
	affirmativeMarkers = []string{"yes", "true", "correct"}
	negativeMarkers    = []string{"no", "false", "incorrect"}
)

// Normalized keys produced for yes/no style answers.
const (
	KeyAffirmative = "affirmative"
	KeyNegative    = "negative"
	numberPrefix   = "number_"
)

// Normalize reduces an answer to a coarse key so that differently worded
// answers can be grouped together. Rules apply in order:
//
//  1. lower-case and trim;
//  2. the first number in the text yields "number_<n>";
//  3. any of yes/true/correct yields "affirmative";
//  4. any of no/false/incorrect yields "negative";
//  5. the first word longer than two characters that is not all digits;
//  6. otherwise the trimmed lower-cased text.
//
// Markers are matched as substrings, so "know" normalizes to "negative".
func Normalize(answer string) string {
	// Casers carry state and must not be shared between goroutines.
	normalized := strings.TrimSpace(cases.Lower(language.Und).String(answer))
	if normalized == "" {
		return ""
	}

	if n := numberPattern.FindString(normalized); n != "" {
		return numberPrefix + n
	}

	if containsAny(normalized, affirmativeMarkers) {
		return KeyAffirmative
	}
	if containsAny(normalized, negativeMarkers) {
		return KeyNegative
	}

	for _, word := range strings.Fields(normalized) {
		if utf8.RuneCountInString(word) > 2 && !isDigits(word) {
			return word
		}
	}
	return normalized
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
