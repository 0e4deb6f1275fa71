package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and removes all whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// NormalizeKey keeps only lowercased letters and digits, it is used to build
// storage keys out of free text like teacher names.
func NormalizeKey(text string) string {
	var out strings.Builder
	for _, c := range strings.ToLower(text) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			out.WriteRune(c)
		}
	}
	return out.String()
}

// SubjectSimilarityThreshold is the minimum Jaro-Winkler similarity for a
// subject filter to match when it is not a substring.
const SubjectSimilarityThreshold = 0.9

// MatchSubject reports whether a subject matches a user supplied filter. An
// empty filter matches everything.
func MatchSubject(subject, filter string) bool {
	filter = NormalizeKey(filter)
	if filter == "" {
		return true
	}
	subject = NormalizeKey(subject)
	if strings.Contains(subject, filter) {
		return true
	}
	return matchr.JaroWinkler(subject, filter, false) >= SubjectSimilarityThreshold
}
