package quiz

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matches reports whether guess is an acceptable answer for the given answer
// groups. Each group is a `;`-separated list of synonyms that must all be
// present in the guess; any single satisfied group makes the guess correct.
//
// Matching is case- and diacritics-insensitive. Within a stored synonym,
// internal whitespace matches any run of characters and apostrophes/hyphens
// match any single character, so "jean-pierre", "jean pierre" and
// "Jean Pierre Dupont" all satisfy the synonym "Jean Pierre". The whitespace
// wildcard is deliberately permissive (it accepts extra words inserted
// mid-answer); that matches the historical behavior and tightening it is a
// product decision.
func Matches(groups []string, guess string) bool {
	folded := strings.ReplaceAll(foldDiacritics(guess), "-", " ")
	for _, group := range groups {
		if groupMatches(group, folded) {
			return true
		}
	}
	return false
}

func groupMatches(group, foldedGuess string) bool {
	parts := strings.Split(group, ";")
	matched := 0
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !compilePattern(part).MatchString(foldedGuess) {
			return false
		}
		matched++
	}
	return matched > 0
}

// compilePattern turns a stored synonym into a substring-anchored,
// case-insensitive predicate. Character runs are classified as:
//   - whitespace: greedy wildcard (.*)
//   - apostrophe or hyphen: single-character wildcard (.) to tolerate
//     straight vs. curly quotes and hyphenation variants
//   - anything else: literal
//
// When a synonym starts or ends with a word character that edge is pinned to
// a word boundary, so "paris" is found inside "c'est Paris !" but not inside
// "pariss".
func compilePattern(form string) *regexp.Regexp {
	folded := foldDiacritics(form)
	var b strings.Builder
	b.WriteString("(?is)")
	first, last := edgeRunes(folded)
	if isASCIIWord(first) {
		b.WriteString(`\b`)
	}
	prevSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteString(".*")
			}
			prevSpace = true
			continue
		case r == '\'' || r == '’' || r == '-':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
		prevSpace = false
	}
	if isASCIIWord(last) {
		b.WriteString(`\b`)
	}
	return regexp.MustCompile(b.String())
}

func edgeRunes(s string) (first, last rune) {
	for _, r := range s {
		first = r
		break
	}
	for _, r := range s {
		last = r
	}
	return first, last
}

// isASCIIWord mirrors RE2's ASCII \b word class; non-ASCII edges are left
// unanchored rather than risk a boundary that can never match.
func isASCIIWord(r rune) bool {
	return r < 128 && (r == '_' ||
		('0' <= r && r <= '9') ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z'))
}

var diacriticsFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldDiacritics maps accented characters to their base Latin letters
// ("café" -> "cafe"). Input that fails to transform is returned unchanged.
func foldDiacritics(s string) string {
	out, _, err := transform.String(diacriticsFolder, s)
	if err != nil {
		return s
	}
	return out
}
