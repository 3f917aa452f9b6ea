package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// RE2 has no Unicode-aware \b, so word edges are spelled out. A guard
// consumes one character, which is fine because matches are only read
// through capture groups.
const (
	wordStart = `(?:^|[^\p{L}\p{N}])`
	wordEnd   = `(?:[^\p{L}\p{N}]|$)`
	digitsL   = `(?:^|\D)`
	digitsR   = `(?:\D|$)`
)

// firstGroup returns capture group 1 of the first match of re in s.
func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil || len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// regexRule matches re against the joined text and normalizes group 1.
func regexRule(name string, re *regexp.Regexp, normalize func(string) string) Rule {
	return Rule{Name: name, Find: func(doc *Document) (string, bool) {
		v, ok := firstGroup(re, doc.Text)
		if !ok {
			return "", false
		}
		if normalize != nil {
			v = normalize(v)
		}
		return v, v != ""
	}}
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// literalPattern builds a case-insensitive pattern for a phrase, allowing any
// run of whitespace between its words.
func literalPattern(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return `(?i:` + strings.Join(words, `\s+`) + `)`
}
