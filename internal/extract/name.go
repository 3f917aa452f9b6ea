package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// NameStrategy selects the appointee-name rule list.
type NameStrategy string

const (
	// NameContextual prefers "bổ nhiệm Ông/Bà <name>" and then falls back to
	// the heuristics.
	NameContextual NameStrategy = "contextual"
	// NameHeuristic uses only the honorific, appointment-verb and name-label
	// heuristics.
	NameHeuristic NameStrategy = "heuristic"
)

// ParseNameStrategy validates a strategy name.
func ParseNameStrategy(s string) (NameStrategy, error) {
	switch NameStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case NameContextual, "":
		return NameContextual, nil
	case NameHeuristic:
		return NameHeuristic, nil
	}
	return "", fmt.Errorf("unknown name strategy %q (want contextual or heuristic)", s)
}

const minNameTokens = 2

var (
	reNameContext   = regexp.MustCompile(`(?i:bổ\s+nhiệm)\s+(?i:ông|bà)\s+(\p{Lu}[\p{L} \t]*)`)
	reNameHonorific = regexp.MustCompile(`(?i)` + wordStart + `(?:ông|bà)\s+(\p{L}[^\d,()\n]{2,60})`)
	reNameLabel     = regexp.MustCompile(`(?i)` + wordStart + `(?:họ và tên|họ tên|ho ten|tên)[:\s\-]+(\p{L}[^\n]{2,60})`)
	reAppointVerb   = regexp.MustCompile(`(?i)b[ổo]\s+nhi[ệe]m|b nhim`)
	reCapitalRun    = regexp.MustCompile(`\p{Lu}\p{Ll}{1,20}(?:[ \t]+\p{Lu}\p{Ll}{1,20}){0,3}`)

	// Truncation points for a captured name: a birth marker, a comma or an
	// opening parenthesis.
	reNameCut = regexp.MustCompile(`(?i)` + wordStart + `(?:năm\s+sinh|sinh)` + wordEnd + `|[,(]`)
)

// NameRules returns the appointee-name rule list for strategy.
func NameRules(strategy NameStrategy) Strategy {
	heuristics := Strategy{
		{Name: "honorific", Find: lineRule(reNameHonorific, true)},
		{Name: "appointment-verb", Find: appointmentVerbName},
		{Name: "name-label", Find: lineRule(reNameLabel, false)},
	}
	if strategy == NameHeuristic {
		return heuristics
	}
	return append(Strategy{{Name: "appointment-context", Find: contextualName}}, heuristics...)
}

// contextualName matches "bổ nhiệm Ông/Bà" directly followed by a capitalized
// run on the same line.
func contextualName(doc *Document) (string, bool) {
	for _, l := range doc.Lines {
		if v, ok := firstGroup(reNameContext, l); ok {
			if name, ok := cleanName(v, true); ok {
				return name, true
			}
		}
	}
	return "", false
}

// lineRule captures group 1 of re on the first line where the cleaned
// capture is a plausible full name.
func lineRule(re *regexp.Regexp, capitalized bool) func(doc *Document) (string, bool) {
	return func(doc *Document) (string, bool) {
		for _, l := range doc.Lines {
			v, ok := firstGroup(re, l)
			if !ok {
				continue
			}
			if name, ok := cleanName(v, capitalized); ok {
				return name, true
			}
		}
		return "", false
	}
}

// appointmentVerbName picks the longest capitalized run (1 to 4 words) on the
// first line carrying an appointment verb. Ties go to the earliest run. A
// leading honorific is dropped from the result.
func appointmentVerbName(doc *Document) (string, bool) {
	for _, l := range doc.Lines {
		if !reAppointVerb.MatchString(l) {
			continue
		}
		runs := reCapitalRun.FindAllString(l, -1)
		if len(runs) == 0 {
			continue
		}
		best := runs[0]
		for _, r := range runs[1:] {
			if len(strings.Fields(r)) > len(strings.Fields(best)) {
				best = r
			}
		}
		words := strings.Fields(best)
		if len(words) > 1 && (words[0] == "Ông" || words[0] == "Bà") {
			words = words[1:]
		}
		return strings.Join(words, " "), true
	}
	return "", false
}

// cleanName cuts a captured run at the first truncation point, blanks out
// characters that cannot be part of a name and requires at least two words.
// With capitalized set, the name ends at the first word that does not start
// with an upper-case letter.
func cleanName(s string, capitalized bool) (string, bool) {
	if loc := reNameCut.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= 0x00C0 && r <= 0x1EF9:
		case r == '-' || r == '\'':
		case unicode.IsSpace(r):
		default:
			return ' '
		}
		return r
	}, s)
	words := strings.Fields(s)
	if capitalized {
		n := 0
		for n < len(words) && startsUpper(words[n]) {
			n++
		}
		words = words[:n]
	}
	if len(words) < minNameTokens {
		return "", false
	}
	return strings.Join(words, " "), true
}

func startsUpper(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}
