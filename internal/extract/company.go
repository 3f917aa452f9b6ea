package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// CompanyStrategy selects how the company name is located.
type CompanyStrategy string

const (
	// CompanyRegex tries known company names, then a "CÔNG TY CỔ PHẦN/TNHH"
	// prefix followed by the rest of the name, over the whole text.
	CompanyRegex CompanyStrategy = "regex"
	// CompanyLines takes the first of the top 10 lines carrying a company
	// marker, else the first such line anywhere, with disallowed characters
	// stripped.
	CompanyLines CompanyStrategy = "lines"
)

// ParseCompanyStrategy validates a strategy name.
func ParseCompanyStrategy(s string) (CompanyStrategy, error) {
	switch CompanyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case CompanyRegex, "":
		return CompanyRegex, nil
	case CompanyLines:
		return CompanyLines, nil
	}
	return "", fmt.Errorf("unknown company strategy %q (want regex or lines)", s)
}

// KnownCompanies are matched before any generic pattern, case-insensitively.
var KnownCompanies = []string{
	"CÔNG TY CỔ PHẦN XÂY DỰNG BẢO TÀNG HỒ CHÍ MINH",
}

// companyHeaderLines is how many leading lines the lines strategy searches
// for the letterhead before falling back to the whole document.
const companyHeaderLines = 10

var (
	reCompanyUpper = regexp.MustCompile(`CÔNG TY (?:CỔ PHẦN|TNHH)([^\n]*)`)
	reCompanyMixed = regexp.MustCompile(`(?i)(công ty (?:cổ phần|tnhh)[\p{L} \t]*)`)

	reCompanyHeaderMarker = regexp.MustCompile(`(?i)` + wordStart + `(?:công ty cổ phần|công ty cp|công ty|cong ty|cty)` + wordEnd)
	reCompanyAnyMarker    = regexp.MustCompile(`(?i)` + wordStart + `(?:công ty|cong ty|cty)` + wordEnd)
)

// CompanyRules returns the rule list for strategy.
func CompanyRules(strategy CompanyStrategy) Strategy {
	if strategy == CompanyLines {
		return Strategy{
			{Name: "header-lines", Find: func(doc *Document) (string, bool) {
				return companyLine(doc.Lines[:min(len(doc.Lines), companyHeaderLines)], reCompanyHeaderMarker)
			}},
			{Name: "any-line", Find: func(doc *Document) (string, bool) {
				return companyLine(doc.Lines, reCompanyAnyMarker)
			}},
		}
	}
	rules := make(Strategy, 0, len(KnownCompanies)+2)
	for _, name := range KnownCompanies {
		re := regexp.MustCompile(`(` + literalPattern(name) + `)`)
		rules = append(rules, regexRule("known-name", re, collapseSpaces))
	}
	return append(rules,
		Rule{Name: "upper-case-name", Find: upperCaseCompany},
		regexRule("mixed-case-name", reCompanyMixed, collapseSpaces),
	)
}

// upperCaseCompany keeps the upper-case words that follow the company prefix,
// stopping at the first word with a lower-case letter.
func upperCaseCompany(doc *Document) (string, bool) {
	m := reCompanyUpper.FindStringSubmatchIndex(doc.Text)
	if m == nil {
		return "", false
	}
	prefix := doc.Text[m[0]:m[2]]
	words := make([]string, 0, 8)
	for _, w := range strings.Fields(doc.Text[m[2]:m[3]]) {
		if !isUpperWord(w) {
			break
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return "", false
	}
	return collapseSpaces(prefix + " " + strings.Join(words, " ")), true
}

func isUpperWord(w string) bool {
	letters := 0
	for _, r := range w {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r), strings.ContainsRune("&.-", r):
		default:
			return false
		}
	}
	return letters > 0
}

func companyLine(lines []string, marker *regexp.Regexp) (string, bool) {
	for _, l := range lines {
		if marker.MatchString(l) {
			v := strings.TrimSpace(keepCompanyChars(l))
			return v, v != ""
		}
	}
	return "", false
}

// keepCompanyChars drops everything except ASCII letters and digits, Latin
// letters with diacritics (U+00C0..U+1EF9), whitespace and . , / - & ( ).
func keepCompanyChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r >= 0x00C0 && r <= 0x1EF9:
		case unicode.IsSpace(r):
		case strings.ContainsRune(".,/-&()", r):
		default:
			return -1
		}
		return r
	}, s)
}
