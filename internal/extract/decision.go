package extract

import "regexp"

// Agency codes use upper-case Latin plus the Vietnamese letters that appear
// in abbreviations (Đ, Â, Ă, Ơ, Ư).
const agencyCode = `[A-ZĐÂĂƠƯ\-]+`

var (
	reDecisionPrefixed = regexp.MustCompile(`(?i)` + wordStart + `Số\s*:?\s*(\d+\.\d+\.?\s*/\s*QĐ-` + agencyCode + `)`)
	reDecisionDotted   = regexp.MustCompile(`(?i)(\d+\.\d+\.?\s*/\s*QĐ-` + agencyCode + `)`)
	reDecisionPlain    = regexp.MustCompile(`(?i)(\d+\s*/\s*QĐ-` + agencyCode + `)`)
	reDecisionBare     = regexp.MustCompile(`(?i)(\d+\s*/\s*` + agencyCode + `)`)
)

// DecisionNumberRules finds numbers such as "14.6./QĐ-HĐQT" or "123/QĐ-HĐQT",
// most specific form first. Whitespace inside the match is removed.
func DecisionNumberRules() Strategy {
	return Strategy{
		regexRule("so-prefixed", reDecisionPrefixed, stripSpaces),
		regexRule("dotted", reDecisionDotted, stripSpaces),
		regexRule("qd-code", reDecisionPlain, stripSpaces),
		regexRule("bare", reDecisionBare, stripSpaces),
	}
}
