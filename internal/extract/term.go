package extract

import "regexp"

var reTerm = regexp.MustCompile(digitsL + `((?:19|20)\d{2}\s*[-–]\s*(?:19|20)\d{2})` + digitsR)

// TermRules finds a year range such as "2024-2029" or "2024 – 2029".
func TermRules() Strategy {
	return Strategy{regexRule("year-range", reTerm, stripSpaces)}
}
