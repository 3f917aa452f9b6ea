package extract

import "regexp"

// SealKeywords signal a seal when they occur anywhere in the text.
var SealKeywords = []string{"con dấu", "dấu", "seal", "stamp"}

// SealRules reports "true" for the first keyword found. The extractor turns a
// miss into false, since the textual signal is always reported.
func SealRules() Strategy {
	rules := make(Strategy, len(SealKeywords))
	for i, kw := range SealKeywords {
		re := regexp.MustCompile(literalPattern(kw))
		rules[i] = Rule{Name: kw, Find: func(doc *Document) (string, bool) {
			if re.MatchString(doc.Text) {
				return "true", true
			}
			return "", false
		}}
	}
	return rules
}
