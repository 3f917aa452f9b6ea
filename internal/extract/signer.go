package extract

import "regexp"

var (
	reSignerBoard = regexp.MustCompile(`CHỦ TỊCH (?:HỘI ĐỒNG QUẢN TRỊ|HĐQT)[ \t]*\n\s*(\p{Lu}[\p{L} \t]*)`)
	reSignerChair = regexp.MustCompile(`(?s)CHỦ TỊCH.*?\n\s*(\p{Lu}[\p{L} \t]{1,30})`)
)

// SignerRules finds the name printed under the chairman's signature block.
// The block title is matched in upper case only, so the body phrase "Chủ tịch
// Hội đồng quản trị" does not count.
func SignerRules() Strategy {
	return Strategy{
		{Name: "board-chair-block", Find: signerRule(reSignerBoard)},
		{Name: "chair-block", Find: signerRule(reSignerChair)},
	}
}

func signerRule(re *regexp.Regexp) func(doc *Document) (string, bool) {
	return func(doc *Document) (string, bool) {
		for _, m := range re.FindAllStringSubmatch(doc.Text, -1) {
			if name, ok := cleanName(m[1], true); ok {
				return name, true
			}
		}
		return "", false
	}
}
