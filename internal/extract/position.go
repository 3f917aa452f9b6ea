package extract

import "regexp"

// Positions is the title list, most specific first. A title that contains
// another ("Phó Tổng Giám đốc" contains "Giám đốc") must come before it.
var Positions = []string{
	"Phó Tổng Giám đốc",
	"Tổng Giám đốc",
	"Phó Giám đốc",
	"Giám đốc",
	"Kế toán trưởng",
	"Phó Chủ tịch",
	"Chủ tịch",
	"Thư ký",
	"Thành viên Hội đồng quản trị",
	"Thành viên HĐQT",
	"Thành viên Hội đồng",
}

// PositionRules matches each title case-insensitively as a whole phrase and
// reports it in the spelling of Positions.
func PositionRules() Strategy {
	rules := make(Strategy, len(Positions))
	for i, title := range Positions {
		re := regexp.MustCompile(wordStart + literalPattern(title) + wordEnd)
		rules[i] = Rule{Name: title, Find: func(doc *Document) (string, bool) {
			if re.MatchString(doc.Text) {
				return title, true
			}
			return "", false
		}}
	}
	return rules
}
