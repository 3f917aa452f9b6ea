package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	reDateCanonical = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	reDateLong      = regexp.MustCompile(`(?i)ngày\s+(\d{1,2})\s+tháng\s+(\d{1,2})\s+năm\s+(\d{4})`)
	reDateSlash     = regexp.MustCompile(digitsL + `(\d{1,2})/(\d{1,2})/(\d{4})` + digitsR)
	reDateDash      = regexp.MustCompile(digitsL + `(\d{1,2})-(\d{1,2})-(\d{4})` + digitsR)
	reDateSpaced    = regexp.MustCompile(digitsL + `(\d{1,2})\s+(\d{1,2})\s+(\d{4})` + digitsR)
)

// DateRules matches, in priority order, "ngày D tháng M năm YYYY",
// "DD/MM/YYYY", "DD-MM-YYYY" and "DD MM YYYY". Values are YYYY-MM-DD.
func DateRules() Strategy {
	return Strategy{
		dateRule("long-form", reDateLong),
		dateRule("slash", reDateSlash),
		dateRule("dash", reDateDash),
		dateRule("spaced", reDateSpaced),
	}
}

// dateRule takes the first match whose day and month are in range, so a
// stray "45/13/2024" does not shadow a real date later in the text.
func dateRule(name string, re *regexp.Regexp) Rule {
	return Rule{Name: name, Find: func(doc *Document) (string, bool) {
		for _, m := range re.FindAllStringSubmatch(doc.Text, -1) {
			if v, ok := formatDate(m[1], m[2], m[3]); ok {
				return v, true
			}
		}
		return "", false
	}}
}

// NormalizeDate converts any supported date form to YYYY-MM-DD. Canonical
// input is returned unchanged.
func NormalizeDate(s string) (string, bool) {
	if m := reDateCanonical.FindStringSubmatch(s); m != nil {
		return formatDate(m[3], m[2], m[1])
	}
	v, _, ok := DateRules().Apply(NewDocument(s))
	return v, ok
}

func formatDate(day, month, year string) (string, bool) {
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return "", false
	}
	// time.Date normalizes overflow, so 31/02 comes back as a March date.
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}
