package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Document is the text a rule runs against: the joined text and its lines.
type Document struct {
	Text  string
	Lines []string
}

// NewDocument NFC-normalizes text and splits it into lines. Blank lines are
// dropped from Lines but kept in Text.
func NewDocument(text string) *Document {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return &Document{Text: text, Lines: lines}
}

// NewDocumentFromLines joins lines with newlines.
func NewDocumentFromLines(lines []string) *Document {
	return NewDocument(strings.Join(lines, "\n"))
}

// Rule is one candidate heuristic for a field. Find reports the normalized
// value and whether the rule matched.
type Rule struct {
	Name string
	Find func(doc *Document) (string, bool)
}

// Strategy is an ordered rule list. Order is priority: earlier rules are more
// specific.
type Strategy []Rule

// Apply returns the value of the first matching rule and that rule's name.
func (s Strategy) Apply(doc *Document) (value, rule string, ok bool) {
	for _, r := range s {
		if v, found := r.Find(doc); found && v != "" {
			return v, r.Name, true
		}
	}
	return "", "", false
}

// Names lists the rule names in priority order.
func (s Strategy) Names() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = r.Name
	}
	return out
}
