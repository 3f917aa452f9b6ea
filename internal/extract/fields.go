// Package extract parses the recognized text of a Vietnamese appointment
// decision into a fixed set of fields. Each field is found by an ordered list
// of rules; the first rule that matches wins and a field no rule matches is
// left nil.
package extract

// Field keys, in output order.
const (
	KeyDecisionNumber = "decision_number"
	KeyDecisionDate   = "decision_date"
	KeyAppointeeName  = "appointee_name"
	KeyPosition       = "position"
	KeyTerm           = "term"
	KeyCompany        = "company"
	KeySignerName     = "signer_name"
	KeySealPresent    = "seal_present"
	KeySealByLayout   = "seal_by_layout"
)

// Keys lists every field key. Serialized records always carry all of them.
var Keys = []string{
	KeyDecisionNumber,
	KeyDecisionDate,
	KeyAppointeeName,
	KeyPosition,
	KeyTerm,
	KeyCompany,
	KeySignerName,
	KeySealPresent,
	KeySealByLayout,
}

// Fields is the field record for one document. A nil pointer means "not
// found" and serializes as null.
type Fields struct {
	DecisionNumber *string `json:"decision_number" yaml:"decision_number"`
	DecisionDate   *string `json:"decision_date" yaml:"decision_date"`
	AppointeeName  *string `json:"appointee_name" yaml:"appointee_name"`
	Position       *string `json:"position" yaml:"position"`
	Term           *string `json:"term" yaml:"term"`
	Company        *string `json:"company" yaml:"company"`
	SignerName     *string `json:"signer_name" yaml:"signer_name"`
	// SealPresent is the textual seal signal: a seal keyword occurs in the text.
	SealPresent *bool `json:"seal_present" yaml:"seal_present"`
	// SealByLayout is the geometric seal signal from region sizes. It stays nil
	// when fields were extracted from text alone.
	SealByLayout *bool `json:"seal_by_layout" yaml:"seal_by_layout"`
}

// Map returns the fields keyed by name with absent values as nil.
func (f Fields) Map() map[string]any {
	m := make(map[string]any, len(Keys))
	putString := func(k string, v *string) {
		if v == nil {
			m[k] = nil
			return
		}
		m[k] = *v
	}
	putBool := func(k string, v *bool) {
		if v == nil {
			m[k] = nil
			return
		}
		m[k] = *v
	}
	putString(KeyDecisionNumber, f.DecisionNumber)
	putString(KeyDecisionDate, f.DecisionDate)
	putString(KeyAppointeeName, f.AppointeeName)
	putString(KeyPosition, f.Position)
	putString(KeyTerm, f.Term)
	putString(KeyCompany, f.Company)
	putString(KeySignerName, f.SignerName)
	putBool(KeySealPresent, f.SealPresent)
	putBool(KeySealByLayout, f.SealByLayout)
	return m
}

// Match records which rule produced a field.
type Match struct {
	Field string `json:"field" yaml:"field"`
	Rule  string `json:"rule" yaml:"rule"`
}

// Result is the output of one extraction.
type Result struct {
	Fields  Fields
	Matches []Match
}

// Rule returns the rule that produced field, or "" if the field is absent.
func (r Result) Rule(field string) string {
	for _, m := range r.Matches {
		if m.Field == field {
			return m.Rule
		}
	}
	return ""
}

func ptr[T any](v T) *T { return &v }
