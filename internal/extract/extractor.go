package extract

// Config selects the alternate strategies for fields that have two.
type Config struct {
	CompanyStrategy CompanyStrategy
	NameStrategy    NameStrategy
}

// DefaultConfig uses the regex company strategy and contextual names.
func DefaultConfig() Config {
	return Config{CompanyStrategy: CompanyRegex, NameStrategy: NameContextual}
}

// Extractor holds the rule list of every field. It is immutable and safe for
// concurrent use.
type Extractor struct {
	cfg        Config
	strategies []fieldStrategy
}

type fieldStrategy struct {
	key   string
	rules Strategy
	set   func(f *Fields, v string)
}

// New builds an Extractor. Unknown strategy names are rejected.
func New(cfg Config) (*Extractor, error) {
	company, err := ParseCompanyStrategy(string(cfg.CompanyStrategy))
	if err != nil {
		return nil, err
	}
	name, err := ParseNameStrategy(string(cfg.NameStrategy))
	if err != nil {
		return nil, err
	}
	cfg.CompanyStrategy, cfg.NameStrategy = company, name

	setString := func(dst func(f *Fields) **string) func(f *Fields, v string) {
		return func(f *Fields, v string) { *dst(f) = ptr(v) }
	}
	return &Extractor{cfg: cfg, strategies: []fieldStrategy{
		{KeyDecisionNumber, DecisionNumberRules(), setString(func(f *Fields) **string { return &f.DecisionNumber })},
		{KeyDecisionDate, DateRules(), setString(func(f *Fields) **string { return &f.DecisionDate })},
		{KeyAppointeeName, NameRules(name), setString(func(f *Fields) **string { return &f.AppointeeName })},
		{KeyPosition, PositionRules(), setString(func(f *Fields) **string { return &f.Position })},
		{KeyTerm, TermRules(), setString(func(f *Fields) **string { return &f.Term })},
		{KeyCompany, CompanyRules(company), setString(func(f *Fields) **string { return &f.Company })},
		{KeySignerName, SignerRules(), setString(func(f *Fields) **string { return &f.SignerName })},
		{KeySealPresent, SealRules(), func(f *Fields, v string) { f.SealPresent = ptr(v == "true") }},
	}}, nil
}

// Config returns the resolved configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Rules returns the rule names per field in priority order.
func (e *Extractor) Rules() map[string][]string {
	out := make(map[string][]string, len(e.strategies))
	for _, s := range e.strategies {
		out[s.key] = s.rules.Names()
	}
	return out
}

// Extract runs every field's rule list over text. Fields are independent; a
// miss leaves the field nil, except seal_present which is false on a miss.
func (e *Extractor) Extract(text string) Result {
	return e.ExtractDocument(NewDocument(text))
}

// ExtractLines joins lines with newlines and extracts from the result.
func (e *Extractor) ExtractLines(lines []string) Result {
	return e.ExtractDocument(NewDocumentFromLines(lines))
}

// ExtractDocument extracts from a prepared document.
func (e *Extractor) ExtractDocument(doc *Document) Result {
	var res Result
	for _, s := range e.strategies {
		v, rule, ok := s.rules.Apply(doc)
		if !ok {
			continue
		}
		s.set(&res.Fields, v)
		res.Matches = append(res.Matches, Match{Field: s.key, Rule: rule})
	}
	if res.Fields.SealPresent == nil {
		res.Fields.SealPresent = ptr(false)
	}
	return res
}
