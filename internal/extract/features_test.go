package extract_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/qdocr/internal/extract"
)

type featureContext struct {
	extractor *extract.Extractor
	text      string
	result    extract.Result
}

func (c *featureContext) defaultExtractor() error {
	e, err := extract.New(extract.DefaultConfig())
	c.extractor = e
	return err
}

func (c *featureContext) extractorWith(company, name string) error {
	e, err := extract.New(extract.Config{
		CompanyStrategy: extract.CompanyStrategy(company),
		NameStrategy:    extract.NameStrategy(name),
	})
	c.extractor = e
	return err
}

func (c *featureContext) recognizedText(text string) error {
	c.text = text
	return nil
}

func (c *featureContext) recognizedDocString(doc *godog.DocString) error {
	c.text = doc.Content
	return nil
}

func (c *featureContext) extract() error {
	c.result = c.extractor.Extract(c.text)
	return nil
}

func (c *featureContext) fieldIs(key, want string) error {
	v, ok := c.result.Fields.Map()[key]
	if !ok {
		return fmt.Errorf("unknown field %q", key)
	}
	if v == nil {
		return fmt.Errorf("field %q is absent, want %q", key, want)
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("field %q = %q, want %q", key, got, want)
	}
	return nil
}

func (c *featureContext) fieldAbsent(key string) error {
	if v := c.result.Fields.Map()[key]; v != nil {
		return fmt.Errorf("field %q = %v, want absent", key, v)
	}
	return nil
}

func (c *featureContext) fieldRule(key, rule string) error {
	if got := c.result.Rule(key); got != rule {
		return fmt.Errorf("field %q came from rule %q, want %q", key, got, rule)
	}
	return nil
}

func initializeScenario(sc *godog.ScenarioContext) {
	c := &featureContext{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		*c = featureContext{}
		return ctx, nil
	})

	sc.Step(`^the default extractor$`, c.defaultExtractor)
	sc.Step(`^an extractor with company strategy "([^"]*)" and name strategy "([^"]*)"$`, c.extractorWith)
	sc.Step(`^the recognized text "([^"]*)"$`, c.recognizedText)
	sc.Step(`^the recognized text:$`, c.recognizedDocString)
	sc.Step(`^the fields are extracted$`, c.extract)
	sc.Step(`^field "([^"]*)" is "([^"]*)"$`, c.fieldIs)
	sc.Step(`^field "([^"]*)" is absent$`, c.fieldAbsent)
	sc.Step(`^field "([^"]*)" came from rule "([^"]*)"$`, c.fieldRule)
}

func TestFeatures(t *testing.T) {
	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "progress"
	}
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   format,
			Tags:     os.Getenv("GODOG_TAGS"),
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
