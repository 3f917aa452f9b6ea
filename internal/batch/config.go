package batch

import (
	"context"
	"log/slog"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

// Default artifact names.
const (
	DefaultResultsFile  = "batch_results.json"
	DefaultFailuresFile = "batch_failures.json"
)

// Recorder persists records as they are produced.
type Recorder interface {
	Insert(ctx context.Context, runID string, rec pipeline.Record) (string, error)
}

// Config holds all configuration for a batch run.
type Config struct {
	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	OutputDir    string
	ResultsFile  string
	FailuresFile string
	WriteYAML    bool
	XLSXFile     string // empty disables the workbook
	Explain      bool
	Validate     bool // check each record against the output schema

	// Recorder, when set, receives every record tagged with the run ID.
	Recorder Recorder
	Logger   *slog.Logger
}

// DefaultConfig returns the stock batch settings.
func DefaultConfig() Config {
	return Config{
		OutputDir:    "outputs",
		ResultsFile:  DefaultResultsFile,
		FailuresFile: DefaultFailuresFile,
		Validate:     true,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
