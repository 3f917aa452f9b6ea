// Package batch runs the extraction pipeline over many images and writes the
// aggregate artifacts.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

// Processor turns one image file into a pipeline result. *pipeline.Pipeline
// satisfies it.
type Processor interface {
	ProcessFile(ctx context.Context, path string) (*pipeline.Result, error)
}

// Failure records one image that could not be processed.
type Failure struct {
	File  string `json:"file" yaml:"file"`
	Error string `json:"error" yaml:"error"`
	Input bool   `json:"input_error" yaml:"input_error"`
}

// Result holds the outcome of a batch run.
type Result struct {
	RunID      string
	Records    []pipeline.Record
	Failures   []Failure
	ImagePaths []string
	Duration   time.Duration
}

// Run processes paths one at a time in order. Per-image failures are recorded
// and skipped. Cancellation is checked between images; on cancellation the
// partial result is returned together with the context error.
func Run(ctx context.Context, p Processor, paths []string, cfg Config) (*Result, error) {
	logger := cfg.logger()
	res := &Result{RunID: uuid.NewString(), ImagePaths: paths, Records: []pipeline.Record{}}
	logger = logger.With("run_id", res.RunID)
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			logger.Warn("Batch interrupted", "processed", i, "remaining", len(paths)-i)
			return res, err
		}

		var rec pipeline.Record
		out, err := p.ProcessFile(ctx, path)
		if err == nil {
			rec = out.Record(cfg.Explain)
			if cfg.Validate {
				if verr := pipeline.ValidateRecord(&rec); verr != nil {
					err = fmt.Errorf("record failed schema check: %w", verr)
				}
			}
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				logger.Warn("Batch interrupted", "processed", i, "remaining", len(paths)-i)
				return res, ctxErr
			}
			logger.Error("Image failed", "image", path, "error", err)
			res.Failures = append(res.Failures, Failure{
				File:  path,
				Error: err.Error(),
				Input: errors.Is(err, pipeline.ErrInput),
			})
			continue
		}

		if cfg.Recorder != nil {
			if _, err := cfg.Recorder.Insert(ctx, res.RunID, rec); err != nil {
				logger.Error("Failed to store record", "image", path, "error", err)
			}
		}
		res.Records = append(res.Records, rec)
	}

	logger.Info("Batch complete",
		"images", len(paths),
		"records", len(res.Records),
		"failures", len(res.Failures),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// WriteSummary prints processing statistics.
func (r *Result) WriteSummary(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Run: %s\n", r.RunID)
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", len(r.ImagePaths))
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", len(r.Records))
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", len(r.Failures))
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if n := len(r.ImagePaths); n > 0 && r.Duration > 0 {
		_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", (r.Duration / time.Duration(n)).Round(time.Millisecond))
	}
}
