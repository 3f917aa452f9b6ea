package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// Status is the outcome of recognizing one region.
type Status string

const (
	StatusOK      Status = "ok"
	StatusEmpty   Status = "empty"   // recognized, but nothing left after cleaning
	StatusSkipped Status = "skipped" // degenerate after clamping, or canceled before start
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// RegionResult records what happened to one region.
type RegionResult struct {
	Region   detector.Region
	Status   Status
	Text     string
	Reason   string
	Err      error
	Duration time.Duration
}

// AdapterConfig controls per-region recognition.
type AdapterConfig struct {
	// Workers > 1 recognizes regions concurrently. Output order is unaffected.
	Workers int
	// Timeout bounds each region attempt; zero disables it.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failure. Timeouts are not retried.
	Retries    int
	RetryDelay time.Duration
}

// DefaultAdapterConfig returns sequential recognition with a 10s per-region bound.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{Workers: 1, Timeout: 10 * time.Second, RetryDelay: 200 * time.Millisecond}
}

// Adapter crops regions out of an image and feeds them to a Recognizer,
// isolating failures per region.
type Adapter struct {
	rec    Recognizer
	cfg    AdapterConfig
	logger *slog.Logger
}

// NewAdapter builds an Adapter. A nil logger uses slog.Default().
func NewAdapter(rec Recognizer, cfg AdapterConfig, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Adapter{rec: rec, cfg: cfg, logger: logger}
}

// RecognizeRegions returns one result per region, in region order. It never
// fails as a whole: every problem is recorded on the region it belongs to.
func (a *Adapter) RecognizeRegions(ctx context.Context, img image.Image, regions []detector.Region) []RegionResult {
	results := make([]RegionResult, len(regions))
	if len(regions) == 0 {
		return results
	}
	b := img.Bounds()

	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)
	for i, r := range regions {
		g.Go(func() error {
			results[i] = a.recognizeOne(ctx, img, b.Dx(), b.Dy(), r)
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		switch res.Status {
		case StatusFailed, StatusTimeout:
			a.logger.Warn("Region recognition failed", "position", i, "region", res.Region.Index,
				"status", res.Status, "reason", res.Reason)
		case StatusSkipped:
			a.logger.Debug("Region skipped", "position", i, "region", res.Region.Index, "reason", res.Reason)
		}
	}
	return results
}

func (a *Adapter) recognizeOne(ctx context.Context, img image.Image, w, h int, r detector.Region) RegionResult {
	res := RegionResult{Region: r}
	if err := ctx.Err(); err != nil {
		res.Status, res.Err, res.Reason = StatusSkipped, err, err.Error()
		return res
	}
	rect := utils.ClampRect(r.Box, w, h)
	if rect.Empty() {
		res.Status, res.Err, res.Reason = StatusSkipped, ErrDegenerateRegion, ErrDegenerateRegion.Error()
		return res
	}
	crop := utils.Crop(img, rect)

	start := time.Now()
	text, err := a.recognizeWithRetry(ctx, crop)
	res.Duration = time.Since(start)
	switch {
	case errors.Is(err, ErrTimeout):
		res.Status, res.Err, res.Reason = StatusTimeout, err, err.Error()
	case err != nil:
		res.Status, res.Err, res.Reason = StatusFailed, err, err.Error()
	default:
		res.Text = CleanLine(text)
		res.Status = StatusOK
		if res.Text == "" {
			res.Status = StatusEmpty
		}
	}
	return res
}

func (a *Adapter) recognizeWithRetry(ctx context.Context, crop image.Image) (string, error) {
	if a.cfg.Retries <= 0 {
		return a.attempt(ctx, crop)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.cfg.RetryDelay), uint64(a.cfg.Retries)), ctx)
	return backoff.RetryWithData(func() (string, error) {
		text, err := a.attempt(ctx, crop)
		if errors.Is(err, ErrTimeout) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}, policy)
}

type outcome struct {
	text string
	err  error
}

// attempt runs one recognizer call under the per-region deadline. The call runs
// on its own goroutine so a recognizer that ignores ctx still cannot hold up
// the batch past the deadline.
func (a *Adapter) attempt(ctx context.Context, crop image.Image) (string, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("recognizer panic: %v", p)}
			}
		}()
		text, err := a.rec.Recognize(ctx, crop)
		done <- outcome{text: text, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && a.cfg.Timeout > 0 {
			return "", fmt.Errorf("%w after %s", ErrTimeout, a.cfg.Timeout)
		}
		return o.text, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && a.cfg.Timeout > 0 {
			return "", fmt.Errorf("%w after %s", ErrTimeout, a.cfg.Timeout)
		}
		return "", ctx.Err()
	}
}

// Lines returns the text of successful recognitions in order. Failed, skipped
// and empty regions leave no placeholder.
func Lines(results []RegionResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Status == StatusOK {
			out = append(out, r.Text)
		}
	}
	return out
}

// Summary counts region outcomes.
type Summary struct {
	Total   int `json:"total"`
	OK      int `json:"ok"`
	Empty   int `json:"empty"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Timeout int `json:"timeout"`
}

// Summarize counts results by status.
func Summarize(results []RegionResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusEmpty:
			s.Empty++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusTimeout:
			s.Timeout++
		}
	}
	return s
}
