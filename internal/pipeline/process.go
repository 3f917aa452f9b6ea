package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/recognizer"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// Text sources reported in diagnostics.
const (
	SourceRecognizer = "recognizer"
	SourceDetector   = "detector"
	SourceText       = "text"
)

// Result carries a record together with the intermediate data that produced
// it, for overlays, detection dumps and diagnostics.
type Result struct {
	File       string
	Datetime   string
	Detection  *detector.Output
	Kept       []detector.Region
	Regions    []recognizer.RegionResult
	Lines      []string
	TextSource string
	Extraction extract.Result
	Duration   time.Duration
}

// Record builds the output record. With explain set it carries diagnostics.
func (r *Result) Record(explain bool) Record {
	rec := Record{File: r.File, Datetime: r.Datetime, Fields: r.Extraction.Fields}
	if explain {
		raw := 0
		if r.Detection != nil {
			raw = len(r.Detection.Regions)
		}
		rec.Diagnostics = &Diagnostics{
			TextSource:  r.TextSource,
			Lines:       r.Lines,
			Regions:     RegionStats{Raw: raw, Kept: len(r.Kept)},
			Recognition: recognizer.Summarize(r.Regions),
			Kept:        keptRegions(r.Kept, r.Regions),
			Matches:     r.Extraction.Matches,
			DurationMs:  r.Duration.Milliseconds(),
		}
	}
	return rec
}

// ProcessFile loads the image at path and processes it. Failures are returned
// as *ImageError; an unreadable image also matches ErrInput.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, &ImageError{Path: path, Err: fmt.Errorf("%w: %w", ErrInput, err)}
	}
	res, err := p.ProcessImage(ctx, filepath.Base(path), img)
	if err != nil {
		return nil, &ImageError{Path: path, Err: err}
	}
	return res, nil
}

// ProcessBytes decodes an encoded image and processes it under name.
func (p *Pipeline) ProcessBytes(ctx context.Context, name string, data []byte) (*Result, error) {
	img, _, err := utils.DecodeImage(data)
	if err != nil {
		return nil, &ImageError{Path: name, Err: fmt.Errorf("%w: %w", ErrInput, err)}
	}
	res, err := p.ProcessImage(ctx, name, img)
	if err != nil {
		return nil, &ImageError{Path: name, Err: err}
	}
	return res, nil
}

// ProcessImage runs the full pipeline on a decoded image.
func (p *Pipeline) ProcessImage(ctx context.Context, name string, img image.Image) (*Result, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	det, err := p.models.Detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}
	if det == nil {
		det = &detector.Output{}
	}
	kept := detector.Filter(det.Regions, p.cfg.Filter)

	var results []recognizer.RegionResult
	if p.adapter != nil {
		results = p.adapter.RecognizeRegions(ctx, img, kept)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recognition: %w", err)
	}
	lines, source, err := p.selectLines(results, kept, det)
	if err != nil {
		return nil, err
	}

	ext := p.extractor.ExtractLines(lines)
	sealRegions := det.Regions
	if p.cfg.SealRegions == SealFromFiltered {
		sealRegions = kept
	}
	ext.Fields.SealByLayout = ptr(detector.SealLikely(sealRegions))

	res := &Result{
		File:       name,
		Datetime:   p.now().Format(DateLayout),
		Detection:  det,
		Kept:       kept,
		Regions:    results,
		Lines:      lines,
		TextSource: source,
		Extraction: ext,
		Duration:   time.Since(start),
	}
	summary := recognizer.Summarize(results)
	p.logger.Info("Document processed",
		"image", name,
		"regions_raw", len(det.Regions),
		"regions_kept", len(kept),
		"recognized", summary.OK,
		"failed", summary.Failed+summary.Timeout,
		"lines", len(lines),
		"text_source", source,
		"fields_found", len(ext.Matches),
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// selectLines prefers recognizer output. Detector text is used when no
// recognizer is loaded, or when it produced no lines and fallback is on.
func (p *Pipeline) selectLines(results []recognizer.RegionResult, kept []detector.Region, det *detector.Output) ([]string, string, error) {
	if p.adapter != nil {
		lines := recognizer.Lines(results)
		if len(lines) > 0 || !p.cfg.FallbackDetectorText {
			return lines, SourceRecognizer, nil
		}
		if fallback := detectorLines(kept, det); len(fallback) > 0 {
			p.logger.Debug("Recognizer produced no text, using detector text", "lines", len(fallback))
			return fallback, SourceDetector, nil
		}
		return lines, SourceRecognizer, nil
	}

	if p.cfg.FallbackDetectorText {
		if fallback := detectorLines(kept, det); len(fallback) > 0 {
			return fallback, SourceDetector, nil
		}
	}
	if p.models.RecognizerErr != nil {
		return nil, "", errors.Join(ErrModelUnavailable, p.models.RecognizerErr)
	}
	return nil, "", ErrModelUnavailable
}

// detectorLines returns cleaned detector texts of the kept regions, or of all
// regions when none of the kept ones carry text.
func detectorLines(kept []detector.Region, det *detector.Output) []string {
	collect := func(regions []detector.Region) []string {
		out := make([]string, 0, len(regions))
		for _, r := range regions {
			if t := recognizer.CleanLine(r.Text); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	if lines := collect(kept); len(lines) > 0 {
		return lines
	}
	return collect(det.Regions)
}

func ptr[T any](v T) *T { return &v }
