package testutil

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/qdocr/internal/detector"
)

// StaticDetector returns the same output for every image.
type StaticDetector struct {
	Output *detector.Output
	Err    error
	calls  atomic.Int32
	closed atomic.Bool
}

// Detect returns a copy of the configured output with the image size filled in.
func (d *StaticDetector) Detect(ctx context.Context, img image.Image) (*detector.Output, error) {
	d.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	out := &detector.Output{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if d.Output != nil {
		out.Regions = append([]detector.Region(nil), d.Output.Regions...)
	}
	return out, nil
}

// Close marks the detector closed.
func (d *StaticDetector) Close() error {
	d.closed.Store(true)
	return nil
}

// Calls reports how many times Detect ran.
func (d *StaticDetector) Calls() int { return int(d.calls.Load()) }

// Closed reports whether Close ran.
func (d *StaticDetector) Closed() bool { return d.closed.Load() }

// PageDetector returns one scored region per page line. With WithText set the
// regions also carry the line text, like a detector with its own recognizer.
func PageDetector(p *Page, withText bool) *StaticDetector {
	regions := make([]detector.Region, len(p.Boxes))
	for i, b := range p.Boxes {
		regions[i] = detector.FromBox(i, b, detector.Score(0.9))
		if withText {
			regions[i].Text = p.Texts[i]
		}
	}
	return &StaticDetector{Output: &detector.Output{Regions: regions}}
}

// PageRecognizer reads page lines back from their marker pixel. Lines listed
// in Fail return an error.
type PageRecognizer struct {
	Page *Page
	Fail map[int]error

	mu    sync.Mutex
	seen  []int
	calls atomic.Int32
}

// ErrNoMarker is returned for crops that do not start at a page line.
var ErrNoMarker = errors.New("crop has no line marker")

// Recognize returns the text of the line the crop was cut from.
func (r *PageRecognizer) Recognize(ctx context.Context, crop image.Image) (string, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	idx := LineIndex(crop)
	if idx < 0 || idx >= len(r.Page.Texts) {
		return "", ErrNoMarker
	}
	r.mu.Lock()
	r.seen = append(r.seen, idx)
	r.mu.Unlock()
	if err := r.Fail[idx]; err != nil {
		return "", fmt.Errorf("line %d: %w", idx, err)
	}
	return r.Page.Texts[idx], nil
}

// Close is a no-op.
func (r *PageRecognizer) Close() error { return nil }

// Calls reports how many times Recognize ran.
func (r *PageRecognizer) Calls() int { return int(r.calls.Load()) }
