//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/qdocr/internal/detector"
)

// Engine wraps one gosseract client. The client is not safe for concurrent
// use, so calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates an engine with the configured language data loaded.
func New(cfg Config) (*Engine, error) {
	client := gosseract.NewClient()
	lang := cfg.Language
	if lang == "" {
		lang = DefaultConfig().Language
	}
	if err := client.SetLanguage(strings.Split(lang, "+")...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set tesseract language %q: %w", lang, err)
	}
	return &Engine{client: client}, nil
}

// Available reports whether Tesseract support is compiled in.
func Available() bool { return true }

// Detect returns one region per text line, each carrying the engine's text.
func (e *Engine) Detect(ctx context.Context, img image.Image) (*detector.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, err
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("tesseract set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("tesseract layout: %w", err)
	}
	lines := make([]Line, len(boxes))
	for i, b := range boxes {
		lines[i] = Line{Rect: b.Box, Text: b.Word, Confidence: b.Confidence}
	}
	bounds := img.Bounds()
	return &detector.Output{Regions: toRegions(lines), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// Recognize reads a single cropped line.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", err
	}
	if err := e.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("tesseract set image: %w", err)
	}
	return e.client.Text()
}

// Close releases the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
