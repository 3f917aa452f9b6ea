// Package tesseract provides a detector and a line recognizer backed by the
// Tesseract engine. The engine binding needs libtesseract at build time and is
// compiled only with the "tesseract" build tag; without it New reports
// ErrUnavailable and callers fall back to the ONNX models.
package tesseract

import (
	"bytes"
	"errors"
	"image"
	"image/png"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// ErrUnavailable is returned when the binary was built without Tesseract support.
var ErrUnavailable = errors.New("tesseract support not compiled in (build with -tags tesseract)")

// Config selects the Tesseract language data.
type Config struct {
	Language string // e.g. "vie" or "vie+eng"
}

// DefaultConfig uses Vietnamese language data.
func DefaultConfig() Config {
	return Config{Language: "vie"}
}

// Line is one text line reported by the engine.
type Line struct {
	Rect       image.Rectangle
	Text       string
	Confidence float64 // 0..100
}

// toRegions converts engine lines to detector regions in engine order.
// Confidence is scaled to 0..1; lines with an empty rectangle are dropped.
func toRegions(lines []Line) []detector.Region {
	out := make([]detector.Region, 0, len(lines))
	for _, l := range lines {
		if l.Rect.Empty() {
			continue
		}
		box := utils.NewBox(float64(l.Rect.Min.X), float64(l.Rect.Min.Y), float64(l.Rect.Max.X), float64(l.Rect.Max.Y))
		r := detector.FromBox(len(out), box, detector.Score(clampConfidence(l.Confidence)/100))
		r.Text = l.Text
		out = append(out, r)
	}
	return out
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &utils.ImageError{Operation: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
