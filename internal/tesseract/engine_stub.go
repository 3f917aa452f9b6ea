//go:build !tesseract

package tesseract

import (
	"context"
	"image"

	"github.com/MeKo-Tech/qdocr/internal/detector"
)

// Engine is unavailable in builds without the "tesseract" tag.
type Engine struct{}

// New always returns ErrUnavailable.
func New(Config) (*Engine, error) { return nil, ErrUnavailable }

// Available reports whether Tesseract support is compiled in.
func Available() bool { return false }

func (*Engine) Detect(context.Context, image.Image) (*detector.Output, error) {
	return nil, ErrUnavailable
}

func (*Engine) Recognize(context.Context, image.Image) (string, error) { return "", ErrUnavailable }

func (*Engine) Close() error { return nil }
