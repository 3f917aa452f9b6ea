package recognizer

import (
	"context"
	"errors"
	"image"
)

// Recognizer turns a cropped text-line image into a string.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

var (
	// ErrTimeout is recorded when a region exceeds the per-region deadline.
	ErrTimeout = errors.New("recognition timed out")
	// ErrDegenerateRegion is recorded when a region has no pixels after clamping.
	ErrDegenerateRegion = errors.New("region is empty after clamping to image bounds")
)

// Func adapts a plain function to the Recognizer interface.
type Func func(ctx context.Context, img image.Image) (string, error)

// Recognize calls f.
func (f Func) Recognize(ctx context.Context, img image.Image) (string, error) { return f(ctx, img) }

// Close is a no-op.
func (Func) Close() error { return nil }
