package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks an image that is missing or cannot be decoded.
	ErrInput = errors.New("input image unreadable")
	// ErrModelUnavailable is returned when no recognizer is loaded and the
	// detector produced no text to fall back on.
	ErrModelUnavailable = errors.New("recognition model unavailable and no detector text")
)

// ImageError is a failure that belongs to one image. Batch runs record it and
// move on to the next image.
type ImageError struct {
	Path string
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }
