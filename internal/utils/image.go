package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/MeKo-Tech/qdocr/internal/mempool"
)

// ImageError wraps failures while loading or transforming images.
type ImageError struct {
	Operation string
	Err       error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Operation, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// SupportedImageExtensions lists file extensions accepted as document scans.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
}

// LoadImage opens and decodes an image file.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
	}

	f, err := os.Open(path) //nolint:gosec // G304: reading a user-provided scan is the point
	if err != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: err}
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: err}
	}

	img, meta, err := decode(f)
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	meta.Path = path
	meta.SizeBytes = fi.Size()
	return img, meta, nil
}

// DecodeImage decodes an in-memory image such as an upload body.
func DecodeImage(data []byte) (image.Image, ImageMetadata, error) {
	if len(data) == 0 {
		return nil, ImageMetadata{}, &ImageError{Operation: "decode", Err: errors.New("empty image data")}
	}
	img, meta, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	meta.SizeBytes = int64(len(data))
	return img, meta, nil
}

func decode(r io.Reader) (image.Image, ImageMetadata, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ImageMetadata{}, &ImageError{Operation: "decode", Err: errors.New("image has no pixels")}
	}
	return img, ImageMetadata{Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}

// Crop returns a copy of the rectangle r of img. An empty rectangle yields an
// empty image.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Add(img.Bounds().Min).Intersect(img.Bounds())
	if r.Empty() {
		return imaging.New(0, 0, color.Transparent)
	}
	return imaging.Crop(img, r)
}

// ResizeToLimit scales img so its longer side is at most limit while keeping
// both sides multiples of 32, the stride detection models expect. It never
// returns a side shorter than 32. The scale factors map resized coordinates
// back to the source image.
func ResizeToLimit(img image.Image, limit int) (image.Image, float64, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	ratio := 1.0
	if limit > 0 && max(w, h) > limit {
		ratio = float64(limit) / float64(max(w, h))
	}
	nw := roundTo32(float64(w) * ratio)
	nh := roundTo32(float64(h) * ratio)
	if nw == w && nh == h {
		return img, 1, 1
	}
	resized := imaging.Resize(img, nw, nh, imaging.Linear)
	return resized, float64(w) / float64(nw), float64(h) / float64(nh)
}

func roundTo32(v float64) int {
	n := int(v/32+0.5) * 32
	if n < 32 {
		return 32
	}
	return n
}

// NormalizeImage converts img to a CHW float32 tensor. Each channel is mapped
// to (v/255 - mean[c]) / std[c]. The tensor comes from mempool; callers that
// are done with it may hand it back with mempool.PutFloat32.
func NormalizeImage(img image.Image, mean, std [3]float32) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, &ImageError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}
	plane := w * h
	data := mempool.GetFloat32(3 * plane)
	for y := range h {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := range w {
			px := row[x*4 : x*4+3]
			idx := y*w + x
			for c := range 3 {
				data[c*plane+idx] = (float32(px[c])/255 - mean[c]) / std[c]
			}
		}
	}
	return data, w, h, nil
}
