package recognizer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/qdocr/internal/mempool"
	"github.com/MeKo-Tech/qdocr/internal/onnx"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

var (
	recMean = [3]float32{0.5, 0.5, 0.5}
	recStd  = [3]float32{0.5, 0.5, 0.5}
)

// ONNXConfig configures the CTC line recognizer.
type ONNXConfig struct {
	ModelPath      string
	DictionaryPath string
	LibraryPath    string
	NumThreads     int
	ImageHeight    int // model input height; the width follows the aspect ratio
	MaxWidth       int // widest input fed to the model, 0 for unbounded
}

// DefaultONNXConfig returns settings for PP-OCR style recognition models.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{NumThreads: 4, ImageHeight: 48, MaxWidth: 3200}
}

// ONNXRecognizer recognizes single text lines with a CTC model.
type ONNXRecognizer struct {
	cfg     ONNXConfig
	session *onnx.Session
	charset *Charset
}

// NewONNXRecognizer loads the dictionary and the recognition model. Both must
// exist; a missing file is reported before the runtime is touched.
func NewONNXRecognizer(cfg ONNXConfig) (*ONNXRecognizer, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("recognition model path cannot be empty")
	}
	if cfg.ImageHeight <= 0 {
		return nil, fmt.Errorf("image height must be positive, got %d", cfg.ImageHeight)
	}
	charset, err := LoadCharset(cfg.DictionaryPath)
	if err != nil {
		return nil, err
	}
	if err := onnx.Initialize(cfg.LibraryPath); err != nil {
		return nil, err
	}
	sess, err := onnx.NewSession(cfg.ModelPath, cfg.NumThreads)
	if err != nil {
		return nil, fmt.Errorf("load recognizer: %w", err)
	}
	slog.Debug("Recognizer initialized", "model_path", cfg.ModelPath, "charset_size", charset.Size())
	return &ONNXRecognizer{cfg: cfg, session: sess, charset: charset}, nil
}

// Recognize decodes the text in a cropped line image.
func (r *ONNXRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resized, err := ResizeForRecognition(img, r.cfg.ImageHeight, r.cfg.MaxWidth)
	if err != nil {
		return "", err
	}
	data, w, h, err := utils.NormalizeImage(resized, recMean, recStd)
	if err != nil {
		return "", err
	}
	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return "", err
	}
	out, shape, err := r.session.Run(tensor)
	mempool.PutFloat32(data)
	if err != nil {
		return "", err
	}
	indices, _, err := DecodeGreedy(out, shape)
	if err != nil {
		return "", err
	}
	return r.charset.Decode(indices), nil
}

// Close releases the model session.
func (r *ONNXRecognizer) Close() error {
	if r.session == nil {
		return nil
	}
	return r.session.Close()
}

// ResizeForRecognition scales img to height, keeping the aspect ratio, then
// right-pads the width to a multiple of 8 with white.
func ResizeForRecognition(img image.Image, height, maxWidth int) (image.Image, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("input image is empty")
	}
	w := max(1, int(float64(b.Dx())*float64(height)/float64(b.Dy())+0.5))
	if maxWidth > 0 && w > maxWidth {
		w = maxWidth
	}
	resized := imaging.Resize(img, w, height, imaging.Linear)
	padded := (w + 7) / 8 * 8
	if padded == w {
		return resized, nil
	}
	canvas := imaging.New(padded, height, color.White)
	return imaging.Paste(canvas, resized, image.Point{}), nil
}
