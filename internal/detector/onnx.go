package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/qdocr/internal/mempool"
	"github.com/MeKo-Tech/qdocr/internal/onnx"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// ImageNet statistics used by DB detection models.
var (
	detMean = [3]float32{0.485, 0.456, 0.406}
	detStd  = [3]float32{0.229, 0.224, 0.225}
)

// ONNXConfig configures the DB text detector.
type ONNXConfig struct {
	ModelPath    string
	LibraryPath  string
	NumThreads   int
	DBThresh     float32 // pixel threshold on the probability map
	BoxThresh    float32 // minimum mean probability per region
	UnclipRatio  float64
	LimitSideLen int // longer image side is scaled down to this
}

// DefaultONNXConfig returns detector defaults matching PaddleOCR's DB settings.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		NumThreads:   4,
		DBThresh:     0.3,
		BoxThresh:    0.5,
		UnclipRatio:  1.5,
		LimitSideLen: 960,
	}
}

// ONNXDetector runs a DB-style detection model through ONNX Runtime.
type ONNXDetector struct {
	cfg     ONNXConfig
	session *onnx.Session
}

// NewONNXDetector loads the detection model.
func NewONNXDetector(cfg ONNXConfig) (*ONNXDetector, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("detection model path cannot be empty")
	}
	if cfg.LimitSideLen <= 0 {
		return nil, fmt.Errorf("limit side length must be positive, got %d", cfg.LimitSideLen)
	}
	if err := onnx.Initialize(cfg.LibraryPath); err != nil {
		return nil, err
	}
	sess, err := onnx.NewSession(cfg.ModelPath, cfg.NumThreads)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}
	slog.Debug("Detector initialized", "model_path", cfg.ModelPath, "limit_side_len", cfg.LimitSideLen)
	return &ONNXDetector{cfg: cfg, session: sess}, nil
}

// Detect returns regions in original image coordinates, in map scan order.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image) (*Output, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	b := img.Bounds()

	resized, sx, sy := utils.ResizeToLimit(img, d.cfg.LimitSideLen)
	data, w, h, err := utils.NormalizeImage(resized, detMean, detStd)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	prob, shape, err := d.session.Run(tensor)
	mempool.PutFloat32(data)
	if err != nil {
		return nil, err
	}
	mw, mh, err := mapDims(shape, len(prob))
	if err != nil {
		return nil, err
	}
	// Map size can differ from the input size; fold that into the scale.
	sx *= float64(w) / float64(mw)
	sy *= float64(h) / float64(mh)

	regions := PostProcessDB(prob[:mw*mh], mw, mh, d.cfg.DBThresh, d.cfg.BoxThresh, d.cfg.UnclipRatio)
	bounds := utils.Box{MaxX: float64(b.Dx()), MaxY: float64(b.Dy())}
	for i := range regions {
		box := regions[i].Box.Scale(sx, sy).Intersect(bounds)
		regions[i].Box = box
		regions[i].Polygon = box.Corners()
	}

	slog.Debug("Detection completed", "regions", len(regions), "map", fmt.Sprintf("%dx%d", mw, mh),
		"duration_ms", time.Since(start).Milliseconds())
	return &Output{Regions: regions, Width: b.Dx(), Height: b.Dy()}, nil
}

// mapDims extracts W and H from a [N, 1, H, W] or [N, H, W] probability map.
func mapDims(shape []int64, n int) (int, int, error) {
	if len(shape) < 2 {
		return 0, 0, fmt.Errorf("unexpected detection output shape %v", shape)
	}
	w := int(shape[len(shape)-1])
	h := int(shape[len(shape)-2])
	if w <= 0 || h <= 0 || w*h > n {
		return 0, 0, fmt.Errorf("unexpected detection output shape %v", shape)
	}
	return w, h, nil
}

// Close releases the model session.
func (d *ONNXDetector) Close() error {
	if d.session == nil {
		return nil
	}
	return d.session.Close()
}
