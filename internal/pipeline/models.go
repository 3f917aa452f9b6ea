package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/models"
	"github.com/MeKo-Tech/qdocr/internal/recognizer"
	"github.com/MeKo-Tech/qdocr/internal/tesseract"
)

// Model backends.
const (
	BackendONNX      = "onnx"
	BackendTesseract = "tesseract"
)

// ModelConfig selects and locates the detection and recognition models.
type ModelConfig struct {
	Backend         string
	ModelsDir       string
	DetectorModel   string
	RecognizerModel string
	Dictionary      string
	LibraryPath     string // ONNX Runtime shared library; empty searches the usual places
	NumThreads      int

	Detection   detector.ONNXConfig
	ImageHeight int

	TesseractLanguage string
}

// DefaultModelConfig returns the ONNX backend with stock model names.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Backend:           BackendONNX,
		NumThreads:        4,
		Detection:         detector.DefaultONNXConfig(),
		ImageHeight:       recognizer.DefaultONNXConfig().ImageHeight,
		TesseractLanguage: tesseract.DefaultConfig().Language,
	}
}

// ModelSuite owns the models used by a Pipeline. Build it once and share it;
// the pipeline never loads models on its own.
type ModelSuite struct {
	Backend    string
	Detector   detector.Detector
	Recognizer recognizer.Recognizer
	// RecognizerErr explains why Recognizer is nil. The pipeline then falls
	// back to the detector's own text.
	RecognizerErr error
}

// NewModelSuite loads the detector and recognizer for cfg.Backend. A detector
// failure is fatal. A recognizer failure is not: the suite is returned with a
// nil Recognizer and RecognizerErr set.
func NewModelSuite(cfg ModelConfig) (*ModelSuite, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendONNX, "":
		return newONNXSuite(cfg)
	case BackendTesseract:
		return newTesseractSuite(cfg)
	}
	return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
}

func newONNXSuite(cfg ModelConfig) (*ModelSuite, error) {
	paths := models.Resolve(cfg.ModelsDir, cfg.DetectorModel, cfg.RecognizerModel, cfg.Dictionary)
	if err := models.ValidateModelExists(paths.Detection); err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	detCfg := cfg.Detection
	detCfg.ModelPath = paths.Detection
	detCfg.LibraryPath = cfg.LibraryPath
	if cfg.NumThreads > 0 {
		detCfg.NumThreads = cfg.NumThreads
	}
	det, err := detector.NewONNXDetector(detCfg)
	if err != nil {
		return nil, fmt.Errorf("init detector: %w", err)
	}
	suite := &ModelSuite{Backend: BackendONNX, Detector: det}

	recCfg := recognizer.DefaultONNXConfig()
	recCfg.ModelPath = paths.Recognition
	recCfg.DictionaryPath = paths.Dictionary
	recCfg.LibraryPath = cfg.LibraryPath
	if cfg.NumThreads > 0 {
		recCfg.NumThreads = cfg.NumThreads
	}
	if cfg.ImageHeight > 0 {
		recCfg.ImageHeight = cfg.ImageHeight
	}
	if err := errors.Join(models.ValidateModelExists(paths.Recognition), models.ValidateModelExists(paths.Dictionary)); err != nil {
		suite.RecognizerErr = err
	} else if rec, err := recognizer.NewONNXRecognizer(recCfg); err != nil {
		suite.RecognizerErr = err
	} else {
		suite.Recognizer = rec
	}
	if suite.RecognizerErr != nil {
		slog.Warn("Recognizer unavailable, falling back to detector text", "error", suite.RecognizerErr)
	}
	return suite, nil
}

func newTesseractSuite(cfg ModelConfig) (*ModelSuite, error) {
	engine, err := tesseract.New(tesseract.Config{Language: cfg.TesseractLanguage})
	if err != nil {
		return nil, fmt.Errorf("init tesseract: %w", err)
	}
	// One engine serves both roles; closing it once is enough.
	return &ModelSuite{Backend: BackendTesseract, Detector: engine, Recognizer: sharedRecognizer{engine}}, nil
}

// sharedRecognizer lends the engine to the pipeline without handing over
// ownership.
type sharedRecognizer struct {
	*tesseract.Engine
}

func (sharedRecognizer) Close() error { return nil }

// Close releases both models.
func (s *ModelSuite) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Recognizer != nil {
		errs = append(errs, s.Recognizer.Close())
		s.Recognizer = nil
	}
	if s.Detector != nil {
		errs = append(errs, s.Detector.Close())
		s.Detector = nil
	}
	return errors.Join(errs...)
}
