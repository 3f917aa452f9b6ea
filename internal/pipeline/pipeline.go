package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/recognizer"
)

// SealSource selects which regions feed the geometric seal heuristic.
type SealSource string

const (
	SealFromRaw      SealSource = "raw"
	SealFromFiltered SealSource = "filtered"
)

// Config holds the per-document processing settings. It is read-only once a
// Pipeline is built.
type Config struct {
	Filter      detector.FilterConfig
	Recognition recognizer.AdapterConfig
	Extraction  extract.Config
	SealRegions SealSource
	// FallbackDetectorText uses the detector's own region texts when the
	// recognizer is missing or produced no lines.
	FallbackDetectorText bool
}

// DefaultConfig returns the stock processing settings.
func DefaultConfig() Config {
	filter := detector.DefaultFilterConfig()
	filter.ReadingOrder = true
	return Config{
		Filter:               filter,
		Recognition:          recognizer.DefaultAdapterConfig(),
		Extraction:           extract.DefaultConfig(),
		SealRegions:          SealFromRaw,
		FallbackDetectorText: true,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg    Config
	models *ModelSuite
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a builder with default settings.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithModels sets the model suite. The pipeline does not take ownership.
func (b *Builder) WithModels(m *ModelSuite) *Builder {
	b.models = m
	return b
}

// WithFilter sets the region filter thresholds.
func (b *Builder) WithFilter(f detector.FilterConfig) *Builder {
	b.cfg.Filter = f
	return b
}

// WithRecognition sets per-region recognition behavior.
func (b *Builder) WithRecognition(r recognizer.AdapterConfig) *Builder {
	b.cfg.Recognition = r
	return b
}

// WithExtraction selects the company and name strategies.
func (b *Builder) WithExtraction(e extract.Config) *Builder {
	b.cfg.Extraction = e
	return b
}

// WithSealRegions selects the regions used by the geometric seal signal.
func (b *Builder) WithSealRegions(s SealSource) *Builder {
	if s != "" {
		b.cfg.SealRegions = s
	}
	return b
}

// WithLogger sets the logger; nil keeps slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the time source used for record timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration.
func (b *Builder) Validate() error {
	if b.models == nil || b.models.Detector == nil {
		return errors.New("model suite with a detector is required")
	}
	f := b.cfg.Filter
	if f.MaxKeep <= 0 {
		return fmt.Errorf("max_keep_boxes must be positive, got %d", f.MaxKeep)
	}
	if f.MinSide < 0 {
		return fmt.Errorf("min_side_pixels must not be negative, got %v", f.MinSide)
	}
	if f.AreaKeepRatio < 0 || f.AreaKeepRatio > 1 {
		return fmt.Errorf("area_keep_ratio must be in [0,1], got %v", f.AreaKeepRatio)
	}
	if f.EnableNMS && (f.NMSThreshold <= 0 || f.NMSThreshold > 1) {
		return fmt.Errorf("nms_iou_thresh must be in (0,1], got %v", f.NMSThreshold)
	}
	switch b.cfg.SealRegions {
	case SealFromRaw, SealFromFiltered:
	default:
		return fmt.Errorf("unknown seal region source %q", b.cfg.SealRegions)
	}
	return nil
}

// Build validates the configuration and assembles the Pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	ex, err := extract.New(b.cfg.Extraction)
	if err != nil {
		return nil, err
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	p := &Pipeline{
		cfg:       b.cfg,
		models:    b.models,
		extractor: ex,
		logger:    logger,
		now:       now,
	}
	if b.models.Recognizer != nil {
		p.adapter = recognizer.NewAdapter(b.models.Recognizer, b.cfg.Recognition, logger)
	}
	return p, nil
}

// Pipeline runs detection, filtering, recognition and extraction for one
// document at a time. It is safe for concurrent use when its models are.
type Pipeline struct {
	cfg       Config
	models    *ModelSuite
	adapter   *recognizer.Adapter
	extractor *extract.Extractor
	logger    *slog.Logger
	now       func() time.Time
}

// New is shorthand for NewBuilder().WithModels(m).WithConfig(cfg).WithLogger(l).Build().
func New(m *ModelSuite, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	return NewBuilder().WithModels(m).WithConfig(cfg).WithLogger(logger).Build()
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Models returns the model suite.
func (p *Pipeline) Models() *ModelSuite { return p.models }

// Extractor returns the field extractor.
func (p *Pipeline) Extractor() *extract.Extractor { return p.extractor }
