//nolint:lll
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MeKo-Tech/qdocr/internal/batch"
	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/models"
	"github.com/MeKo-Tech/qdocr/internal/pdf"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/recognizer"
	"github.com/MeKo-Tech/qdocr/internal/tesseract"
)

// Config represents the complete configuration for the qdocr application.
// It covers every command (image, pdf, batch, serve, text) and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Models      ModelsConfig      `mapstructure:"models" yaml:"models" json:"models"`
	Detection   DetectionConfig   `mapstructure:"detection" yaml:"detection" json:"detection"`
	Filter      FilterConfig      `mapstructure:"filter" yaml:"filter" json:"filter"`
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition" json:"recognition"`
	Extraction  ExtractionConfig  `mapstructure:"extraction" yaml:"extraction" json:"extraction"`
	Seal        SealConfig        `mapstructure:"seal" yaml:"seal" json:"seal"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
	PDF         PDFConfig         `mapstructure:"pdf" yaml:"pdf" json:"pdf"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server" json:"server"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store" json:"store"`
	Tesseract   TesseractConfig   `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
}

// ModelsConfig selects the model backend and locates its files.
type ModelsConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Dir         string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Detector    string `mapstructure:"detector" yaml:"detector" json:"detector"`
	Recognizer  string `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	Dictionary  string `mapstructure:"dictionary" yaml:"dictionary" json:"dictionary"`
	LibraryPath string `mapstructure:"library_path" yaml:"library_path" json:"library_path"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// DetectionConfig contains DB post-processing settings.
type DetectionConfig struct {
	DBThresh     float64 `mapstructure:"db_thresh" yaml:"db_thresh" json:"db_thresh"`
	BoxThresh    float64 `mapstructure:"box_thresh" yaml:"box_thresh" json:"box_thresh"`
	UnclipRatio  float64 `mapstructure:"unclip_ratio" yaml:"unclip_ratio" json:"unclip_ratio"`
	LimitSideLen int     `mapstructure:"limit_side_len" yaml:"limit_side_len" json:"limit_side_len"`
}

// FilterConfig contains region filter thresholds.
type FilterConfig struct {
	MaxKeepBoxes  int     `mapstructure:"max_keep_boxes" yaml:"max_keep_boxes" json:"max_keep_boxes"`
	MinSidePixels float64 `mapstructure:"min_side_pixels" yaml:"min_side_pixels" json:"min_side_pixels"`
	AreaKeepRatio float64 `mapstructure:"area_keep_ratio" yaml:"area_keep_ratio" json:"area_keep_ratio"`
	EnableNMS     bool    `mapstructure:"enable_nms" yaml:"enable_nms" json:"enable_nms"`
	NMSIoUThresh  float64 `mapstructure:"nms_iou_thresh" yaml:"nms_iou_thresh" json:"nms_iou_thresh"`
	ReadingOrder  bool    `mapstructure:"reading_order" yaml:"reading_order" json:"reading_order"`
}

// RecognitionConfig contains per-region recognition settings.
type RecognitionConfig struct {
	Workers              int           `mapstructure:"workers" yaml:"workers" json:"workers"`
	Timeout              time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Retries              int           `mapstructure:"retries" yaml:"retries" json:"retries"`
	RetryDelay           time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" json:"retry_delay"`
	ImageHeight          int           `mapstructure:"image_height" yaml:"image_height" json:"image_height"`
	FallbackDetectorText bool          `mapstructure:"fallback_detector_text" yaml:"fallback_detector_text" json:"fallback_detector_text"`
}

// ExtractionConfig selects the field strategies.
type ExtractionConfig struct {
	CompanyStrategy string `mapstructure:"company_strategy" yaml:"company_strategy" json:"company_strategy"`
	NameStrategy    string `mapstructure:"name_strategy" yaml:"name_strategy" json:"name_strategy"`
}

// SealConfig selects the regions fed to the layout seal heuristic.
type SealConfig struct {
	Regions string `mapstructure:"regions" yaml:"regions" json:"regions"`
}

// OutputConfig contains output formatting and artifact settings.
type OutputConfig struct {
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	Dir          string `mapstructure:"dir" yaml:"dir" json:"dir"`
	BatchFile    string `mapstructure:"batch_file" yaml:"batch_file" json:"batch_file"`
	FailuresFile string `mapstructure:"failures_file" yaml:"failures_file" json:"failures_file"`
	YAML         bool   `mapstructure:"yaml" yaml:"yaml" json:"yaml"`
	XLSXFile     string `mapstructure:"xlsx_file" yaml:"xlsx_file" json:"xlsx_file"`
	Validate     bool   `mapstructure:"validate" yaml:"validate" json:"validate"`
	Explain      bool   `mapstructure:"explain" yaml:"explain" json:"explain"`
}

// PDFConfig selects how PDF pages become images.
type PDFConfig struct {
	Renderer string `mapstructure:"renderer" yaml:"renderer" json:"renderer"`
	DPI      int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	Pages    string `mapstructure:"pages" yaml:"pages" json:"pages"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" json:"host"`
	Port            int           `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string        `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// StoreConfig points at the SQLite record store. An empty path disables it.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// TesseractConfig configures the tesseract backend.
type TesseractConfig struct {
	Language string `mapstructure:"language" yaml:"language" json:"language"`
}

// DefaultConfig returns a configuration with the stock settings.
func DefaultConfig() Config {
	det := detector.DefaultONNXConfig()
	filter := detector.DefaultFilterConfig()
	rec := recognizer.DefaultAdapterConfig()
	ext := extract.DefaultConfig()
	srv := serverDefaults()
	return Config{
		LogLevel: "info",
		Models: ModelsConfig{
			Backend:    pipeline.BackendONNX,
			Dir:        models.DefaultModelsDir,
			NumThreads: 4,
		},
		Detection: DetectionConfig{
			DBThresh:     float64(det.DBThresh),
			BoxThresh:    float64(det.BoxThresh),
			UnclipRatio:  det.UnclipRatio,
			LimitSideLen: det.LimitSideLen,
		},
		Filter: FilterConfig{
			MaxKeepBoxes:  filter.MaxKeep,
			MinSidePixels: filter.MinSide,
			AreaKeepRatio: filter.AreaKeepRatio,
			EnableNMS:     filter.EnableNMS,
			NMSIoUThresh:  filter.NMSThreshold,
			ReadingOrder:  true,
		},
		Recognition: RecognitionConfig{
			Workers:              rec.Workers,
			Timeout:              rec.Timeout,
			Retries:              rec.Retries,
			RetryDelay:           rec.RetryDelay,
			ImageHeight:          recognizer.DefaultONNXConfig().ImageHeight,
			FallbackDetectorText: true,
		},
		Extraction: ExtractionConfig{
			CompanyStrategy: string(ext.CompanyStrategy),
			NameStrategy:    string(ext.NameStrategy),
		},
		Seal: SealConfig{Regions: string(pipeline.SealFromRaw)},
		Output: OutputConfig{
			Format:       pipeline.FormatJSON,
			Dir:          "outputs",
			BatchFile:    batch.DefaultResultsFile,
			FailuresFile: batch.DefaultFailuresFile,
			Validate:     true,
		},
		PDF: PDFConfig{
			Renderer: pdf.RendererExtract,
			DPI:      pdf.DefaultDPI,
		},
		Server:    srv,
		Tesseract: TesseractConfig{Language: tesseract.DefaultConfig().Language},
	}
}

func serverDefaults() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		CORSOrigin:      "*",
		MaxUploadMB:     20,
		Timeout:         60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validFormats    = []string{pipeline.FormatJSON, pipeline.FormatYAML, pipeline.FormatText, pipeline.FormatCSV}
	validBackends   = []string{pipeline.BackendONNX, pipeline.BackendTesseract}
	validRenderers  = []string{pdf.RendererExtract, pdf.RendererRender}
	validSealSource = []string{string(pipeline.SealFromRaw), string(pipeline.SealFromFiltered)}
)

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if err := oneOf("log_level", c.LogLevel, validLogLevels); err != nil {
		return err
	}
	if err := oneOf("models.backend", strings.ToLower(c.Models.Backend), validBackends); err != nil {
		return err
	}
	if err := oneOf("output.format", strings.ToLower(c.Output.Format), validFormats); err != nil {
		return err
	}
	if err := oneOf("pdf.renderer", strings.ToLower(c.PDF.Renderer), validRenderers); err != nil {
		return err
	}
	if err := oneOf("seal.regions", strings.ToLower(c.Seal.Regions), validSealSource); err != nil {
		return err
	}
	if _, err := extract.ParseCompanyStrategy(c.Extraction.CompanyStrategy); err != nil {
		return fmt.Errorf("invalid extraction.company_strategy: %w", err)
	}
	if _, err := extract.ParseNameStrategy(c.Extraction.NameStrategy); err != nil {
		return fmt.Errorf("invalid extraction.name_strategy: %w", err)
	}

	for name, v := range map[string]float64{
		"detection.db_thresh":    c.Detection.DBThresh,
		"detection.box_thresh":   c.Detection.BoxThresh,
		"filter.area_keep_ratio": c.Filter.AreaKeepRatio,
		"filter.nms_iou_thresh":  c.Filter.NMSIoUThresh,
	} {
		if err := validateThreshold(v, name); err != nil {
			return err
		}
	}

	if c.Filter.MaxKeepBoxes <= 0 {
		return fmt.Errorf("invalid filter.max_keep_boxes: %d (must be positive)", c.Filter.MaxKeepBoxes)
	}
	if c.Filter.MinSidePixels < 0 {
		return fmt.Errorf("invalid filter.min_side_pixels: %v (must not be negative)", c.Filter.MinSidePixels)
	}
	if c.Detection.LimitSideLen < 32 {
		return fmt.Errorf("invalid detection.limit_side_len: %d (must be at least 32)", c.Detection.LimitSideLen)
	}
	if c.Recognition.Workers <= 0 {
		return fmt.Errorf("invalid recognition.workers: %d (must be positive)", c.Recognition.Workers)
	}
	if c.Recognition.Retries < 0 {
		return fmt.Errorf("invalid recognition.retries: %d (must not be negative)", c.Recognition.Retries)
	}
	if c.Recognition.Timeout < 0 || c.Recognition.RetryDelay < 0 {
		return fmt.Errorf("recognition durations must not be negative")
	}
	if c.PDF.DPI <= 0 {
		return fmt.Errorf("invalid pdf.dpi: %d (must be positive)", c.PDF.DPI)
	}
	if c.PDF.Pages != "" {
		if _, err := pdf.ParsePageRange(c.PDF.Pages); err != nil {
			return fmt.Errorf("invalid pdf.pages: %w", err)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("invalid server timeout: %s (must be positive)", c.Server.Timeout)
	}
	return nil
}

func oneOf(name, value string, valid []string) error {
	if !slices.Contains(valid, value) {
		return fmt.Errorf("invalid %s: %q (must be one of: %s)", name, value, strings.Join(valid, ", "))
	}
	return nil
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
