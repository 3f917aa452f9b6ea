package config

import (
	"strings"

	"github.com/MeKo-Tech/qdocr/internal/batch"
	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/pdf"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/recognizer"
	"github.com/MeKo-Tech/qdocr/internal/server"
)

// ToPipelineConfig converts the config to the per-document processing settings.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Filter: detector.FilterConfig{
			MaxKeep:       c.Filter.MaxKeepBoxes,
			MinSide:       c.Filter.MinSidePixels,
			AreaKeepRatio: c.Filter.AreaKeepRatio,
			EnableNMS:     c.Filter.EnableNMS,
			NMSThreshold:  c.Filter.NMSIoUThresh,
			ReadingOrder:  c.Filter.ReadingOrder,
		},
		Recognition: recognizer.AdapterConfig{
			Workers:    c.Recognition.Workers,
			Timeout:    c.Recognition.Timeout,
			Retries:    c.Recognition.Retries,
			RetryDelay: c.Recognition.RetryDelay,
		},
		Extraction: extract.Config{
			CompanyStrategy: extract.CompanyStrategy(strings.ToLower(c.Extraction.CompanyStrategy)),
			NameStrategy:    extract.NameStrategy(strings.ToLower(c.Extraction.NameStrategy)),
		},
		SealRegions:          pipeline.SealSource(strings.ToLower(c.Seal.Regions)),
		FallbackDetectorText: c.Recognition.FallbackDetectorText,
	}
}

// ToModelConfig converts the config to the model suite settings.
func (c *Config) ToModelConfig() pipeline.ModelConfig {
	mc := pipeline.DefaultModelConfig()
	mc.Backend = strings.ToLower(c.Models.Backend)
	mc.ModelsDir = c.Models.Dir
	mc.DetectorModel = c.Models.Detector
	mc.RecognizerModel = c.Models.Recognizer
	mc.Dictionary = c.Models.Dictionary
	mc.LibraryPath = c.Models.LibraryPath
	mc.NumThreads = c.Models.NumThreads
	mc.ImageHeight = c.Recognition.ImageHeight
	mc.Detection.DBThresh = float32(c.Detection.DBThresh)
	mc.Detection.BoxThresh = float32(c.Detection.BoxThresh)
	mc.Detection.UnclipRatio = c.Detection.UnclipRatio
	mc.Detection.LimitSideLen = c.Detection.LimitSideLen
	if c.Tesseract.Language != "" {
		mc.TesseractLanguage = c.Tesseract.Language
	}
	return mc
}

// ToBatchConfig converts the config to batch settings. Discovery patterns,
// the recorder and the logger are left for the caller.
func (c *Config) ToBatchConfig() batch.Config {
	bc := batch.DefaultConfig()
	bc.OutputDir = c.Output.Dir
	if c.Output.BatchFile != "" {
		bc.ResultsFile = c.Output.BatchFile
	}
	if c.Output.FailuresFile != "" {
		bc.FailuresFile = c.Output.FailuresFile
	}
	bc.WriteYAML = c.Output.YAML
	bc.XLSXFile = c.Output.XLSXFile
	bc.Validate = c.Output.Validate
	bc.Explain = c.Output.Explain
	return bc
}

// ToServerConfig converts the config to HTTP server settings.
func (c *Config) ToServerConfig() server.Config {
	sc := server.DefaultConfig()
	sc.Host = c.Server.Host
	sc.Port = c.Server.Port
	sc.CORSOrigin = c.Server.CORSOrigin
	sc.MaxUploadMB = c.Server.MaxUploadMB
	sc.Timeout = c.Server.Timeout
	sc.Validate = c.Output.Validate
	sc.Backend = strings.ToLower(c.Models.Backend)
	return sc
}

// ToPDFOptions converts the config to PDF page options.
func (c *Config) ToPDFOptions() pdf.Options {
	return pdf.Options{
		Renderer: strings.ToLower(c.PDF.Renderer),
		DPI:      c.PDF.DPI,
		Pages:    c.PDF.Pages,
	}
}
