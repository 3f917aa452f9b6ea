package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "qdocr"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "QDOCR"
)

// Loader handles loading configuration from various sources. Precedence is
// flags, then environment, then the config file, then defaults.
type Loader struct {
	v        *viper.Viper
	envFiles []string
}

// NewLoader creates a loader with its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New(), envFiles: []string{".env"}}
}

// WithEnvFiles replaces the .env files read before the environment is consulted.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// BindFlags binds command-line flags to configuration keys. The map goes from
// key to flag name; flags missing from fs are an error.
func (l *Loader) BindFlags(fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag --%s for %s is not defined", name, key)
		}
		if err := l.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads configFile, or searches the standard paths when it is empty,
// then validates the result.
func (l *Loader) Load(configFile string) (Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is Load without the final Validate call.
func (l *Loader) LoadWithoutValidation(configFile string) (Config, error) {
	if err := l.loadEnvFiles(); err != nil {
		return Config{}, err
	}
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", configFile, err)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		for _, p := range SearchPaths() {
			l.v.AddConfigPath(p)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// ConfigFileUsed returns the path of the config file read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Settings returns the resolved settings map for debugging.
func (l *Loader) Settings() map[string]any {
	return l.v.AllSettings()
}

// loadEnvFiles exports .env entries that are not already set. A missing file
// is skipped.
func (l *Loader) loadEnvFiles() error {
	for _, f := range l.envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

// setDefaults registers every key so that AutomaticEnv and Unmarshal see it.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("models.backend", d.Models.Backend)
	l.v.SetDefault("models.dir", d.Models.Dir)
	l.v.SetDefault("models.detector", d.Models.Detector)
	l.v.SetDefault("models.recognizer", d.Models.Recognizer)
	l.v.SetDefault("models.dictionary", d.Models.Dictionary)
	l.v.SetDefault("models.library_path", d.Models.LibraryPath)
	l.v.SetDefault("models.num_threads", d.Models.NumThreads)

	l.v.SetDefault("detection.db_thresh", d.Detection.DBThresh)
	l.v.SetDefault("detection.box_thresh", d.Detection.BoxThresh)
	l.v.SetDefault("detection.unclip_ratio", d.Detection.UnclipRatio)
	l.v.SetDefault("detection.limit_side_len", d.Detection.LimitSideLen)

	l.v.SetDefault("filter.max_keep_boxes", d.Filter.MaxKeepBoxes)
	l.v.SetDefault("filter.min_side_pixels", d.Filter.MinSidePixels)
	l.v.SetDefault("filter.area_keep_ratio", d.Filter.AreaKeepRatio)
	l.v.SetDefault("filter.enable_nms", d.Filter.EnableNMS)
	l.v.SetDefault("filter.nms_iou_thresh", d.Filter.NMSIoUThresh)
	l.v.SetDefault("filter.reading_order", d.Filter.ReadingOrder)

	l.v.SetDefault("recognition.workers", d.Recognition.Workers)
	l.v.SetDefault("recognition.timeout", d.Recognition.Timeout)
	l.v.SetDefault("recognition.retries", d.Recognition.Retries)
	l.v.SetDefault("recognition.retry_delay", d.Recognition.RetryDelay)
	l.v.SetDefault("recognition.image_height", d.Recognition.ImageHeight)
	l.v.SetDefault("recognition.fallback_detector_text", d.Recognition.FallbackDetectorText)

	l.v.SetDefault("extraction.company_strategy", d.Extraction.CompanyStrategy)
	l.v.SetDefault("extraction.name_strategy", d.Extraction.NameStrategy)

	l.v.SetDefault("seal.regions", d.Seal.Regions)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.dir", d.Output.Dir)
	l.v.SetDefault("output.batch_file", d.Output.BatchFile)
	l.v.SetDefault("output.failures_file", d.Output.FailuresFile)
	l.v.SetDefault("output.yaml", d.Output.YAML)
	l.v.SetDefault("output.xlsx_file", d.Output.XLSXFile)
	l.v.SetDefault("output.validate", d.Output.Validate)
	l.v.SetDefault("output.explain", d.Output.Explain)

	l.v.SetDefault("pdf.renderer", d.PDF.Renderer)
	l.v.SetDefault("pdf.dpi", d.PDF.DPI)
	l.v.SetDefault("pdf.pages", d.PDF.Pages)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout", d.Server.Timeout)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	l.v.SetDefault("store.path", d.Store.Path)

	l.v.SetDefault("tesseract.language", d.Tesseract.Language)
}

// SearchPaths returns the directories searched for qdocr.yaml, in order.
func SearchPaths() []string {
	paths := []string{"."}
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && dir != "" {
		paths = append(paths, filepath.Join(dir, "qdocr"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "qdocr"))
	}
	return append(paths, "/etc/qdocr")
}

// WriteDefaultFile writes the default configuration as YAML to filename.
func WriteDefaultFile(filename string) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	l := NewLoader()
	l.setDefaults()
	return l.v.WriteConfigAs(filename)
}
