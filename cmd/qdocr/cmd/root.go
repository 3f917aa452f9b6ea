package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qdocr/internal/config"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/version"
)

var (
	// Configuration file path.
	cfgFile string
	// Resolved configuration for the running command.
	cfg config.Config
	// newModels loads the model suite. Tests replace it with fakes.
	newModels = pipeline.NewModelSuite
	// bindings maps each command to its config key → flag name pairs.
	bindings = map[*cobra.Command]map[string]string{}
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "qdocr",
	Short: "Extract appointment decision fields from scanned documents",
	Long: `qdocr detects text regions on scanned Vietnamese board decisions, recognizes
each region and extracts the decision number, date, appointee, position, term,
company, signer and seal signals into a fixed record.

Examples:
  qdocr image decision.png
  qdocr batch scans/ --recursive --xlsx records.xlsx
  qdocr pdf decision.pdf --pages 1-2 --format yaml
  qdocr text decision.txt
  qdocr serve --port 8080`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = loadConfig
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "",
		"config file (default is qdocr.yaml in ., $HOME/.config/qdocr, /etc/qdocr)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	pf.String("backend", pipeline.BackendONNX, "model backend: onnx or tesseract")
	pf.String("models-dir", "", "directory containing models (also QDOCR_MODELS_DIR)")
	pf.String("det-model", "", "detection model file (overrides default)")
	pf.String("rec-model", "", "recognition model file (overrides default)")
	pf.String("dict", "", "recognition character dictionary (overrides default)")
	pf.String("ort-lib", "", "path to the ONNX Runtime shared library")
	pf.Int("threads", 4, "inference threads per model")
	pf.Int("workers", 1, "regions recognized concurrently per image")
	pf.Duration("region-timeout", 10*time.Second, "per-region recognition timeout (0 disables)")
	pf.Int("max-boxes", 24, "maximum regions passed to recognition")
	pf.Bool("nms", false, "suppress overlapping regions before ranking")
	pf.String("company-strategy", "regex", "company extraction strategy: regex or lines")
	pf.String("name-strategy", "contextual", "appointee name strategy: contextual or heuristic")
	pf.String("seal-regions", string(pipeline.SealFromRaw), "regions for the layout seal signal: raw or filtered")

	bindFlags(rootCmd, map[string]string{
		"verbose":                     "verbose",
		"log_level":                   "log-level",
		"models.backend":              "backend",
		"models.dir":                  "models-dir",
		"models.detector":             "det-model",
		"models.recognizer":           "rec-model",
		"models.dictionary":           "dict",
		"models.library_path":         "ort-lib",
		"models.num_threads":          "threads",
		"recognition.workers":         "workers",
		"recognition.timeout":         "region-timeout",
		"filter.max_keep_boxes":       "max-boxes",
		"filter.enable_nms":           "nms",
		"extraction.company_strategy": "company-strategy",
		"extraction.name_strategy":    "name-strategy",
		"seal.regions":                "seal-regions",
	})
}

// bindFlags records which flags of cmd override which config keys. The binding
// itself happens per run in loadConfig.
func bindFlags(cmd *cobra.Command, m map[string]string) {
	bindings[cmd] = m
}

// loadConfig resolves the configuration for cmd and installs the logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoader()
	if err := loader.BindFlags(rootCmd.PersistentFlags(), bindings[rootCmd]); err != nil {
		return err
	}
	if m, ok := bindings[cmd]; ok && cmd != rootCmd {
		if err := loader.BindFlags(cmd.Flags(), m); err != nil {
			return err
		}
	}
	loaded, err := loader.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg = loaded
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.LogLevel))
	if used := loader.ConfigFileUsed(); used != "" {
		slog.Debug("Configuration loaded", "file", used)
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

// buildPipeline loads the models and assembles a pipeline from cfg. The
// caller closes the returned suite.
func buildPipeline() (*pipeline.Pipeline, *pipeline.ModelSuite, error) {
	suite, err := newModels(cfg.ToModelConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("load models: %w", err)
	}
	p, err := pipeline.NewBuilder().
		WithConfig(cfg.ToPipelineConfig()).
		WithModels(suite).
		WithLogger(slog.Default()).
		Build()
	if err != nil {
		_ = suite.Close()
		return nil, nil, err
	}
	return p, suite, nil
}

// writeOutput writes s to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), s)
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("Output written", "path", path)
	return nil
}
