package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qdocr/internal/models"
	"github.com/MeKo-Tech/qdocr/internal/onnx"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/tesseract"
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured model backend is usable",
	Long: `Resolve the configured model files and runtime libraries and report what
is missing. A missing recognizer is reported but is not fatal: extraction then
falls back to the detector's own text where the backend provides it.

Examples:
  qdocr check
  qdocr check --models-dir /opt/qdocr/models --ort-lib /usr/local/lib/libonnxruntime.so`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	report := func(ok bool, what, detail string) {
		mark := "ok"
		if !ok {
			mark = "MISSING"
		}
		_, _ = fmt.Fprintf(out, "%-8s %-12s %s\n", mark, what, detail)
	}

	_, _ = fmt.Fprintf(out, "Backend: %s\n", cfg.Models.Backend)
	if strings.EqualFold(cfg.Models.Backend, pipeline.BackendTesseract) {
		report(tesseract.Available(), "tesseract", "language "+cfg.Tesseract.Language)
		if !tesseract.Available() {
			return errors.New("tesseract support is not compiled in (build with -tags tesseract)")
		}
		return nil
	}

	var fatal error
	lib, err := onnx.ResolveLibraryPath(cfg.Models.LibraryPath)
	if err != nil {
		report(false, "runtime", err.Error())
		fatal = err
	} else {
		report(true, "runtime", lib)
	}

	paths := models.Resolve(cfg.Models.Dir, cfg.Models.Detector, cfg.Models.Recognizer, cfg.Models.Dictionary)
	if err := models.ValidateModelExists(paths.Detection); err != nil {
		report(false, "detector", paths.Detection)
		fatal = errors.Join(fatal, err)
	} else {
		report(true, "detector", paths.Detection)
	}
	recErr := models.ValidateModelExists(paths.Recognition)
	report(recErr == nil, "recognizer", paths.Recognition)
	dictErr := models.ValidateModelExists(paths.Dictionary)
	report(dictErr == nil, "dictionary", paths.Dictionary)
	if recErr != nil || dictErr != nil {
		_, _ = fmt.Fprintln(out, "Recognition unavailable: records will use detector text or fail with model unavailable.")
	}

	if fatal == nil {
		if err := onnx.Initialize(lib); err != nil {
			report(false, "session", err.Error())
			return err
		}
		report(true, "session", "ONNX Runtime environment initialized")
	}
	return fatal
}
