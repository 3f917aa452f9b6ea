package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/overlay"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// imageCmd represents the image command.
var imageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Extract decision fields from one scanned image",
	Long: `Process a single scanned decision image and print its record.

Supported formats: PNG, JPEG, BMP, TIFF, WebP

Examples:
  qdocr image decision.png
  qdocr image decision.jpg --format yaml --explain
  qdocr image decision.png --output record.json --save-detection det.json --overlay overlay.png`,
	Args: cobra.ExactArgs(1),
	RunE: runImage,
}

func init() {
	rootCmd.AddCommand(imageCmd)

	f := imageCmd.Flags()
	f.StringP("format", "f", pipeline.FormatJSON, "output format: json, yaml, text, csv")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.Bool("explain", false, "include lines, regions and matched rules in the record")
	f.Bool("validate", true, "check the record against the output schema")
	f.String("save-detection", "", "write the raw detection output as JSON to this file")
	f.String("overlay", "", "write a PNG with raw and kept regions drawn to this file")

	bindFlags(imageCmd, map[string]string{
		"output.format":   "format",
		"output.explain":  "explain",
		"output.validate": "validate",
	})
}

func runImage(cmd *cobra.Command, args []string) error {
	path := args[0]
	outputFile, _ := cmd.Flags().GetString("output")
	detectionFile, _ := cmd.Flags().GetString("save-detection")
	overlayFile, _ := cmd.Flags().GetString("overlay")

	p, suite, err := buildPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = suite.Close() }()

	res, err := p.ProcessFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	rec := res.Record(cfg.Output.Explain)
	if cfg.Output.Validate {
		if err := pipeline.ValidateRecord(&rec); err != nil {
			return fmt.Errorf("record for %s: %w", path, err)
		}
	}
	out, err := pipeline.Format(&rec, cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, outputFile, out); err != nil {
		return err
	}

	if detectionFile != "" {
		if err := saveDetection(detectionFile, res); err != nil {
			return err
		}
	}
	if overlayFile != "" {
		if err := saveOverlay(overlayFile, path, res); err != nil {
			return err
		}
	}
	return nil
}

func saveDetection(path string, res *pipeline.Result) error {
	data, err := detector.ToJSON(res.File, res.Detection)
	if err != nil {
		return fmt.Errorf("detection dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	slog.Info("Detection written", "path", path, "regions", len(res.Detection.Regions))
	return nil
}

func saveOverlay(path, imagePath string, res *pipeline.Result) error {
	img, _, err := utils.LoadImage(imagePath)
	if err != nil {
		return err
	}
	if err := overlay.Save(path, img, res.Detection.Regions, res.Kept, overlay.DefaultStyle()); err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	slog.Info("Overlay written", "path", path, "kept", len(res.Kept))
	return nil
}
