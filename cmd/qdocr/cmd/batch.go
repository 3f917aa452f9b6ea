package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qdocr/internal/batch"
	"github.com/MeKo-Tech/qdocr/internal/store"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Extract decision fields from many images",
	Long: `Process image files and directories one image at a time and write the
aggregate results. Failed images are listed separately and do not stop the run.

Supported formats: PNG, JPEG, BMP, TIFF, WebP

Examples:
  qdocr batch scans/
  qdocr batch scans/ --recursive --exclude "*_thumb.png"
  qdocr batch a.png b.jpg --output-dir out --yaml --xlsx records.xlsx
  qdocr batch scans/ --store records.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	f := batchCmd.Flags()
	f.BoolP("recursive", "r", false, "recursively scan directories")
	f.StringSlice("include", []string{}, "file patterns to include (e.g. \"*.png\")")
	f.StringSlice("exclude", []string{}, "file patterns to exclude")
	f.String("output-dir", "outputs", "directory for aggregate results")
	f.String("results-file", batch.DefaultResultsFile, "results file name inside the output directory")
	f.Bool("yaml", false, "also write the results as YAML")
	f.String("xlsx", "", "also write an XLSX workbook with one row per record")
	f.Bool("explain", false, "include lines, regions and matched rules in each record")
	f.Bool("validate", true, "check each record against the output schema")
	f.String("store", "", "SQLite database that receives every record")

	bindFlags(batchCmd, map[string]string{
		"output.dir":        "output-dir",
		"output.batch_file": "results-file",
		"output.yaml":       "yaml",
		"output.xlsx_file":  "xlsx",
		"output.explain":    "explain",
		"output.validate":   "validate",
		"store.path":        "store",
	})
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	recursive, _ := cmd.Flags().GetBool("recursive")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")

	paths, err := batch.Discover(args, recursive, include, exclude)
	if err != nil {
		return fmt.Errorf("discover images: %w", err)
	}
	if len(paths) == 0 {
		return errors.New("no supported images found")
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Processing %d image(s)\n", len(paths))

	p, suite, err := buildPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = suite.Close() }()

	bc := cfg.ToBatchConfig()
	bc.Logger = slog.Default()
	if cfg.Store.Path != "" {
		st, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		bc.Recorder = st
	}

	res, runErr := batch.Run(ctx, p, paths, bc)
	written, err := batch.WriteArtifacts(res, bc)
	if err != nil {
		return err
	}
	for _, w := range written {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", w)
	}
	res.WriteSummary(cmd.OutOrStdout())
	if runErr != nil {
		return fmt.Errorf("batch interrupted: %w", runErr)
	}
	return nil
}
