package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qdocr/internal/extract"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

// textCmd represents the text command.
var textCmd = &cobra.Command{
	Use:   "text [file...]",
	Short: "Extract decision fields from already recognized text",
	Long: `Run field extraction over plain text files, one record per file, without
any models. Use "-" or no argument to read standard input. seal_by_layout is
always null because there is no page layout.

Examples:
  qdocr text decision.txt
  pdftotext decision.pdf - | qdocr text --format yaml`,
	RunE: runText,
}

func init() {
	rootCmd.AddCommand(textCmd)

	f := textCmd.Flags()
	f.StringP("format", "f", pipeline.FormatJSON, "output format: json, yaml, text, csv")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.Bool("explain", false, "include lines and matched rules in each record")

	bindFlags(textCmd, map[string]string{
		"output.format":  "format",
		"output.explain": "explain",
	})
}

func runText(cmd *cobra.Command, args []string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	if len(args) == 0 {
		args = []string{"-"}
	}

	ex, err := extract.New(cfg.ToPipelineConfig().Extraction)
	if err != nil {
		return err
	}
	now := time.Now()
	recs := make([]pipeline.Record, 0, len(args))
	for _, name := range args {
		text, err := readText(cmd, name)
		if err != nil {
			return err
		}
		if name == "-" {
			name = "stdin"
		} else {
			name = filepath.Base(name)
		}
		recs = append(recs, pipeline.TextRecord(ex, name, text, now, cfg.Output.Explain))
	}

	var out string
	if len(recs) == 1 {
		out, err = pipeline.Format(&recs[0], cfg.Output.Format)
	} else {
		out, err = formatRecords(recs, cfg.Output.Format)
	}
	if err != nil {
		return err
	}
	return writeOutput(cmd, outputFile, out)
}

func readText(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", pipeline.ErrInput, err)
	}
	return string(data), nil
}
