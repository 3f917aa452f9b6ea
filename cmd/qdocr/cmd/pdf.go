package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qdocr/internal/pdf"
	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf <file.pdf>",
	Short: "Extract decision fields from the pages of a scanned PDF",
	Long: `Turn each selected page of a scanned PDF into an image and extract one
record per page. Records are named <file>.pdf#page-N.

The extract renderer pulls the embedded page scans out of the PDF. The render
renderer rasterizes each page with MuPDF at --dpi.

Examples:
  qdocr pdf decision.pdf
  qdocr pdf decisions.pdf --pages 1-3,5 --format csv
  qdocr pdf decision.pdf --renderer render --dpi 300`,
	Args: cobra.ExactArgs(1),
	RunE: runPDF,
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	f := pdfCmd.Flags()
	f.String("pages", "", "page range, e.g. \"1-3,5\" (default: all pages)")
	f.String("renderer", pdf.RendererExtract, "page source: extract or render")
	f.Int("dpi", pdf.DefaultDPI, "rasterization resolution for the render renderer")
	f.StringP("format", "f", pipeline.FormatJSON, "output format: json, yaml, text, csv")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.Bool("explain", false, "include lines, regions and matched rules in each record")
	f.Bool("validate", true, "check each record against the output schema")

	bindFlags(pdfCmd, map[string]string{
		"pdf.pages":       "pages",
		"pdf.renderer":    "renderer",
		"pdf.dpi":         "dpi",
		"output.format":   "format",
		"output.explain":  "explain",
		"output.validate": "validate",
	})
}

func runPDF(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	outputFile, _ := cmd.Flags().GetString("output")

	pages, err := pdf.Pages(ctx, args[0], cfg.ToPDFOptions())
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("%s: no page images found", args[0])
	}

	p, suite, err := buildPipeline()
	if err != nil {
		return err
	}
	defer func() { _ = suite.Close() }()

	recs := make([]pipeline.Record, 0, len(pages))
	var errs []error
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := p.ProcessImage(ctx, page.Name, page.Image)
		if err != nil {
			slog.Error("Page failed", "page", page.Number, "error", err)
			errs = append(errs, fmt.Errorf("page %d: %w", page.Number, err))
			continue
		}
		rec := res.Record(cfg.Output.Explain)
		if cfg.Output.Validate {
			if err := pipeline.ValidateRecord(&rec); err != nil {
				errs = append(errs, fmt.Errorf("page %d: %w", page.Number, err))
				continue
			}
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return errors.Join(errs...)
	}

	out, err := formatRecords(recs, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, outputFile, out)
}

// formatRecords renders several records: JSON and YAML as one list, CSV with a
// single header, text as blocks separated by blank lines.
func formatRecords(recs []pipeline.Record, format string) (string, error) {
	switch strings.ToLower(format) {
	case pipeline.FormatJSON, "":
		return pipeline.ToJSONRecords(recs)
	case pipeline.FormatYAML:
		return pipeline.ToYAML(recs)
	case pipeline.FormatCSV:
		return pipeline.ToCSV(recs...)
	case pipeline.FormatText:
		blocks := make([]string, 0, len(recs))
		for i := range recs {
			s, err := pipeline.ToText(&recs[i])
			if err != nil {
				return "", err
			}
			blocks = append(blocks, strings.TrimRight(s, "\n"))
		}
		return strings.Join(blocks, "\n\n"), nil
	}
	return pipeline.Format(nil, format)
}
