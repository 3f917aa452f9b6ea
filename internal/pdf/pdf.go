// Package pdf turns scanned PDF documents into page images.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// Page renderers.
const (
	RendererExtract = "extract" // embedded page images via pdfcpu
	RendererRender  = "render"  // rasterize with MuPDF
)

// DefaultDPI is the rasterization resolution for RendererRender.
const DefaultDPI = 200

// Options selects how pages are turned into images.
type Options struct {
	Renderer string
	DPI      int
	Pages    string // e.g. "1-3,5"; empty selects every page
}

// DefaultOptions returns embedded-image extraction over all pages.
func DefaultOptions() Options {
	return Options{Renderer: RendererExtract, DPI: DefaultDPI}
}

// Page is one page image ready for the pipeline.
type Page struct {
	Number int
	Name   string
	Image  image.Image
}

// PageName names a page record: "scan.pdf#page-2".
func PageName(path string, number int) string {
	return filepath.Base(path) + "#page-" + strconv.Itoa(number)
}

// Pages loads the selected pages of the PDF at path in page order.
func Pages(ctx context.Context, path string, opts Options) ([]Page, error) {
	selected, err := ParsePageRange(opts.Pages)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", opts.Pages, err)
	}
	switch strings.ToLower(opts.Renderer) {
	case RendererExtract, "":
		return extractPages(ctx, path, selected)
	case RendererRender:
		dpi := opts.DPI
		if dpi <= 0 {
			dpi = DefaultDPI
		}
		return renderPages(ctx, path, selected, dpi)
	}
	return nil, fmt.Errorf("unknown pdf renderer %q", opts.Renderer)
}

// extractPages pulls embedded images out of each page. A scanned page may
// carry several image objects; the largest one is taken as the page.
func extractPages(ctx context.Context, path string, selected []int) ([]Page, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-provided PDF path
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := checkPages(selected, count); err != nil {
		return nil, err
	}

	var pageStrings []string
	for _, n := range selected {
		pageStrings = append(pageStrings, strconv.Itoa(n))
	}

	images, err := ExtractImages(bytes.NewReader(data), pageStrings)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	numbers := make([]int, 0, len(images))
	for n := range images {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]Page, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, Page{Number: n, Name: PageName(path, n), Image: largest(images[n])})
	}
	return pages, nil
}

// ExtractImages decodes the embedded images of the selected pages (all pages
// when pageStrings is empty), grouped by 1-based page number. Images that
// cannot be decoded are skipped.
func ExtractImages(rs io.ReadSeeker, pageStrings []string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)
	digest := func(img model.Image, _ bool, _ int) error {
		data, err := io.ReadAll(img)
		if err != nil {
			return nil
		}
		decoded, _, err := utils.DecodeImage(data)
		if err != nil {
			return nil
		}
		result[img.PageNr] = append(result[img.PageNr], decoded)
		return nil
	}
	if err := api.ExtractImages(rs, pageStrings, digest, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return result, nil
}

func largest(imgs []image.Image) image.Image {
	var best image.Image
	bestArea := -1
	for _, img := range imgs {
		b := img.Bounds()
		if a := b.Dx() * b.Dy(); a > bestArea {
			best, bestArea = img, a
		}
	}
	return best
}

// renderPages rasterizes pages with MuPDF at dpi.
func renderPages(ctx context.Context, path string, selected []int, dpi int) ([]Page, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() { _ = doc.Close() }()

	count := doc.NumPage()
	if err := checkPages(selected, count); err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		for n := 1; n <= count; n++ {
			selected = append(selected, n)
		}
	}

	pages := make([]Page, 0, len(selected))
	for _, n := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(n-1, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n, err)
		}
		pages = append(pages, Page{Number: n, Name: PageName(path, n), Image: img})
	}
	return pages, nil
}

func checkPages(selected []int, count int) error {
	if count == 0 {
		return errors.New("PDF has no pages")
	}
	for _, n := range selected {
		if n > count {
			return fmt.Errorf("page %d out of range (document has %d pages)", n, count)
		}
	}
	return nil
}

// ParsePageRange parses a page range string like "1-5" or "1,3,5" into sorted,
// unique 1-based page numbers. Empty means all pages and returns nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	seen := make(map[int]struct{})
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		for _, p := range tokenPages {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				pages = append(pages, p)
			}
		}
	}
	sort.Ints(pages)
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := parsePage(rangeParts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := parsePage(rangeParts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := parsePage(part)
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("page %d must be at least 1", n)
	}
	return n, nil
}
