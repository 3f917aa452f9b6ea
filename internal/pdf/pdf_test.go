package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qdocr/internal/testutil"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"empty", "", nil, false},
		{"blank", "  ", nil, false},
		{"single", "3", []int{3}, false},
		{"range", "1-3", []int{1, 2, 3}, false},
		{"mixed", "1-3,5", []int{1, 2, 3, 5}, false},
		{"spaces", " 2 , 4 - 5 ", []int{2, 4, 5}, false},
		{"unsorted and duplicate", "5,1-2,2", []int{1, 2, 5}, false},
		{"reversed", "5-3", nil, true},
		{"zero", "0", nil, true},
		{"negative start", "-1-3", nil, true},
		{"garbage", "a", nil, true},
		{"double dash", "1-2-3", nil, true},
		{"empty token", "1,,2", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRange(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageName(t *testing.T) {
	assert.Equal(t, "scan.pdf#page-2", PageName("/data/in/scan.pdf", 2))
}

func TestLargest(t *testing.T) {
	small := image.NewGray(image.Rect(0, 0, 10, 10))
	big := image.NewGray(image.Rect(0, 0, 40, 30))
	assert.Same(t, big, largest([]image.Image{small, big}))
	assert.Nil(t, largest(nil))
}

func TestCheckPages(t *testing.T) {
	require.NoError(t, checkPages([]int{1, 2}, 2))
	require.NoError(t, checkPages(nil, 1))
	require.Error(t, checkPages([]int{3}, 2))
	require.Error(t, checkPages(nil, 0))
}

func TestPagesErrors(t *testing.T) {
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	_, err := Pages(ctx, missing, Options{Renderer: "magic"})
	require.Error(t, err)

	_, err = Pages(ctx, missing, Options{Pages: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")

	_, err = Pages(ctx, missing, DefaultOptions())
	require.Error(t, err)

	notPDF := testutil.WriteFile(t, t.TempDir(), "fake.pdf", []byte("not a pdf"))
	_, err = Pages(ctx, notPDF, DefaultOptions())
	require.Error(t, err)
}

// scannedPDF builds a two-page PDF, one embedded image per page.
func scannedPDF(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var imgs []string
	for i, size := range []image.Point{{120, 80}, {90, 60}} {
		img := testutil.CreateTestImage(size.X, size.Y, color.Gray{Y: uint8(100 + 50*i)})
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		imgs = append(imgs, testutil.WriteFile(t, dir, fmt.Sprintf("page%d.png", i+1), buf.Bytes()))
	}
	out := filepath.Join(dir, "scan.pdf")
	if err := api.ImportImagesFile(imgs, out, pdfcpu.DefaultImportConfig(), nil); err != nil {
		t.Skipf("cannot build test PDF: %v", err)
	}
	return out
}

func TestPagesExtract(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PDF integration test in short mode")
	}
	path := scannedPDF(t)

	pages, err := Pages(context.Background(), path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "scan.pdf#page-1", pages[0].Name)
	assert.Equal(t, 120, pages[0].Image.Bounds().Dx())
	assert.Equal(t, 90, pages[1].Image.Bounds().Dx())

	pages, err = Pages(context.Background(), path, Options{Renderer: RendererExtract, Pages: "2"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 2, pages[0].Number)

	_, err = Pages(context.Background(), path, Options{Pages: "3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestPagesRender(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PDF integration test in short mode")
	}
	path := scannedPDF(t)

	pages, err := Pages(context.Background(), path, Options{Renderer: RendererRender, DPI: 72, Pages: "1"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "scan.pdf#page-1", pages[0].Name)
	assert.Positive(t, pages[0].Image.Bounds().Dx())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Pages(ctx, path, Options{Renderer: RendererRender})
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractImagesRejectsGarbage(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "*.pdf")
	require.NoError(t, err)
	_, _ = f.WriteString("%PDF-1.7 broken")
	require.NoError(t, f.Close())
	rs, err := os.Open(f.Name())
	require.NoError(t, err)
	defer func() { _ = rs.Close() }()
	_, err = ExtractImages(rs, nil)
	require.Error(t, err)
}
