package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// Page layout constants.
const (
	PageWidth     = 800
	lineHeight    = 24
	lineSpacing   = 40
	marginLeft    = 40
	marginTop     = 40
	pixelsPerRune = 9
	minLineWidth  = 60
)

// Page is a synthetic document page with one text line per box. The top-left
// pixel of each box encodes the line number as a gray level (line i is
// Gray{i+1}), which PageRecognizer reads back. Up to 254 lines fit.
type Page struct {
	Image *image.RGBA
	Boxes []utils.Box
	Texts []string
}

// NewPage renders texts as stacked lines. Basic font glyphs are drawn for
// ASCII only; the text identity lives in the marker pixel.
func NewPage(texts []string) *Page {
	height := marginTop*2 + len(texts)*lineSpacing
	img := image.NewRGBA(image.Rect(0, 0, PageWidth, max(height, 100)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	p := &Page{Image: img, Texts: texts, Boxes: make([]utils.Box, len(texts))}
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: basicfont.Face7x13}
	for i, text := range texts {
		w := min(max(utf8.RuneCountInString(text)*pixelsPerRune, minLineWidth), PageWidth-2*marginLeft)
		y := marginTop + i*lineSpacing
		r := image.Rect(marginLeft, y, marginLeft+w, y+lineHeight)
		draw.Draw(img, r, image.NewUniform(color.Gray{Y: 230}), image.Point{}, draw.Src)
		drawer.Dot = fixed.P(r.Min.X+4, r.Min.Y+17)
		drawer.DrawString(text)
		img.Set(r.Min.X, r.Min.Y, color.Gray{Y: uint8(i + 1)})
		p.Boxes[i] = utils.NewBox(float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y))
	}
	return p
}

// LineIndex decodes the marker pixel of a crop, or -1 if there is none.
func LineIndex(crop image.Image) int {
	b := crop.Bounds()
	if b.Empty() {
		return -1
	}
	g := color.GrayModel.Convert(crop.At(b.Min.X, b.Min.Y)).(color.Gray).Y
	if g == 0 || g > 254 {
		return -1
	}
	return int(g) - 1
}

// PNG encodes the page.
func (p *Page) PNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, p.Image))
	return buf.Bytes()
}

// Save writes the page as PNG under dir and returns the path.
func (p *Page) Save(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(path, p.PNG(t), 0o600))
	return path
}

// CreateTestImage creates a solid image of the given size.
func CreateTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}
