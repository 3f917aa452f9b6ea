// Package overlay draws detection results over the source image for
// debugging.
package overlay

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/fogleman/gg"

	"github.com/MeKo-Tech/qdocr/internal/detector"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// Style sets colors and line widths.
type Style struct {
	RawColor   color.Color
	KeptColor  color.Color
	LabelColor color.Color
	RawWidth   float64
	KeptWidth  float64
	Labels     bool // draw the 1-based rank next to each kept region
}

// DefaultStyle draws raw regions thin gray and kept regions green.
func DefaultStyle() Style {
	return Style{
		RawColor:   color.RGBA{160, 160, 160, 255},
		KeptColor:  color.RGBA{0, 200, 0, 255},
		LabelColor: color.RGBA{0, 120, 0, 255},
		RawWidth:   1,
		KeptWidth:  2,
		Labels:     true,
	}
}

// Render returns a copy of img with raw regions drawn first and kept regions
// on top.
func Render(img image.Image, raw, kept []detector.Region, style Style) (image.Image, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	// Region coordinates are relative to the image origin.
	b := img.Bounds()
	base := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)
	dc := gg.NewContextForRGBA(base)

	dc.SetColor(style.RawColor)
	dc.SetLineWidth(style.RawWidth)
	for _, r := range raw {
		outline(dc, r)
		dc.Stroke()
	}

	dc.SetLineWidth(style.KeptWidth)
	for i, r := range kept {
		dc.SetColor(style.KeptColor)
		outline(dc, r)
		dc.Stroke()
		if style.Labels {
			dc.SetColor(style.LabelColor)
			dc.DrawStringAnchored(strconv.Itoa(i+1), r.Box.MinX-2, r.Box.MinY+2, 1, 1)
		}
	}
	return dc.Image(), nil
}

// outline adds the region's polygon, or its box when there is none, as a
// closed path.
func outline(dc *gg.Context, r detector.Region) {
	pts := r.Polygon
	if len(pts) < 3 {
		pts = []utils.Point{
			{X: r.Box.MinX, Y: r.Box.MinY},
			{X: r.Box.MaxX, Y: r.Box.MinY},
			{X: r.Box.MaxX, Y: r.Box.MaxY},
			{X: r.Box.MinX, Y: r.Box.MaxY},
		}
	}
	dc.NewSubPath()
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
}

// Save renders the overlay and writes it as PNG.
func Save(path string, img image.Image, raw, kept []detector.Region, style Style) error {
	out, err := Render(img, raw, kept, style)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, out)
}
