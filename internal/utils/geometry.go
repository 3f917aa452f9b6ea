package utils

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in image pixel space.
type Point struct {
	X float64
	Y float64
}

// Box is an axis-aligned bounding box in image pixel coordinates.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBox constructs a Box from two corners, swapping them when needed.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// Width returns MaxX-MinX. It is negative for inverted boxes.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY-MinY. It is negative for inverted boxes.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Area returns the box area, or 0 when the box is degenerate.
func (b Box) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Valid reports whether the box has strictly positive width and height.
func (b Box) Valid() bool {
	return b.Width() > 0 && b.Height() > 0
}

// Intersect returns the overlapping box of b and o. The result may be degenerate.
func (b Box) Intersect(o Box) Box {
	return Box{
		MinX: math.Max(b.MinX, o.MinX),
		MinY: math.Max(b.MinY, o.MinY),
		MaxX: math.Min(b.MaxX, o.MaxX),
		MaxY: math.Min(b.MaxY, o.MaxY),
	}
}

// Scale multiplies all coordinates by sx and sy.
func (b Box) Scale(sx, sy float64) Box {
	return NewBox(b.MinX*sx, b.MinY*sy, b.MaxX*sx, b.MaxY*sy)
}

// Corners returns the four corners clockwise starting at the top-left.
func (b Box) Corners() []Point {
	return []Point{
		{X: b.MinX, Y: b.MinY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MinX, Y: b.MaxY},
	}
}

// IoU computes intersection-over-union of two boxes. Two degenerate boxes
// have an IoU of 0.
func IoU(a, b Box) float64 {
	inter := a.Intersect(b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// BoundingBox returns the axis-aligned bounding box for a set of points.
func BoundingBox(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Box{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// ClampRect truncates the box to integer pixels and clamps it to a w×h image.
// The minimum corner is clamped to [0, dim-1] and the maximum corner to
// [0, dim]. The returned rectangle is empty when nothing of the box remains.
func ClampRect(b Box, w, h int) image.Rectangle {
	x1 := clampInt(int(b.MinX), 0, w-1)
	y1 := clampInt(int(b.MinY), 0, h-1)
	x2 := clampInt(int(b.MaxX), 0, w)
	y2 := clampInt(int(b.MaxY), 0, h)
	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}
	}
	return image.Rect(x1, y1, x2, y2)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
