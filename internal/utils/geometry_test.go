package utils

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBoxOrdersCorners(t *testing.T) {
	b := NewBox(10, 20, 2, 4)
	assert.Equal(t, Box{MinX: 2, MinY: 4, MaxX: 10, MaxY: 20}, b)
	assert.InDelta(t, 8.0, b.Width(), 1e-9)
	assert.InDelta(t, 16.0, b.Height(), 1e-9)
}

func TestBoxArea(t *testing.T) {
	assert.InDelta(t, 200.0, Box{MaxX: 10, MaxY: 20}.Area(), 1e-9)
	assert.Zero(t, Box{MinX: 5, MaxX: 5, MaxY: 10}.Area())
	assert.Zero(t, Box{MinX: 10, MaxX: 0, MaxY: 10}.Area(), "inverted box has no area")
}

func TestIoU(t *testing.T) {
	a := Box{MaxX: 10, MaxY: 10}
	cases := []struct {
		name string
		b    Box
		want float64
	}{
		{"identical", a, 1},
		{"disjoint", Box{MinX: 20, MinY: 20, MaxX: 30, MaxY: 30}, 0},
		{"touching edge", Box{MinX: 10, MaxX: 20, MaxY: 10}, 0},
		{"half overlap", Box{MinX: 5, MaxX: 15, MaxY: 10}, 50.0 / 150.0},
		{"contained", Box{MinX: 0, MinY: 0, MaxX: 5, MaxY: 5}, 25.0 / 100.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.InDelta(t, c.want, IoU(a, c.b), 1e-9)
			assert.InDelta(t, c.want, IoU(c.b, a), 1e-9)
		})
	}
	assert.Zero(t, IoU(Box{}, Box{}))
}

func TestBoundingBox(t *testing.T) {
	assert.Equal(t, Box{}, BoundingBox(nil))
	pts := []Point{{X: 5, Y: 9}, {X: 1, Y: 3}, {X: 7, Y: 2}, {X: 4, Y: 11}}
	assert.Equal(t, Box{MinX: 1, MinY: 2, MaxX: 7, MaxY: 11}, BoundingBox(pts))
}

func TestClampRect(t *testing.T) {
	cases := []struct {
		name string
		box  Box
		want image.Rectangle
	}{
		{"inside", Box{MinX: 1.7, MinY: 2.2, MaxX: 8.9, MaxY: 9.1}, image.Rect(1, 2, 8, 9)},
		{"overflow", Box{MinX: -5, MinY: -5, MaxX: 500, MaxY: 500}, image.Rect(0, 0, 100, 50)},
		{"min past right edge", Box{MinX: 150, MinY: 0, MaxX: 160, MaxY: 10}, image.Rect(99, 0, 100, 10)},
		{"zero width after clamp", Box{MinX: 99.5, MinY: 0, MaxX: 99.9, MaxY: 10}, image.Rectangle{}},
		{"entirely above", Box{MinX: 0, MinY: -20, MaxX: 10, MaxY: -1}, image.Rectangle{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ClampRect(c.box, 100, 50))
		})
	}
}

func TestClampRectEmptyImage(t *testing.T) {
	assert.True(t, ClampRect(Box{MaxX: 10, MaxY: 10}, 0, 0).Empty())
}
