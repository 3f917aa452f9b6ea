package utils

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genBox() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 500),
		gen.Float64Range(1, 200),
		gen.Float64Range(1, 200),
	).Map(func(v []interface{}) Box {
		x, y := v[0].(float64), v[1].(float64)
		return Box{MinX: x, MinY: y, MaxX: x + v[2].(float64), MaxY: y + v[3].(float64)}
	})
}

func TestIoUProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("iou is symmetric", prop.ForAll(
		func(a, b Box) bool {
			return math.Abs(IoU(a, b)-IoU(b, a)) < 1e-9
		},
		genBox(), genBox(),
	))

	properties.Property("iou is within [0,1]", prop.ForAll(
		func(a, b Box) bool {
			v := IoU(a, b)
			return v >= 0 && v <= 1+1e-9
		},
		genBox(), genBox(),
	))

	properties.Property("a box overlaps itself fully", prop.ForAll(
		func(a Box) bool {
			return math.Abs(IoU(a, a)-1) < 1e-9
		},
		genBox(),
	))

	properties.TestingRun(t)
}

func TestClampRectStaysInsideImage(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("clamped rect is empty or inside bounds", prop.ForAll(
		func(x1, y1, x2, y2 float64, w, h int) bool {
			r := ClampRect(Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}, w, h)
			if r.Empty() {
				return true
			}
			return r.Min.X >= 0 && r.Min.Y >= 0 && r.Max.X <= w && r.Max.Y <= h
		},
		gen.Float64Range(-100, 700), gen.Float64Range(-100, 700),
		gen.Float64Range(-100, 700), gen.Float64Range(-100, 700),
		gen.IntRange(1, 600), gen.IntRange(1, 600),
	))

	properties.TestingRun(t)
}
