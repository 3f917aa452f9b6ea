package detector

import (
	"context"
	"image"

	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// Region is a detected text area reduced to an axis-aligned box.
type Region struct {
	// Index is the position in detector emission order.
	Index int
	// Polygon as emitted by the detector, in image pixel coordinates. May be empty
	// when the detector reports boxes directly.
	Polygon []utils.Point
	Box     utils.Box
	// Score is the detector confidence, nil when the detector gave none.
	Score *float64
	// Text is the detector's own recognition for the region, if it produces one.
	Text string
}

// FromPolygon builds a Region whose box is the min/max reduction of polygon.
func FromPolygon(index int, polygon []utils.Point, score *float64) Region {
	return Region{
		Index:   index,
		Polygon: polygon,
		Box:     utils.BoundingBox(polygon),
		Score:   score,
	}
}

// FromBox builds a Region from a pre-reduced box.
func FromBox(index int, box utils.Box, score *float64) Region {
	return Region{Index: index, Box: box, Score: score}
}

// Score returns a pointer to s, for building regions with a confidence.
func Score(s float64) *float64 { return &s }

// RankScore is the filter's ranking key: the detector score, or the box area
// when the detector gave no score. Unscored regions therefore rank above any
// scored region whose score is smaller than their area, which favors large text
// blocks when scores are missing.
func (r Region) RankScore() float64 {
	if r.Score != nil {
		return *r.Score
	}
	return r.Box.Area()
}

// Output is what a Detector returns for one image.
type Output struct {
	Regions []Region
	Width   int
	Height  int
}

// Texts returns the non-empty detector texts in region order.
func (o *Output) Texts() []string {
	if o == nil {
		return nil
	}
	out := make([]string, 0, len(o.Regions))
	for _, r := range o.Regions {
		if r.Text != "" {
			out = append(out, r.Text)
		}
	}
	return out
}

// Detector finds candidate text regions in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (*Output, error)
	Close() error
}
