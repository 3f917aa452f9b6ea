package detector

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// DetectionJSON is the on-disk form of one image's detection output.
type DetectionJSON struct {
	Image   string       `json:"image"`
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Regions []RegionJSON `json:"regions"`
}

// RegionJSON stores a box as [x_min, y_min, x_max, y_max].
type RegionJSON struct {
	Box     [4]float64   `json:"box"`
	Polygon [][2]float64 `json:"polygon,omitempty"`
	Score   *float64     `json:"score"`
	Text    string       `json:"text,omitempty"`
}

// ToJSON serializes detector output for debugging or later replay.
func ToJSON(name string, out *Output) ([]byte, error) {
	if out == nil {
		return nil, errors.New("nil detection output")
	}
	doc := DetectionJSON{Image: name, Width: out.Width, Height: out.Height, Regions: make([]RegionJSON, 0, len(out.Regions))}
	for _, r := range out.Regions {
		rj := RegionJSON{
			Box:   [4]float64{r.Box.MinX, r.Box.MinY, r.Box.MaxX, r.Box.MaxY},
			Score: r.Score,
			Text:  r.Text,
		}
		for _, p := range r.Polygon {
			rj.Polygon = append(rj.Polygon, [2]float64{p.X, p.Y})
		}
		doc.Regions = append(doc.Regions, rj)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FromJSON parses a detection dump back into an Output. Polygons, when present,
// take precedence over the stored box.
func FromJSON(data []byte) (string, *Output, error) {
	var doc DetectionJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, fmt.Errorf("parse detection json: %w", err)
	}
	out := &Output{Width: doc.Width, Height: doc.Height, Regions: make([]Region, 0, len(doc.Regions))}
	for i, rj := range doc.Regions {
		var r Region
		if len(rj.Polygon) > 0 {
			pts := make([]utils.Point, len(rj.Polygon))
			for j, p := range rj.Polygon {
				pts[j] = utils.Point{X: p[0], Y: p[1]}
			}
			r = FromPolygon(i, pts, rj.Score)
		} else {
			r = FromBox(i, utils.Box{MinX: rj.Box[0], MinY: rj.Box[1], MaxX: rj.Box[2], MaxY: rj.Box[3]}, rj.Score)
		}
		r.Text = rj.Text
		out.Regions = append(out.Regions, r)
	}
	return doc.Image, out, nil
}
