package detector

import (
	"github.com/MeKo-Tech/qdocr/internal/mempool"
	"github.com/MeKo-Tech/qdocr/internal/utils"
)

// component accumulates statistics for one connected blob of the probability map.
type component struct {
	count      int
	sum        float64
	minX, minY int
	maxX, maxY int
}

func (c component) mean() float64 {
	if c.count == 0 {
		return 0
	}
	return c.sum / float64(c.count)
}

// connectedComponents labels 4-connected pixels with prob >= thresh.
func connectedComponents(prob []float32, w, h int, thresh float32) []component {
	visited := mempool.GetBool(w * h)
	defer mempool.PutBool(visited)
	var comps []component
	queue := make([]int, 0, 256)

	for start := range prob {
		if visited[start] || prob[start] < thresh {
			continue
		}
		c := component{minX: start % w, minY: start / w, maxX: start % w, maxY: start / w}
		queue = append(queue[:0], start)
		visited[start] = true
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			c.count++
			c.sum += float64(prob[i])
			c.minX, c.maxX = min(c.minX, x), max(c.maxX, x)
			c.minY, c.maxY = min(c.minY, y), max(c.maxY, y)

			for _, n := range [4][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
				if n[0] < 0 || n[0] >= w || n[1] < 0 || n[1] >= h {
					continue
				}
				ni := n[1]*w + n[0]
				if !visited[ni] && prob[ni] >= thresh {
					visited[ni] = true
					queue = append(queue, ni)
				}
			}
		}
		comps = append(comps, c)
	}
	return comps
}

// unclip grows a shrunk DB text kernel back to the text extent. Each side moves
// out by area×ratio/perimeter, the offset the DB post-process uses.
func unclip(b utils.Box, ratio float64) utils.Box {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 || ratio <= 0 {
		return b
	}
	d := w * h * ratio / (2 * (w + h))
	return utils.Box{MinX: b.MinX - d, MinY: b.MinY - d, MaxX: b.MaxX + d, MaxY: b.MaxY + d}
}

// PostProcessDB turns a w×h probability map into regions in map coordinates.
// Components with mean probability below boxThresh are dropped.
func PostProcessDB(prob []float32, w, h int, thresh, boxThresh float32, unclipRatio float64) []Region {
	if w <= 0 || h <= 0 || len(prob) != w*h {
		return nil
	}
	comps := connectedComponents(prob, w, h, thresh)
	regions := make([]Region, 0, len(comps))
	for _, c := range comps {
		score := c.mean()
		if score < float64(boxThresh) {
			continue
		}
		box := unclip(utils.Box{
			MinX: float64(c.minX), MinY: float64(c.minY),
			MaxX: float64(c.maxX + 1), MaxY: float64(c.maxY + 1),
		}, unclipRatio)
		box = box.Intersect(utils.Box{MaxX: float64(w), MaxY: float64(h)})
		r := FromBox(len(regions), box, Score(score))
		r.Polygon = box.Corners()
		regions = append(regions, r)
	}
	return regions
}
