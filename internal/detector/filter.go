package detector

import (
	"slices"
	"sort"
)

// FilterConfig holds the region filter thresholds.
type FilterConfig struct {
	MaxKeep       int     // upper bound on regions passed to recognition
	MinSide       float64 // width and height must both exceed this
	AreaKeepRatio float64 // drop regions smaller than ratio × largest kept area
	EnableNMS     bool
	NMSThreshold  float64
	// ReadingOrder re-sorts the survivors top-to-bottom, left-to-right instead
	// of leaving them in rank order.
	ReadingOrder bool
}

// DefaultFilterConfig returns the stock thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxKeep:       24,
		MinSide:       12,
		AreaKeepRatio: 0.2,
		EnableNMS:     false,
		NMSThreshold:  0.3,
	}
}

// Filter reduces regions to the subset worth recognizing:
//  1. drop regions whose width or height is not greater than MinSide
//  2. optionally suppress overlapping duplicates
//  3. stable-sort by RankScore descending and keep the first MaxKeep
//  4. drop regions whose area is below AreaKeepRatio × the largest kept area
//
// The result is in rank order unless ReadingOrder is set. The input slice is
// not modified.
func Filter(regions []Region, cfg FilterConfig) []Region {
	sized := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.Box.Width() > cfg.MinSide && r.Box.Height() > cfg.MinSide {
			sized = append(sized, r)
		}
	}
	if len(sized) == 0 {
		return []Region{}
	}
	if cfg.EnableNMS {
		sized = SuppressOverlaps(sized, cfg.NMSThreshold)
	}

	ranked := make([]Region, len(sized))
	for i, idx := range rankOrder(sized) {
		ranked[i] = sized[idx]
	}
	if cfg.MaxKeep >= 0 && len(ranked) > cfg.MaxKeep {
		ranked = ranked[:cfg.MaxKeep]
	}

	var maxArea float64
	for _, r := range ranked {
		maxArea = max(maxArea, r.Box.Area())
	}
	floor := cfg.AreaKeepRatio * maxArea
	kept := slices.DeleteFunc(ranked, func(r Region) bool {
		return r.Box.Area() < floor
	})
	if cfg.ReadingOrder {
		SortReadingOrder(kept)
	}
	return kept
}

// SortReadingOrder sorts regions in place by top edge, then left edge. Regions
// whose top edges are within half the smaller height count as one line.
func SortReadingOrder(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i].Box, regions[j].Box
		tol := min(a.Height(), b.Height()) / 2
		if d := a.MinY - b.MinY; d < -tol || d > tol {
			return a.MinY < b.MinY
		}
		return a.MinX < b.MinX
	})
}

// rankOrder returns indices of regions sorted by RankScore descending, ties
// broken by position.
func rankOrder(regions []Region) []int {
	idx := make([]int, len(regions))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return regions[idx[a]].RankScore() > regions[idx[b]].RankScore()
	})
	return idx
}
