package detector

import "github.com/MeKo-Tech/qdocr/internal/utils"

// SuppressOverlaps drops near-duplicate detections. Regions are visited by
// RankScore descending (ties by input order); a region is dropped when its IoU
// with an already kept region exceeds iouThreshold. Survivors keep their input
// order.
func SuppressOverlaps(regions []Region, iouThreshold float64) []Region {
	if len(regions) <= 1 {
		return regions
	}
	order := rankOrder(regions)
	keep := make([]bool, len(regions))
	kept := make([]int, 0, len(regions))
	for _, i := range order {
		dup := false
		for _, k := range kept {
			if utils.IoU(regions[i].Box, regions[k].Box) > iouThreshold {
				dup = true
				break
			}
		}
		if !dup {
			keep[i] = true
			kept = append(kept, i)
		}
	}
	out := make([]Region, 0, len(kept))
	for i, r := range regions {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out
}
