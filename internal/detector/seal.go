package detector

// Seal heuristic constants. Seals tend to break into many small curved-text
// fragments, so a high share of small regions suggests one is present.
const (
	SealMinRegions     = 5
	SealSmallAreaRatio = 0.3
	SealSmallShare     = 0.2
)

// SealLikely reports whether the region size distribution suggests an official
// seal. With fewer than SealMinRegions regions it returns false. Otherwise a
// region is small when its area is below SealSmallAreaRatio × the mean area, and
// the result is true when small regions exceed SealSmallShare of all regions.
// Regions with an invalid box are ignored. It is a coarse proxy and misfires on
// dense layouts.
func SealLikely(regions []Region) bool {
	areas := make([]float64, 0, len(regions))
	var sum float64
	for _, r := range regions {
		if !r.Box.Valid() {
			continue
		}
		a := r.Box.Area()
		areas = append(areas, a)
		sum += a
	}
	n := len(areas)
	if n < SealMinRegions {
		return false
	}
	mean := sum / float64(n)
	small := 0
	for _, a := range areas {
		if a < mean*SealSmallAreaRatio {
			small++
		}
	}
	return float64(small) > float64(n)*SealSmallShare
}
