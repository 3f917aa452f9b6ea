package detector

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genRegion() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 800),
		gen.Float64Range(0, 800),
		gen.Float64Range(-5, 300),
		gen.Float64Range(-5, 120),
		gen.Float64Range(0, 1),
		gen.Bool(),
	).Map(func(v []interface{}) Region {
		var score *float64
		if v[5].(bool) {
			score = Score(v[4].(float64))
		}
		return box(0, v[0].(float64), v[1].(float64), v[2].(float64), v[3].(float64), score)
	})
}

func genRegions() gopter.Gen {
	return gen.SliceOf(genRegion()).Map(func(rs []Region) []Region {
		for i := range rs {
			rs[i].Index = i
		}
		return rs
	})
}

func genFilterConfig() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 30),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 1),
		gen.Bool(),
	).Map(func(v []interface{}) FilterConfig {
		return FilterConfig{
			MaxKeep:       v[0].(int),
			MinSide:       v[1].(float64),
			AreaKeepRatio: v[2].(float64),
			EnableNMS:     v[3].(bool),
			NMSThreshold:  0.3,
		}
	})
}

func TestFilterProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("never more than MaxKeep regions", prop.ForAll(
		func(regions []Region, cfg FilterConfig) bool {
			return len(Filter(regions, cfg)) <= cfg.MaxKeep
		},
		genRegions(), genFilterConfig(),
	))

	properties.Property("every kept side exceeds MinSide", prop.ForAll(
		func(regions []Region, cfg FilterConfig) bool {
			for _, r := range Filter(regions, cfg) {
				if r.Box.Width() <= cfg.MinSide || r.Box.Height() <= cfg.MinSide {
					return false
				}
			}
			return true
		},
		genRegions(), genFilterConfig(),
	))

	properties.Property("output is ranked by score descending", prop.ForAll(
		func(regions []Region, cfg FilterConfig) bool {
			out := Filter(regions, cfg)
			for i := 1; i < len(out); i++ {
				if out[i].RankScore() > out[i-1].RankScore() {
					return false
				}
			}
			return true
		},
		genRegions(), genFilterConfig(),
	))

	properties.Property("area step is a no-op with fewer than two valid regions", prop.ForAll(
		func(regions []Region, cfg FilterConfig) bool {
			valid := 0
			for _, r := range regions {
				if r.Box.Width() > cfg.MinSide && r.Box.Height() > cfg.MinSide {
					valid++
				}
			}
			if valid >= 2 {
				return true
			}
			return len(Filter(regions, cfg)) == min(valid, cfg.MaxKeep)
		},
		genRegions(), genFilterConfig(),
	))

	properties.Property("filtering is idempotent without nms", prop.ForAll(
		func(regions []Region, cfg FilterConfig) bool {
			cfg.EnableNMS = false
			once := Filter(regions, cfg)
			twice := Filter(once, cfg)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i].Index != twice[i].Index {
					return false
				}
			}
			return true
		},
		genRegions(), genFilterConfig(),
	))

	properties.TestingRun(t)
}
