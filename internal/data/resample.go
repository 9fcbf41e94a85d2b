package data

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"storage-cycles/internal/model"
)

// Step is the series resolution.
const Step = 15 * time.Minute

// Resample15 averages raw samples into 15-minute buckets keyed by the
// bucket start. Buckets without a finite sample are left out rather than
// zero-filled. Input order does not matter.
func Resample15(samples []model.LoadPoint) model.LoadSeries {
	buckets := map[int64][]float64{}
	starts := map[int64]time.Time{}
	for _, p := range samples {
		if math.IsNaN(p.LoadKW) || math.IsInf(p.LoadKW, 0) {
			continue
		}
		start := floorStep(p.Timestamp)
		k := start.Unix()
		buckets[k] = append(buckets[k], p.LoadKW)
		starts[k] = start
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make(model.LoadSeries, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.LoadPoint{Timestamp: starts[k], LoadKW: stat.Mean(buckets[k], nil)})
	}
	return out
}

// floorStep truncates t to its 15-minute slot in t's own location.
func floorStep(t time.Time) time.Time {
	y, mo, d := t.Date()
	minute := t.Minute() - t.Minute()%15
	return time.Date(y, mo, d, t.Hour(), minute, 0, 0, t.Location())
}
