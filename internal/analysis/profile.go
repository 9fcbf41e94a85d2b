package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"storage-cycles/internal/model"
)

// LoadProfile is a size-independent summary of a load series. It helps
// judge whether a site has enough peak-valley swing for storage before a
// battery is sized.
type LoadProfile struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Count int `json:"count"`

	MinKW  float64 `json:"min_kw"`
	MaxKW  float64 `json:"max_kw"`
	MeanKW float64 `json:"mean_kw"`
	P05KW  float64 `json:"p05_kw"`
	P95KW  float64 `json:"p95_kw"`

	SpreadP95P05 float64 `json:"spread_p95_p05_kw"`

	// LoadFactor is mean over max; 0 when the max is not positive.
	LoadFactor float64 `json:"load_factor"`
}

func ComputeLoadProfile(series model.LoadSeries) LoadProfile {
	p := LoadProfile{}
	if len(series) == 0 {
		return p
	}
	p.Count = len(series)
	p.Start, p.End, _ = series.Span()

	vals := make([]float64, 0, len(series))
	for _, pt := range series {
		vals = append(vals, pt.LoadKW)
	}
	p.MinKW = floats.Min(vals)
	p.MaxKW = floats.Max(vals)
	p.MeanKW = stat.Mean(vals, nil)

	sort.Float64s(vals)
	p.P05KW = stat.Quantile(0.05, stat.LinInterp, vals, nil)
	p.P95KW = stat.Quantile(0.95, stat.LinInterp, vals, nil)
	p.SpreadP95P05 = p.P95KW - p.P05KW

	if p.MaxKW > 0 {
		p.LoadFactor = p.MeanKW / p.MaxKW
	}
	return p
}
