package limit

import (
	"sort"

	"storage-cycles/internal/model"
)

// MonthMax is the peak 15-minute load of one calendar month.
type MonthMax struct {
	YearMonth string  `json:"year_month"`
	MaxKW     float64 `json:"max_kw"`
}

// Info is the resolved demand ceiling for a simulation run.
type Info struct {
	Mode               model.MeteringMode `json:"limit_mode"`
	MonthlyDemandMax   []MonthMax         `json:"monthly_demand_max"`
	TransformerLimitKW *float64           `json:"transformer_limit_kw"`
	Notes              []string           `json:"notes"`

	byMonth map[string]float64
}

// Resolve computes the ceiling from either the monthly peak history or the
// transformer rating. Missing transformer parameters fall back to the monthly
// table with a note. It never fails.
func Resolve(series model.LoadSeries, mode model.MeteringMode, kva, powerFactor *float64) Info {
	if mode != model.MeteringTransformerCapacity {
		mode = model.MeteringMonthlyDemandMax
	}
	info := Info{Mode: mode, byMonth: map[string]float64{}}

	if len(series) == 0 {
		info.Notes = append(info.Notes, "load series is empty; monthly demand max unavailable")
	}
	for _, p := range series {
		ym := p.MonthKey()
		if cur, ok := info.byMonth[ym]; !ok || p.LoadKW > cur {
			info.byMonth[ym] = p.LoadKW
		}
	}
	months := make([]string, 0, len(info.byMonth))
	for ym := range info.byMonth {
		months = append(months, ym)
	}
	sort.Strings(months)
	for _, ym := range months {
		info.MonthlyDemandMax = append(info.MonthlyDemandMax, MonthMax{YearMonth: ym, MaxKW: info.byMonth[ym]})
	}

	if mode == model.MeteringTransformerCapacity {
		if kva == nil || powerFactor == nil {
			info.Notes = append(info.Notes, "transformer mode is missing kVA or power factor; fell back to monthly_demand_max")
			info.Mode = model.MeteringMonthlyDemandMax
		} else {
			v := *kva * *powerFactor
			info.TransformerLimitKW = &v
		}
	}
	return info
}

// ForStorage resolves the ceiling using the metering fields of cfg.
func ForStorage(series model.LoadSeries, cfg model.StorageConfig) Info {
	return Resolve(series, cfg.MeteringMode, cfg.TransformerCapacityKVA, cfg.TransformerPowerFactor)
}

// IsTransformer reports whether the transformer ceiling is in force.
func (i Info) IsTransformer() bool {
	return i.Mode == model.MeteringTransformerCapacity && i.TransformerLimitKW != nil && *i.TransformerLimitKW != 0
}

// LimitFor returns the ceiling for a YYYY-MM month key. Unknown months yield 0.
func (i Info) LimitFor(yearMonth string) float64 {
	if i.IsTransformer() {
		return *i.TransformerLimitKW
	}
	if i.byMonth != nil {
		return i.byMonth[yearMonth]
	}
	for _, m := range i.MonthlyDemandMax {
		if m.YearMonth == yearMonth {
			return m.MaxKW
		}
	}
	return 0
}
