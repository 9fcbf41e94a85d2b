package analysis

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"storage-cycles/internal/backtest"
	"storage-cycles/internal/model"
	"storage-cycles/internal/profit"
)

type CurvePoint struct {
	Timestamp time.Time `json:"timestamp"`
	LoadKW    float64   `json:"load_kw"`
}

// CurvesSummary compares one day's metered load with and without storage.
type CurvesSummary struct {
	MaxDemandOriginalKW     float64                `json:"max_demand_original_kw"`
	MaxDemandNewKW          float64                `json:"max_demand_new_kw"`
	MaxDemandReductionKW    float64                `json:"max_demand_reduction_kw"`
	MaxDemandReductionRatio float64                `json:"max_demand_reduction_ratio"`
	EnergyByTierOriginal    map[model.Tier]float64 `json:"energy_by_tier_original"`
	EnergyByTierNew         map[model.Tier]float64 `json:"energy_by_tier_new"`
	BillByTierOriginal      map[model.Tier]float64 `json:"bill_by_tier_original"`
	BillByTierNew           map[model.Tier]float64 `json:"bill_by_tier_new"`
	ProfitDayMain           *profit.Entry          `json:"profit_day_main"`
}

type Curves struct {
	Date              string        `json:"date"`
	PointsOriginal    []CurvePoint  `json:"points_original"`
	PointsWithStorage []CurvePoint  `json:"points_with_storage"`
	Summary           CurvesSummary `json:"summary"`
}

// BuildCurves derives the day comparison from a single-date trajectory.
// The with-storage load adds the grid-side battery power of the configured
// formula; the day profit is the sequential settlement of that formula.
func BuildCurves(date string, records []backtest.Record, cfg model.StorageConfig) Curves {
	f := cfg.EnergyFormula
	c := Curves{
		Date:              date,
		PointsOriginal:    make([]CurvePoint, 0, len(records)),
		PointsWithStorage: make([]CurvePoint, 0, len(records)),
		Summary: CurvesSummary{
			EnergyByTierOriginal: map[model.Tier]float64{},
			EnergyByTierNew:      map[model.Tier]float64{},
			BillByTierOriginal:   map[model.Tier]float64{},
			BillByTierNew:        map[model.Tier]float64{},
		},
	}
	if len(records) == 0 {
		return c
	}

	orig := make([]float64, 0, len(records))
	withStorage := make([]float64, 0, len(records))
	s := &c.Summary
	for _, r := range records {
		after := r.LoadWithStorageKW(f)
		orig = append(orig, r.LoadKW)
		withStorage = append(withStorage, after)
		c.PointsOriginal = append(c.PointsOriginal, CurvePoint{Timestamp: r.Timestamp, LoadKW: r.LoadKW})
		c.PointsWithStorage = append(c.PointsWithStorage, CurvePoint{Timestamp: r.Timestamp, LoadKW: after})

		if r.Tier == "" {
			continue
		}
		price := 0.0
		if r.Price != nil {
			price = *r.Price
		}
		eOrig := r.LoadKW * model.StepHours
		eNew := after * model.StepHours
		s.EnergyByTierOriginal[r.Tier] += eOrig
		s.EnergyByTierNew[r.Tier] += eNew
		s.BillByTierOriginal[r.Tier] += eOrig * price
		s.BillByTierNew[r.Tier] += eNew * price
	}

	s.MaxDemandOriginalKW = floats.Max(orig)
	s.MaxDemandNewKW = floats.Max(withStorage)
	s.MaxDemandReductionKW = s.MaxDemandOriginalKW - s.MaxDemandNewKW
	if s.MaxDemandOriginalKW > 0 {
		s.MaxDemandReductionRatio = s.MaxDemandReductionKW / s.MaxDemandOriginalKW
	}

	if day, ok := profit.Aggregate(records, cfg, model.DischargeSequential).Days[date]; ok {
		main := day.Main
		s.ProfitDayMain = &main
	}
	return c
}

// MonthlyEquivalentProfit scales a month's profit from its valid days up to
// the full calendar month. yearMonth is YYYY-MM.
func MonthlyEquivalentProfit(monthProfit float64, validDays int, yearMonth string) float64 {
	if validDays <= 0 {
		return 0
	}
	t, err := time.Parse(model.MonthLayout, yearMonth)
	if err != nil {
		return 0
	}
	daysInMonth := t.AddDate(0, 1, -1).Day()
	return monthProfit / float64(validDays) * float64(daysInMonth)
}
