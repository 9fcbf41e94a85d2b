package window

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"storage-cycles/internal/limit"
	"storage-cycles/internal/model"
)

// DayCycles is the equivalent full-cycle count of one date.
type DayCycles struct {
	Date       string  `json:"date"`
	Cycles     float64 `json:"cycles"`
	C1         float64 `json:"c1_cycles"`
	C2         float64 `json:"c2_cycles"`
	IsValid    bool    `json:"is_valid"`
	PointCount int     `json:"point_count"`
}

// DebugRow is the per-(date, window, direction) breakdown of the window
// average. The *Physics/*Sample columns carry both conversions; EGridKWh and
// FullRatio follow the configured formula. Step15 columns integrate point by
// point and are diagnostic only.
type DebugRow struct {
	Date     string   `json:"date"`
	Window   Window   `json:"window"`
	Kind     model.Op `json:"kind"`
	HourList []int    `json:"hour_list"`
	LimitKW  float64  `json:"limit_kw"`

	Points    int     `json:"points"`
	AvgLoadKW float64 `json:"avg_load_kw"`
	Hours     float64 `json:"hours"`
	AllowKW   float64 `json:"allow_kw"`
	BaseKWh   float64 `json:"base_kwh"`
	EGridKWh  float64 `json:"e_grid_kwh"`
	FullRatio float64 `json:"full_ratio"`

	EGridPhysicsKWh  float64 `json:"e_grid_kwh_physics"`
	FullRatioPhysics float64 `json:"full_ratio_physics"`
	EGridSampleKWh   float64 `json:"e_grid_kwh_sample"`
	FullRatioSample  float64 `json:"full_ratio_sample"`

	BaseStep15KWh          float64 `json:"base_kwh_step15"`
	EGridPhysicsStep15KWh  float64 `json:"e_grid_kwh_physics_step15"`
	FullRatioPhysicsStep15 float64 `json:"full_ratio_physics_step15"`
	EGridSampleStep15KWh   float64 `json:"e_grid_kwh_sample_step15"`
	FullRatioSampleStep15  float64 `json:"full_ratio_sample_step15"`
}

// Step15FullRatio returns the point-integrated full ratio for formula f.
func (r DebugRow) Step15FullRatio(f model.Formula) float64 {
	if f == model.FormulaSample {
		return r.FullRatioSampleStep15
	}
	return r.FullRatioPhysicsStep15
}

// Average computes daily cycles with the window-average method. Dates are
// processed in ascending order; for each date it emits four debug rows in
// the order c1/charge, c1/discharge, c2/charge, c2/discharge.
func Average(series model.LoadSeries, masks Masks, cfg model.StorageConfig, limits limit.Info) ([]DayCycles, []DebugRow) {
	byDate := series.ByDate()
	capKWh := cfg.CapacityKWh
	dod := cfg.EffectiveDOD()
	eta := cfg.Efficiency

	var days []DayCycles
	var rows []DebugRow
	for _, date := range masks.Dates() {
		day := byDate[date]
		limitKW := limits.LimitFor(date[:7])
		dm := masks[date]

		dc := DayCycles{Date: date, PointCount: len(day)}
		for _, p := range day {
			if p.LoadKW > 0 {
				dc.IsValid = true
				break
			}
		}

		for _, w := range Windows {
			m := dm.Get(w)
			ch := metrics(day, m.ChargeHours, limitKW, true, cfg, dod, eta)
			dis := metrics(day, m.DischargeHours, limitKW, false, cfg, dod, eta)
			ch.Date, ch.Window, ch.Kind, ch.HourList, ch.LimitKW = date, w, model.OpCharge, m.ChargeHours, limitKW
			dis.Date, dis.Window, dis.Kind, dis.HourList, dis.LimitKW = date, w, model.OpDischarge, m.DischargeHours, limitKW
			rows = append(rows, ch, dis)

			c := math.Min(ch.FullRatio, dis.FullRatio)
			if limitKW <= 0 || capKWh <= 0 {
				c = 0
			}
			if w == C1 {
				dc.C1 = c
			} else {
				dc.C2 = c
			}
		}
		dc.Cycles = dc.C1 + dc.C2
		days = append(days, dc)
	}
	return days, rows
}

func metrics(day model.LoadSeries, hours []int, limitKW float64, charge bool, cfg model.StorageConfig, dod, eta float64) DebugRow {
	var row DebugRow
	if len(hours) == 0 || len(day) == 0 {
		return row
	}
	set := make(map[int]bool, len(hours))
	for _, h := range hours {
		set[h] = true
	}
	var loads []float64
	for _, p := range day {
		if set[p.Timestamp.Hour()] {
			loads = append(loads, p.LoadKW)
		}
	}
	if len(loads) == 0 {
		return row
	}

	row.Points = len(loads)
	row.AvgLoadKW = stat.Mean(loads, nil)
	row.Hours = float64(len(loads)) * model.StepHours
	if charge {
		row.AllowKW = math.Max(0, limitKW-cfg.ReserveChargeKW-row.AvgLoadKW)
	} else {
		row.AllowKW = math.Max(0, row.AvgLoadKW-cfg.ReserveDischargeKW)
	}
	row.BaseKWh = row.AllowKW * row.Hours

	for _, p := range loads {
		var allow float64
		if charge {
			allow = limitKW - cfg.ReserveChargeKW - p
		} else {
			allow = p - cfg.ReserveDischargeKW
		}
		row.BaseStep15KWh += math.Max(0, allow) * model.StepHours
	}

	conv := model.DischargeToGrid
	if charge {
		conv = model.ChargeToGrid
	}
	capKWh := cfg.CapacityKWh

	row.EGridPhysicsKWh = conv(model.FormulaPhysics, row.BaseKWh, dod, eta)
	row.FullRatioPhysics = model.FullRatio(row.EGridPhysicsKWh, capKWh)
	row.EGridSampleKWh = conv(model.FormulaSample, row.BaseKWh, dod, eta)
	row.FullRatioSample = model.FullRatio(row.EGridSampleKWh, capKWh)

	row.EGridPhysicsStep15KWh = conv(model.FormulaPhysics, row.BaseStep15KWh, dod, eta)
	row.FullRatioPhysicsStep15 = model.FullRatio(row.EGridPhysicsStep15KWh, capKWh)
	row.EGridSampleStep15KWh = conv(model.FormulaSample, row.BaseStep15KWh, dod, eta)
	row.FullRatioSampleStep15 = model.FullRatio(row.EGridSampleStep15KWh, capKWh)

	if cfg.EnergyFormula == model.FormulaSample {
		row.EGridKWh, row.FullRatio = row.EGridSampleKWh, row.FullRatioSample
	} else {
		row.EGridKWh, row.FullRatio = row.EGridPhysicsKWh, row.FullRatioPhysics
	}
	return row
}
