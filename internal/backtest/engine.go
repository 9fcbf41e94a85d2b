package backtest

import (
	"errors"
	"fmt"
	"math"

	"storage-cycles/internal/limit"
	"storage-cycles/internal/model"
	"storage-cycles/internal/strategy"
	"storage-cycles/internal/window"
)

// ErrNoData is returned when there is nothing to simulate.
var ErrNoData = errors.New("no load points")

// Input bundles the precomputed stages the simulator consumes.
type Input struct {
	Series     model.LoadSeries
	Daily      strategy.DailyOps
	Prices     []strategy.PricePoint
	Limits     limit.Info
	Storage    model.StorageConfig
	WindowRows []window.DebugRow

	// FilterDate restricts the run to one YYYY-MM-DD date when set.
	FilterDate string
}

type Engine struct{}

func New() *Engine { return &Engine{} }

type windowKey struct {
	date string
	win  window.Window
}

type windowTarget struct {
	key       windowKey
	charge    map[int]bool
	discharge map[int]bool
	full      float64
}

type windowState struct {
	charged         float64
	discharged      float64
	chargeTarget    float64
	dischargeTarget float64
}

// Run steps the battery through the series one 15-minute point at a time.
func (e *Engine) Run(in Input) (*Result, error) {
	cfg := in.Storage
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("storage config: %w", err)
	}
	series := in.Series
	if in.FilterDate != "" {
		series = series.OnDate(in.FilterDate)
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}

	prices := make(map[int64]strategy.PricePoint, len(in.Prices))
	for _, p := range in.Prices {
		prices[p.Timestamp.Unix()] = p
	}
	targets := buildTargets(in.WindowRows, cfg.EnergyFormula)

	capKWh := cfg.CapacityKWh
	pMax := cfg.MaxPowerKW()
	dod := cfg.EffectiveDOD()
	eta := cfg.Efficiency
	transformer := in.Limits.IsTransformer()
	soc := cfg.StartSOC()

	states := map[windowKey]*windowState{}
	records := make([]Record, 0, len(series))

	for _, p := range series {
		cell := in.Daily.Decide(p.Timestamp)
		ym := p.MonthKey()
		limitKW := in.Limits.LimitFor(ym)

		pe := NewPointEnergies(batteryPower(cell.Op, p.LoadKW, limitKW, pMax, cfg), dod, eta)
		pe = ClipTransformer(pe, p.LoadKW, limitKW, transformer)
		pe = ClipNoReverse(pe, p.LoadKW, cfg.ReserveDischargeKW)

		rec := Record{
			Timestamp: p.Timestamp,
			LoadKW:    p.LoadKW,
			Tier:      cell.Tier,
			Date:      p.DateKey(),
			YearMonth: ym,
			Op:        cell.Op,
			LimitKW:   limitKW,
			PMaxKW:    pMax,
		}
		if pp, ok := prices[p.Timestamp.Unix()]; ok {
			rec.Price = pp.Price
			rec.Tier = pp.Tier
		}

		if wt := lookupWindow(targets[rec.Date], p.Timestamp.Hour(), cell.Op); wt != nil && capKWh > 0 && dod > 0 {
			st, ok := states[wt.key]
			if !ok {
				usable := capKWh * wt.full * dod
				st = &windowState{
					chargeTarget:    usable / math.Max(eta, model.Epsilon),
					dischargeTarget: usable * eta,
				}
				states[wt.key] = st
			}
			switch cell.Op {
			case model.OpCharge:
				pe = ClipWindow(pe, cell.Op, cfg.EnergyFormula, st.chargeTarget, st.charged)
			case model.OpDischarge:
				pe = ClipWindow(pe, cell.Op, cfg.EnergyFormula, st.dischargeTarget, st.discharged)
			}
			eIn, eOut := pe.Main(cfg.EnergyFormula)
			st.charged += eIn
			st.discharged += eOut

			rec.Window = wt.key.win
			rec.CumChargeKWh = ptr(st.charged)
			rec.CumDischargeKWh = ptr(st.discharged)
			rec.ChargeTargetKWh = ptr(st.chargeTarget)
			rec.DischargeTargetKWh = ptr(st.dischargeTarget)
		}

		if capKWh > 0 {
			soc = model.ClampSOC(soc+pe.BatteryKW*model.StepHours/capKWh, cfg.SOCMin, cfg.SOCMax)
		}

		rec.PBattKW = pe.BatteryKW
		rec.SOC = soc
		rec.EInPhysicsKWh = pe.InPhysics
		rec.EOutPhysicsKWh = pe.OutPhysics
		rec.EInSampleKWh = pe.InSample
		rec.EOutSampleKWh = pe.OutSample
		rec.PGridPhysicsKW = pe.GridPhysicsKW
		rec.PGridSampleKW = pe.GridSampleKW
		records = append(records, rec)
	}

	return &Result{
		Records:  records,
		Formula:  cfg.EnergyFormula,
		FinalSOC: soc,
	}, nil
}

// batteryPower is the requested battery-side power before any clipping.
// A non-positive pMax leaves the power uncapped.
func batteryPower(op model.Op, loadKW, limitKW, pMax float64, cfg model.StorageConfig) float64 {
	var raw float64
	switch op {
	case model.OpCharge:
		raw = math.Max(limitKW-cfg.ReserveChargeKW-loadKW, 0)
	case model.OpDischarge:
		raw = math.Max(loadKW-cfg.ReserveDischargeKW, 0)
	default:
		return 0
	}
	if pMax > 0 {
		raw = math.Min(raw, pMax)
	}
	if op == model.OpDischarge {
		return -raw
	}
	return raw
}

// buildTargets folds the window debug rows into per-date window targets,
// keeping row order so lookups resolve c1 before c2. Only rows that own
// hours take part in the min; a window whose folded ratio is not positive
// gets a full target.
func buildTargets(rows []window.DebugRow, f model.Formula) map[string][]*windowTarget {
	out := map[string][]*windowTarget{}
	index := map[windowKey]*windowTarget{}
	for _, r := range rows {
		if r.Window != window.C1 && r.Window != window.C2 {
			continue
		}
		k := windowKey{date: r.Date, win: r.Window}
		wt, ok := index[k]
		if !ok {
			wt = &windowTarget{key: k, charge: map[int]bool{}, discharge: map[int]bool{}, full: math.Inf(1)}
			index[k] = wt
			out[r.Date] = append(out[r.Date], wt)
		}
		if len(r.HourList) == 0 {
			continue
		}
		wt.full = math.Min(wt.full, r.Step15FullRatio(f))
		for _, h := range r.HourList {
			switch r.Kind {
			case model.OpCharge:
				wt.charge[h] = true
			case model.OpDischarge:
				wt.discharge[h] = true
			}
		}
	}
	for _, wt := range index {
		if math.IsInf(wt.full, 1) || wt.full <= 0 {
			wt.full = 1
		}
	}
	return out
}

// lookupWindow returns the first window of the day claiming hour for op.
func lookupWindow(targets []*windowTarget, hour int, op model.Op) *windowTarget {
	for _, wt := range targets {
		if op == model.OpCharge && wt.charge[hour] {
			return wt
		}
		if op == model.OpDischarge && wt.discharge[hour] {
			return wt
		}
	}
	return nil
}

func ptr(v float64) *float64 { return &v }
