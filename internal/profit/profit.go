package profit

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"storage-cycles/internal/backtest"
	"storage-cycles/internal/model"
)

// Entry is the TOU settlement of a period under one formula.
type Entry struct {
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	Profit       float64 `json:"profit"`
	DischargeKWh float64 `json:"discharge_energy_kwh"`
	ChargeKWh    float64 `json:"charge_energy_kwh"`
	ProfitPerKWh float64 `json:"profit_per_kwh"`
}

func (e Entry) add(o Entry) Entry {
	e.Revenue += o.Revenue
	e.Cost += o.Cost
	e.Profit += o.Profit
	e.DischargeKWh += o.DischargeKWh
	e.ChargeKWh += o.ChargeKWh
	return e.withPerKWh()
}

func (e Entry) withPerKWh() Entry {
	e.ProfitPerKWh = 0
	if e.DischargeKWh > 0 {
		e.ProfitPerKWh = e.Profit / e.DischargeKWh
	}
	return e
}

// Set holds one period under every accounting view. Main mirrors the
// configured formula; BaselinePhysical caps the main discharge at what the
// day's charge can physically deliver.
type Set struct {
	Main             Entry `json:"main"`
	Physics          Entry `json:"physics"`
	Sample           Entry `json:"sample"`
	BaselinePhysical Entry `json:"baseline_physical"`
}

func (s Set) add(o Set) Set {
	return Set{
		Main:             s.Main.add(o.Main),
		Physics:          s.Physics.add(o.Physics),
		Sample:           s.Sample.add(o.Sample),
		BaselinePhysical: s.BaselinePhysical.add(o.BaselinePhysical),
	}
}

// Summary is the profit roll-up of a simulation.
type Summary struct {
	Formula       model.Formula           `json:"formula"`
	Strategy      model.DischargeStrategy `json:"discharge_strategy"`
	Days          map[string]Set          `json:"days"`
	Months        map[string]Set          `json:"months"`
	Year          Set                     `json:"year"`
	MissingPrices int                     `json:"missing_prices"`
}

// DayKeys returns the day keys in ascending order.
func (s Summary) DayKeys() []string { return sortedKeys(s.Days) }

// MonthKeys returns the month keys in ascending order.
func (s Summary) MonthKeys() []string { return sortedKeys(s.Months) }

// Aggregate settles the trajectory per day, then sums days into months and
// the year. A missing price settles at zero.
func Aggregate(records []backtest.Record, cfg model.StorageConfig, strategy model.DischargeStrategy) Summary {
	main := cfg.EnergyFormula
	if main != model.FormulaSample {
		main = model.FormulaPhysics
	}
	sum := Summary{
		Formula:  main,
		Strategy: strategy,
		Days:     map[string]Set{},
		Months:   map[string]Set{},
	}

	byDay := map[string][]backtest.Record{}
	for _, r := range records {
		if r.Price == nil {
			sum.MissingPrices++
		}
		byDay[r.Date] = append(byDay[r.Date], r)
	}

	budgetFactor := cfg.EffectiveDOD() * cfg.Efficiency
	for _, date := range sortedKeys(byDay) {
		set := settleDay(byDay[date], main, strategy, budgetFactor, cfg.ReserveDischargeKW)
		sum.Days[date] = set
		ym := date[:7]
		sum.Months[ym] = sum.Months[ym].add(set)
		sum.Year = sum.Year.add(set)
	}
	return sum
}

func settleDay(day []backtest.Record, main model.Formula, strategy model.DischargeStrategy, budgetFactor, reserveDis float64) Set {
	prices := make([]float64, len(day))
	for i, r := range day {
		prices[i] = priceOrZero(r.Price)
	}

	var set Set
	for _, f := range []model.Formula{model.FormulaPhysics, model.FormulaSample} {
		eIn := make([]float64, len(day))
		eOut := make([]float64, len(day))
		for i, r := range day {
			eIn[i], eOut[i] = r.Energies(f)
		}

		if f == main && strategy == model.DischargePricePriority {
			reallocate(day, eIn, eOut, budgetFactor, reserveDis)
		}

		entry := settle(eIn, eOut, prices)
		if f == model.FormulaSample {
			set.Sample = entry
		} else {
			set.Physics = entry
		}
		if f == main {
			set.Main = entry
			set.BaselinePhysical = baseline(entry, budgetFactor)
		}
	}
	return set
}

// reallocate rewrites eOut for the day's discharge points in price order.
func reallocate(day []backtest.Record, eIn, eOut []float64, budgetFactor, reserveDis float64) {
	var idx []int
	var points []AllocPoint
	for i, r := range day {
		if r.Op != model.OpDischarge {
			continue
		}
		idx = append(idx, i)
		points = append(points, AllocPoint{Timestamp: r.Timestamp, Price: r.Price, LoadKW: r.LoadKW, EOutKWh: eOut[i]})
	}
	if len(points) == 0 {
		return
	}
	alloc := AllocateByPrice(points, floats.Sum(eIn)*budgetFactor, reserveDis)
	for k, i := range idx {
		eOut[i] = alloc[k]
	}
}

func settle(eIn, eOut, prices []float64) Entry {
	e := Entry{
		Revenue:      floats.Dot(eOut, prices),
		Cost:         floats.Dot(eIn, prices),
		DischargeKWh: floats.Sum(eOut),
		ChargeKWh:    floats.Sum(eIn),
	}
	e.Profit = e.Revenue - e.Cost
	return e.withPerKWh()
}

// baseline scales revenue and discharge down to the physical budget. Cost
// is left as charged.
func baseline(e Entry, budgetFactor float64) Entry {
	budget := e.ChargeKWh * budgetFactor
	if e.DischargeKWh <= budget+1e-9 {
		return e
	}
	scale := budget / e.DischargeKWh
	e.Revenue *= scale
	e.DischargeKWh *= scale
	e.Profit = e.Revenue - e.Cost
	return e.withPerKWh()
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
