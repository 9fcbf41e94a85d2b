package profit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-cycles/internal/backtest"
	"storage-cycles/internal/model"
)

func fptr(v float64) *float64 { return &v }

var t0 = time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

func TestAllocateByPrice_HighestPriceFirst(t *testing.T) {
	points := []AllocPoint{
		{Timestamp: t0, Price: fptr(0.3), LoadKW: 100, EOutKWh: 8},
		{Timestamp: t0.Add(15 * time.Minute), Price: fptr(1.2), LoadKW: 100, EOutKWh: 8},
	}
	alloc := AllocateByPrice(points, 10, 0)
	require.Len(t, alloc, 2)
	assert.InDelta(t, 2, alloc[0], 1e-12)
	assert.InDelta(t, 8, alloc[1], 1e-12)
	assert.InDelta(t, 10, alloc[0]+alloc[1], 1e-12)
}

func TestAllocateByPrice_TiesAndCaps(t *testing.T) {
	points := []AllocPoint{
		{Timestamp: t0.Add(30 * time.Minute), Price: fptr(1), LoadKW: 100, EOutKWh: 5},
		{Timestamp: t0, Price: fptr(1), LoadKW: 100, EOutKWh: 5},
		// load cap: (20-12)*0.25 = 2kWh
		{Timestamp: t0.Add(time.Hour), Price: fptr(2), LoadKW: 20, EOutKWh: 5},
		{Timestamp: t0.Add(2 * time.Hour), Price: nil, LoadKW: 100, EOutKWh: 5},
	}
	alloc := AllocateByPrice(points, 9, 12)
	assert.InDelta(t, 2, alloc[2], 1e-12)
	// equal prices: the earlier timestamp is served first
	assert.InDelta(t, 5, alloc[1], 1e-12)
	assert.InDelta(t, 2, alloc[0], 1e-12)
	assert.Zero(t, alloc[3])

	assert.Equal(t, []float64{0, 0, 0, 0}, AllocateByPrice(points, 0, 0))
	assert.Empty(t, AllocateByPrice(nil, 10, 0))
}

func rec(offset time.Duration, op model.Op, price *float64, load, in, out float64) backtest.Record {
	ts := t0.Add(offset)
	return backtest.Record{
		Timestamp:      ts,
		Date:           ts.Format(model.DateLayout),
		YearMonth:      ts.Format(model.MonthLayout),
		Op:             op,
		Price:          price,
		LoadKW:         load,
		EInPhysicsKWh:  in,
		EOutPhysicsKWh: out,
		EInSampleKWh:   in * 2,
		EOutSampleKWh:  out * 2,
	}
}

func cfg(strategy model.DischargeStrategy) model.StorageConfig {
	return model.StorageConfig{
		CapacityKWh:       100,
		Efficiency:        0.9,
		DepthOfDischarge:  0.8,
		DischargeStrategy: strategy,
	}.WithDefaults()
}

func TestAggregate_Sequential(t *testing.T) {
	records := []backtest.Record{
		rec(0, model.OpCharge, fptr(0.3), 50, 10, 0),
		rec(18*time.Hour, model.OpDischarge, fptr(1.0), 80, 0, 5),
		rec(19*time.Hour, model.OpDischarge, nil, 80, 0, 2),
	}
	c := cfg(model.DischargeSequential)
	sum := Aggregate(records, c, c.DischargeStrategy)

	require.Contains(t, sum.Days, "2024-08-01")
	day := sum.Days["2024-08-01"]
	assert.InDelta(t, 5, day.Physics.Revenue, 1e-12)
	assert.InDelta(t, 3, day.Physics.Cost, 1e-12)
	assert.InDelta(t, 2, day.Physics.Profit, 1e-12)
	assert.InDelta(t, 7, day.Physics.DischargeKWh, 1e-12)
	assert.InDelta(t, 2.0/7, day.Physics.ProfitPerKWh, 1e-12)
	assert.Equal(t, day.Physics, day.Main)
	assert.InDelta(t, 10, day.Sample.Revenue, 1e-12)
	assert.Equal(t, 1, sum.MissingPrices)

	// budget = 10 × 0.8 × 0.9 = 7.2 ≥ 7: baseline equals main
	assert.Equal(t, day.Main, day.BaselinePhysical)
}

func TestAggregate_BaselineScalesDischarge(t *testing.T) {
	records := []backtest.Record{
		rec(0, model.OpCharge, fptr(0.5), 50, 10, 0),
		rec(18*time.Hour, model.OpDischarge, fptr(1.0), 80, 0, 14.4),
	}
	c := cfg(model.DischargeSequential)
	day := Aggregate(records, c, c.DischargeStrategy).Days["2024-08-01"]

	// budget 7.2 of 14.4 discharged: scale 0.5 on revenue and discharge only
	assert.InDelta(t, 7.2, day.BaselinePhysical.DischargeKWh, 1e-9)
	assert.InDelta(t, 7.2, day.BaselinePhysical.Revenue, 1e-9)
	assert.InDelta(t, day.Main.Cost, day.BaselinePhysical.Cost, 1e-12)
	assert.InDelta(t, 7.2-5, day.BaselinePhysical.Profit, 1e-9)
	assert.InDelta(t, 14.4, day.Main.DischargeKWh, 1e-12)
}

func TestAggregate_PricePriority(t *testing.T) {
	records := []backtest.Record{
		rec(0, model.OpCharge, fptr(0.2), 10, 10, 0),
		rec(17*time.Hour, model.OpDischarge, fptr(0.5), 100, 0, 4),
		rec(18*time.Hour, model.OpDischarge, fptr(1.5), 100, 0, 4),
		rec(19*time.Hour, model.OpDischarge, fptr(1.0), 100, 0, 4),
	}
	c := cfg(model.DischargePricePriority)
	day := Aggregate(records, c, c.DischargeStrategy).Days["2024-08-01"]

	// budget 7.2: 4 at 1.5, 3.2 at 1.0, nothing at 0.5
	assert.InDelta(t, 7.2, day.Main.DischargeKWh, 1e-9)
	assert.InDelta(t, 4*1.5+3.2*1.0, day.Main.Revenue, 1e-9)
	// the non-main formula keeps the simulated sequence
	assert.InDelta(t, 24, day.Sample.DischargeKWh, 1e-12)

	seq := Aggregate(records, cfg(model.DischargeSequential), model.DischargeSequential).Days["2024-08-01"]
	assert.InDelta(t, 12, seq.Main.DischargeKWh, 1e-12)
	assert.Greater(t, day.Main.Revenue/day.Main.DischargeKWh, seq.Main.Revenue/seq.Main.DischargeKWh)
}

func TestAggregate_MonthsAndYearAreAdditive(t *testing.T) {
	records := []backtest.Record{
		rec(0, model.OpCharge, fptr(0.3), 50, 10, 0),
		rec(18*time.Hour, model.OpDischarge, fptr(1), 80, 0, 5),
		rec(24*time.Hour, model.OpCharge, fptr(0.3), 50, 6, 0),
		rec(42*time.Hour, model.OpDischarge, fptr(1), 80, 0, 3),
		rec(31*24*time.Hour, model.OpDischarge, fptr(1), 80, 0, 1),
	}
	c := cfg(model.DischargeSequential)
	sum := Aggregate(records, c, c.DischargeStrategy)

	assert.Equal(t, []string{"2024-08-01", "2024-08-02", "2024-09-01"}, sum.DayKeys())
	assert.Equal(t, []string{"2024-08", "2024-09"}, sum.MonthKeys())

	aug := sum.Months["2024-08"].Main
	d1, d2 := sum.Days["2024-08-01"].Main, sum.Days["2024-08-02"].Main
	assert.InDelta(t, d1.Profit+d2.Profit, aug.Profit, 1e-12)
	assert.InDelta(t, aug.Profit/aug.DischargeKWh, aug.ProfitPerKWh, 1e-12)

	var total float64
	for _, m := range sum.Months {
		total += m.Main.Profit
	}
	assert.InDelta(t, total, sum.Year.Main.Profit, 1e-12)
	assert.InDelta(t, sum.Year.Main.Profit/sum.Year.Main.DischargeKWh, sum.Year.Main.ProfitPerKWh, 1e-12)
}

func TestAggregate_Empty(t *testing.T) {
	sum := Aggregate(nil, cfg(""), model.DischargeSequential)
	assert.Empty(t, sum.Days)
	assert.Zero(t, sum.Year.Main.ProfitPerKWh)
}
