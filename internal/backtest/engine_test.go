package backtest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-cycles/internal/limit"
	"storage-cycles/internal/model"
	"storage-cycles/internal/strategy"
	"storage-cycles/internal/window"
)

func fptr(v float64) *float64 { return &v }

func flatDay(date time.Time, load float64) model.LoadSeries {
	var s model.LoadSeries
	for i := 0; i < 96; i++ {
		s = append(s, model.LoadPoint{Timestamp: date.Add(time.Duration(i) * 15 * time.Minute), LoadKW: load})
	}
	return s
}

func dailyWith(date string, cells map[int]model.Op) strategy.DailyOps {
	d := strategy.DayOps{Date: date}
	for h := 0; h < 24; h++ {
		d.Ops[h] = model.OpStandby
		d.Tiers[h] = model.TierFlat
	}
	for h, op := range cells {
		d.Ops[h] = op
	}
	return strategy.DailyOps{date: d}
}

func TestNewPointEnergies(t *testing.T) {
	pe := NewPointEnergies(40, 0.9, 0.9)
	assert.InDelta(t, 10, pe.InPhysics, 1e-9)
	assert.InDelta(t, 10, pe.InSample, 1e-9)
	assert.Zero(t, pe.OutPhysics)
	assert.InDelta(t, 40, pe.GridPhysicsKW, 1e-9)

	pe = NewPointEnergies(-40, 0.9, 0.9)
	assert.InDelta(t, 10*0.81, pe.OutPhysics, 1e-9)
	assert.InDelta(t, 10/0.81, pe.OutSample, 1e-9)
	assert.Zero(t, pe.InPhysics)
	assert.Less(t, pe.GridPhysicsKW, 0.0)

	assert.Equal(t, PointEnergies{}, NewPointEnergies(0, 0.9, 0.9))
}

func TestClipTransformer_Headroom(t *testing.T) {
	// uncapped charge would lift the 180kW load to 230kW against a 200kW ceiling
	pe := NewPointEnergies(50, 1, 1)
	require.InDelta(t, 230, 180+pe.GridPhysicsKW, 1e-9)

	clipped := ClipTransformer(pe, 180, 200, true)
	assert.InDelta(t, 200, 180+clipped.GridPhysicsKW, 1e-9)
	assert.InDelta(t, 20, clipped.BatteryKW, 1e-9)
	assert.InDelta(t, 5, clipped.InPhysics, 1e-9)

	// both formulas stay under the ceiling; the larger one lands on it
	pe = NewPointEnergies(50, 0.8, 0.9)
	clipped = ClipTransformer(pe, 180, 200, true)
	maxGrid := math.Max(clipped.GridPhysicsKW, clipped.GridSampleKW)
	assert.InDelta(t, 200, 180+maxGrid, 1e-9)

	// untouched outside transformer mode or when the load is already over
	assert.Equal(t, pe, ClipTransformer(pe, 180, 200, false))
	assert.Equal(t, pe, ClipTransformer(pe, 210, 200, true))
	assert.Equal(t, pe, ClipTransformer(pe, 180, 0, true))
}

func TestClipNoReverse(t *testing.T) {
	pe := NewPointEnergies(-100, 1, 1)
	clipped := ClipNoReverse(pe, 30, 5)
	assert.InDelta(t, -25, clipped.GridPhysicsKW, 1e-9)
	assert.InDelta(t, -25, clipped.BatteryKW, 1e-9)

	assert.Equal(t, pe, ClipNoReverse(pe, 0, 0))
	assert.Equal(t, pe, ClipNoReverse(pe, 500, 0))

	charge := NewPointEnergies(100, 1, 1)
	assert.Equal(t, charge, ClipNoReverse(charge, 30, 5))
}

func TestClipWindow(t *testing.T) {
	pe := NewPointEnergies(40, 1, 1) // 10 kWh in
	clipped := ClipWindow(pe, model.OpCharge, model.FormulaPhysics, 12, 8)
	assert.InDelta(t, 4, clipped.InPhysics, 1e-9)
	assert.InDelta(t, 16, clipped.BatteryKW, 1e-9)

	exhausted := ClipWindow(pe, model.OpCharge, model.FormulaPhysics, 12, 20)
	assert.Zero(t, exhausted.InPhysics)
	assert.Zero(t, exhausted.BatteryKW)

	assert.Equal(t, pe, ClipWindow(pe, model.OpCharge, model.FormulaPhysics, 100, 0))
	assert.Equal(t, pe, ClipWindow(pe, model.OpStandby, model.FormulaPhysics, 0, 0))
}

func TestPointEnergies_Scale(t *testing.T) {
	pe := NewPointEnergies(40, 0.9, 0.95).Scale(0.5)
	ref := NewPointEnergies(20, 0.9, 0.95)
	assert.InDelta(t, ref.InPhysics, pe.InPhysics, 1e-12)
	assert.InDelta(t, ref.InSample, pe.InSample, 1e-12)
	assert.InDelta(t, ref.GridSampleKW, pe.GridSampleKW, 1e-12)
}

func TestEngine_TransformerCeiling(t *testing.T) {
	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	series := flatDay(date, 180)
	cfg := model.StorageConfig{
		CapacityKWh:      1000,
		CRate:            1,
		Efficiency:       0.8,
		DepthOfDischarge: 0.95,
		SOCMin:           0.025,
		SOCMax:           0.975,
	}.WithDefaults()

	res, err := New().Run(Input{
		Series:  series,
		Daily:   dailyWith("2024-07-01", map[int]model.Op{0: model.OpCharge}),
		Limits:  limit.Resolve(series, model.MeteringTransformerCapacity, fptr(200), fptr(1)),
		Storage: cfg,
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 96)

	for _, r := range res.Records[:4] {
		assert.Equal(t, model.OpCharge, r.Op)
		maxGrid := math.Max(r.PGridPhysicsKW, r.PGridSampleKW)
		assert.InDelta(t, 200, r.LoadKW+maxGrid, 1e-6)
		assert.Nil(t, r.CumChargeKWh)
	}
	for _, r := range res.Records[4:] {
		assert.Zero(t, r.PBattKW)
	}
}

func TestEngine_WindowTargetAndSOC(t *testing.T) {
	date := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	series := flatDay(date, 50)
	cfg := model.StorageConfig{
		CapacityKWh:      100,
		CRate:            1,
		Efficiency:       0.9,
		DepthOfDischarge: 0.9,
	}.WithDefaults()
	rows := []window.DebugRow{
		{Date: "2024-07-02", Window: window.C1, Kind: model.OpCharge, HourList: []int{0}, FullRatioPhysicsStep15: 0.1},
		{Date: "2024-07-02", Window: window.C1, Kind: model.OpDischarge, HourList: []int{18}, FullRatioPhysicsStep15: 0.4},
	}

	res, err := New().Run(Input{
		Series:     series,
		Daily:      dailyWith("2024-07-02", map[int]model.Op{0: model.OpCharge, 1: model.OpCharge, 18: model.OpDischarge}),
		Limits:     limit.Resolve(series, model.MeteringTransformerCapacity, fptr(200), fptr(1)),
		Storage:    cfg,
		WindowRows: rows,
	})
	require.NoError(t, err)

	dod := cfg.EffectiveDOD()
	chargeTarget := 100 * 0.1 * dod / 0.9
	dischargeTarget := 100 * 0.1 * dod * 0.9

	var charged, discharged float64
	for _, r := range res.Records {
		charged += r.EInPhysicsKWh
		discharged += r.EOutPhysicsKWh
		assert.GreaterOrEqual(t, r.SOC, cfg.SOCMin-1e-12)
		assert.LessOrEqual(t, r.SOC, cfg.SOCMax+1e-12)
		if r.Timestamp.Hour() == 0 {
			require.NotNil(t, r.ChargeTargetKWh)
			assert.InDelta(t, chargeTarget, *r.ChargeTargetKWh, 1e-9)
			assert.Equal(t, window.C1, r.Window)
		}
	}
	// hour 0 fills the window; hour 1 is not in any window and runs unclipped
	hour0 := 0.0
	for _, r := range res.Records[:4] {
		hour0 += r.EInPhysicsKWh
	}
	assert.InDelta(t, chargeTarget, hour0, 1e-9)
	assert.Nil(t, res.Records[4].CumChargeKWh)
	assert.Greater(t, res.Records[4].EInPhysicsKWh, 0.0)
	assert.InDelta(t, dischargeTarget, discharged, 1e-9)
	assert.Greater(t, charged, hour0)
	assert.Equal(t, res.Records[len(res.Records)-1].SOC, res.FinalSOC)
}

func TestEngine_OneSidedWindowKeepsTarget(t *testing.T) {
	date := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	series := flatDay(date, 50)
	cfg := model.StorageConfig{CapacityKWh: 100, CRate: 1, Efficiency: 0.9, DepthOfDischarge: 0.9}.WithDefaults()
	dod := cfg.EffectiveDOD()

	tests := []struct {
		name  string
		ratio float64
		full  float64
	}{
		{name: "empty row ignored", ratio: 0.3, full: 0.3},
		{name: "zero ratio falls back to full", ratio: 0, full: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []window.DebugRow{
				{Date: "2024-07-04", Window: window.C1, Kind: model.OpCharge, HourList: []int{0, 1, 2}, FullRatioPhysicsStep15: tt.ratio},
				{Date: "2024-07-04", Window: window.C1, Kind: model.OpDischarge},
			}
			res, err := New().Run(Input{
				Series:     series,
				Daily:      dailyWith("2024-07-04", map[int]model.Op{0: model.OpCharge, 1: model.OpCharge, 2: model.OpCharge}),
				Limits:     limit.Resolve(series, model.MeteringTransformerCapacity, fptr(200), fptr(1)),
				Storage:    cfg,
				WindowRows: rows,
			})
			require.NoError(t, err)

			want := 100 * tt.full * dod / 0.9
			var charged float64
			for _, r := range res.Records[:12] {
				require.NotNil(t, r.ChargeTargetKWh)
				assert.InDelta(t, want, *r.ChargeTargetKWh, 1e-9)
				charged += r.EInPhysicsKWh
			}
			assert.Greater(t, charged, 0.0)
			assert.LessOrEqual(t, charged, want+1e-9)
		})
	}
}

func TestEngine_SOCStaysInBand(t *testing.T) {
	date := time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)
	series := flatDay(date, 10)
	cells := map[int]model.Op{}
	for h := 0; h < 12; h++ {
		cells[h] = model.OpCharge
	}
	for h := 12; h < 24; h++ {
		cells[h] = model.OpDischarge
	}
	cfg := model.StorageConfig{CapacityKWh: 20, CRate: 2}.WithDefaults()

	res, err := New().Run(Input{
		Series:  series,
		Daily:   dailyWith("2024-07-03", cells),
		Limits:  limit.Resolve(series, model.MeteringTransformerCapacity, fptr(400), fptr(1)),
		Storage: cfg,
	})
	require.NoError(t, err)
	assert.InDelta(t, cfg.SOCMax, res.Records[47].SOC, 1e-12)
	assert.InDelta(t, cfg.SOCMin, res.Records[95].SOC, 1e-12)
}

func TestEngine_FilterDateAndErrors(t *testing.T) {
	d1 := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	series := append(flatDay(d1, 10), flatDay(d1.AddDate(0, 0, 1), 20)...)
	cfg := model.StorageConfig{CapacityKWh: 20}.WithDefaults()
	in := Input{
		Series:     series,
		Daily:      strategy.BuildDailyOps(series, nil, nil),
		Limits:     limit.Resolve(series, "", nil, nil),
		Storage:    cfg,
		FilterDate: "2024-07-05",
	}

	res, err := New().Run(in)
	require.NoError(t, err)
	require.Len(t, res.Records, 96)
	assert.Equal(t, "2024-07-05", res.Records[0].Date)

	in.FilterDate = "2024-08-01"
	_, err = New().Run(in)
	assert.True(t, errors.Is(err, ErrNoData))

	in.FilterDate = ""
	in.Storage.Efficiency = 2
	_, err = New().Run(in)
	assert.Error(t, err)
}

func TestWriteLedger(t *testing.T) {
	ts := time.Date(2024, 7, 6, 8, 0, 0, 0, time.UTC)
	recs := []Record{{
		Timestamp:      ts,
		Date:           "2024-07-06",
		YearMonth:      "2024-07",
		LoadKW:         100,
		Price:          fptr(0.5),
		Tier:           model.TierPeak,
		Op:             model.OpDischarge,
		PGridPhysicsKW: -30,
		PGridSampleKW:  -40,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, recs, model.FormulaSample))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, LedgerHeader, rows[0])
	assert.Equal(t, "2024-07-06T08:00:00Z", rows[1][0])
	assert.Equal(t, "0.500000", rows[1][4])
	assert.Equal(t, "60.000000", rows[1][18])
	assert.Equal(t, "", rows[1][19])
}
