package limit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-cycles/internal/model"
)

func f(v float64) *float64 { return &v }

func series() model.LoadSeries {
	t0 := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	return model.LoadSeries{
		{Timestamp: t0, LoadKW: 120},
		{Timestamp: t0.Add(15 * time.Minute), LoadKW: 150},
		{Timestamp: t0.Add(30 * time.Minute), LoadKW: 80}, // 2024-02-01 00:00
		{Timestamp: t0.Add(45 * time.Minute), LoadKW: 95},
	}
}

func TestResolve_MonthlyDemandMax(t *testing.T) {
	info := Resolve(series(), model.MeteringMonthlyDemandMax, nil, nil)

	assert.Equal(t, model.MeteringMonthlyDemandMax, info.Mode)
	require.Len(t, info.MonthlyDemandMax, 2)
	assert.Equal(t, MonthMax{YearMonth: "2024-01", MaxKW: 150}, info.MonthlyDemandMax[0])
	assert.Equal(t, MonthMax{YearMonth: "2024-02", MaxKW: 95}, info.MonthlyDemandMax[1])
	assert.Nil(t, info.TransformerLimitKW)
	assert.Empty(t, info.Notes)

	assert.Equal(t, 150.0, info.LimitFor("2024-01"))
	assert.Equal(t, 0.0, info.LimitFor("2024-03"))
}

func TestResolve_Transformer(t *testing.T) {
	info := Resolve(series(), model.MeteringTransformerCapacity, f(250), f(0.8))

	assert.Equal(t, model.MeteringTransformerCapacity, info.Mode)
	require.NotNil(t, info.TransformerLimitKW)
	assert.InDelta(t, 200, *info.TransformerLimitKW, 1e-9)
	assert.InDelta(t, 200, info.LimitFor("2024-01"), 1e-9)
	// monthly table is still reported for diagnostics
	assert.Len(t, info.MonthlyDemandMax, 2)
}

func TestResolve_TransformerFallback(t *testing.T) {
	for name, args := range map[string][2]*float64{
		"missing kva": {nil, f(0.9)},
		"missing pf":  {f(500), nil},
	} {
		t.Run(name, func(t *testing.T) {
			info := Resolve(series(), model.MeteringTransformerCapacity, args[0], args[1])
			assert.Equal(t, model.MeteringMonthlyDemandMax, info.Mode)
			assert.Nil(t, info.TransformerLimitKW)
			require.Len(t, info.Notes, 1)
			assert.Contains(t, info.Notes[0], "fell back")
			assert.Equal(t, 150.0, info.LimitFor("2024-01"))
		})
	}
}

func TestResolve_EmptySeries(t *testing.T) {
	info := Resolve(nil, "unknown", nil, nil)
	assert.Equal(t, model.MeteringMonthlyDemandMax, info.Mode)
	assert.Empty(t, info.MonthlyDemandMax)
	assert.Len(t, info.Notes, 1)
	assert.Equal(t, 0.0, info.LimitFor("2024-01"))
}

func TestLimitFor_ZeroTransformerUsesMonthly(t *testing.T) {
	info := Resolve(series(), model.MeteringTransformerCapacity, f(0), f(0.9))
	assert.False(t, info.IsTransformer())
	assert.Equal(t, 150.0, info.LimitFor("2024-01"))
}
