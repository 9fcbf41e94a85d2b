package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-cycles/internal/model"
)

var shanghai = time.FixedZone("CST", 8*3600)

func TestResample15(t *testing.T) {
	base := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	samples := []model.LoadPoint{
		{Timestamp: base.Add(20 * time.Minute), LoadKW: 30},
		{Timestamp: base, LoadKW: 10},
		{Timestamp: base.Add(5 * time.Minute), LoadKW: 20},
		{Timestamp: base.Add(16 * time.Minute), LoadKW: 50},
		// a gap: nothing in 00:30-01:00
		{Timestamp: base.Add(time.Hour), LoadKW: 7},
	}

	got := Resample15(samples)
	require.Len(t, got, 3)
	assert.Equal(t, base, got[0].Timestamp)
	assert.InDelta(t, 15, got[0].LoadKW, 1e-12)
	assert.Equal(t, base.Add(15*time.Minute), got[1].Timestamp)
	assert.InDelta(t, 40, got[1].LoadKW, 1e-12)
	assert.Equal(t, base.Add(time.Hour), got[2].Timestamp)

	assert.Empty(t, Resample15(nil))
}

func TestResample15_Idempotent(t *testing.T) {
	base := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	var samples []model.LoadPoint
	for i := 0; i < 60; i++ {
		samples = append(samples, model.LoadPoint{Timestamp: base.Add(time.Duration(i) * time.Minute), LoadKW: float64(i)})
	}
	once := Resample15(samples)
	assert.Equal(t, once, Resample15(once))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-08-01T00:00:00Z", shanghai)
	require.NoError(t, err)
	assert.Equal(t, 8, ts.Hour())
	assert.Equal(t, shanghai, ts.Location())

	ts, err = ParseTimestamp(" 2024-08-01 13:45 ", shanghai)
	require.NoError(t, err)
	assert.Equal(t, 13, ts.Hour())
	assert.Equal(t, 45, ts.Minute())

	ts, err = ParseTimestamp("2024/8/1 09:15", shanghai)
	require.NoError(t, err)
	assert.Equal(t, time.August, ts.Month())

	_, err = ParseTimestamp("yesterday", shanghai)
	assert.Error(t, err)
}

func TestPointsSeries(t *testing.T) {
	points := []Point{
		{Timestamp: "2024-08-01 00:00", LoadKWh: 10.0},
		{Timestamp: "2024-08-01 00:00", LoadKWh: 99.0},
		{Timestamp: "2024-08-01 00:05", Load: "20"},
		{Timestamp: "2024-08-01 00:15", LoadKWh: "n/a"},
		{Timestamp: "not a time", LoadKWh: 1.0},
		{Timestamp: "2024-08-01 00:30", Load: 40.0},
	}

	series, err := PointsSeries(points, time.UTC)
	require.NoError(t, err)
	require.Len(t, series, 2)
	// the duplicate 00:00 sample is dropped
	assert.InDelta(t, 15, series[0].LoadKW, 1e-12)
	assert.Equal(t, 30, series[1].Timestamp.Minute())
	assert.InDelta(t, 40, series[1].LoadKW, 1e-12)

	_, err = PointsSeries([]Point{{Timestamp: "bad"}}, time.UTC)
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestLoadPointsJSON(t *testing.T) {
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(`[{"timestamp":"2024-08-01T00:00:00","load_kwh":12.5}]`), 0o644))
	series, err := LoadPointsJSON(bare, time.UTC)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 12.5, series[0].LoadKW)

	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"points":[{"timestamp":"2024-08-01 00:15","load":"8"}]}`), 0o644))
	series, err = LoadPointsJSON(wrapped, time.UTC)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 8.0, series[0].LoadKW)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"points":`), 0o644))
	_, err = LoadPointsJSON(broken, time.UTC)
	assert.Error(t, err)
}

func TestReadLoadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []float64
	}{
		{
			name:  "timestamp column",
			input: "Timestamp,Load_kW\n2024-08-01 00:00,10\n2024-08-01 00:15,20\n",
			want:  []float64{10, 20},
		},
		{
			name:  "date and time columns",
			input: "数据日期,时间,功率(kW)\n2024-08-01,00:00,5\n2024-08-01,00:10,7\n2024-08-01,00:15,9\n",
			want:  []float64{6, 9},
		},
		{
			name:  "byte order mark and blank loads",
			input: "\ufefftimestamp,load\n2024-08-01 00:00,3\n2024-08-01 00:15,\n",
			want:  []float64{3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := ReadLoadCSV(strings.NewReader(tt.input), time.UTC)
			require.NoError(t, err)
			var got []float64
			for _, p := range series {
				got = append(got, p.LoadKW)
			}
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestReadLoadCSV_MissingColumns(t *testing.T) {
	_, err := ReadLoadCSV(strings.NewReader("when,load\nx,1\n"), time.UTC)
	assert.Error(t, err)

	_, err = ReadLoadCSV(strings.NewReader("timestamp,price\n2024-08-01 00:00,1\n"), time.UTC)
	assert.Error(t, err)

	_, err = ReadLoadCSV(strings.NewReader(""), time.UTC)
	assert.Error(t, err)
}

func TestResultCache(t *testing.T) {
	c := NewResultCache[string](context.Background(), time.Minute, 0)
	now := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.sweep()
	assert.Zero(t, c.Len())

	c.Set("b", "beta")
	c.Delete("b")
	assert.Zero(t, c.Len())
	c.Set("c", "gamma")
	c.Clear()
	assert.Zero(t, c.Len())
}

func TestResultCache_Nil(t *testing.T) {
	var c *ResultCache[int]
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	c.Delete("a")
	c.Clear()
}

func TestResultCache_JanitorStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewResultCache[int](ctx, time.Nanosecond, time.Millisecond)
	c.Set("a", 1)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}
