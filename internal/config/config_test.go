package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storage-cycles/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const preset = `
name: 2MWh cabinet
storage:
  capacity_kwh: 2000
  c_rate: 0.5
  single_side_efficiency: 0.92
  depth_of_discharge: 0.9
`

func TestLoad_StorageFileMerge(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "presets/cabinet.yaml", preset)
	path := writeFile(t, dir, "scenario.yaml", `
storage_file: presets/cabinet.yaml
storage:
  c_rate: 0.25
  metering_mode: transformer_capacity
  transformer_capacity_kva: 1000
strategy:
  schedule:
    charge_start: "00:00"
    charge_end: "06:00"
    discharge_start: "18:00"
    discharge_end: "22:00"
    tiers:
      - {tier: peak, start: "18:00", end: "22:00"}
      - {tier: valley, start: "00:00", end: "06:00"}
monthly_tou_prices:
  - {peak: 1.2, valley: "0.3", flat: n/a}
timezone: Asia/Shanghai
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2000.0, c.Storage.CapacityKWh)
	assert.Equal(t, 0.25, c.Storage.CRate)
	assert.Equal(t, 0.92, c.Storage.Efficiency)
	assert.Equal(t, model.MeteringTransformerCapacity, c.Storage.MeteringMode)
	require.NotNil(t, c.Storage.TransformerCapacityKVA)
	assert.Equal(t, 1000.0, *c.Storage.TransformerCapacityKVA)

	table, err := c.Table()
	require.NoError(t, err)
	require.Len(t, table, 12)
	assert.Equal(t, model.HourCell{Op: model.OpCharge, Tier: model.TierValley}, table[0][0])
	assert.Equal(t, model.HourCell{Op: model.OpDischarge, Tier: model.TierPeak}, table[11][19])
	assert.Equal(t, model.HourCell{Op: model.OpStandby, Tier: model.TierFlat}, table[5][12])

	prices := c.MonthlyPrices()
	require.NotNil(t, prices.Price(1, model.TierValley))
	assert.Equal(t, 0.3, *prices.Price(1, model.TierValley))
	assert.Nil(t, prices.Price(1, model.TierFlat))
	assert.Nil(t, prices.Price(2, model.TierPeak))

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}

func TestLoad_MonthlyAndRules(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scenario.yaml", `
storage:
  capacity_kwh: 100
strategy:
  monthly:
    - [{op: 充, tou: 谷}, {op: 放, tou: 峰}, {op: bogus, tou: bogus}]
  date_rules:
    - start_date: "2024-08-01"
      end_date: "2024-08-03"
      schedule: [{op: Discharge, tou: TIP}]
`)

	c, err := Load(path)
	require.NoError(t, err)

	table, err := c.Table()
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, []model.HourCell{
		{Op: model.OpCharge, Tier: model.TierValley},
		{Op: model.OpDischarge, Tier: model.TierPeak},
		{Op: model.OpStandby, Tier: model.TierFlat},
	}, table[0])

	rules := c.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "2024-08-01", rules[0].StartDate)
	assert.Equal(t, model.HourCell{Op: model.OpDischarge, Tier: model.TierTip}, rules[0].Schedule[0])

	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no strategy", body: "storage: {capacity_kwh: 100}\n"},
		{name: "bad efficiency", body: "storage: {single_side_efficiency: 1.5}\nstrategy: {monthly: [[]]}\n"},
		{name: "bad schedule", body: "strategy: {schedule: {charge_start: '25:00', discharge_start: '18:00'}}\n"},
		{name: "bad timezone", body: "strategy: {monthly: [[]]}\ntimezone: Mars/Olympus\n"},
		{name: "bad economics", body: "strategy: {monthly: [[]]}\neconomics: {capex_per_wh: 0, installed_capacity_kwh: 100}\n"},
		{name: "bad user share", body: "strategy: {monthly: [[]]}\neconomics: {capex_per_wh: 1, installed_capacity_kwh: 100, user_share_percent: 100}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "scenario.yaml", tt.body)
			_, err := Load(path)
			assert.Error(t, err)

			_, err = LoadUnchecked(path)
			assert.NoError(t, err)
		})
	}

	var nilConfig *Config
	assert.Error(t, nilConfig.Validate())
}

func TestLoad_MissingStorageFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scenario.yaml", "storage_file: nope.yaml\nstrategy: {monthly: [[]]}\n")
	_, err := LoadUnchecked(path)
	assert.Error(t, err)
}

func TestEconomicsToInput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scenario.yaml", `
strategy: {monthly: [[]]}
economics:
  first_year_revenue: 50
  capex_per_wh: 1.2
  installed_capacity_kwh: 2000
  om_cost_per_wh: 0.05
  replacement_cost_per_wh: 0.4
  user_share_percent: 20
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, c.Economics)

	in := c.Economics.ToInput()
	assert.Equal(t, 15, in.ProjectYears)
	assert.InDelta(t, 10, in.AnnualOMCost, 1e-9)
	assert.InDelta(t, 80, in.ReplacementCost, 1e-9)
	assert.Equal(t, 50.0, in.FirstYearRevenue)
	assert.Equal(t, 20.0, c.Economics.UserSharePercent)

	c.Economics.AnnualOMCost = 3
	assert.Equal(t, 3.0, c.Economics.ToInput().AnnualOMCost)
}

func TestMergeStorage(t *testing.T) {
	soc := 0.5
	base := model.StorageConfig{CapacityKWh: 100, CRate: 0.5, Efficiency: 0.9}
	out := MergeStorage(base, model.StorageConfig{CRate: 1, InitialSOC: &soc, EnergyFormula: model.FormulaSample})

	assert.Equal(t, 100.0, out.CapacityKWh)
	assert.Equal(t, 1.0, out.CRate)
	assert.Equal(t, 0.9, out.Efficiency)
	assert.Equal(t, &soc, out.InitialSOC)
	assert.Equal(t, model.FormulaSample, out.EnergyFormula)
	assert.Equal(t, 0.5, base.CRate)
}

func TestLoadServer(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.example,http://b.example")

	c, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, 30*time.Minute, c.CacheTTL)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, c.CORSOrigins)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.IsProduction())
}

func TestLoadServer_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "server.yaml", "env: production\nexport_dir: /tmp/exports\n")

	c, err := LoadServer(path)
	require.NoError(t, err)
	assert.True(t, c.IsProduction())
	assert.Equal(t, "/tmp/exports", c.ExportDir)
	assert.Equal(t, "8080", c.Port)

	_, err = LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
