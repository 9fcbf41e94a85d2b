package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"storage-cycles/internal/economics"
	"storage-cycles/internal/model"
	"storage-cycles/internal/strategy"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk scenario shape (YAML).
type Config struct {
	// Optional: load storage parameters from a separate YAML (e.g. examples/storage/*.yaml).
	// If both StorageFile and Storage are provided, Storage overrides StorageFile.
	StorageFile string              `yaml:"storage_file"`
	Storage     model.StorageConfig `yaml:"storage"`
	Strategy    StrategyConfig      `yaml:"strategy"`
	Prices      []map[string]any    `yaml:"monthly_tou_prices"`
	Economics   *EconomicsConfig    `yaml:"economics"`
	// Timezone is the IANA zone naive timestamps are read in. Empty means local.
	Timezone string `yaml:"timezone"`
}

// StrategyConfig picks the daily operations. Monthly wins over Schedule;
// DateRules apply on top of either.
type StrategyConfig struct {
	Monthly   [][]model.HourCell       `yaml:"monthly"`
	DateRules []model.DateRule         `yaml:"date_rules"`
	Schedule  *strategy.ScheduleParams `yaml:"schedule"`
}

// EconomicsConfig is economics.Input plus the per-Wh cost shorthand.
type EconomicsConfig struct {
	economics.Input `yaml:",inline"`

	OMPerWh          float64 `yaml:"om_cost_per_wh"`
	ReplacementPerWh float64 `yaml:"replacement_cost_per_wh"`
	UserSharePercent float64 `yaml:"user_share_percent"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.StorageFile != "" {
		storagePath := c.StorageFile
		if !filepath.IsAbs(storagePath) {
			// Relative to the scenario file first, then to the cwd.
			cand := filepath.Join(filepath.Dir(path), storagePath)
			if _, err := os.Stat(cand); err == nil {
				storagePath = cand
			}
		}
		loaded, err := LoadStorageFile(storagePath)
		if err != nil {
			return nil, fmt.Errorf("storage_file: %w", err)
		}
		c.Storage = MergeStorage(loaded.Storage, c.Storage)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Storage.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("storage config invalid: %w", err)
	}
	if len(c.Strategy.Monthly) == 0 && c.Strategy.Schedule == nil {
		return errors.New("strategy.monthly or strategy.schedule is required")
	}
	if _, err := c.Table(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Economics != nil {
		if err := c.Economics.ToInput().Validate(); err != nil {
			return fmt.Errorf("economics config invalid: %w", err)
		}
		if c.Economics.UserSharePercent < 0 || c.Economics.UserSharePercent >= 100 {
			return errors.New("economics.user_share_percent must be in [0, 100)")
		}
	}
	return nil
}

// Table returns the twelve monthly schedules with labels normalized.
// A schedule shorthand is repeated for every month.
func (c *Config) Table() (model.StrategyTable, error) {
	if len(c.Strategy.Monthly) > 0 {
		if len(c.Strategy.Monthly) > 12 {
			return nil, fmt.Errorf("strategy.monthly has %d rows, want at most 12", len(c.Strategy.Monthly))
		}
		table := make(model.StrategyTable, len(c.Strategy.Monthly))
		for i, row := range c.Strategy.Monthly {
			table[i] = normalizeRow(row)
		}
		return table, nil
	}
	if c.Strategy.Schedule == nil {
		return nil, nil
	}
	row, err := strategy.ExpandWindows(*c.Strategy.Schedule)
	if err != nil {
		return nil, fmt.Errorf("strategy.schedule: %w", err)
	}
	table := make(model.StrategyTable, 12)
	for i := range table {
		table[i] = row
	}
	return table, nil
}

// Rules returns the date rules with labels normalized.
func (c *Config) Rules() []model.DateRule {
	out := make([]model.DateRule, 0, len(c.Strategy.DateRules))
	for _, r := range c.Strategy.DateRules {
		r.Schedule = normalizeRow(r.Schedule)
		out = append(out, r)
	}
	return out
}

func (c *Config) MonthlyPrices() model.MonthlyPrices {
	return model.PricesFromRaw(c.Prices)
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// ToInput resolves the per-Wh shorthand against the installed capacity.
// Explicit absolute costs take precedence.
func (e EconomicsConfig) ToInput() economics.Input {
	in := e.Input.WithDefaults()
	om, repl := economics.PerWhCosts(e.OMPerWh, e.ReplacementPerWh, in.CapacityKWh)
	if in.AnnualOMCost == 0 {
		in.AnnualOMCost = om
	}
	if in.ReplacementCost == 0 {
		in.ReplacementCost = repl
	}
	return in
}

func normalizeRow(row []model.HourCell) []model.HourCell {
	out := make([]model.HourCell, len(row))
	for i, cell := range row {
		out[i] = model.HourCell{
			Op:   model.ParseOp(string(cell.Op)),
			Tier: model.ParseTier(string(cell.Tier)),
		}
	}
	return out
}

// StoragePreset is a named storage file (examples/storage/*.yaml).
type StoragePreset struct {
	Name        string              `yaml:"name" json:"name"`
	Description string              `yaml:"description" json:"description"`
	Storage     model.StorageConfig `yaml:"storage" json:"storage"`
}

func LoadStorageFile(path string) (StoragePreset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StoragePreset{}, err
	}
	var p StoragePreset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return StoragePreset{}, err
	}
	return p, nil
}

// MergeStorage overlays non-zero fields from override onto base.
// This is used when loading a storage file and then applying overrides from the scenario.
func MergeStorage(base, override model.StorageConfig) model.StorageConfig {
	out := base
	if override.CapacityKWh != 0 {
		out.CapacityKWh = override.CapacityKWh
	}
	if override.CRate != 0 {
		out.CRate = override.CRate
	}
	if override.Efficiency != 0 {
		out.Efficiency = override.Efficiency
	}
	if override.DepthOfDischarge != 0 {
		out.DepthOfDischarge = override.DepthOfDischarge
	}
	if override.SOCMin != 0 {
		out.SOCMin = override.SOCMin
	}
	if override.SOCMax != 0 {
		out.SOCMax = override.SOCMax
	}
	if override.ReserveChargeKW != 0 {
		out.ReserveChargeKW = override.ReserveChargeKW
	}
	if override.ReserveDischargeKW != 0 {
		out.ReserveDischargeKW = override.ReserveDischargeKW
	}
	if override.InitialSOC != nil {
		out.InitialSOC = override.InitialSOC
	}
	if override.EnergyFormula != "" {
		out.EnergyFormula = override.EnergyFormula
	}
	if override.DischargeStrategy != "" {
		out.DischargeStrategy = override.DischargeStrategy
	}
	if override.MeteringMode != "" {
		out.MeteringMode = override.MeteringMode
	}
	if override.TransformerCapacityKVA != nil {
		out.TransformerCapacityKVA = override.TransformerCapacityKVA
	}
	if override.TransformerPowerFactor != nil {
		out.TransformerPowerFactor = override.TransformerPowerFactor
	}
	if override.MergeThresholdMinutes != 0 {
		out.MergeThresholdMinutes = override.MergeThresholdMinutes
	}
	return out
}
