package model

import (
	"errors"
	"math"
)

// Epsilon guards every divisor in the energy conversions.
const Epsilon = 1e-9

// StepHours is the fixed time quantum of the simulation (15 minutes).
const StepHours = 0.25

// Formula selects how battery-side energy converts to grid-side energy.
type Formula string

const (
	FormulaPhysics Formula = "physics"
	FormulaSample  Formula = "sample"
)

// DischargeStrategy selects how daily discharge energy is attributed to prices.
type DischargeStrategy string

const (
	DischargeSequential    DischargeStrategy = "sequential"
	DischargePricePriority DischargeStrategy = "price-priority"
)

// MeteringMode selects where the demand ceiling comes from.
type MeteringMode string

const (
	MeteringMonthlyDemandMax    MeteringMode = "monthly_demand_max"
	MeteringTransformerCapacity MeteringMode = "transformer_capacity"
)

// StorageConfig defines the battery and the operating envelope.
// Units:
// - CapacityKWh: kWh
// - CRate: 1/h (max power = CapacityKWh * CRate)
// - Efficiency, DepthOfDischarge, SOC: fraction 0..1
// - Reserve*KW: kW kept between the load and the limit / the load and zero
type StorageConfig struct {
	CapacityKWh        float64  `json:"capacity_kwh" yaml:"capacity_kwh"`
	CRate              float64  `json:"c_rate" yaml:"c_rate"`
	Efficiency         float64  `json:"single_side_efficiency" yaml:"single_side_efficiency"`
	DepthOfDischarge   float64  `json:"depth_of_discharge" yaml:"depth_of_discharge"`
	SOCMin             float64  `json:"soc_min" yaml:"soc_min"`
	SOCMax             float64  `json:"soc_max" yaml:"soc_max"`
	ReserveChargeKW    float64  `json:"reserve_charge_kw" yaml:"reserve_charge_kw"`
	ReserveDischargeKW float64  `json:"reserve_discharge_kw" yaml:"reserve_discharge_kw"`
	InitialSOC         *float64 `json:"initial_soc,omitempty" yaml:"initial_soc"`

	EnergyFormula     Formula           `json:"energy_formula" yaml:"energy_formula"`
	DischargeStrategy DischargeStrategy `json:"discharge_strategy" yaml:"discharge_strategy"`

	MeteringMode           MeteringMode `json:"metering_mode" yaml:"metering_mode"`
	TransformerCapacityKVA *float64     `json:"transformer_capacity_kva,omitempty" yaml:"transformer_capacity_kva"`
	TransformerPowerFactor *float64     `json:"transformer_power_factor,omitempty" yaml:"transformer_power_factor"`

	MergeThresholdMinutes int `json:"merge_threshold_minutes" yaml:"merge_threshold_minutes"`
}

// WithDefaults returns a copy with zero-valued fields replaced by defaults.
func (c StorageConfig) WithDefaults() StorageConfig {
	if c.CRate == 0 {
		c.CRate = 0.5
	}
	if c.Efficiency == 0 {
		c.Efficiency = 0.9
	}
	if c.DepthOfDischarge == 0 {
		c.DepthOfDischarge = 1.0
	}
	if c.SOCMin == 0 {
		c.SOCMin = 0.05
	}
	if c.SOCMax == 0 {
		c.SOCMax = 0.95
	}
	if c.EnergyFormula == "" {
		c.EnergyFormula = FormulaPhysics
	}
	if c.DischargeStrategy == "" {
		c.DischargeStrategy = DischargeSequential
	}
	if c.MeteringMode == "" {
		c.MeteringMode = MeteringMonthlyDemandMax
	}
	if c.MergeThresholdMinutes == 0 {
		c.MergeThresholdMinutes = 30
	}
	return c
}

func (c StorageConfig) Validate() error {
	if c.CapacityKWh < 0 {
		return errors.New("capacity_kwh must be >= 0")
	}
	if c.CRate < 0 {
		return errors.New("c_rate must be >= 0")
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		return errors.New("single_side_efficiency must be in (0, 1]")
	}
	if c.DepthOfDischarge < 0 || c.DepthOfDischarge > 1 {
		return errors.New("depth_of_discharge must be in [0, 1]")
	}
	if c.SOCMin < 0 || c.SOCMin > 1 || c.SOCMax < 0 || c.SOCMax > 1 || c.SOCMin > c.SOCMax {
		return errors.New("soc_min/soc_max must satisfy 0<=soc_min<=soc_max<=1")
	}
	if c.ReserveChargeKW < 0 || c.ReserveDischargeKW < 0 {
		return errors.New("reserve_charge_kw/reserve_discharge_kw must be >= 0")
	}
	switch c.EnergyFormula {
	case FormulaPhysics, FormulaSample:
	default:
		return errors.New("energy_formula must be physics or sample")
	}
	switch c.DischargeStrategy {
	case DischargeSequential, DischargePricePriority:
	default:
		return errors.New("discharge_strategy must be sequential or price-priority")
	}
	switch c.MeteringMode {
	case MeteringMonthlyDemandMax, MeteringTransformerCapacity:
	default:
		return errors.New("metering_mode must be monthly_demand_max or transformer_capacity")
	}
	if c.MergeThresholdMinutes < 0 {
		return errors.New("merge_threshold_minutes must be >= 0")
	}
	return nil
}

// MaxPowerKW is the C-rate power ceiling. Zero means uncapped.
func (c StorageConfig) MaxPowerKW() float64 {
	if c.CapacityKWh <= 0 || c.CRate <= 0 {
		return 0
	}
	return c.CapacityKWh * c.CRate
}

// EffectiveDOD bounds the configured depth of discharge by the SOC band.
func (c StorageConfig) EffectiveDOD() float64 {
	return clamp01(math.Min(c.DepthOfDischarge, c.SOCMax-c.SOCMin))
}

// StartSOC is the initial state of charge clamped into the SOC band.
func (c StorageConfig) StartSOC() float64 {
	soc := c.SOCMin
	if c.InitialSOC != nil && *c.InitialSOC > 0 {
		soc = *c.InitialSOC
	}
	return ClampSOC(soc, c.SOCMin, c.SOCMax)
}

// ClampSOC clamps soc into [lo, hi].
func ClampSOC(soc, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, soc))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
