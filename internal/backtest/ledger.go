package backtest

import (
	"time"

	"storage-cycles/internal/model"
	"storage-cycles/internal/window"
)

// Record is one row of the 15-minute trajectory.
// This is the primary artifact for "what happened" in a simulation.
type Record struct {
	Timestamp time.Time     `json:"timestamp"`
	LoadKW    float64       `json:"load_kw"`
	Price     *float64      `json:"price"`
	Tier      model.Tier    `json:"tier"`
	Date      string        `json:"date"`
	YearMonth string        `json:"year_month"`
	Op        model.Op      `json:"op"`
	Window    window.Window `json:"window,omitempty"`

	LimitKW float64 `json:"limit_kw"`
	PMaxKW  float64 `json:"p_max_kw"`
	PBattKW float64 `json:"p_batt_kw"`
	SOC     float64 `json:"soc"`

	EInPhysicsKWh  float64 `json:"e_in_physics_kwh"`
	EOutPhysicsKWh float64 `json:"e_out_physics_kwh"`
	EInSampleKWh   float64 `json:"e_in_sample_kwh"`
	EOutSampleKWh  float64 `json:"e_out_sample_kwh"`
	PGridPhysicsKW float64 `json:"p_grid_effect_physics_kw"`
	PGridSampleKW  float64 `json:"p_grid_effect_sample_kw"`

	CumChargeKWh       *float64 `json:"cum_charge_grid_main"`
	CumDischargeKWh    *float64 `json:"cum_discharge_grid_main"`
	ChargeTargetKWh    *float64 `json:"charge_target_grid_main"`
	DischargeTargetKWh *float64 `json:"discharge_target_grid_main"`
}

// Energies returns the grid-side (in, out) energies of formula f.
func (r Record) Energies(f model.Formula) (float64, float64) {
	if f == model.FormulaSample {
		return r.EInSampleKWh, r.EOutSampleKWh
	}
	return r.EInPhysicsKWh, r.EOutPhysicsKWh
}

// GridKW returns the grid-side battery power of formula f.
func (r Record) GridKW(f model.Formula) float64 {
	if f == model.FormulaSample {
		return r.PGridSampleKW
	}
	return r.PGridPhysicsKW
}

// LoadWithStorageKW is the metered load after the battery acts.
func (r Record) LoadWithStorageKW(f model.Formula) float64 {
	return r.LoadKW + r.GridKW(f)
}

type Result struct {
	Records  []Record
	Formula  model.Formula
	FinalSOC float64
}
