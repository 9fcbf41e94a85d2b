package models

import (
	"storage-cycles/internal/data"
	"storage-cycles/internal/economics"
	"storage-cycles/internal/model"
)

// CyclesRequest represents the request body for a cycles run
type CyclesRequest struct {
	Payload     CyclesPayload `json:"payload" binding:"required"`
	ExportExcel bool          `json:"export_excel,omitempty"`
	ExportMode  string        `json:"export_mode,omitempty"` // "business" or "debug" (default)
}

// CurvesRequest asks for the with/without storage curves of one date
type CurvesRequest struct {
	Payload CyclesPayload `json:"payload" binding:"required"`
	Date    string        `json:"date" binding:"required"` // YYYY-MM-DD
}

// CyclesPayload carries the load series and everything needed to simulate it
type CyclesPayload struct {
	// StoragePreset names a preset from /storage/presets; Storage overrides it.
	StoragePreset    string              `json:"storage_preset,omitempty"`
	Storage          model.StorageConfig `json:"storage"`
	StrategySource   StrategySource      `json:"strategySource"`
	MonthlyTouPrices []map[string]any    `json:"monthlyTouPrices"`
	Points           []data.Point        `json:"points"`
	Timezone         string              `json:"timezone,omitempty"` // IANA name, default local
}

// StrategySource is the monthly schedule table plus date overrides
type StrategySource struct {
	MonthlySchedule [][]model.HourCell `json:"monthlySchedule"`
	DateRules       []model.DateRule   `json:"dateRules,omitempty"`
}

// EconomicsRequest represents the request body for the economics endpoints.
// O&M and replacement costs are per Wh; pointers distinguish unset from zero.
type EconomicsRequest struct {
	FirstYearRevenue            *float64 `json:"first_year_revenue" binding:"required"`
	FirstYearEnergyKWh          *float64 `json:"first_year_energy_kwh,omitempty"`
	ProjectYears                *int     `json:"project_years,omitempty"`
	AnnualOMCost                float64  `json:"annual_om_cost,omitempty"`
	FirstYearDecayRate          *float64 `json:"first_year_decay_rate,omitempty"`
	SubsequentDecayRate         *float64 `json:"subsequent_decay_rate,omitempty"`
	CapexPerWh                  float64  `json:"capex_per_wh" binding:"gt=0"`
	InstalledCapacityKWh        float64  `json:"installed_capacity_kwh" binding:"gt=0"`
	CellReplacementCost         *float64 `json:"cell_replacement_cost,omitempty"`
	CellReplacementYear         *int     `json:"cell_replacement_year,omitempty"`
	SecondPhaseFirstYearRevenue *float64 `json:"second_phase_first_year_revenue,omitempty"`

	// Export only: the user's percentage of the gross revenue.
	UserSharePercent float64 `json:"user_share_percent,omitempty"`
}

// ToInput applies the request defaults and converts per-Wh costs
func (r EconomicsRequest) ToInput() economics.Input {
	in := economics.Input{
		FirstYearEnergyKWh:  r.FirstYearEnergyKWh,
		ProjectYears:        15,
		FirstYearDecayRate:  0.03,
		SubsequentDecayRate: 0.015,
		CapexPerWh:          r.CapexPerWh,
		CapacityKWh:         r.InstalledCapacityKWh,
		SecondPhaseRevenue:  r.SecondPhaseFirstYearRevenue,
	}
	if r.FirstYearRevenue != nil {
		in.FirstYearRevenue = *r.FirstYearRevenue
	}
	if r.ProjectYears != nil {
		in.ProjectYears = *r.ProjectYears
	}
	if r.FirstYearDecayRate != nil {
		in.FirstYearDecayRate = *r.FirstYearDecayRate
	}
	if r.SubsequentDecayRate != nil {
		in.SubsequentDecayRate = *r.SubsequentDecayRate
	}
	if r.CellReplacementYear != nil {
		in.ReplacementYear = *r.CellReplacementYear
	}
	replacementPerWh := 0.0
	if r.CellReplacementCost != nil {
		replacementPerWh = *r.CellReplacementCost
	}
	in.AnnualOMCost, in.ReplacementCost = economics.PerWhCosts(r.AnnualOMCost, replacementPerWh, r.InstalledCapacityKWh)
	return in
}

// LedgerQuery holds the optional query parameters of the ledger endpoint
type LedgerQuery struct {
	Date   string `form:"date,omitempty"`   // restrict to one YYYY-MM-DD
	Format string `form:"format,omitempty"` // "json" (default) or "csv"
	Limit  int    `form:"limit,omitempty"`  // 0 = all
}
