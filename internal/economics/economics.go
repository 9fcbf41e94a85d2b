package economics

import (
	"errors"
	"fmt"
)

// PassThreshold is the revenue/LCOE ratio a project needs to pass screening.
const PassThreshold = 1.5

// Input describes a project for evaluation. Money is in currency units and
// costs are already absolute (see PerWhCosts for the per-Wh form).
type Input struct {
	FirstYearRevenue    float64  `json:"first_year_revenue" yaml:"first_year_revenue"`
	FirstYearEnergyKWh  *float64 `json:"first_year_energy_kwh,omitempty" yaml:"first_year_energy_kwh"`
	ProjectYears        int      `json:"project_years" yaml:"project_years"`
	AnnualOMCost        float64  `json:"annual_om_cost" yaml:"annual_om_cost"`
	FirstYearDecayRate  float64  `json:"first_year_decay_rate" yaml:"first_year_decay_rate"`
	SubsequentDecayRate float64  `json:"subsequent_decay_rate" yaml:"subsequent_decay_rate"`
	CapexPerWh          float64  `json:"capex_per_wh" yaml:"capex_per_wh"`
	CapacityKWh         float64  `json:"installed_capacity_kwh" yaml:"installed_capacity_kwh"`
	ReplacementYear     int      `json:"cell_replacement_year,omitempty" yaml:"cell_replacement_year"`
	ReplacementCost     float64  `json:"cell_replacement_cost,omitempty" yaml:"cell_replacement_cost"`
	SecondPhaseRevenue  *float64 `json:"second_phase_first_year_revenue,omitempty" yaml:"second_phase_first_year_revenue"`
}

// WithDefaults fills the project length when unset.
func (in Input) WithDefaults() Input {
	if in.ProjectYears == 0 {
		in.ProjectYears = 15
	}
	return in
}

func (in Input) Validate() error {
	if in.ProjectYears < 1 || in.ProjectYears > 30 {
		return errors.New("project_years must be in [1, 30]")
	}
	if in.FirstYearDecayRate < 0 || in.FirstYearDecayRate > 1 {
		return errors.New("first_year_decay_rate must be in [0, 1]")
	}
	if in.SubsequentDecayRate < 0 || in.SubsequentDecayRate > 1 {
		return errors.New("subsequent_decay_rate must be in [0, 1]")
	}
	if in.CapexPerWh <= 0 {
		return errors.New("capex_per_wh must be > 0")
	}
	if in.CapacityKWh <= 0 {
		return errors.New("installed_capacity_kwh must be > 0")
	}
	if in.AnnualOMCost < 0 || in.ReplacementCost < 0 {
		return errors.New("annual_om_cost/cell_replacement_cost must be >= 0")
	}
	if in.ReplacementYear < 0 {
		return errors.New("cell_replacement_year must be >= 1 when set")
	}
	if in.FirstYearEnergyKWh != nil && *in.FirstYearEnergyKWh <= 0 {
		return errors.New("first_year_energy_kwh must be > 0 when set")
	}
	return nil
}

// PerWhCosts converts per-Wh O&M and replacement prices into absolute costs
// for a plant of capacityKWh, in the 10^4 currency unit the tariff sheets use.
func PerWhCosts(omPerWh, replacementPerWh, capacityKWh float64) (om, replacement float64) {
	return omPerWh * capacityKWh / 10, replacementPerWh * capacityKWh / 10
}

// StaticMetrics is the first-pass screening of a project.
type StaticMetrics struct {
	StaticLCOE      float64 `json:"static_lcoe"`
	AnnualEnergyKWh float64 `json:"annual_energy_kwh"`
	AnnualRevenue   float64 `json:"annual_revenue_yuan"`
	RevenuePerKWh   float64 `json:"revenue_per_kwh"`
	LCOERatio       float64 `json:"lcoe_ratio"`
	Screening       string  `json:"screening_result"`
	PassThreshold   float64 `json:"pass_threshold"`
}

// Result is the full evaluation of a project.
type Result struct {
	CapexTotal         float64          `json:"capex_total"`
	IRR                *float64         `json:"irr"`
	StaticPaybackYears *float64         `json:"static_payback_years"`
	FinalCumulativeNet float64          `json:"final_cumulative_net_cashflow"`
	YearlyCashflows    []YearlyCashflow `json:"yearly_cashflows"`
	StaticMetrics      StaticMetrics    `json:"static_metrics"`
}

// Compute evaluates in. It returns an error only for invalid input.
func Compute(in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("economics input: %w", err)
	}
	capex := in.CapexPerWh * in.CapacityKWh * 1000

	cashflows := BuildCashflows(CashflowParams{
		FirstYearRevenue:    in.FirstYearRevenue,
		ProjectYears:        in.ProjectYears,
		AnnualOMCost:        in.AnnualOMCost,
		FirstYearDecayRate:  in.FirstYearDecayRate,
		SubsequentDecayRate: in.SubsequentDecayRate,
		ReplacementYear:     in.ReplacementYear,
		ReplacementCost:     in.ReplacementCost,
		SecondPhaseRevenue:  in.SecondPhaseRevenue,
	})

	res := &Result{
		CapexTotal:         round(capex, 2),
		IRR:                IRR(cashflows, capex),
		StaticPaybackYears: StaticPayback(cashflows, capex),
		YearlyCashflows:    cashflows,
	}
	if n := len(cashflows); n > 0 {
		res.FinalCumulativeNet = cashflows[n-1].CumulativeNet
	}

	firstEnergy := 0.0
	if in.FirstYearEnergyKWh != nil {
		firstEnergy = *in.FirstYearEnergyKWh
	}
	res.StaticMetrics = ComputeStaticMetrics(cashflows, capex, in.ProjectYears, firstEnergy, in.FirstYearDecayRate, in.SubsequentDecayRate)
	return res, nil
}

// ComputeStaticMetrics derives LCOE and the revenue/LCOE screening ratio.
// Without a first-year energy figure the annual energy is taken as the
// annual revenue at one currency unit per kWh.
func ComputeStaticMetrics(cashflows []YearlyCashflow, capex float64, years int, firstYearEnergyKWh, fyd, sd float64) StaticMetrics {
	m := StaticMetrics{Screening: "fail", PassThreshold: PassThreshold}
	if len(cashflows) == 0 || capex <= 0 || years <= 0 {
		return m
	}

	total := 0.0
	for _, cf := range cashflows {
		total += cf.YearRevenue
	}
	annualRevenue := total / float64(years)

	var annualEnergy float64
	if firstYearEnergyKWh > 0 {
		sum, e := 0.0, firstYearEnergyKWh
		for t := 1; t <= years; t++ {
			sum += e
			if t == 1 {
				e *= 1 - fyd
			} else {
				e *= 1 - sd
			}
		}
		annualEnergy = sum / float64(years)
	} else {
		annualEnergy = annualRevenue / 1.0
	}

	var lcoe, rpk, ratio float64
	if annualEnergy > 0 {
		lcoe = capex / (annualEnergy * float64(years))
		rpk = annualRevenue / annualEnergy
	}
	if lcoe > 0 {
		ratio = rpk / lcoe
	}

	m.StaticLCOE = round(lcoe, 4)
	m.AnnualEnergyKWh = round(annualEnergy, 2)
	m.AnnualRevenue = round(annualRevenue, 2)
	m.RevenuePerKWh = round(rpk, 4)
	m.LCOERatio = round(ratio, 4)
	if ratio >= PassThreshold {
		m.Screening = "pass"
	}
	return m
}
