package economics

import (
	"math"

	"github.com/shopspring/decimal"
)

// YearlyCashflow is one project year. Money values are rounded to cents.
type YearlyCashflow struct {
	YearIndex       int     `json:"year_index"`
	YearRevenue     float64 `json:"year_revenue"`
	AnnualOMCost    float64 `json:"annual_om_cost"`
	ReplacementCost float64 `json:"cell_replacement_cost"`
	NetCashflow     float64 `json:"net_cashflow"`
	CumulativeNet   float64 `json:"cumulative_net_cashflow"`
}

// CashflowParams drives BuildCashflows.
type CashflowParams struct {
	FirstYearRevenue    float64
	ProjectYears        int
	AnnualOMCost        float64
	FirstYearDecayRate  float64
	SubsequentDecayRate float64

	// ReplacementYear starts a new degradation phase; 0 disables it.
	ReplacementYear int
	ReplacementCost float64
	// SecondPhaseRevenue is the phase base after replacement. nil reuses
	// FirstYearRevenue.
	SecondPhaseRevenue *float64
}

// BuildCashflows lays out the yearly revenue, costs and cumulative net.
// Every phase, the first one included, starts already decayed by the
// first-year rate; later years in the phase decay by the subsequent rate.
func BuildCashflows(p CashflowParams) []YearlyCashflow {
	second := p.FirstYearRevenue
	if p.SecondPhaseRevenue != nil {
		second = *p.SecondPhaseRevenue
	}

	out := make([]YearlyCashflow, 0, max(p.ProjectYears, 0))
	base := p.FirstYearRevenue
	phaseStart := 1
	cumulative := 0.0
	for t := 1; t <= p.ProjectYears; t++ {
		replacement := 0.0
		if p.ReplacementYear > 0 && t == p.ReplacementYear {
			base = second
			phaseStart = t
			replacement = p.ReplacementCost
		}
		revenue := base * (1 - p.FirstYearDecayRate) * math.Pow(1-p.SubsequentDecayRate, float64(t-phaseStart))
		net := revenue - p.AnnualOMCost - replacement
		cumulative += net

		out = append(out, YearlyCashflow{
			YearIndex:       t,
			YearRevenue:     round(revenue, 2),
			AnnualOMCost:    round(p.AnnualOMCost, 2),
			ReplacementCost: round(replacement, 2),
			NetCashflow:     round(net, 2),
			CumulativeNet:   round(cumulative, 2),
		})
	}
	return out
}

// YearlyEnergy projects discharge energy over the project with the same
// phase model as BuildCashflows; replacement resets to the first-year level.
func YearlyEnergy(firstYearKWh float64, years int, fyd, sd float64, replacementYear int) []float64 {
	if firstYearKWh <= 0 || years <= 0 {
		return nil
	}
	out := make([]float64, 0, years)
	phaseStart := 1
	for t := 1; t <= years; t++ {
		if replacementYear > 0 && t == replacementYear {
			phaseStart = t
		}
		out = append(out, firstYearKWh*(1-fyd)*math.Pow(1-sd, float64(t-phaseStart)))
	}
	return out
}

// StaticPayback is the undiscounted payback in years, interpolated within
// the crossing year. nil means the project never pays back.
func StaticPayback(cashflows []YearlyCashflow, capex float64) *float64 {
	if capex <= 0 {
		return ptr(0)
	}
	cumulative := 0.0
	for _, cf := range cashflows {
		prev := cumulative
		cumulative += cf.NetCashflow
		if cumulative < capex {
			continue
		}
		if cf.NetCashflow > 0 {
			return ptr(round(float64(cf.YearIndex-1)+(capex-prev)/cf.NetCashflow, 2))
		}
		return ptr(float64(cf.YearIndex))
	}
	return nil
}

func round(x float64, places int32) float64 {
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}

func ptr(v float64) *float64 { return &v }
