package report

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"storage-cycles/internal/economics"
)

// EconomicsFileName is the archive name of a cash-flow export.
func EconomicsFileName(exportID string) string {
	return fmt.Sprintf("storage_economics_%s.zip", exportID)
}

// WriteEconomicsZip exports the yearly cash flows and the indicator summary.
// The cash flows hold the project's share of revenue; userSharePercent
// (0..100) recovers the total and the user's share from it. yearlyKWh may be
// nil or shorter than the project, in which case the energy column is 0.
func WriteEconomicsZip(dir string, res *economics.Result, userSharePercent float64, yearlyKWh []float64) (string, error) {
	a, err := newArchive(dir, EconomicsFileName(uuid.NewString()))
	if err != nil {
		return "", err
	}
	return a.close(writeEconomics(a, res, userSharePercent, yearlyKWh))
}

func writeEconomics(a *archive, res *economics.Result, userSharePercent float64, yearlyKWh []float64) error {
	share := userSharePercent / 100
	header := []string{
		"year", "total_revenue", "user_revenue", "project_revenue", "discharge_kwh",
		"om_cost", "cell_replacement_cost", "net_cashflow", "cumulative_net_cashflow",
	}
	rows := make([][]string, 0, len(res.YearlyCashflows))
	for i, cf := range res.YearlyCashflows {
		project := cf.YearRevenue
		total := project
		if share < 1 {
			total = project / (1 - share)
		}
		energy := 0.0
		if i < len(yearlyKWh) {
			energy = yearlyKWh[i]
		}
		rows = append(rows, []string{
			strconv.Itoa(cf.YearIndex),
			fmtMoney(total, 2),
			fmtMoney(total*share, 2),
			fmtMoney(project, 2),
			fmtMoney(energy, 2),
			fmtMoney(cf.AnnualOMCost, 2),
			fmtMoney(cf.ReplacementCost, 2),
			fmtMoney(cf.NetCashflow, 2),
			fmtMoney(cf.CumulativeNet, 2),
		})
	}
	if err := a.sheet("cashflows.csv", header, rows); err != nil {
		return err
	}

	irr := "no solution"
	if res.IRR != nil {
		irr = fmtMoney(*res.IRR*100, 2) + "%"
	}
	payback := "beyond project life"
	if res.StaticPaybackYears != nil {
		payback = fmtMoney(*res.StaticPaybackYears, 2)
	}
	m := res.StaticMetrics
	summary := [][]string{
		{"capex_total", fmtMoney(res.CapexTotal, 2), "currency"},
		{"irr", irr, "-"},
		{"static_payback_years", payback, "year"},
		{"final_cumulative_net_cashflow", fmtMoney(res.FinalCumulativeNet, 2), "currency"},
		{"static_lcoe", fmtMoney(m.StaticLCOE, 4), "currency/kWh"},
		{"annual_energy_kwh", fmtMoney(m.AnnualEnergyKWh, 2), "kWh"},
		{"annual_revenue", fmtMoney(m.AnnualRevenue, 2), "currency"},
		{"revenue_per_kwh", fmtMoney(m.RevenuePerKWh, 4), "currency/kWh"},
		{"lcoe_ratio", fmtMoney(m.LCOERatio, 4), "-"},
		{"screening_result", m.Screening, "-"},
	}
	return a.sheet("summary.csv", []string{"indicator", "value", "unit"}, summary)
}
