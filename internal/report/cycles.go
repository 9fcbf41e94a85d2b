package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"storage-cycles/internal/backtest"
	"storage-cycles/internal/cycles"
	"storage-cycles/internal/profit"
)

// Mode selects how much of a cycles run is exported.
type Mode string

const (
	ModeBusiness Mode = "business"
	ModeDebug    Mode = "debug"
)

// ParseMode maps a request value onto a Mode; anything unknown is debug.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeBusiness)) {
		return ModeBusiness
	}
	return ModeDebug
}

var profitHeader = []string{
	"main_revenue", "main_cost", "main_profit", "main_discharge_kwh", "main_charge_kwh", "main_profit_per_kwh",
	"physics_profit", "sample_profit", "baseline_physical_profit",
}

func profitCols(s *profit.Set) []string {
	if s == nil {
		return make([]string, len(profitHeader))
	}
	return []string{
		fmtFloat(s.Main.Revenue),
		fmtFloat(s.Main.Cost),
		fmtFloat(s.Main.Profit),
		fmtFloat(s.Main.DischargeKWh),
		fmtFloat(s.Main.ChargeKWh),
		fmtFloat(s.Main.ProfitPerKWh),
		fmtFloat(s.Physics.Profit),
		fmtFloat(s.Sample.Profit),
		fmtFloat(s.BaselinePhysical.Profit),
	}
}

// CyclesFileName is the archive name of a run.
func CyclesFileName(runID string, mode Mode) string {
	return fmt.Sprintf("storage_cycles_%s_%s.zip", mode, runID)
}

// WriteCyclesZip exports a run into dir and returns the archive path.
// Business mode holds the day, month and year tables; debug mode adds the
// 15-minute trajectory and the window diagnostics.
func WriteCyclesZip(dir string, res *cycles.Result, mode Mode) (string, error) {
	a, err := newArchive(dir, CyclesFileName(res.RunID, mode))
	if err != nil {
		return "", err
	}
	return a.close(writeCycles(a, res, mode))
}

func writeCycles(a *archive, res *cycles.Result, mode Mode) error {
	dayRows := make([][]string, 0, len(res.Days))
	for _, d := range res.Days {
		row := []string{d.Date, fmtFloat(d.Cycles), strconv.FormatBool(d.IsValid), strconv.Itoa(d.PointCount)}
		dayRows = append(dayRows, append(row, profitCols(d.Profit)...))
	}
	if err := a.sheet("days.csv", append([]string{"date", "cycles", "is_valid", "point_count"}, profitHeader...), dayRows); err != nil {
		return err
	}

	monthRows := make([][]string, 0, len(res.Months))
	for _, m := range res.Months {
		row := []string{m.YearMonth, fmtFloat(m.Cycles), strconv.Itoa(m.ValidDays), fmtFloat(m.EquivalentProfit)}
		monthRows = append(monthRows, append(row, profitCols(m.Profit)...))
	}
	if err := a.sheet("months.csv", append([]string{"year_month", "cycles", "valid_days", "equivalent_profit"}, profitHeader...), monthRows); err != nil {
		return err
	}

	y := res.Year
	yearRow := append([]string{strconv.Itoa(y.Year), fmtFloat(y.Cycles), strconv.Itoa(y.ValidDays)}, profitCols(y.Profit)...)
	if err := a.sheet("year.csv", append([]string{"year", "cycles", "valid_days"}, profitHeader...), [][]string{yearRow}); err != nil {
		return err
	}

	if mode != ModeDebug {
		return nil
	}

	if err := writeLedgerSheet(a, res); err != nil {
		return err
	}
	if err := writeWindowDebug(a, res); err != nil {
		return err
	}
	if err := writeOpsByHour(a, res); err != nil {
		return err
	}
	if err := writeRunsTrace(a, res); err != nil {
		return err
	}
	return writeQC(a, res)
}

func writeLedgerSheet(a *archive, res *cycles.Result) error {
	var buf bytes.Buffer
	if err := backtest.WriteLedger(&buf, res.Records, res.Formula); err != nil {
		return fmt.Errorf("step15.csv: %w", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		return fmt.Errorf("step15.csv: %w", err)
	}
	if len(rows) == 0 {
		return a.sheet("step15.csv", backtest.LedgerHeader, nil)
	}
	return a.sheet("step15.csv", rows[0], rows[1:])
}

func writeWindowDebug(a *archive, res *cycles.Result) error {
	header := []string{
		"date", "window", "kind", "hour_list", "limit_kw", "points", "avg_load_kw", "hours", "allow_kw", "base_kwh",
		"e_grid_kwh", "full_ratio", "e_grid_kwh_physics", "full_ratio_physics", "e_grid_kwh_sample", "full_ratio_sample",
		"base_kwh_step15", "e_grid_kwh_physics_step15", "full_ratio_physics_step15", "e_grid_kwh_sample_step15", "full_ratio_sample_step15",
	}
	rows := make([][]string, 0, len(res.WindowRows))
	for _, r := range res.WindowRows {
		hours := make([]string, len(r.HourList))
		for i, h := range r.HourList {
			hours[i] = strconv.Itoa(h)
		}
		rows = append(rows, []string{
			r.Date, string(r.Window), string(r.Kind), strings.Join(hours, " "), fmtFloat(r.LimitKW),
			strconv.Itoa(r.Points), fmtFloat(r.AvgLoadKW), fmtFloat(r.Hours), fmtFloat(r.AllowKW), fmtFloat(r.BaseKWh),
			fmtFloat(r.EGridKWh), fmtFloat(r.FullRatio),
			fmtFloat(r.EGridPhysicsKWh), fmtFloat(r.FullRatioPhysics), fmtFloat(r.EGridSampleKWh), fmtFloat(r.FullRatioSample),
			fmtFloat(r.BaseStep15KWh), fmtFloat(r.EGridPhysicsStep15KWh), fmtFloat(r.FullRatioPhysicsStep15),
			fmtFloat(r.EGridSampleStep15KWh), fmtFloat(r.FullRatioSampleStep15),
		})
	}
	return a.sheet("window_debug.csv", header, rows)
}

func writeOpsByHour(a *archive, res *cycles.Result) error {
	header := []string{"date"}
	for h := 0; h < 24; h++ {
		header = append(header, fmt.Sprintf("h%02d", h))
	}
	var rows [][]string
	for _, date := range res.Daily.Dates() {
		day := res.Daily[date]
		row := []string{date}
		for h := 0; h < 24; h++ {
			row = append(row, string(day.Ops[h]))
		}
		rows = append(rows, row)
	}
	return a.sheet("ops_by_hour.csv", header, rows)
}

func writeRunsTrace(a *archive, res *cycles.Result) error {
	header := []string{"date", "seq", "kind", "start_hour", "end_hour", "length_hours", "filtered_by_threshold", "merged_to", "wrap_across_midnight"}
	rows := make([][]string, 0, len(res.Trace))
	for _, tr := range res.Trace {
		rows = append(rows, []string{
			tr.Date, strconv.Itoa(tr.Seq), string(tr.Kind), strconv.Itoa(tr.StartHour), strconv.Itoa(tr.EndHour),
			strconv.Itoa(tr.LengthHours), strconv.FormatBool(tr.FilteredByThreshold), string(tr.MergedTo),
			strconv.FormatBool(tr.WrapAcrossMidnight),
		})
	}
	return a.sheet("runs_trace.csv", header, rows)
}

func writeQC(a *archive, res *cycles.Result) error {
	qc := res.QC
	rows := [][]string{
		{"limit_mode", string(qc.LimitMode)},
		{"transformer_limit_kw", fmtOptFloat(qc.TransformerLimitKW)},
		{"merged_segments", strconv.Itoa(qc.MergedSegments)},
		{"missing_prices", strconv.Itoa(qc.MissingPrices)},
		{"missing_price_cells", strconv.Itoa(qc.MissingPriceCells)},
	}
	for _, m := range qc.MonthlyDemandMax {
		rows = append(rows, []string{"monthly_demand_max " + m.YearMonth, fmtFloat(m.MaxKW)})
	}
	for _, n := range qc.Notes {
		rows = append(rows, []string{"note", n})
	}
	return a.sheet("qc.csv", []string{"key", "value"}, rows)
}
