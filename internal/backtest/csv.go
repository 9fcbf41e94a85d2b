package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"storage-cycles/internal/model"
)

// LedgerHeader is the column order of WriteLedger.
var LedgerHeader = []string{
	"timestamp",
	"date",
	"year_month",
	"load_kw",
	"price",
	"tier",
	"op",
	"window",
	"limit_kw",
	"p_max_kw",
	"p_batt_kw",
	"soc",
	"e_in_physics_kwh",
	"e_out_physics_kwh",
	"e_in_sample_kwh",
	"e_out_sample_kwh",
	"p_grid_effect_physics_kw",
	"p_grid_effect_sample_kw",
	"load_with_storage_kw",
	"cum_charge_grid_main",
	"cum_discharge_grid_main",
	"charge_target_grid_main",
	"discharge_target_grid_main",
}

func WriteLedgerCSV(path string, records []Record, f model.Formula) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return WriteLedger(out, records, f)
}

// WriteLedger writes the trajectory as CSV. load_with_storage_kw follows
// formula f.
func WriteLedger(w io.Writer, records []Record, f model.Formula) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(LedgerHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			fmtTime(r.Timestamp),
			r.Date,
			r.YearMonth,
			fmtFloat(r.LoadKW),
			fmtOptFloat(r.Price),
			string(r.Tier),
			string(r.Op),
			string(r.Window),
			fmtFloat(r.LimitKW),
			fmtFloat(r.PMaxKW),
			fmtFloat(r.PBattKW),
			fmtFloat(r.SOC),
			fmtFloat(r.EInPhysicsKWh),
			fmtFloat(r.EOutPhysicsKWh),
			fmtFloat(r.EInSampleKWh),
			fmtFloat(r.EOutSampleKWh),
			fmtFloat(r.PGridPhysicsKW),
			fmtFloat(r.PGridSampleKW),
			fmtFloat(r.LoadWithStorageKW(f)),
			fmtOptFloat(r.CumChargeKWh),
			fmtOptFloat(r.CumDischargeKWh),
			fmtOptFloat(r.ChargeTargetKWh),
			fmtOptFloat(r.DischargeTargetKWh),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func fmtOptFloat(x *float64) string {
	if x == nil {
		return ""
	}
	return fmtFloat(*x)
}
