package analysis

import (
	"sort"

	"storage-cycles/internal/model"
	"storage-cycles/internal/window"
)

// WindowMonth sums the point-integrated full ratios of each window and
// direction over a calendar month.
type WindowMonth struct {
	YearMonth             string  `json:"year_month"`
	FirstChargeCycles     float64 `json:"first_charge_cycles"`
	FirstDischargeCycles  float64 `json:"first_discharge_cycles"`
	SecondChargeCycles    float64 `json:"second_charge_cycles"`
	SecondDischargeCycles float64 `json:"second_discharge_cycles"`
}

// WindowMonthSummary folds the window debug rows into months using the
// step15 ratio of formula f. Rows with a zero ratio are skipped.
func WindowMonthSummary(rows []window.DebugRow, f model.Formula) []WindowMonth {
	agg := map[string]*WindowMonth{}
	for _, r := range rows {
		if len(r.Date) < 7 {
			continue
		}
		ratio := r.Step15FullRatio(f)
		if ratio == 0 {
			continue
		}
		ym := r.Date[:7]
		m, ok := agg[ym]
		if !ok {
			m = &WindowMonth{YearMonth: ym}
			agg[ym] = m
		}
		switch {
		case r.Window == window.C1 && r.Kind == model.OpCharge:
			m.FirstChargeCycles += ratio
		case r.Window == window.C1 && r.Kind == model.OpDischarge:
			m.FirstDischargeCycles += ratio
		case r.Window == window.C2 && r.Kind == model.OpCharge:
			m.SecondChargeCycles += ratio
		case r.Window == window.C2 && r.Kind == model.OpDischarge:
			m.SecondDischargeCycles += ratio
		}
	}

	out := make([]WindowMonth, 0, len(agg))
	for _, m := range agg {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out
}
