package strategy

import (
	"time"

	"storage-cycles/internal/model"
)

// PricePoint attaches the TOU tier and price to one load sample.
type PricePoint struct {
	Timestamp time.Time  `json:"timestamp"`
	Tier      model.Tier `json:"tier"`
	Price     *float64   `json:"price"`
}

// BuildDailyOps resolves the 24-hour schedule for every calendar date spanned
// by the series, gaps included. A date rule wins over the month table when
// its range contains the date and it carries a full 24-hour schedule.
func BuildDailyOps(series model.LoadSeries, table model.StrategyTable, rules []model.DateRule) DailyOps {
	out := DailyOps{}
	for _, d := range series.Days() {
		key := d.Format(model.DateLayout)
		var row []model.HourCell
		if r, ok := matchRule(d, rules); ok {
			row = r.Schedule
		} else if m := int(d.Month()) - 1; m < len(table) {
			row = table[m]
		}
		out[key] = resolveRow(key, row)
	}
	return out
}

func matchRule(d time.Time, rules []model.DateRule) (model.DateRule, bool) {
	for _, r := range rules {
		start, err := time.ParseInLocation(model.DateLayout, r.StartDate, d.Location())
		if err != nil {
			continue
		}
		end, err := time.ParseInLocation(model.DateLayout, r.EndDate, d.Location())
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		if len(r.Schedule) < 24 {
			continue
		}
		return r, true
	}
	return model.DateRule{}, false
}

func resolveRow(date string, row []model.HourCell) DayOps {
	day := DayOps{Date: date}
	for h := 0; h < 24; h++ {
		day.Ops[h] = model.OpStandby
		day.Tiers[h] = model.TierFlat
		if h >= len(row) {
			continue
		}
		day.Ops[h] = model.ParseOp(string(row[h].Op))
		day.Tiers[h] = model.ParseTier(string(row[h].Tier))
	}
	return day
}

// PriceSeries maps every point onto its hour's tier and the month's price for
// that tier. missing counts points whose price is nil.
func PriceSeries(series model.LoadSeries, daily DailyOps, prices model.MonthlyPrices) ([]PricePoint, int) {
	out := make([]PricePoint, 0, len(series))
	missing := 0
	for _, p := range series {
		cell := daily.Decide(p.Timestamp)
		price := prices.Price(int(p.Timestamp.Month()), cell.Tier)
		if price == nil {
			missing++
		}
		out = append(out, PricePoint{Timestamp: p.Timestamp, Tier: cell.Tier, Price: price})
	}
	return out, missing
}

// CountMissingPrices counts (month, tier) cells without a usable price and
// lists the 0-based indices of months that carry no price map at all.
func CountMissingPrices(prices model.MonthlyPrices) (int, []int) {
	missing := 0
	var badMonths []int
	for i, m := range prices {
		if m == nil {
			badMonths = append(badMonths, i)
			continue
		}
		for _, t := range model.Tiers {
			if m[t] == nil {
				missing++
			}
		}
	}
	return missing, badMonths
}
