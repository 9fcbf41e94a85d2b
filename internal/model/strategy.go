package model

import "strconv"

// HourCell is one hour of a strategy schedule.
type HourCell struct {
	Op   Op   `json:"op" yaml:"op"`
	Tier Tier `json:"tou" yaml:"tou"`
}

// StrategyTable holds one 24-cell schedule per calendar month (index 0 = January).
// Short or missing rows are legal; absent cells resolve to standby/flat.
type StrategyTable [][]HourCell

// DateRule overrides the month table for an inclusive date range.
type DateRule struct {
	StartDate string     `json:"startDate" yaml:"start_date"`
	EndDate   string     `json:"endDate" yaml:"end_date"`
	Schedule  []HourCell `json:"schedule" yaml:"schedule"`
}

// MonthlyPrices holds one tier->price map per calendar month (index 0 = January).
// A nil price is missing.
type MonthlyPrices []map[Tier]*float64

// Price returns the price for a 1-based month and tier, or nil.
func (mp MonthlyPrices) Price(month int, tier Tier) *float64 {
	idx := month - 1
	if idx < 0 || idx >= len(mp) || mp[idx] == nil {
		return nil
	}
	return mp[idx][tier]
}

// PricesFromRaw builds MonthlyPrices from loosely typed JSON/YAML maps.
// Numbers and numeric strings are kept; anything else is treated as missing.
func PricesFromRaw(raw []map[string]any) MonthlyPrices {
	out := make(MonthlyPrices, len(raw))
	for i, m := range raw {
		if m == nil {
			continue
		}
		mp := make(map[Tier]*float64, len(m))
		for k, v := range m {
			t, ok := LookupTier(k)
			if !ok {
				continue
			}
			mp[t] = toFloatPtr(v)
		}
		out[i] = mp
	}
	return out
}

func toFloatPtr(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case float32:
		f := float64(x)
		return &f
	case int:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
