package strategy

import (
	"sort"
	"time"

	"storage-cycles/internal/model"
)

// DayOps is the resolved 24-hour schedule of one calendar date.
type DayOps struct {
	Date  string         `json:"date"`
	Ops   [24]model.Op   `json:"ops"`
	Tiers [24]model.Tier `json:"tiers"`
}

// DailyOps maps a YYYY-MM-DD key to its schedule.
type DailyOps map[string]DayOps

// Dates returns the date keys in ascending order.
func (d DailyOps) Dates() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decide returns the cell for the hour containing t. Dates outside the
// schedule resolve to standby/flat.
func (d DailyOps) Decide(t time.Time) model.HourCell {
	day, ok := d[t.Format(model.DateLayout)]
	if !ok {
		return model.HourCell{Op: model.OpStandby, Tier: model.TierFlat}
	}
	h := t.Hour()
	return model.HourCell{Op: day.Ops[h], Tier: day.Tiers[h]}
}
