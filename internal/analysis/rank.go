package analysis

import (
	"sort"

	"storage-cycles/internal/profit"
)

type RankedDay struct {
	Date  string       `json:"date"`
	Entry profit.Entry `json:"entry"`
}

// RankDaysByProfit sorts the days of a summary by main profit, best first.
// Ties keep date order.
func RankDaysByProfit(sum profit.Summary) []RankedDay {
	out := make([]RankedDay, 0, len(sum.Days))
	for _, date := range sum.DayKeys() {
		out = append(out, RankedDay{Date: date, Entry: sum.Days[date].Main})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Entry.Profit > out[j].Entry.Profit
	})
	return out
}
