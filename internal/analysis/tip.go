package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"storage-cycles/internal/backtest"
	"storage-cycles/internal/model"
	"storage-cycles/internal/window"
)

// maxTipPoints bounds the point list returned with a TipSummary.
const maxTipPoints = 200

type TipPoint struct {
	Time   string  `json:"time"`
	LoadKW float64 `json:"load_kw"`
}

// TipDay is the tip-discharge need of one date.
type TipDay struct {
	Date           string  `json:"date"`
	AvgLoadKW      float64 `json:"avg_load_kw"`
	TipHours       float64 `json:"tip_hours"`
	EnergyNeedKWh  float64 `json:"energy_need_kwh"`
	DischargeCount float64 `json:"discharge_count"`
	Ratio          float64 `json:"ratio"`
}

type TipMonth struct {
	Month int     `json:"month"`
	Ratio float64 `json:"ratio"`
}

// TipSummary estimates how much of the battery the tip tier can absorb.
// The headline figures are means of the per-day figures, so a long series
// does not saturate the ratio.
type TipSummary struct {
	AvgTipLoadKW   float64    `json:"avg_tip_load_kw"`
	TipHours       float64    `json:"tip_hours"`
	EnergyNeedKWh  float64    `json:"energy_need_kwh"`
	DischargeCount float64    `json:"discharge_count"`
	CapacityKWh    float64    `json:"capacity_kwh"`
	Ratio          float64    `json:"ratio"`
	TipPoints      []TipPoint `json:"tip_points"`
	Note           string     `json:"note"`
	DayStats       []TipDay   `json:"day_stats,omitempty"`
	MonthStats     []TipMonth `json:"month_stats,omitempty"`
}

// TipDischarge summarises the points that sit in the tip tier while the
// schedule discharges. Per day:
//
//	need  = mean tip load × tip hours
//	count = c1/c2 discharge windows touching a tip hour
//	ratio = min(1, need / (capacity × count))
//
// It returns nil when there are no records.
func TipDischarge(records []backtest.Record, masks window.Masks, capacityKWh float64) *TipSummary {
	if len(records) == 0 {
		return nil
	}

	byDay := map[string][]backtest.Record{}
	var points []TipPoint
	total := 0
	for _, r := range records {
		if r.Tier != model.TierTip || r.Op != model.OpDischarge {
			continue
		}
		byDay[r.Date] = append(byDay[r.Date], r)
		total++
		if len(points) < maxTipPoints {
			points = append(points, TipPoint{Time: r.Timestamp.Format("2006-01-02 15:04"), LoadKW: r.LoadKW})
		}
	}

	sum := &TipSummary{CapacityKWh: capacityKWh, TipPoints: points}
	if total == 0 {
		sum.TipPoints = []TipPoint{}
		sum.Note = "no 15-minute point has tier=tip and op=discharge; tip discharge ratio is 0"
		return sum
	}

	dates := make([]string, 0, len(byDay))
	for d := range byDay {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, date := range dates {
		sum.DayStats = append(sum.DayStats, tipDay(date, byDay[date], masks[date], capacityKWh))
	}

	var avg, hours, need, count, ratio []float64
	months := map[int][]float64{}
	for _, d := range sum.DayStats {
		avg = append(avg, d.AvgLoadKW)
		hours = append(hours, d.TipHours)
		need = append(need, d.EnergyNeedKWh)
		count = append(count, d.DischargeCount)
		ratio = append(ratio, d.Ratio)
		if m, err := strconv.Atoi(d.Date[5:7]); err == nil && m >= 1 && m <= 12 {
			months[m] = append(months[m], d.Ratio)
		}
	}
	sum.AvgTipLoadKW = stat.Mean(avg, nil)
	sum.TipHours = stat.Mean(hours, nil)
	sum.EnergyNeedKWh = stat.Mean(need, nil)
	sum.DischargeCount = stat.Mean(count, nil)
	sum.Ratio = stat.Mean(ratio, nil)

	for m := 1; m <= 12; m++ {
		tm := TipMonth{Month: m}
		if rs := months[m]; len(rs) > 0 {
			tm.Ratio = stat.Mean(rs, nil)
		}
		sum.MonthStats = append(sum.MonthStats, tm)
	}

	sum.Note = fmt.Sprintf("based on %d tip/discharge 15-minute points over %d days; figures are per-day means", total, len(dates))
	return sum
}

func tipDay(date string, day []backtest.Record, dm window.DayMask, capacityKWh float64) TipDay {
	loads := make([]float64, 0, len(day))
	tipHours := map[int]bool{}
	for _, r := range day {
		loads = append(loads, r.LoadKW)
		tipHours[r.Timestamp.Hour()] = true
	}

	d := TipDay{Date: date}
	d.AvgLoadKW = stat.Mean(loads, nil)
	d.TipHours = float64(len(day)) * model.StepHours
	d.EnergyNeedKWh = d.AvgLoadKW * d.TipHours

	for _, w := range window.Windows {
		for _, h := range dm.Get(w).DischargeHours {
			if tipHours[h] {
				d.DischargeCount++
				break
			}
		}
	}
	if d.DischargeCount > 0 && capacityKWh > 0 && d.TipHours > 0 {
		d.Ratio = math.Min(1, d.EnergyNeedKWh/(capacityKWh*d.DischargeCount))
	}
	return d
}
