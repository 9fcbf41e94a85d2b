package profit

import (
	"math"
	"sort"
	"time"
)

// AllocPoint is one discharge point competing for the day's energy budget.
type AllocPoint struct {
	Timestamp time.Time
	Price     *float64
	LoadKW    float64
	// EOutKWh is the energy the simulator discharged at this point; it is
	// the point's physical ceiling.
	EOutKWh float64
}

// AllocateByPrice redistributes budget over points, highest price first.
// Ties keep time order and a missing price ranks as zero. Each point takes
// at most its simulated discharge and what the load above reserve can absorb
// in 15 minutes. The result is aligned with points.
func AllocateByPrice(points []AllocPoint, budget, reserveDischargeKW float64) []float64 {
	out := make([]float64, len(points))
	if len(points) == 0 || budget <= 0 {
		return out
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := priceOrZero(points[order[a]].Price), priceOrZero(points[order[b]].Price)
		if pa != pb {
			return pa > pb
		}
		return points[order[a]].Timestamp.Before(points[order[b]].Timestamp)
	})

	remaining := budget
	for _, i := range order {
		if remaining <= 1e-6 {
			break
		}
		p := points[i]
		capKWh := math.Max(0, math.Min(p.EOutKWh, math.Max(p.LoadKW-reserveDischargeKW, 0)*0.25))
		if capKWh <= 1e-9 {
			continue
		}
		alloc := math.Min(capKWh, remaining)
		out[i] = alloc
		remaining -= alloc
	}
	return out
}

func priceOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
