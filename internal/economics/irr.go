package economics

import "math"

const (
	irrMaxIterations = 100
	irrTolerance     = 1e-6
)

// IRR solves NPV(r) = 0 for [-capex, CF1..CFn] by Newton's method from 10%,
// falling back to bisection on [-0.99, 2]. nil means no root was found.
func IRR(cashflows []YearlyCashflow, capex float64) *float64 {
	if len(cashflows) == 0 || capex <= 0 {
		return nil
	}
	flows := make([]float64, 0, len(cashflows)+1)
	flows = append(flows, -capex)
	for _, cf := range cashflows {
		flows = append(flows, cf.NetCashflow)
	}

	r := 0.1
	for i := 0; i < irrMaxIterations; i++ {
		v := npv(flows, r)
		if math.Abs(v) < irrTolerance {
			return ptr(round(r, 6))
		}
		d := npvDerivative(flows, r)
		if math.Abs(d) < 1e-12 {
			break
		}
		next := math.Max(-0.99, math.Min(10, r-v/d))
		if math.Abs(next-r) < irrTolerance {
			return ptr(round(next, 6))
		}
		r = next
	}
	return bisectIRR(flows)
}

func bisectIRR(flows []float64) *float64 {
	lo, hi := -0.99, 2.0
	npvLo, npvHi := npv(flows, lo), npv(flows, hi)
	if npvLo*npvHi > 0 {
		return nil
	}
	for i := 0; i < irrMaxIterations; i++ {
		mid := (lo + hi) / 2
		v := npv(flows, mid)
		if math.Abs(v) < irrTolerance {
			return ptr(round(mid, 6))
		}
		if v*npvLo < 0 {
			hi = mid
		} else {
			lo, npvLo = mid, v
		}
		if hi-lo < irrTolerance {
			return ptr(round((lo+hi)/2, 6))
		}
	}
	return nil
}

func npv(flows []float64, r float64) float64 {
	total := 0.0
	for t, cf := range flows {
		total += cf / math.Pow(1+r, float64(t))
	}
	return total
}

func npvDerivative(flows []float64, r float64) float64 {
	total := 0.0
	for t, cf := range flows {
		if t > 0 {
			total -= float64(t) * cf / math.Pow(1+r, float64(t+1))
		}
	}
	return total
}
