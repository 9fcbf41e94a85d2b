package model

import "math"

// ChargeToGrid converts battery-side charge energy into grid-side energy.
//   physics: base * dod / eta
//   sample:  base * eta / dod
func ChargeToGrid(f Formula, base, dod, eta float64) float64 {
	if f == FormulaSample {
		return base * eta / math.Max(dod, Epsilon)
	}
	return base * dod / math.Max(eta, Epsilon)
}

// DischargeToGrid converts battery-side discharge energy into grid-side energy.
//   physics: base * dod * eta
//   sample:  base / (dod * eta)
func DischargeToGrid(f Formula, base, dod, eta float64) float64 {
	if f == FormulaSample {
		return base / math.Max(dod*eta, Epsilon)
	}
	return base * dod * eta
}

// FullRatio is grid energy over capacity, capped at 1. Zero capacity yields 0.
func FullRatio(eGrid, capacityKWh float64) float64 {
	if capacityKWh <= 0 {
		return 0
	}
	return math.Max(0, math.Min(eGrid/capacityKWh, 1))
}
