package backtest

import (
	"math"

	"storage-cycles/internal/model"
)

// PointEnergies is everything the battery does in one 15-minute step.
// BatteryKW is positive when charging. Grid powers are positive when the
// battery draws from the grid.
type PointEnergies struct {
	BatteryKW     float64
	InPhysics     float64
	OutPhysics    float64
	InSample      float64
	OutSample     float64
	GridPhysicsKW float64
	GridSampleKW  float64
}

// NewPointEnergies converts a battery-side power into grid-side energies
// under both formulas.
func NewPointEnergies(batteryKW, dod, eta float64) PointEnergies {
	pe := PointEnergies{BatteryKW: batteryKW}
	eBatt := math.Abs(batteryKW) * model.StepHours
	switch {
	case batteryKW > 0:
		pe.InPhysics = model.ChargeToGrid(model.FormulaPhysics, eBatt, dod, eta)
		pe.InSample = model.ChargeToGrid(model.FormulaSample, eBatt, dod, eta)
	case batteryKW < 0:
		pe.OutPhysics = model.DischargeToGrid(model.FormulaPhysics, eBatt, dod, eta)
		pe.OutSample = model.DischargeToGrid(model.FormulaSample, eBatt, dod, eta)
	}
	pe.GridPhysicsKW = (pe.InPhysics - pe.OutPhysics) / model.StepHours
	pe.GridSampleKW = (pe.InSample - pe.OutSample) / model.StepHours
	return pe
}

// Scale multiplies every field by k.
func (pe PointEnergies) Scale(k float64) PointEnergies {
	return PointEnergies{
		BatteryKW:     pe.BatteryKW * k,
		InPhysics:     pe.InPhysics * k,
		OutPhysics:    pe.OutPhysics * k,
		InSample:      pe.InSample * k,
		OutSample:     pe.OutSample * k,
		GridPhysicsKW: pe.GridPhysicsKW * k,
		GridSampleKW:  pe.GridSampleKW * k,
	}
}

// Main returns the grid-side (in, out) energies of formula f.
func (pe PointEnergies) Main(f model.Formula) (float64, float64) {
	if f == model.FormulaSample {
		return pe.InSample, pe.OutSample
	}
	return pe.InPhysics, pe.OutPhysics
}

// ClipTransformer keeps load plus charging under the transformer ceiling.
// A load already above the ceiling is left alone.
func ClipTransformer(pe PointEnergies, loadKW, limitKW float64, transformer bool) PointEnergies {
	if !transformer || limitKW <= 0 || loadKW >= limitKW {
		return pe
	}
	maxCharge := math.Max(math.Max(pe.GridPhysicsKW, pe.GridSampleKW), 0)
	if maxCharge <= 0 || loadKW+maxCharge <= limitKW+1e-6 {
		return pe
	}
	return pe.Scale(math.Max(limitKW-loadKW, 0) / maxCharge)
}

// ClipNoReverse stops discharge from pushing the net load below the
// discharge reserve, so no energy flows back to the grid.
func ClipNoReverse(pe PointEnergies, loadKW, reserveDischargeKW float64) PointEnergies {
	if loadKW <= 0 {
		return pe
	}
	maxDischarge := math.Max(math.Max(-pe.GridPhysicsKW, -pe.GridSampleKW), 0)
	if maxDischarge <= 0 {
		return pe
	}
	allowed := math.Max(loadKW-reserveDischargeKW, 0)
	if maxDischarge <= allowed+1e-6 {
		return pe
	}
	return pe.Scale(allowed / maxDischarge)
}

// ClipWindow keeps the window's cumulative main-formula energy within its
// target. cum is the energy already moved in the op's direction.
func ClipWindow(pe PointEnergies, op model.Op, f model.Formula, target, cum float64) PointEnergies {
	in, out := pe.Main(f)
	var e float64
	switch op {
	case model.OpCharge:
		e = in
	case model.OpDischarge:
		e = out
	default:
		return pe
	}
	allowed := math.Max(target-cum, 0)
	if e <= allowed+model.Epsilon {
		return pe
	}
	return pe.Scale(allowed / math.Max(e, model.Epsilon))
}
