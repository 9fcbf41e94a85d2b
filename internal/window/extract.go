package window

import (
	"sort"

	"storage-cycles/internal/model"
	"storage-cycles/internal/strategy"
)

// Window identifies one of the two daily cycle windows.
type Window string

const (
	C1 Window = "c1"
	C2 Window = "c2"
)

// Windows lists the windows in evaluation order.
var Windows = []Window{C1, C2}

// Mask holds the hours assigned to one window, sorted ascending.
type Mask struct {
	ChargeHours    []int `json:"charge_hours"`
	DischargeHours []int `json:"discharge_hours"`
}

// DayMask is the pair of window masks of one date.
type DayMask struct {
	C1 Mask `json:"c1"`
	C2 Mask `json:"c2"`
}

// Get returns the mask of w.
func (d DayMask) Get(w Window) Mask {
	if w == C2 {
		return d.C2
	}
	return d.C1
}

// Masks maps a date key to its window masks.
type Masks map[string]DayMask

// Dates returns the date keys in ascending order.
func (m Masks) Dates() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Run is a maximal block of consecutive hours sharing one active op.
type Run struct {
	Kind    model.Op
	Hours   []int
	Wrapped bool
}

// RunTrace records how one run was classified.
type RunTrace struct {
	Date                string   `json:"date"`
	Seq                 int      `json:"seq"`
	Kind                model.Op `json:"kind"`
	StartHour           int      `json:"start_hour"`
	EndHour             int      `json:"end_hour"`
	LengthHours         int      `json:"length_hours"`
	FilteredByThreshold bool     `json:"filtered_by_threshold"`
	MergedTo            Window   `json:"merged_to"`
	WrapAcrossMidnight  bool     `json:"wrap_across_midnight"`
}

// Runs splits a day's ops into runs, ignoring standby hours. With wrap set,
// a last run of the same kind as the first is folded into the first.
func Runs(ops [24]model.Op, wrap bool) []Run {
	var runs []Run
	var cur *Run
	for h, op := range ops {
		if !op.IsActive() {
			cur = nil
			continue
		}
		if cur == nil || cur.Kind != op {
			runs = append(runs, Run{Kind: op})
			cur = &runs[len(runs)-1]
		}
		cur.Hours = append(cur.Hours, h)
	}
	if !wrap || len(runs) < 2 {
		return runs
	}
	first, last := runs[0], runs[len(runs)-1]
	if first.Kind != last.Kind {
		return runs
	}
	hours := append(append([]int{}, last.Hours...), first.Hours...)
	sort.Ints(hours)
	runs[0] = Run{Kind: first.Kind, Hours: hours, Wrapped: true}
	return runs[:len(runs)-1]
}

// Extract assigns each day's runs to the c1/c2 windows. Runs shorter than
// thresholdMinutes are dropped. The first two surviving runs fill c1 and the
// rest fill c2; merged counts surviving runs beyond the fourth.
func Extract(daily strategy.DailyOps, thresholdMinutes int, wrap bool) (Masks, int, []RunTrace) {
	masks := Masks{}
	merged := 0
	var trace []RunTrace

	for _, date := range daily.Dates() {
		runs := Runs(daily[date].Ops, wrap)
		var c1, c2 hourSet
		kept := 0
		for seq, r := range runs {
			tr := RunTrace{
				Date:               date,
				Seq:                seq,
				Kind:               r.Kind,
				StartHour:          r.Hours[0],
				EndHour:            r.Hours[len(r.Hours)-1] + 1,
				LengthHours:        len(r.Hours),
				WrapAcrossMidnight: r.Wrapped,
			}
			if len(r.Hours)*60 < thresholdMinutes {
				tr.FilteredByThreshold = true
				trace = append(trace, tr)
				continue
			}
			target, w := &c1, C1
			if kept >= 2 {
				target, w = &c2, C2
			}
			if kept >= 4 {
				merged++
			}
			target.add(r.Kind, r.Hours)
			tr.MergedTo = w
			trace = append(trace, tr)
			kept++
		}
		masks[date] = DayMask{C1: c1.mask(), C2: c2.mask()}
	}
	return masks, merged, trace
}

type hourSet struct {
	charge    map[int]struct{}
	discharge map[int]struct{}
}

func (s *hourSet) add(kind model.Op, hours []int) {
	var dst *map[int]struct{}
	switch kind {
	case model.OpCharge:
		dst = &s.charge
	case model.OpDischarge:
		dst = &s.discharge
	default:
		return
	}
	if *dst == nil {
		*dst = map[int]struct{}{}
	}
	for _, h := range hours {
		(*dst)[h] = struct{}{}
	}
}

func (s hourSet) mask() Mask {
	return Mask{ChargeHours: sortedKeys(s.charge), DischargeHours: sortedKeys(s.discharge)}
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	sort.Ints(out)
	return out
}
