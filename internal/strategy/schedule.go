package strategy

import (
	"fmt"
	"strings"

	"storage-cycles/internal/model"
)

// ScheduleParams is the shorthand form of a daily schedule:
// - Charge during [ChargeStart, ChargeEnd)
// - Discharge during [DischargeStart, DischargeEnd)
// - Otherwise standby
//
// Windows are on a 24h clock and may wrap across midnight. An hour belongs to
// a window when its start minute falls inside it. Charge wins over discharge
// when the windows overlap.
type ScheduleParams struct {
	ChargeStart    string `yaml:"charge_start" json:"charge_start"`       // "HH:MM"
	ChargeEnd      string `yaml:"charge_end" json:"charge_end"`           // "HH:MM" (optional; default = DischargeStart)
	DischargeStart string `yaml:"discharge_start" json:"discharge_start"` // "HH:MM"
	DischargeEnd   string `yaml:"discharge_end" json:"discharge_end"`     // "HH:MM" (optional; default = DischargeStart => zero-length)

	// Tiers paints TOU tiers over the day; uncovered hours are flat.
	Tiers []TierWindow `yaml:"tiers" json:"tiers"`
}

// TierWindow assigns a tier to [Start, End).
type TierWindow struct {
	Tier  model.Tier `yaml:"tier" json:"tier"`
	Start string     `yaml:"start" json:"start"`
	End   string     `yaml:"end" json:"end"`
}

// ExpandWindows turns the shorthand into 24 hour cells.
func ExpandWindows(p ScheduleParams) ([]model.HourCell, error) {
	cs, err := parseHHMM(p.ChargeStart)
	if err != nil {
		return nil, fmt.Errorf("charge_start: %w", err)
	}
	ds, err := parseHHMM(p.DischargeStart)
	if err != nil {
		return nil, fmt.Errorf("discharge_start: %w", err)
	}
	ce := ds
	if strings.TrimSpace(p.ChargeEnd) != "" {
		if ce, err = parseHHMM(p.ChargeEnd); err != nil {
			return nil, fmt.Errorf("charge_end: %w", err)
		}
	}
	de := ds
	if strings.TrimSpace(p.DischargeEnd) != "" {
		if de, err = parseHHMM(p.DischargeEnd); err != nil {
			return nil, fmt.Errorf("discharge_end: %w", err)
		}
	}

	cells := make([]model.HourCell, 24)
	for h := range cells {
		mins := h * 60
		cells[h] = model.HourCell{Op: model.OpStandby, Tier: model.TierFlat}
		switch {
		case inWindow(mins, cs, ce):
			cells[h].Op = model.OpCharge
		case inWindow(mins, ds, de):
			cells[h].Op = model.OpDischarge
		}
	}

	for i, tw := range p.Tiers {
		tier, ok := model.LookupTier(string(tw.Tier))
		if !ok {
			return nil, fmt.Errorf("tiers[%d]: unknown tier %q", i, tw.Tier)
		}
		s, err := parseHHMM(tw.Start)
		if err != nil {
			return nil, fmt.Errorf("tiers[%d].start: %w", i, err)
		}
		e, err := parseHHMM(tw.End)
		if err != nil {
			return nil, fmt.Errorf("tiers[%d].end: %w", i, err)
		}
		for h := range cells {
			if inWindow(h*60, s, e) {
				cells[h].Tier = tier
			}
		}
	}
	return cells, nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	// 24:00 is accepted as the end of the day.
	if h == 24 && m == 0 {
		return 24 * 60, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// inWindow checks whether tMins is in [start, end) on a 24h clock.
// If start == end, the window is empty.
// If start > end, it wraps across midnight.
func inWindow(tMins, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return tMins >= start && tMins < end
	}
	return tMins >= start || tMins < end
}
