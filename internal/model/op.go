package model

import "strings"

// Op is the hourly operation label of a strategy cell.
type Op string

const (
	OpCharge    Op = "charge"
	OpDischarge Op = "discharge"
	OpStandby   Op = "standby"
)

// ParseOp maps a raw strategy label onto an Op. Unknown labels become standby.
// The Chinese labels used by exported tariff sheets are accepted as aliases.
func ParseOp(s string) Op {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "charge", "充":
		return OpCharge
	case "discharge", "放":
		return OpDischarge
	default:
		return OpStandby
	}
}

// IsActive reports whether the op moves energy.
func (o Op) IsActive() bool { return o == OpCharge || o == OpDischarge }

// Tier is a TOU price bucket.
type Tier string

const (
	TierTip    Tier = "tip"
	TierPeak   Tier = "peak"
	TierFlat   Tier = "flat"
	TierValley Tier = "valley"
	TierDeep   Tier = "deep"
)

// Tiers lists the valid tiers in price order.
var Tiers = []Tier{TierTip, TierPeak, TierFlat, TierValley, TierDeep}

// ParseTier maps a raw tier label onto a Tier. Unknown labels become flat.
func ParseTier(s string) Tier {
	if t, ok := LookupTier(s); ok {
		return t
	}
	return TierFlat
}

// LookupTier is the strict form of ParseTier.
func LookupTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tip", "尖":
		return TierTip, true
	case "peak", "峰":
		return TierPeak, true
	case "flat", "平":
		return TierFlat, true
	case "valley", "谷":
		return TierValley, true
	case "deep", "深":
		return TierDeep, true
	default:
		return "", false
	}
}
