package types

import "fmt"

// Tier is a symbolic classification level used on both the probability and
// severity axes. The set is closed; labels from source data are mapped onto it
// by the vocabulary.
type Tier string

const (
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// AllTiers returns all tiers in ascending order
func AllTiers() []Tier {
	return []Tier{
		TierLow,
		TierMedium,
		TierHigh,
		TierCritical,
	}
}

// IsValid checks if the tier is one of the known tiers
func (t Tier) IsValid() bool {
	switch t {
	case TierLow,
		TierMedium,
		TierHigh,
		TierCritical:
		return true
	default:
		return false
	}
}

// Rank returns the position of the tier in ascending order, or -1 if unknown
func (t Tier) Rank() int {
	for i, tier := range AllTiers() {
		if tier == t {
			return i
		}
	}
	return -1
}

// String returns the string representation of the tier
func (t Tier) String() string {
	return string(t)
}

// ParseTier parses a canonical tier identifier. Source labels such as "Alta"
// are resolved by the vocabulary, not here.
func ParseTier(s string) (Tier, error) {
	tier := Tier(s)
	if !tier.IsValid() {
		return "", fmt.Errorf("invalid tier: %s", s)
	}
	return tier, nil
}

// Axis identifies which classification axis a tier belongs to
type Axis string

const (
	AxisProbability Axis = "probability"
	AxisSeverity    Axis = "severity"
)

// String returns the string representation of the axis
func (a Axis) String() string {
	return string(a)
}
