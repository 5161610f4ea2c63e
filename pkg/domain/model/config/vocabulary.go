package config

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/types"
)

// TierDefinition maps a closed tier onto its display name, accepted source
// labels and integer weight
type TierDefinition struct {
	Tier    types.Tier
	Name    string
	Aliases []string
	Weight  int
}

// Thresholds bucket risk scores into levels: score >= High is High,
// Medium <= score < High is Medium, anything lower is Low.
type Thresholds struct {
	High   int
	Medium int
}

// Vocabulary is the versioned tier-to-weight table shared by hazards and incidents
type Vocabulary struct {
	Version     string
	Probability []TierDefinition
	Severity    []TierDefinition
	Thresholds  Thresholds
}

// DefaultVocabulary returns the built-in vocabulary. Labels follow the
// Spanish workbooks the ledger was first used with; English names are aliases.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Version: "2024-1",
		Probability: []TierDefinition{
			{Tier: types.TierLow, Name: "Baja", Aliases: []string{"Low"}, Weight: 1},
			{Tier: types.TierMedium, Name: "Media", Aliases: []string{"Medium"}, Weight: 2},
			{Tier: types.TierHigh, Name: "Alta", Aliases: []string{"High"}, Weight: 3},
			{Tier: types.TierCritical, Name: "Muy Alta", Aliases: []string{"Very High", "Critical", "Crítica", "Critica"}, Weight: 4},
		},
		Severity: []TierDefinition{
			{Tier: types.TierLow, Name: "Leve", Aliases: []string{"Low", "Baja"}, Weight: 1},
			{Tier: types.TierMedium, Name: "Moderada", Aliases: []string{"Medium", "Media"}, Weight: 2},
			{Tier: types.TierHigh, Name: "Grave", Aliases: []string{"High", "Alta"}, Weight: 3},
			{Tier: types.TierCritical, Name: "Crítica", Aliases: []string{"Critical", "Critica"}, Weight: 4},
		},
		Thresholds: Thresholds{
			High:   15,
			Medium: 6,
		},
	}
}

// NormalizeLabel folds case and whitespace so that source labels match
// tier ids, names and aliases
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Axis returns the definitions of one axis
func (v *Vocabulary) Axis(axis types.Axis) []TierDefinition {
	switch axis {
	case types.AxisProbability:
		return v.Probability
	case types.AxisSeverity:
		return v.Severity
	default:
		return nil
	}
}

// Validate checks that both axes define every tier exactly once with strictly
// increasing weights, that no label names two tiers of one axis, and that
// thresholds are ordered.
func (v *Vocabulary) Validate() error {
	if v.Version == "" {
		return goerr.New("vocabulary version is required")
	}

	for _, axis := range []types.Axis{types.AxisProbability, types.AxisSeverity} {
		if err := validateAxis(axis, v.Axis(axis)); err != nil {
			return err
		}
	}

	if v.Thresholds.Medium < 1 {
		return goerr.New("medium threshold must be positive", goerr.V("medium", v.Thresholds.Medium))
	}
	if v.Thresholds.High <= v.Thresholds.Medium {
		return goerr.New("high threshold must be greater than medium threshold",
			goerr.V("high", v.Thresholds.High),
			goerr.V("medium", v.Thresholds.Medium))
	}

	return nil
}

func validateAxis(axis types.Axis, defs []TierDefinition) error {
	byTier := make(map[types.Tier]TierDefinition)
	for _, def := range defs {
		if !def.Tier.IsValid() {
			return goerr.New("unknown tier", goerr.V("axis", axis), goerr.V("tier", def.Tier))
		}
		if def.Name == "" {
			return goerr.New("tier name is required", goerr.V("axis", axis), goerr.V("tier", def.Tier))
		}
		if def.Weight < 1 {
			return goerr.New("tier weight must be positive", goerr.V("axis", axis), goerr.V("tier", def.Tier), goerr.V("weight", def.Weight))
		}
		if _, dup := byTier[def.Tier]; dup {
			return goerr.New("duplicate tier", goerr.V("axis", axis), goerr.V("tier", def.Tier))
		}
		byTier[def.Tier] = def
	}

	prev := 0
	for _, tier := range types.AllTiers() {
		def, ok := byTier[tier]
		if !ok {
			return goerr.New("tier is not defined", goerr.V("axis", axis), goerr.V("tier", tier))
		}
		if def.Weight <= prev {
			return goerr.New("tier weights must strictly increase", goerr.V("axis", axis), goerr.V("tier", tier), goerr.V("weight", def.Weight))
		}
		prev = def.Weight
	}

	owners := make(map[string]types.Tier)
	for _, def := range defs {
		labels := append([]string{string(def.Tier), def.Name}, def.Aliases...)
		for _, label := range labels {
			key := NormalizeLabel(label)
			if key == "" {
				return goerr.New("tier label must not be empty", goerr.V("axis", axis), goerr.V("tier", def.Tier))
			}
			if owner, ok := owners[key]; ok && owner != def.Tier {
				return goerr.New("label is used by more than one tier",
					goerr.V("axis", axis),
					goerr.V("label", label),
					goerr.V("tier", def.Tier),
					goerr.V("other_tier", owner))
			}
			owners[key] = def.Tier
		}
	}

	return nil
}
