package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/anzen/pkg/domain/model/config"
	"github.com/secmon-lab/anzen/pkg/domain/types"
)

func TestDefaultVocabularyIsValid(t *testing.T) {
	gt.NoError(t, config.DefaultVocabulary().Validate())
}

func TestVocabulary_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(v *config.Vocabulary)
	}{
		{"missing version", func(v *config.Vocabulary) { v.Version = "" }},
		{"missing tier", func(v *config.Vocabulary) { v.Severity = v.Severity[:3] }},
		{"duplicate tier", func(v *config.Vocabulary) { v.Probability[1].Tier = types.TierLow }},
		{"unknown tier", func(v *config.Vocabulary) { v.Probability[0].Tier = "extreme" }},
		{"non increasing weight", func(v *config.Vocabulary) { v.Severity[2].Weight = 2 }},
		{"zero weight", func(v *config.Vocabulary) { v.Severity[0].Weight = 0 }},
		{"empty name", func(v *config.Vocabulary) { v.Probability[2].Name = "" }},
		{"high below medium", func(v *config.Vocabulary) { v.Thresholds.High = 5 }},
		{"non positive medium", func(v *config.Vocabulary) { v.Thresholds.Medium = 0 }},
		{"alias shared by two tiers", func(v *config.Vocabulary) {
			v.Severity[0].Aliases = append(v.Severity[0].Aliases, "Serious")
			v.Severity[2].Aliases = append(v.Severity[2].Aliases, "serious ")
		}},
		{"alias equal to another tier name", func(v *config.Vocabulary) {
			v.Probability[0].Aliases = append(v.Probability[0].Aliases, "ALTA")
		}},
		{"empty alias", func(v *config.Vocabulary) { v.Severity[1].Aliases = []string{" "} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := config.DefaultVocabulary()
			tt.mutate(v)
			gt.Value(t, v.Validate()).NotNil()
		})
	}
}

func TestVocabulary_ValidateAllowsRepeatedLabelOfSameTier(t *testing.T) {
	v := config.DefaultVocabulary()
	v.Probability[1].Aliases = append(v.Probability[1].Aliases, "MEDIA", "medium")
	gt.NoError(t, v.Validate())
}

func TestNormalizeLabel(t *testing.T) {
	gt.Value(t, config.NormalizeLabel("  Muy   Alta ")).Equal("muy alta")
	gt.Value(t, config.NormalizeLabel("Crítica")).Equal("crítica")
}
