package risk

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/anzen/pkg/domain/model"
	"github.com/secmon-lab/anzen/pkg/domain/model/config"
	"github.com/secmon-lab/anzen/pkg/domain/types"
)

type axisTable struct {
	weights map[types.Tier]int
	names   map[types.Tier]string
	labels  map[string]types.Tier
}

// Classifier maps (probability, severity) tiers to a risk score and level.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	version     string
	thresholds  config.Thresholds
	probability axisTable
	severity    axisTable
}

// New builds a Classifier from a validated vocabulary
func New(vocab *config.Vocabulary) (*Classifier, error) {
	if vocab == nil {
		return nil, goerr.New("vocabulary is required")
	}
	if err := vocab.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid vocabulary")
	}

	return &Classifier{
		version:     vocab.Version,
		thresholds:  vocab.Thresholds,
		probability: buildAxis(vocab.Probability),
		severity:    buildAxis(vocab.Severity),
	}, nil
}

// MustDefault returns a Classifier over the built-in vocabulary
func MustDefault() *Classifier {
	c, err := New(config.DefaultVocabulary())
	if err != nil {
		panic(err)
	}
	return c
}

func buildAxis(defs []config.TierDefinition) axisTable {
	t := axisTable{
		weights: make(map[types.Tier]int, len(defs)),
		names:   make(map[types.Tier]string, len(defs)),
		labels:  make(map[string]types.Tier),
	}
	for _, def := range defs {
		t.weights[def.Tier] = def.Weight
		t.names[def.Tier] = def.Name
		t.labels[config.NormalizeLabel(string(def.Tier))] = def.Tier
		t.labels[config.NormalizeLabel(def.Name)] = def.Tier
		for _, alias := range def.Aliases {
			t.labels[config.NormalizeLabel(alias)] = def.Tier
		}
	}
	return t
}

func (c *Classifier) table(axis types.Axis) *axisTable {
	if axis == types.AxisSeverity {
		return &c.severity
	}
	return &c.probability
}

// Version returns the vocabulary version the classifier was built from
func (c *Classifier) Version() string {
	return c.version
}

// Thresholds returns the level thresholds
func (c *Classifier) Thresholds() config.Thresholds {
	return c.thresholds
}

// Resolve maps a source label (tier id, display name or alias, any case) to a tier
func (c *Classifier) Resolve(axis types.Axis, label string) (types.Tier, error) {
	if tier, ok := c.table(axis).labels[config.NormalizeLabel(label)]; ok {
		return tier, nil
	}
	return "", goerr.Wrap(model.ErrInvalidTier, "unknown tier label",
		goerr.V(model.AxisKey, axis),
		goerr.V(model.LabelKey, label))
}

// Weight returns the integer weight of a tier on the given axis
func (c *Classifier) Weight(axis types.Axis, tier types.Tier) (int, error) {
	if w, ok := c.table(axis).weights[tier]; ok {
		return w, nil
	}
	return 0, goerr.Wrap(model.ErrInvalidTier, "tier has no weight",
		goerr.V(model.AxisKey, axis),
		goerr.V(model.LabelKey, tier))
}

// Name returns the display name of a tier, used when writing workbooks
func (c *Classifier) Name(axis types.Axis, tier types.Tier) string {
	if name, ok := c.table(axis).names[tier]; ok {
		return name
	}
	return tier.String()
}

// Classify computes score = weight(probability) * weight(severity) and its level
func (c *Classifier) Classify(probability, severity types.Tier) (int, types.RiskLevel, error) {
	pw, err := c.Weight(types.AxisProbability, probability)
	if err != nil {
		return 0, "", err
	}
	sw, err := c.Weight(types.AxisSeverity, severity)
	if err != nil {
		return 0, "", err
	}

	score := pw * sw
	return score, c.Level(score), nil
}

// ClassifyLabels resolves both labels and classifies them
func (c *Classifier) ClassifyLabels(probability, severity string) (types.Tier, types.Tier, int, types.RiskLevel, error) {
	p, err := c.Resolve(types.AxisProbability, probability)
	if err != nil {
		return "", "", 0, "", err
	}
	s, err := c.Resolve(types.AxisSeverity, severity)
	if err != nil {
		return "", "", 0, "", err
	}
	score, level, err := c.Classify(p, s)
	if err != nil {
		return "", "", 0, "", err
	}
	return p, s, score, level, nil
}

// Level buckets a score using the configured thresholds
func (c *Classifier) Level(score int) types.RiskLevel {
	switch {
	case score >= c.thresholds.High:
		return types.RiskLevelHigh
	case score >= c.thresholds.Medium:
		return types.RiskLevelMedium
	default:
		return types.RiskLevelLow
	}
}
