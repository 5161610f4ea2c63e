package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	domainConfig "github.com/secmon-lab/anzen/pkg/domain/model/config"
	"github.com/secmon-lab/anzen/pkg/domain/types"
	"github.com/secmon-lab/anzen/pkg/risk"
	"github.com/urfave/cli/v3"
)

// VocabularyFile is the TOML layout of a tier vocabulary
//
//	version = "2024-1"
//
//	[thresholds]
//	high = 15
//	medium = 6
//
//	[[probability]]
//	tier = "low"
//	name = "Baja"
//	aliases = ["Low"]
//	weight = 1
type VocabularyFile struct {
	Version     string         `toml:"version"`
	Thresholds  ThresholdsFile `toml:"thresholds"`
	Probability []TierFile     `toml:"probability"`
	Severity    []TierFile     `toml:"severity"`
}

// ThresholdsFile holds the level boundaries
type ThresholdsFile struct {
	High   int `toml:"high"`
	Medium int `toml:"medium"`
}

// TierFile is one tier of an axis
type TierFile struct {
	Tier    string   `toml:"tier"`
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases"`
	Weight  int      `toml:"weight"`
}

// ToDomain converts the file layout into the domain vocabulary
func (f *VocabularyFile) ToDomain() *domainConfig.Vocabulary {
	convert := func(tiers []TierFile) []domainConfig.TierDefinition {
		defs := make([]domainConfig.TierDefinition, len(tiers))
		for i, t := range tiers {
			defs[i] = domainConfig.TierDefinition{
				Tier:    types.Tier(t.Tier),
				Name:    t.Name,
				Aliases: t.Aliases,
				Weight:  t.Weight,
			}
		}
		return defs
	}

	return &domainConfig.Vocabulary{
		Version:     f.Version,
		Probability: convert(f.Probability),
		Severity:    convert(f.Severity),
		Thresholds: domainConfig.Thresholds{
			High:   f.Thresholds.High,
			Medium: f.Thresholds.Medium,
		},
	}
}

// LoadVocabulary reads and validates a vocabulary TOML file
func LoadVocabulary(path string) (*domainConfig.Vocabulary, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "vocabulary file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read vocabulary file", goerr.V(ConfigPathKey, path))
	}

	var file VocabularyFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse vocabulary TOML",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()))
	}

	vocab := file.ToDomain()
	if err := vocab.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "vocabulary validation failed",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()))
	}

	return vocab, nil
}

// Vocabulary selects the tier vocabulary of the session
type Vocabulary struct {
	path string
}

func (x *Vocabulary) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vocabulary",
			Aliases:     []string{"c"},
			Usage:       "Tier vocabulary TOML file (built-in vocabulary if omitted)",
			Sources:     cli.EnvVars("ANZEN_VOCABULARY"),
			Destination: &x.path,
		},
	}
}

func (x Vocabulary) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Path returns the configured vocabulary file
func (x *Vocabulary) Path() string {
	return x.path
}

// Configure builds the classifier for the configured vocabulary
func (x *Vocabulary) Configure() (*risk.Classifier, error) {
	vocab := domainConfig.DefaultVocabulary()
	if x.path != "" {
		loaded, err := LoadVocabulary(x.path)
		if err != nil {
			return nil, err
		}
		vocab = loaded
	}

	classifier, err := risk.New(vocab)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build classifier", goerr.V(ConfigPathKey, x.path))
	}
	return classifier, nil
}
