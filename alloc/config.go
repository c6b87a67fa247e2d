package alloc

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StudyConfig is the YAML description of a study: capacity, target
// proportions and the attribute families the encoder builds samples from.
// Loaded from YAML via LoadStudyConfig(path).
type StudyConfig struct {
	Version      string       `yaml:"version"`
	Capacity     int          `yaml:"capacity"`
	Satisfaction string       `yaml:"satisfaction,omitempty"`
	Targets      []TargetSpec `yaml:"targets"`
	Families     []FamilySpec `yaml:"families"`
}

// TargetSpec is one target proportion.
type TargetSpec struct {
	Feature    string  `yaml:"feature"`
	Proportion float64 `yaml:"proportion"`
}

// FamilySpec groups mutually exclusive features of one attribute.
// Exactly one family must be exhaustive: its counts sum to a group's size.
type FamilySpec struct {
	Name       string   `yaml:"name"`
	Exhaustive bool     `yaml:"exhaustive,omitempty"`
	Features   []string `yaml:"features"`
}

// DefaultStudyConfig returns the two-family sex/age study the allocator was
// first built for.
func DefaultStudyConfig() *StudyConfig {
	return &StudyConfig{
		Version:      "1",
		Capacity:     160,
		Satisfaction: "rounded",
		Targets: []TargetSpec{
			{Feature: "male", Proportion: 0.4},
			{Feature: "female", Proportion: 0.6},
			{Feature: "age_30_40", Proportion: 0.05},
			{Feature: "age_40_45", Proportion: 0.5},
			{Feature: "age_45_55", Proportion: 0.25},
			{Feature: "age_55_65", Proportion: 0.4},
			{Feature: "age_65_80", Proportion: 0.2},
		},
		Families: []FamilySpec{
			{Name: "sex", Exhaustive: true, Features: []string{"male", "female"}},
			{Name: "age", Features: []string{"age_30_40", "age_40_45", "age_45_55", "age_55_65", "age_65_80"}},
		},
	}
}

// LoadStudyConfig reads and parses a YAML study file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadStudyConfig(path string) (*StudyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading study config: %w", err)
	}
	var cfg StudyConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing study config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	return &cfg, nil
}

// Validate checks capacity, policy name and family consistency. Target
// proportions are checked by TargetDistribution.
func (c *StudyConfig) Validate() error {
	if c.Version != "1" {
		return fmt.Errorf("%w: unsupported study config version %q", ErrInvalidConfiguration, c.Version)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfiguration, c.Capacity)
	}
	if !IsValidSatisfactionPolicy(c.Satisfaction) {
		return fmt.Errorf("%w: unknown satisfaction policy %q; valid: rounded, proportion", ErrInvalidConfiguration, c.Satisfaction)
	}
	declared := make(map[string]bool, len(c.Targets))
	for _, t := range c.Targets {
		declared[t.Feature] = true
	}
	if len(c.Families) == 0 {
		for _, feat := range DefaultDenominatorFamily {
			if !declared[feat] {
				return fmt.Errorf("%w: no families declared and default denominator feature %q has no target; declare an exhaustive family",
					ErrInvalidConfiguration, feat)
			}
		}
		return nil
	}
	owner := make(map[string]string)
	exhaustive := 0
	for i, f := range c.Families {
		if f.Name == "" {
			return fmt.Errorf("%w: families[%d] has no name", ErrInvalidConfiguration, i)
		}
		if len(f.Features) == 0 {
			return fmt.Errorf("%w: family %q has no features", ErrInvalidConfiguration, f.Name)
		}
		if f.Exhaustive {
			exhaustive++
		}
		for _, feat := range f.Features {
			if !declared[feat] {
				return fmt.Errorf("%w: family %q lists %q which has no target", ErrInvalidConfiguration, f.Name, feat)
			}
			if prev, dup := owner[feat]; dup {
				return fmt.Errorf("%w: feature %q belongs to families %q and %q", ErrInvalidConfiguration, feat, prev, f.Name)
			}
			owner[feat] = f.Name
		}
	}
	if len(owner) != len(declared) {
		return fmt.Errorf("%w: every target feature must belong to a family", ErrInvalidConfiguration)
	}
	if exhaustive != 1 {
		return fmt.Errorf("%w: exactly one family must be exhaustive, got %d", ErrInvalidConfiguration, exhaustive)
	}
	return nil
}

// DenominatorFamily returns the features of the exhaustive family, or nil when
// no families are declared.
func (c *StudyConfig) DenominatorFamily() []string {
	for _, f := range c.Families {
		if f.Exhaustive {
			return append([]string(nil), f.Features...)
		}
	}
	return nil
}

// TargetDistribution validates the config and builds its target distribution.
func (c *StudyConfig) TargetDistribution() (*TargetDistribution, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	features := make([]TargetFeature, len(c.Targets))
	for i, t := range c.Targets {
		features[i] = TargetFeature{Name: t.Feature, Proportion: t.Proportion}
	}
	return NewTargetDistribution(features, c.DenominatorFamily())
}

// AllocatorConfig builds an allocator Config for the given mode.
func (c *StudyConfig) AllocatorConfig(mode Mode, seeds *SeedCounts) (Config, error) {
	td, err := c.TargetDistribution()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Targets:      td,
		Capacity:     c.Capacity,
		Mode:         mode,
		Satisfaction: c.Satisfaction,
		Seeds:        seeds,
	}, nil
}
