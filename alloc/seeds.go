package alloc

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedCounts holds the externally supplied aggregate counts of both groups.
type SeedCounts struct {
	Group1 map[string]int `yaml:"group1"`
	Group2 map[string]int `yaml:"group2"`
}

// LoadSeedCounts reads a YAML seed counts file.
// Uses strict parsing: unrecognized top-level keys are rejected.
func LoadSeedCounts(path string) (*SeedCounts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed counts: %w", err)
	}
	var seeds SeedCounts
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&seeds); err != nil {
		return nil, fmt.Errorf("parsing seed counts: %w", err)
	}
	return &seeds, nil
}

// Check verifies both vectors carry exactly the target feature set and hold
// non-negative counts.
func (sc *SeedCounts) Check(targets *TargetDistribution) error {
	for _, g := range []struct {
		name   string
		counts map[string]int
	}{{"group1 seed counts", sc.Group1}, {"group2 seed counts", sc.Group2}} {
		keys := make([]string, 0, len(g.counts))
		for k, v := range g.counts {
			if v < 0 {
				return fmt.Errorf("%w: %s: count of %q must be non-negative, got %d", ErrSchemaMismatch, g.name, k, v)
			}
			keys = append(keys, k)
		}
		if err := targets.CheckKeys(g.name, keys); err != nil {
			return err
		}
	}
	return nil
}
