package alloc

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultDenominatorFamily is the feature family whose counts sum to a group's
// total in inference mode.
var DefaultDenominatorFamily = []string{"male", "female"}

// TargetFeature is one entry of a target distribution.
type TargetFeature struct {
	Name       string
	Proportion float64 // desired population-level share, in (0,1]
}

// TargetDistribution is the immutable, ordered set of features an Allocator
// balances on. Declaration order is kept and used to break importance ties.
type TargetDistribution struct {
	features    []TargetFeature
	index       map[string]int
	denominator []string
}

// NewTargetDistribution validates and builds a TargetDistribution.
// denominator names the family of features assumed exhaustive and mutually
// exclusive; nil selects DefaultDenominatorFamily.
func NewTargetDistribution(features []TargetFeature, denominator []string) (*TargetDistribution, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: target distribution is empty", ErrInvalidConfiguration)
	}
	td := &TargetDistribution{
		features: make([]TargetFeature, 0, len(features)),
		index:    make(map[string]int, len(features)),
	}
	for i, f := range features {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: target[%d] has an empty feature name", ErrInvalidConfiguration, i)
		}
		if _, dup := td.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: feature %q declared twice", ErrInvalidConfiguration, f.Name)
		}
		if math.IsNaN(f.Proportion) || f.Proportion <= 0 || f.Proportion > 1 {
			return nil, fmt.Errorf("%w: proportion of %q must be in (0,1], got %v", ErrInvalidConfiguration, f.Name, f.Proportion)
		}
		td.index[f.Name] = len(td.features)
		td.features = append(td.features, f)
	}

	if denominator == nil {
		denominator = DefaultDenominatorFamily
	}
	if len(denominator) == 0 {
		return nil, fmt.Errorf("%w: denominator family is empty", ErrInvalidConfiguration)
	}
	for _, name := range denominator {
		if _, ok := td.index[name]; !ok {
			return nil, fmt.Errorf("%w: denominator feature %q has no target", ErrInvalidConfiguration, name)
		}
	}
	td.denominator = append([]string(nil), denominator...)
	return td, nil
}

// Len returns the number of features.
func (td *TargetDistribution) Len() int { return len(td.features) }

// Features returns a copy of the features in declaration order.
func (td *TargetDistribution) Features() []TargetFeature {
	return append([]TargetFeature(nil), td.features...)
}

// Names returns the feature names in declaration order.
func (td *TargetDistribution) Names() []string {
	names := make([]string, len(td.features))
	for i, f := range td.features {
		names[i] = f.Name
	}
	return names
}

// Proportion returns the target proportion of a feature.
func (td *TargetDistribution) Proportion(name string) (float64, bool) {
	i, ok := td.index[name]
	if !ok {
		return 0, false
	}
	return td.features[i].Proportion, true
}

// Has reports whether name is a configured feature.
func (td *TargetDistribution) Has(name string) bool {
	_, ok := td.index[name]
	return ok
}

// DenominatorFamily returns the features whose counts sum to a group total.
func (td *TargetDistribution) DenominatorFamily() []string {
	return append([]string(nil), td.denominator...)
}

// CheckKeys verifies that keys is exactly the configured feature set.
// what names the checked object in the error message.
func (td *TargetDistribution) CheckKeys(what string, keys []string) error {
	seen := make(map[string]bool, len(keys))
	var extra []string
	for _, k := range keys {
		if !td.Has(k) {
			extra = append(extra, k)
			continue
		}
		seen[k] = true
	}
	var missing []string
	for _, f := range td.features {
		if !seen[f.Name] {
			missing = append(missing, f.Name)
		}
	}
	if len(extra) == 0 && len(missing) == 0 {
		return nil
	}
	sort.Strings(extra)
	return fmt.Errorf("%w: %s must contain exactly %v (missing [%s], unexpected [%s])",
		ErrSchemaMismatch, what, td.Names(), strings.Join(missing, " "), strings.Join(extra, " "))
}

// importance is the inverse of a target proportion rounded to two decimals.
// Rarer features get larger importances.
func importance(p float64) float64 {
	return math.Round(100/p) / 100
}
