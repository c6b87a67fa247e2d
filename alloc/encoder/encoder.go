// Package encoder turns raw attribute descriptions into one-hot samples.
package encoder

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inference-sim/group-balancer/alloc"
)

var (
	// ErrUnknownAttribute is returned for an attribute or value outside the
	// configured families.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrMissingAttribute is returned when a family has no value.
	ErrMissingAttribute = errors.New("missing attribute")
)

// Attributes maps a family name to the chosen feature, e.g. {"sex": "male"}.
type Attributes map[string]string

// Encoder converts raw attributes into a sample whose key set equals the
// target distribution's.
type Encoder interface {
	Encode(attrs Attributes) (alloc.Sample, error)
}

// OneHot sets exactly one feature per family.
type OneHot struct {
	families []alloc.FamilySpec
	byName   map[string]int
}

// NewOneHot builds a OneHot encoder from a study config. The config must
// declare families.
func NewOneHot(cfg *alloc.StudyConfig) (*OneHot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Families) == 0 {
		return nil, fmt.Errorf("%w: study config declares no families", alloc.ErrInvalidConfiguration)
	}
	oh := &OneHot{
		families: append([]alloc.FamilySpec(nil), cfg.Families...),
		byName:   make(map[string]int, len(cfg.Families)),
	}
	for i, f := range oh.families {
		oh.byName[f.Name] = i
	}
	return oh, nil
}

// Families returns the family names in declaration order.
func (oh *OneHot) Families() []string {
	names := make([]string, len(oh.families))
	for i, f := range oh.families {
		names[i] = f.Name
	}
	return names
}

// Values returns the features of a family.
func (oh *OneHot) Values(family string) []string {
	i, ok := oh.byName[family]
	if !ok {
		return nil
	}
	return append([]string(nil), oh.families[i].Features...)
}

// Encode implements Encoder.
func (oh *OneHot) Encode(attrs Attributes) (alloc.Sample, error) {
	var unknown []string
	for family := range attrs {
		if _, ok := oh.byName[family]; !ok {
			unknown = append(unknown, family)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: families %v", ErrUnknownAttribute, unknown)
	}

	sample := make(alloc.Sample)
	for _, f := range oh.families {
		value, ok := attrs[f.Name]
		if !ok || value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingAttribute, f.Name)
		}
		found := false
		for _, feat := range f.Features {
			if feat == value {
				sample[feat] = 1
				found = true
			} else {
				sample[feat] = 0
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s=%q; valid: %v", ErrUnknownAttribute, f.Name, value, f.Features)
		}
	}
	return sample, nil
}
