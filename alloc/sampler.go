package alloc

import "math/rand"

// Sampler draws synthetic samples from a target distribution. It is used by
// batch simulations and tests, never by the assignment decision itself.
type Sampler struct {
	targets *TargetDistribution
	rng     *rand.Rand
}

// NewSampler creates a Sampler drawing from rng.
func NewSampler(targets *TargetDistribution, rng *rand.Rand) *Sampler {
	return &Sampler{targets: targets, rng: rng}
}

// SampleRandomFeatureVector draws every feature as an independent Bernoulli
// trial with its target proportion. Family exclusivity is not enforced.
func (s *Sampler) SampleRandomFeatureVector() Sample {
	sample := make(Sample, s.targets.Len())
	for _, f := range s.targets.features {
		if s.rng.Float64() < f.Proportion {
			sample[f.Name] = 1
		} else {
			sample[f.Name] = 0
		}
	}
	return sample
}
