package alloc

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Imbalance returns |share1 - share2| per feature.
func Imbalance(g1, g2 GroupSnapshot) map[string]float64 {
	out := make(map[string]float64, len(g1.Shares))
	for name, s1 := range g1.Shares {
		out[name] = math.Abs(s1 - g2.Shares[name])
	}
	return out
}

// MeanImbalance averages Imbalance over all features.
func MeanImbalance(g1, g2 GroupSnapshot) float64 {
	imb := Imbalance(g1, g2)
	if len(imb) == 0 {
		return 0
	}
	vals := make([]float64, 0, len(imb))
	for _, name := range g1.Features {
		vals = append(vals, imb[name])
	}
	return stat.Mean(vals, nil)
}

// TrialConfig parameterises RunTrials.
type TrialConfig struct {
	Allocator Config // must be simulation mode; a fresh Allocator is built per trial
	Trials    int    // number of independent seeded runs
	Samples   int    // samples per run (0 = Allocator.Capacity)
	Seed      int64  // trial i uses RunKey(Seed + i)
}

// TrialStats summarises one strategy over all trials.
type TrialStats struct {
	Mean   float64 // mean of per-trial mean imbalance
	StdDev float64
	Max    float64
}

// TrialResult compares the allocator against pure random assignment on the
// same synthetic sample streams.
type TrialResult struct {
	Trials     int
	Samples    int
	Balanced   TrialStats
	Random     TrialStats
	PerFeature map[string]float64 // allocator mean imbalance per feature
	Wins       int                // trials where the allocator beat random
}

// RunTrials replays Trials seeded runs. Each run draws Samples synthetic
// samples once and feeds the identical stream to the allocator and to a random
// assigner, so the comparison isolates the assignment strategy.
func RunTrials(cfg TrialConfig) (*TrialResult, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidConfiguration, cfg.Trials)
	}
	if cfg.Allocator.Mode != ModeSimulation {
		return nil, fmt.Errorf("%w: trials require simulation mode, got %q", ErrInvalidConfiguration, cfg.Allocator.Mode)
	}
	if cfg.Samples < 0 {
		return nil, fmt.Errorf("%w: samples must be non-negative, got %d", ErrInvalidConfiguration, cfg.Samples)
	}
	samples := cfg.Samples
	if samples == 0 {
		samples = cfg.Allocator.Capacity
	}

	balanced := make([]float64, 0, cfg.Trials)
	random := make([]float64, 0, cfg.Trials)
	perFeature := make(map[string]float64)
	res := &TrialResult{Trials: cfg.Trials, Samples: samples}

	for i := 0; i < cfg.Trials; i++ {
		rng := NewPartitionedRNG(NewRunKey(cfg.Seed + int64(i)))
		a, err := NewAllocator(cfg.Allocator, WithRNG(rng.ForSubsystem(SubsystemTieBreak)))
		if err != nil {
			return nil, err
		}
		baseline, err := NewAllocator(cfg.Allocator)
		if err != nil {
			return nil, err
		}
		sampler := NewSampler(a.Targets(), rng.ForSubsystem(SubsystemSampler))
		coin := rng.ForSubsystem("baseline")

		for n := 0; n < samples; n++ {
			s := sampler.SampleRandomFeatureVector()
			if _, err := a.Assign(s); err != nil {
				return nil, err
			}
			baseline.group(Groups[coin.Intn(2)]).increment(s)
		}

		g1, g2 := a.Group(Group1), a.Group(Group2)
		b := MeanImbalance(g1, g2)
		r := MeanImbalance(baseline.Group(Group1), baseline.Group(Group2))
		balanced = append(balanced, b)
		random = append(random, r)
		if b < r {
			res.Wins++
		}
		for name, v := range Imbalance(g1, g2) {
			perFeature[name] += v / float64(cfg.Trials)
		}
		logrus.Debugf("trial %d: balanced=%.4f random=%.4f", i, b, r)
	}

	res.Balanced = summarize(balanced)
	res.Random = summarize(random)
	res.PerFeature = perFeature
	return res, nil
}

func summarize(vals []float64) TrialStats {
	mean, std := stat.MeanStdDev(vals, nil)
	if len(vals) < 2 {
		std = 0
	}
	return TrialStats{Mean: mean, StdDev: std, Max: floats.Max(vals)}
}
