package alloc

import (
	"hash/fnv"
	"math/rand"
)

// RunKey identifies a reproducible allocation run.
// Two runs with the same RunKey, configuration and input samples MUST assign
// every sample to the same group.
type RunKey int64

// NewRunKey creates a RunKey from a seed value.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

const (
	// SubsystemTieBreak is the RNG stream for random group choices (ties,
	// exhausted scans, all-satisfied). Uses the master seed directly.
	SubsystemTieBreak = "tiebreak"

	// SubsystemSampler is the RNG stream for synthetic feature vectors.
	SubsystemSampler = "sampler"
)

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem,
// so drawing synthetic samples never shifts the tie-break sequence.
//
// Derivation formula:
//   - SubsystemTieBreak: masterSeed
//   - all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        RunKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same name always returns the same *rand.Rand instance. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	derivedSeed := int64(p.key)
	if name != SubsystemTieBreak {
		derivedSeed ^= fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the RunKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
