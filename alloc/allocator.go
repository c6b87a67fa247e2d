package alloc

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/group-balancer/alloc/trace"
)

// Mode selects how relative shares are normalised.
type Mode string

const (
	// ModeSimulation normalises shares by the fixed capacity and keeps a
	// per-group sample log.
	ModeSimulation Mode = "simulation"
	// ModeInference normalises shares by each group's own member count (the sum
	// of the denominator family) and starts from externally supplied counts.
	ModeInference Mode = "inference"
)

var validModes = map[Mode]bool{ModeSimulation: true, ModeInference: true}

// IsValidMode reports whether name is a recognized mode.
func IsValidMode(name string) bool {
	return validModes[Mode(name)]
}

// Config groups the construction parameters of an Allocator.
type Config struct {
	Targets      *TargetDistribution
	Capacity     int    // total sample budget (must be > 0)
	Mode         Mode   // ModeSimulation or ModeInference
	Satisfaction string // satisfaction policy name, see ValidSatisfactionPolicies
	// Seeds are the starting counts of both groups. Required in inference mode,
	// optional in simulation mode.
	Seeds *SeedCounts
}

// Option customises an Allocator.
type Option func(*Allocator)

// WithRNG injects the random source used for every random group choice.
func WithRNG(rng *rand.Rand) Option {
	return func(a *Allocator) { a.rng = rng }
}

// WithTrace attaches a decision trace. Records are only collected when the
// trace level is "decisions".
func WithTrace(at *trace.AssignmentTrace) Option {
	return func(a *Allocator) { a.trace = at }
}

// Allocator assigns samples one at a time to Group1 or Group2 so that both
// groups track the target distribution. It exclusively owns the targets, both
// group states and the priority table; Assign is the only mutator.
//
// Thread-safety: NOT thread-safe. Callers serialise Assign externally or use
// one Allocator per independent run.
type Allocator struct {
	targets      *TargetDistribution
	capacity     int
	mode         Mode
	satisfaction SatisfactionPolicy
	groups       [2]*GroupState
	priorities   *PriorityTable
	rng          *rand.Rand
	trace        *trace.AssignmentTrace
	assigned     int
}

// NewAllocator validates cfg and builds an Allocator.
// Returns an error wrapping ErrInvalidConfiguration or ErrSchemaMismatch.
func NewAllocator(cfg Config, opts ...Option) (*Allocator, error) {
	if cfg.Targets == nil || cfg.Targets.Len() == 0 {
		return nil, fmt.Errorf("%w: target distribution is empty", ErrInvalidConfiguration)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfiguration, cfg.Capacity)
	}
	if !IsValidMode(string(cfg.Mode)) {
		return nil, fmt.Errorf("%w: unknown mode %q; valid: simulation, inference", ErrInvalidConfiguration, cfg.Mode)
	}
	if !IsValidSatisfactionPolicy(cfg.Satisfaction) {
		return nil, fmt.Errorf("%w: unknown satisfaction policy %q; valid: rounded, proportion", ErrInvalidConfiguration, cfg.Satisfaction)
	}
	if cfg.Mode == ModeInference && cfg.Seeds == nil {
		return nil, fmt.Errorf("%w: inference mode requires seed counts for both groups", ErrInvalidConfiguration)
	}
	var seed1, seed2 map[string]int
	if cfg.Seeds != nil {
		if err := cfg.Seeds.Check(cfg.Targets); err != nil {
			return nil, err
		}
		seed1, seed2 = cfg.Seeds.Group1, cfg.Seeds.Group2
	}

	a := &Allocator{
		targets:      cfg.Targets,
		capacity:     cfg.Capacity,
		mode:         cfg.Mode,
		satisfaction: NewSatisfactionPolicy(cfg.Satisfaction),
		priorities:   newPriorityTable(cfg.Targets),
	}
	keepLog := cfg.Mode == ModeSimulation
	a.groups[0] = newGroupState(Group1, cfg.Targets, seed1, keepLog, a.shareDenominator)
	a.groups[1] = newGroupState(Group2, cfg.Targets, seed2, keepLog, a.shareDenominator)

	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = NewPartitionedRNG(NewRunKey(0)).ForSubsystem(SubsystemTieBreak)
	}

	// Historical counts already exist in inference mode.
	if cfg.Mode == ModeInference {
		for _, name := range cfg.Targets.Names() {
			a.updateSatisfied(name)
		}
	}
	logrus.Debugf("allocator ready: mode=%s capacity=%d features=%d", a.mode, a.capacity, a.targets.Len())
	return a, nil
}

func (a *Allocator) shareDenominator(gs *GroupState) float64 {
	if a.mode == ModeInference {
		return float64(gs.FamilyTotal())
	}
	return float64(a.capacity)
}

// satisfactionDenominator is the capacity in both modes: satisfaction measures
// progress toward the full sample budget.
func (a *Allocator) satisfactionDenominator() float64 {
	return float64(a.capacity)
}

func (a *Allocator) group(id GroupID) *GroupState {
	return a.groups[id-1]
}

func (a *Allocator) randomGroup() GroupID {
	return Groups[a.rng.Intn(2)]
}

// Assign routes one sample to a group and updates that group's accumulators.
// On error nothing is mutated.
func (a *Allocator) Assign(s Sample) (GroupID, error) {
	if err := a.validateSample(s); err != nil {
		return 0, err
	}
	rec := trace.AssignmentRecord{Index: a.assigned}
	defer func() { a.assigned++ }()

	if a.priorities.allSatisfied() {
		g := a.randomGroup()
		a.group(g).increment(s)
		rec.Group, rec.Reason = int(g), trace.ReasonAllSatisfied
		a.record(rec)
		logrus.Debugf("sample %d: all features satisfied, random %s", rec.Index, g)
		return g, nil
	}

	target, ok := a.priorities.selectTarget(s)
	if !ok {
		g := a.randomGroup()
		a.group(g).increment(s)
		rec.Group, rec.Reason = int(g), trace.ReasonExhausted
		a.record(rec)
		logrus.Debugf("sample %d: no unsatisfied feature present, random %s", rec.Index, g)
		return g, nil
	}

	s1 := a.groups[0].RelativeShare(target)
	s2 := a.groups[1].RelativeShare(target)
	var g GroupID
	switch {
	case s1 < s2:
		g, rec.Reason = Group1, trace.ReasonSmallerShare
	case s1 > s2:
		g, rec.Reason = Group2, trace.ReasonSmallerShare
	default:
		g, rec.Reason = a.randomGroup(), trace.ReasonTie
	}
	a.group(g).increment(s)

	rec.Group, rec.TargetFeature, rec.Share1, rec.Share2 = int(g), target, s1, s2
	rec.NewlySatisfied = a.updateSatisfied(target)
	a.record(rec)
	logrus.Debugf("sample %d: target=%s shares=(%.3f, %.3f) -> %s (%s)", rec.Index, target, s1, s2, g, rec.Reason)
	if rec.NewlySatisfied {
		logrus.Infof("feature %s satisfied after %d samples", target, rec.Index+1)
	}
	return g, nil
}

// updateSatisfied recomputes one feature's flag and reports whether it flipped.
func (a *Allocator) updateSatisfied(feature string) bool {
	if a.priorities.satisfied(feature) {
		return false
	}
	combined := a.groups[0].Count(feature) + a.groups[1].Count(feature)
	p, _ := a.targets.Proportion(feature)
	if !a.satisfaction.Satisfied(combined, a.satisfactionDenominator(), p) {
		return false
	}
	a.priorities.markSatisfied(feature)
	return true
}

func (a *Allocator) validateSample(s Sample) error {
	if err := a.targets.CheckKeys("sample", s.Keys()); err != nil {
		return err
	}
	for name, v := range s {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: sample value of %q must be 0 or 1, got %d", ErrSchemaMismatch, name, v)
		}
	}
	if a.mode == ModeInference {
		set := 0
		for _, name := range a.targets.denominator {
			set += s[name]
		}
		if set != 1 {
			return fmt.Errorf("%w: sample must set exactly one of %v, got %d",
				ErrSchemaMismatch, a.targets.denominator, set)
		}
	}
	return nil
}

func (a *Allocator) record(rec trace.AssignmentRecord) {
	if a.trace.Enabled() {
		a.trace.RecordAssignment(rec)
	}
}

// Group returns a read-only snapshot of one group. Panics on an invalid id.
func (a *Allocator) Group(id GroupID) GroupSnapshot {
	if !id.Valid() {
		panic(fmt.Sprintf("Allocator.Group: invalid group id %d", int(id)))
	}
	return a.group(id).Snapshot()
}

// Priorities returns a copy of the priority table sorted by importance.
func (a *Allocator) Priorities() []PriorityEntry {
	return a.priorities.snapshot()
}

// AllSatisfied reports whether every feature has reached its target.
func (a *Allocator) AllSatisfied() bool {
	return a.priorities.allSatisfied()
}

// Assigned returns the number of samples assigned so far.
func (a *Allocator) Assigned() int { return a.assigned }

// Targets returns the allocator's target distribution.
func (a *Allocator) Targets() *TargetDistribution { return a.targets }

// Capacity returns the configured sample budget.
func (a *Allocator) Capacity() int { return a.capacity }

// Mode returns the normalisation mode.
func (a *Allocator) Mode() Mode { return a.mode }
