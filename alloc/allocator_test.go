package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/group-balancer/alloc/internal/testutil"
	"github.com/inference-sim/group-balancer/alloc/trace"
)

func seedRNG(seed int64) Option {
	return WithRNG(NewPartitionedRNG(NewRunKey(seed)).ForSubsystem(SubsystemTieBreak))
}

// fixtureSeeds are the group counts of the interactive study fixture.
func fixtureSeeds() *SeedCounts {
	return &SeedCounts{
		Group1: map[string]int{"male": 4, "female": 2, "age_30_40": 4, "age_40_45": 0, "age_45_55": 2, "age_55_65": 0, "age_65_80": 0},
		Group2: map[string]int{"male": 6, "female": 2, "age_30_40": 6, "age_40_45": 0, "age_45_55": 2, "age_55_65": 0, "age_65_80": 0},
	}
}

func newSimulation(t *testing.T, td *TargetDistribution, capacity int, seeds *SeedCounts, opts ...Option) *Allocator {
	t.Helper()
	a, err := NewAllocator(Config{Targets: td, Capacity: capacity, Mode: ModeSimulation, Seeds: seeds}, opts...)
	require.NoError(t, err)
	return a
}

func TestAssign_SmallerShareWins(t *testing.T) {
	// GIVEN male/female targets, capacity 10 and seeded male shares 0.4 vs 0.6
	td := sexOnlyTargets(t)
	a := newSimulation(t, td, 10, &SeedCounts{
		Group1: map[string]int{"male": 4, "female": 2},
		Group2: map[string]int{"male": 6, "female": 2},
	})
	assert.InDelta(t, 0.4, a.Group(Group1).Shares["male"], 1e-12)
	assert.InDelta(t, 0.6, a.Group(Group2).Shares["male"], 1e-12)

	// WHEN a male sample is assigned
	g, err := a.Assign(Sample{"male": 1, "female": 0})

	// THEN it goes to the group with the smaller male share
	require.NoError(t, err)
	assert.Equal(t, Group1, g)
	assert.Equal(t, 5, a.Group(Group1).Counts["male"])
	assert.Equal(t, 2, a.Group(Group1).Counts["female"])
	assert.Equal(t, 6, a.Group(Group2).Counts["male"])

	// AND male is now satisfied: round(11/10) = 1 >= 0.4
	for _, e := range a.Priorities() {
		assert.Equal(t, e.Feature == "male", e.Satisfied, e.Feature)
	}
}

func TestAssign_InferenceSeeds_RarestPresentFeatureDecides(t *testing.T) {
	// GIVEN the study targets and existing group counts
	td := studyTargets(t)
	a, err := NewAllocator(Config{Targets: td, Capacity: 160, Mode: ModeInference, Seeds: fixtureSeeds()}, seedRNG(1))
	require.NoError(t, err)

	// THEN inference shares use each group's own size (male+female)
	assert.InDelta(t, 4.0/6.0, a.Group(Group1).Shares["age_30_40"], 1e-12)
	assert.InDelta(t, 6.0/8.0, a.Group(Group2).Shares["age_30_40"], 1e-12)
	assert.False(t, a.AllSatisfied())

	// WHEN a male aged 30-40 arrives
	g, err := a.Assign(studySample("male", "age_30_40"))

	// THEN age_30_40 (importance 20) decides and group 1 has the smaller share
	require.NoError(t, err)
	assert.Equal(t, Group1, g)
	g1 := a.Group(Group1)
	assert.Equal(t, 5, g1.Counts["male"])
	assert.Equal(t, 5, g1.Counts["age_30_40"])
	assert.Equal(t, 7, g1.Members)
	assert.Nil(t, g1.Log, "inference mode keeps no sample log")
}

func studySample(present ...string) Sample {
	return Sample(testutil.OneHot(testutil.StudyFeatures, present...))
}

func TestNewAllocator_SeedSchemaMismatch_NotConstructed(t *testing.T) {
	td := studyTargets(t)
	seeds := fixtureSeeds()
	seeds.Group1["malle"] = seeds.Group1["male"]
	delete(seeds.Group1, "male")

	a, err := NewAllocator(Config{Targets: td, Capacity: 160, Mode: ModeInference, Seeds: seeds})
	assert.Nil(t, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
	assert.Contains(t, err.Error(), "malle")
}

func TestNewAllocator_ExtraSeedKeyOrNegativeCount_SchemaMismatch(t *testing.T) {
	td := sexOnlyTargets(t)
	_, err := NewAllocator(Config{Targets: td, Capacity: 10, Mode: ModeInference, Seeds: &SeedCounts{
		Group1: map[string]int{"male": 1, "female": 1, "other": 0},
		Group2: map[string]int{"male": 1, "female": 1},
	}})
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	_, err = NewAllocator(Config{Targets: td, Capacity: 10, Mode: ModeInference, Seeds: &SeedCounts{
		Group1: map[string]int{"male": 1, "female": 1},
		Group2: map[string]int{"male": -1, "female": 1},
	}})
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestIsValidMode(t *testing.T) {
	assert.True(t, IsValidMode("simulation"))
	assert.True(t, IsValidMode("inference"))
	assert.False(t, IsValidMode(""))
	assert.False(t, IsValidMode("offline"))
}

func TestNewAllocator_InvalidConfiguration(t *testing.T) {
	td := sexOnlyTargets(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"nil targets", Config{Capacity: 10, Mode: ModeSimulation}},
		{"zero capacity", Config{Targets: td, Capacity: 0, Mode: ModeSimulation}},
		{"negative capacity", Config{Targets: td, Capacity: -5, Mode: ModeSimulation}},
		{"unknown mode", Config{Targets: td, Capacity: 10, Mode: "offline"}},
		{"unknown satisfaction", Config{Targets: td, Capacity: 10, Mode: ModeSimulation, Satisfaction: "strict"}},
		{"inference without seeds", Config{Targets: td, Capacity: 10, Mode: ModeInference}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAllocator(tt.cfg)
			assert.Nil(t, a)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestAssign_SchemaMismatch_LeavesStateUnchanged(t *testing.T) {
	td := studyTargets(t)
	a := newSimulation(t, td, 160, nil)
	_, err := a.Assign(Sample(testutil.OneHot(td.Names(), "female", "age_40_45")))
	require.NoError(t, err)
	before1, before2, beforeP := a.Group(Group1), a.Group(Group2), a.Priorities()

	bad := map[string]Sample{
		"misspelled key": {"malle": 1, "female": 0, "age_30_40": 1, "age_40_45": 0, "age_45_55": 0, "age_55_65": 0, "age_65_80": 0},
		"missing key":    {"male": 1, "female": 0},
		"extra key":      Sample(testutil.OneHot(append(td.Names(), "age_80_99"), "male")),
		"non-binary":     Sample(testutil.OneHot(td.Names(), "male")),
	}
	bad["non-binary"]["age_45_55"] = 2

	for name, s := range bad {
		t.Run(name, func(t *testing.T) {
			g, err := a.Assign(s)
			assert.Equal(t, GroupID(0), g)
			assert.True(t, errors.Is(err, ErrSchemaMismatch), "got %v", err)
			assert.Equal(t, before1, a.Group(Group1))
			assert.Equal(t, before2, a.Group(Group2))
			assert.Equal(t, beforeP, a.Priorities())
			assert.Equal(t, 1, a.Assigned())
		})
	}
}

func TestAssign_InferenceRequiresExactlyOneDenominatorFeature(t *testing.T) {
	a, err := NewAllocator(Config{Targets: studyTargets(t), Capacity: 160, Mode: ModeInference, Seeds: fixtureSeeds()})
	require.NoError(t, err)

	_, err = a.Assign(studySample("male", "female", "age_30_40"))
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	_, err = a.Assign(studySample("age_30_40"))
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
	assert.Equal(t, 0, a.Assigned())
}

func TestAssign_MutatesExactlyOneGroup(t *testing.T) {
	td := studyTargets(t)
	rng := NewPartitionedRNG(NewRunKey(7))
	a := newSimulation(t, td, 160, nil, WithRNG(rng.ForSubsystem(SubsystemTieBreak)))
	sampler := NewSampler(td, rng.ForSubsystem(SubsystemSampler))

	for i := 0; i < 160; i++ {
		s := sampler.SampleRandomFeatureVector()
		before := map[GroupID]GroupSnapshot{Group1: a.Group(Group1), Group2: a.Group(Group2)}

		g, err := a.Assign(s)
		require.NoError(t, err)
		require.True(t, g.Valid(), "sample %d assigned to %d", i, g)

		other := Group1
		if g == Group1 {
			other = Group2
		}
		assert.Equal(t, before[other], a.Group(other), "sample %d touched the other group", i)
		after := a.Group(g)
		assert.Equal(t, before[g].Assigned+1, after.Assigned)
		for name, v := range s {
			assert.Equal(t, before[g].Counts[name]+v, after.Counts[name], "sample %d feature %s", i, name)
		}
		assert.Equal(t, s, after.Log[len(after.Log)-1])
	}
	assert.Equal(t, 160, a.Assigned())
}

func TestAssign_SatisfiedFlagIsMonotone_AndOnlyTargetFlips(t *testing.T) {
	td := studyTargets(t)
	rng := NewPartitionedRNG(NewRunKey(3))
	tr := trace.NewAssignmentTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	a := newSimulation(t, td, 160, nil, WithRNG(rng.ForSubsystem(SubsystemTieBreak)), WithTrace(tr))
	sampler := NewSampler(td, rng.ForSubsystem(SubsystemSampler))

	prev := map[string]bool{}
	for i := 0; i < 400; i++ {
		_, err := a.Assign(sampler.SampleRandomFeatureVector())
		require.NoError(t, err)

		rec := tr.Assignments[len(tr.Assignments)-1]
		flipped := 0
		for _, e := range a.Priorities() {
			if prev[e.Feature] {
				require.True(t, e.Satisfied, "feature %s reverted at sample %d", e.Feature, i)
			}
			if e.Satisfied && !prev[e.Feature] {
				flipped++
				assert.Equal(t, rec.TargetFeature, e.Feature)
				assert.True(t, rec.NewlySatisfied)
			}
			prev[e.Feature] = e.Satisfied
		}
		assert.LessOrEqual(t, flipped, 1)
	}
}

func TestAssign_TieBreak_DeterministicPerSeedAndBalancedAcrossSeeds(t *testing.T) {
	// GIVEN both groups hold a 0.25 male share
	td := sexOnlyTargets(t)
	seeds := func() *SeedCounts {
		return &SeedCounts{
			Group1: map[string]int{"male": 2, "female": 0},
			Group2: map[string]int{"male": 2, "female": 0},
		}
	}
	assignOnce := func(seed int64) GroupID {
		tr := trace.NewAssignmentTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		a := newSimulation(t, td, 8, seeds(), seedRNG(seed), WithTrace(tr))
		g, err := a.Assign(Sample{"male": 1, "female": 0})
		require.NoError(t, err)
		require.Len(t, tr.Assignments, 1)
		assert.Equal(t, trace.ReasonTie, tr.Assignments[0].Reason)
		assert.Equal(t, 0.25, tr.Assignments[0].Share1)
		assert.Equal(t, 0.25, tr.Assignments[0].Share2)
		return g
	}

	// THEN the same seed reproduces the same group
	for seed := int64(0); seed < 20; seed++ {
		assert.Equal(t, assignOnce(seed), assignOnce(seed), "seed %d", seed)
	}

	// AND across many seeds the split is roughly even
	ones := 0
	const runs = 400
	for seed := int64(0); seed < runs; seed++ {
		if assignOnce(seed) == Group1 {
			ones++
		}
	}
	assert.InDelta(t, runs/2, ones, runs*0.1, "group 1 chosen %d/%d times", ones, runs)
}

func TestAssign_ExhaustedScan_FallsBackToRandom(t *testing.T) {
	// GIVEN capacity 1 so the first male sample satisfies male
	td := sexOnlyTargets(t)
	tr := trace.NewAssignmentTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	a := newSimulation(t, td, 1, nil, seedRNG(5), WithTrace(tr))

	_, err := a.Assign(Sample{"male": 1, "female": 0})
	require.NoError(t, err)
	require.True(t, tr.Assignments[0].NewlySatisfied)

	// WHEN samples carry no unsatisfied feature
	for _, s := range []Sample{{"male": 1, "female": 0}, {"male": 0, "female": 0}} {
		g, err := a.Assign(s)

		// THEN they are assigned at random without touching any flag
		require.NoError(t, err)
		assert.True(t, g.Valid())
		rec := tr.Assignments[len(tr.Assignments)-1]
		assert.Equal(t, trace.ReasonExhausted, rec.Reason)
		assert.Empty(t, rec.TargetFeature)
	}
	assert.False(t, a.AllSatisfied())
	assert.Equal(t, 3, a.Group(Group1).Assigned+a.Group(Group2).Assigned)
}

func TestAssign_AllSatisfied_AssignsRandomly(t *testing.T) {
	td := sexOnlyTargets(t)
	tr := trace.NewAssignmentTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	a := newSimulation(t, td, 1, nil, seedRNG(11), WithTrace(tr))

	_, err := a.Assign(Sample{"male": 1, "female": 0})
	require.NoError(t, err)
	_, err = a.Assign(Sample{"male": 0, "female": 1})
	require.NoError(t, err)
	require.True(t, a.AllSatisfied())

	counts := map[GroupID]int{}
	for i := 0; i < 200; i++ {
		g, err := a.Assign(Sample{"male": 1, "female": 0})
		require.NoError(t, err)
		counts[g]++
		assert.Equal(t, trace.ReasonAllSatisfied, tr.Assignments[len(tr.Assignments)-1].Reason)
	}
	assert.Greater(t, counts[Group1], 50)
	assert.Greater(t, counts[Group2], 50)
}

func TestAllocator_SnapshotsAreIdempotentAndDetached(t *testing.T) {
	a := newSimulation(t, studyTargets(t), 160, nil)
	_, err := a.Assign(studySample("female", "age_65_80"))
	require.NoError(t, err)

	g1a, g1b := a.Group(Group1), a.Group(Group1)
	assert.Equal(t, g1a, g1b)
	assert.Equal(t, a.Priorities(), a.Priorities())

	g1a.Counts["female"] = 99
	g1a.Log = nil
	assert.NotEqual(t, 99, a.Group(Group1).Counts["female"])
	p := a.Priorities()
	p[0].Satisfied = true
	assert.False(t, a.Priorities()[0].Satisfied)
}

func TestAllocator_Group_InvalidIDPanics(t *testing.T) {
	a := newSimulation(t, sexOnlyTargets(t), 10, nil)
	assert.Panics(t, func() { a.Group(3) })
}

func TestNewAllocator_InferenceRecomputesSatisfiedFromSeeds(t *testing.T) {
	// GIVEN seeds that already exceed half the capacity for female
	td := sexOnlyTargets(t)
	seeds := &SeedCounts{
		Group1: map[string]int{"male": 1, "female": 4},
		Group2: map[string]int{"male": 1, "female": 3},
	}

	inf, err := NewAllocator(Config{Targets: td, Capacity: 10, Mode: ModeInference, Seeds: seeds})
	require.NoError(t, err)
	sim := newSimulation(t, td, 10, seeds)

	// THEN inference marks female satisfied immediately, simulation does not
	status := func(a *Allocator) map[string]bool {
		out := map[string]bool{}
		for _, e := range a.Priorities() {
			out[e.Feature] = e.Satisfied
		}
		return out
	}
	assert.Equal(t, map[string]bool{"male": false, "female": true}, status(inf))
	assert.Equal(t, map[string]bool{"male": false, "female": false}, status(sim))
}

func TestAssign_ProportionPolicy_SatisfiesEarlier(t *testing.T) {
	td := sexOnlyTargets(t)
	a, err := NewAllocator(Config{Targets: td, Capacity: 10, Mode: ModeSimulation, Satisfaction: "proportion"}, seedRNG(2))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := a.Assign(Sample{"male": 1, "female": 0})
		require.NoError(t, err)
	}
	// 4/10 >= 0.4
	for _, e := range a.Priorities() {
		assert.Equal(t, e.Feature == "male", e.Satisfied, e.Feature)
	}
}
