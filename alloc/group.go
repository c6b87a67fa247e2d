package alloc

import "fmt"

// GroupID identifies one of the two groups.
type GroupID int

const (
	Group1 GroupID = 1
	Group2 GroupID = 2
)

// Groups lists both group IDs in order.
var Groups = [2]GroupID{Group1, Group2}

func (g GroupID) String() string {
	return fmt.Sprintf("group %d", int(g))
}

// Valid reports whether g is Group1 or Group2.
func (g GroupID) Valid() bool { return g == Group1 || g == Group2 }

// Sample is a one-hot feature vector: feature name -> 0 or 1.
type Sample map[string]int

// Keys returns the sample's feature names in unspecified order.
func (s Sample) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Clone returns an independent copy of s.
func (s Sample) Clone() Sample {
	c := make(Sample, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// GroupState accumulates the samples assigned to one group.
// Shares are derived from counts on read and never cached, so a GroupState
// cannot drift out of sync with its counts.
type GroupState struct {
	id      GroupID
	targets *TargetDistribution
	counts  map[string]int
	// assigned counts samples routed here by Assign (seeds excluded).
	assigned int
	// log holds every assigned sample in order; nil when logging is off.
	log []Sample

	// shareDenominator returns the normaliser for relative shares.
	shareDenominator func(*GroupState) float64
}

func newGroupState(id GroupID, targets *TargetDistribution, seed map[string]int, keepLog bool, denom func(*GroupState) float64) *GroupState {
	gs := &GroupState{
		id:               id,
		targets:          targets,
		counts:           make(map[string]int, targets.Len()),
		shareDenominator: denom,
	}
	for _, name := range targets.Names() {
		gs.counts[name] = seed[name]
	}
	if keepLog {
		gs.log = make([]Sample, 0)
	}
	return gs
}

// increment adds every present feature of s to the group's counts.
func (gs *GroupState) increment(s Sample) {
	for name, v := range s {
		if v == 1 {
			gs.counts[name]++
		}
	}
	gs.assigned++
	if gs.log != nil {
		gs.log = append(gs.log, s.Clone())
	}
}

// Count returns the absolute count of a feature.
func (gs *GroupState) Count(feature string) int { return gs.counts[feature] }

// FamilyTotal sums the counts of the denominator family. With an exhaustive,
// mutually exclusive family this is the number of members in the group.
func (gs *GroupState) FamilyTotal() int {
	total := 0
	for _, name := range gs.targets.denominator {
		total += gs.counts[name]
	}
	return total
}

// RelativeShare returns count(feature) divided by the mode's denominator.
// A zero denominator yields a zero share.
func (gs *GroupState) RelativeShare(feature string) float64 {
	d := gs.shareDenominator(gs)
	if d <= 0 {
		return 0
	}
	return float64(gs.counts[feature]) / d
}

// GroupSnapshot is a read-only copy of a GroupState.
type GroupSnapshot struct {
	ID       GroupID
	Features []string // declaration order
	Counts   map[string]int
	Shares   map[string]float64
	Members  int // denominator-family total
	Assigned int // samples assigned since construction
	Log      []Sample
}

// Snapshot copies the group's accumulators. The result shares no memory with
// the GroupState.
func (gs *GroupState) Snapshot() GroupSnapshot {
	snap := GroupSnapshot{
		ID:       gs.id,
		Features: gs.targets.Names(),
		Counts:   make(map[string]int, len(gs.counts)),
		Shares:   make(map[string]float64, len(gs.counts)),
		Members:  gs.FamilyTotal(),
		Assigned: gs.assigned,
	}
	for name, c := range gs.counts {
		snap.Counts[name] = c
		snap.Shares[name] = gs.RelativeShare(name)
	}
	if gs.log != nil {
		snap.Log = make([]Sample, len(gs.log))
		for i, s := range gs.log {
			snap.Log[i] = s.Clone()
		}
	}
	return snap
}
