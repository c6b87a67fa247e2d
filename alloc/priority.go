package alloc

import (
	"fmt"
	"math"
	"sort"
)

// PriorityEntry tracks one feature in the priority table.
type PriorityEntry struct {
	Feature    string
	Importance float64 // round(1/proportion, 2), fixed at construction
	Satisfied  bool    // monotone: never reverts to false within a run
	order      int     // declaration order, breaks importance ties
}

// PriorityTable orders features for target selection. Entries are re-sorted on
// every selection rather than assumed to keep their order across updates.
type PriorityTable struct {
	entries []PriorityEntry
	byName  map[string]int
}

func newPriorityTable(targets *TargetDistribution) *PriorityTable {
	pt := &PriorityTable{
		entries: make([]PriorityEntry, targets.Len()),
		byName:  make(map[string]int, targets.Len()),
	}
	for i, f := range targets.features {
		pt.entries[i] = PriorityEntry{Feature: f.Name, Importance: importance(f.Proportion), order: i}
	}
	pt.reindex()
	return pt
}

func (pt *PriorityTable) reindex() {
	for i, e := range pt.entries {
		pt.byName[e.Feature] = i
	}
}

// sortByImportance orders entries by importance descending, ties by
// declaration order.
func (pt *PriorityTable) sortByImportance() {
	sort.SliceStable(pt.entries, func(i, j int) bool {
		a, b := pt.entries[i], pt.entries[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		return a.order < b.order
	})
	pt.reindex()
}

// selectTarget returns the most important unsatisfied feature present in s.
// ok is false when the scan is exhausted.
func (pt *PriorityTable) selectTarget(s Sample) (feature string, ok bool) {
	pt.sortByImportance()
	for _, e := range pt.entries {
		if !e.Satisfied && s[e.Feature] == 1 {
			return e.Feature, true
		}
	}
	return "", false
}

func (pt *PriorityTable) allSatisfied() bool {
	for _, e := range pt.entries {
		if !e.Satisfied {
			return false
		}
	}
	return true
}

func (pt *PriorityTable) satisfied(feature string) bool {
	return pt.entries[pt.byName[feature]].Satisfied
}

// markSatisfied sets the flag; it never clears one.
func (pt *PriorityTable) markSatisfied(feature string) {
	pt.entries[pt.byName[feature]].Satisfied = true
}

// snapshot returns a sorted copy of the entries.
func (pt *PriorityTable) snapshot() []PriorityEntry {
	pt.sortByImportance()
	return append([]PriorityEntry(nil), pt.entries...)
}

// SatisfactionPolicy decides whether a feature's combined frequency has met its
// target proportion.
type SatisfactionPolicy interface {
	Satisfied(combined int, denominator float64, proportion float64) bool
}

// RoundedFrequency rounds combined/denominator to the nearest integer before
// comparing it with the proportion. In practice a feature only becomes
// satisfied once its combined count exceeds half the denominator; exactly half
// rounds to even (zero).
type RoundedFrequency struct{}

func (RoundedFrequency) Satisfied(combined int, denominator float64, proportion float64) bool {
	if denominator <= 0 {
		return false
	}
	return math.RoundToEven(float64(combined)/denominator) >= proportion
}

// ProportionFrequency compares the raw combined frequency with the proportion.
type ProportionFrequency struct{}

func (ProportionFrequency) Satisfied(combined int, denominator float64, proportion float64) bool {
	if denominator <= 0 {
		return false
	}
	return float64(combined)/denominator >= proportion
}

// ValidSatisfactionPolicies is the set of recognized satisfaction policy names.
// Empty selects "rounded".
var ValidSatisfactionPolicies = map[string]bool{"": true, "rounded": true, "proportion": true}

// IsValidSatisfactionPolicy reports whether name is a recognized policy.
func IsValidSatisfactionPolicy(name string) bool {
	return ValidSatisfactionPolicies[name]
}

// NewSatisfactionPolicy creates a satisfaction policy by name.
// Panics on unrecognized names.
func NewSatisfactionPolicy(name string) SatisfactionPolicy {
	if !IsValidSatisfactionPolicy(name) {
		panic(fmt.Sprintf("unknown satisfaction policy %q", name))
	}
	switch name {
	case "", "rounded":
		return RoundedFrequency{}
	case "proportion":
		return ProportionFrequency{}
	default:
		panic(fmt.Sprintf("unhandled satisfaction policy %q", name))
	}
}
