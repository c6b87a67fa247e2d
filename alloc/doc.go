// Package alloc assigns incoming samples one at a time to one of two groups
// so that the attribute distribution of each group tracks a set of target
// proportions. Assignments are never revisited.
//
// # Reading Guide
//
//   - target.go: TargetDistribution, the immutable feature set and proportions
//   - group.go: GroupState accumulators and read-only GroupSnapshot
//   - priority.go: importance-ordered PriorityTable and satisfaction policies
//   - allocator.go: the Assign decision
//
// # Decision
//
// For each sample the Allocator picks the most important (rarest) feature that
// is present in the sample and not yet satisfied, then routes the sample to the
// group holding the smaller share of that feature. Equal shares, samples that
// carry no unsatisfied feature, and a fully satisfied table all fall back to a
// uniformly random group drawn from the injected RNG.
//
// Sub-packages:
//   - alloc/encoder/: raw attributes to one-hot samples
//   - alloc/report/: CSV export and terminal tables of group accumulators
//   - alloc/trace/: decision trace recording
package alloc
