package trace

// TraceSummary aggregates statistics from an AssignmentTrace.
type TraceSummary struct {
	TotalDecisions  int
	ReasonCounts    map[Reason]int
	GroupCounts     map[int]int
	TargetCounts    map[string]int // target feature -> decisions driven by it
	SatisfiedAt     map[string]int // feature -> index of the decision that satisfied it
	RandomDecisions int            // ties, exhausted scans and all-satisfied draws
}

// Summarize computes aggregate statistics from an AssignmentTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(at *AssignmentTrace) *TraceSummary {
	summary := &TraceSummary{
		ReasonCounts: make(map[Reason]int),
		GroupCounts:  make(map[int]int),
		TargetCounts: make(map[string]int),
		SatisfiedAt:  make(map[string]int),
	}
	if at == nil {
		return summary
	}

	summary.TotalDecisions = len(at.Assignments)
	for _, r := range at.Assignments {
		summary.ReasonCounts[r.Reason]++
		summary.GroupCounts[r.Group]++
		if r.TargetFeature != "" {
			summary.TargetCounts[r.TargetFeature]++
		}
		if r.NewlySatisfied {
			summary.SatisfiedAt[r.TargetFeature] = r.Index
		}
		if r.Reason != ReasonSmallerShare {
			summary.RandomDecisions++
		}
	}
	return summary
}
