// Package trace provides decision-trace recording for allocation runs.
// This package has no dependencies on alloc/; it stores pure data types.
package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every assignment decision.
	TraceLevelDecisions TraceLevel = "decisions"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Reason explains how a group was chosen.
type Reason string

const (
	// ReasonSmallerShare: the chosen group had the strictly smaller share of the target feature.
	ReasonSmallerShare Reason = "smaller-share"
	// ReasonTie: both groups had equal shares; the group was drawn at random.
	ReasonTie Reason = "tie"
	// ReasonAllSatisfied: every feature was satisfied; the group was drawn at random.
	ReasonAllSatisfied Reason = "all-satisfied"
	// ReasonExhausted: no unsatisfied feature was present in the sample; the group was drawn at random.
	ReasonExhausted Reason = "exhausted"
)

// AssignmentRecord captures a single assignment decision.
type AssignmentRecord struct {
	Index          int     `yaml:"index"` // 0-based position in the run
	Group          int     `yaml:"group"`
	Reason         Reason  `yaml:"reason"`
	TargetFeature  string  `yaml:"target_feature,omitempty"` // empty for random reasons
	Share1         float64 `yaml:"share_1"`                  // group 1 share of TargetFeature before the update
	Share2         float64 `yaml:"share_2"`
	NewlySatisfied bool    `yaml:"newly_satisfied"`
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// AssignmentTrace collects decision records during an allocation run.
type AssignmentTrace struct {
	Config      TraceConfig        `yaml:"-"`
	Assignments []AssignmentRecord `yaml:"assignments"`
}

// NewAssignmentTrace creates an AssignmentTrace ready for recording.
func NewAssignmentTrace(config TraceConfig) *AssignmentTrace {
	return &AssignmentTrace{
		Config:      config,
		Assignments: make([]AssignmentRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on nil.
func (at *AssignmentTrace) Enabled() bool {
	return at != nil && at.Config.Level == TraceLevelDecisions
}

// RecordAssignment appends an assignment decision record.
func (at *AssignmentTrace) RecordAssignment(record AssignmentRecord) {
	at.Assignments = append(at.Assignments, record)
}
