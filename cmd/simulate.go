package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/group-balancer/alloc"
	"github.com/inference-sim/group-balancer/alloc/report"
	"github.com/inference-sim/group-balancer/alloc/trace"
)

var (
	iterations     int    // Number of synthetic samples (0 = capacity)
	traceLevel     string // Decision trace level
	summarizeTrace bool   // Print a trace summary
	traceOutput    string // Write the decision trace as YAML
	exportDir      string // Directory for CSV export (empty = no export)
)

// simulateCmd is the batch driver: draw synthetic samples and assign them.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Assign synthetic samples drawn from the target distribution",
	Run: func(cmd *cobra.Command, args []string) {
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q; valid: none, decisions", traceLevel)
		}
		level := resolveTraceLevel(trace.TraceLevel(traceLevel), summarizeTrace, traceOutput)
		if iterations < 0 {
			logrus.Fatalf("--iterations must be non-negative, got %d", iterations)
		}
		cfg := loadStudy(cmd, studyPath)
		n := iterations
		if n == 0 {
			n = cfg.Capacity
		}

		rng := alloc.NewPartitionedRNG(alloc.NewRunKey(seed))
		tr := trace.NewAssignmentTrace(trace.TraceConfig{Level: level})
		a := newAllocator(cfg, alloc.ModeSimulation, nil,
			alloc.WithRNG(rng.ForSubsystem(alloc.SubsystemTieBreak)),
			alloc.WithTrace(tr))
		sampler := alloc.NewSampler(a.Targets(), rng.ForSubsystem(alloc.SubsystemSampler))

		logrus.Infof("Starting simulation: %d samples, capacity=%d, seed=%d", n, cfg.Capacity, seed)
		for i := 0; i < n; i++ {
			if _, err := a.Assign(sampler.SampleRandomFeatureVector()); err != nil {
				logrus.Fatalf("Assignment %d failed: %v", i, err)
			}
		}
		logrus.Info("Simulation complete.")

		g1, g2 := a.Group(alloc.Group1), a.Group(alloc.Group2)
		fmt.Printf("=== Group Distribution (%d samples: %d / %d) ===\n", n, g1.Assigned, g2.Assigned)
		report.RenderGroups(os.Stdout, g1, g2)
		fmt.Println("=== Priority Table ===")
		report.RenderPriorities(os.Stdout, a.Priorities())
		fmt.Printf("Mean imbalance: %.4f\n", alloc.MeanImbalance(g1, g2))

		if summarizeTrace {
			printTraceSummary(trace.Summarize(tr))
		}
		if traceOutput != "" {
			writeTrace(traceOutput, tr)
		}
		if exportDir != "" {
			exportTables(exportDir, a)
		}
	},
}

// resolveTraceLevel raises level to decisions when a summary or trace file is
// requested, since both read the recorded decisions.
func resolveTraceLevel(level trace.TraceLevel, summarize bool, output string) trace.TraceLevel {
	if level != trace.TraceLevelNone || (!summarize && output == "") {
		return level
	}
	logrus.Warnf("--summarize-trace/--trace-output need recorded decisions; using --trace-level %s", trace.TraceLevelDecisions)
	return trace.TraceLevelDecisions
}

func printTraceSummary(s *trace.TraceSummary) {
	fmt.Println("=== Trace Summary ===")
	fmt.Printf("Total decisions  : %d\n", s.TotalDecisions)
	fmt.Printf("Random decisions : %d\n", s.RandomDecisions)
	for _, r := range []trace.Reason{trace.ReasonSmallerShare, trace.ReasonTie, trace.ReasonExhausted, trace.ReasonAllSatisfied} {
		fmt.Printf("  %-14s : %d\n", r, s.ReasonCounts[r])
	}
	features := make([]string, 0, len(s.SatisfiedAt))
	for f := range s.SatisfiedAt {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool { return s.SatisfiedAt[features[i]] < s.SatisfiedAt[features[j]] })
	for _, f := range features {
		fmt.Printf("Satisfied %-10s at sample %d\n", f, s.SatisfiedAt[f]+1)
	}
}

func writeTrace(path string, tr *trace.AssignmentTrace) {
	data, err := yaml.Marshal(tr)
	if err != nil {
		logrus.Fatalf("YAML marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logrus.Fatalf("Failed to write trace: %v", err)
	}
	logrus.Infof("Decision trace written to %s", path)
}

func exportTables(dir string, src report.Source) {
	paths, err := report.ExportAll(dir, src, time.Now())
	if err != nil {
		logrus.Fatalf("Export failed: %v", err)
	}
	for _, p := range paths {
		fmt.Printf("Exported %s\n", p)
	}
}

func init() {
	simulateCmd.Flags().IntVar(&iterations, "iterations", 0, "Number of synthetic samples (0 = capacity)")
	simulateCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level: none, decisions")
	simulateCmd.Flags().BoolVar(&summarizeTrace, "summarize-trace", false, "Print a decision trace summary (enables --trace-level decisions)")
	simulateCmd.Flags().StringVar(&traceOutput, "trace-output", "", "Write the decision trace as YAML to this file (enables --trace-level decisions)")
	simulateCmd.Flags().StringVar(&exportDir, "export-dir", "", "Export the four accumulator tables as CSV into this directory")

	rootCmd.AddCommand(simulateCmd)
}
