package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/group-balancer/alloc"
	"github.com/inference-sim/group-balancer/alloc/report"
)

var (
	trials       int // Number of seeded runs
	trialSamples int // Samples per run (0 = capacity)
)

// evaluateCmd compares the allocator with pure random assignment.
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare group imbalance against random assignment over seeded trials",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadStudy(cmd, studyPath)
		allocCfg, err := cfg.AllocatorConfig(alloc.ModeSimulation, nil)
		if err != nil {
			logrus.Fatalf("Invalid study config: %v", err)
		}
		res, err := alloc.RunTrials(alloc.TrialConfig{
			Allocator: allocCfg,
			Trials:    trials,
			Samples:   trialSamples,
			Seed:      seed,
		})
		if err != nil {
			logrus.Fatalf("Evaluation failed: %v", err)
		}

		fmt.Printf("=== Evaluation (%d trials x %d samples) ===\n", res.Trials, res.Samples)
		fmt.Printf("Balanced : mean=%.4f stddev=%.4f max=%.4f\n", res.Balanced.Mean, res.Balanced.StdDev, res.Balanced.Max)
		fmt.Printf("Random   : mean=%.4f stddev=%.4f max=%.4f\n", res.Random.Mean, res.Random.StdDev, res.Random.Max)
		fmt.Printf("Balanced beat random in %d/%d trials\n", res.Wins, res.Trials)
		features := make([]string, len(cfg.Targets))
		for i, t := range cfg.Targets {
			features[i] = t.Feature
		}
		report.RenderImbalance(os.Stdout, features, res.PerFeature)
	},
}

func init() {
	evaluateCmd.Flags().IntVar(&trials, "trials", 100, "Number of seeded runs")
	evaluateCmd.Flags().IntVar(&trialSamples, "samples", 0, "Samples per run (0 = capacity)")

	rootCmd.AddCommand(evaluateCmd)
}
