package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/group-balancer/alloc"
	"github.com/inference-sim/group-balancer/alloc/encoder"
	"github.com/inference-sim/group-balancer/alloc/report"
)

var (
	seedsPath       string   // Seed counts YAML
	rawSamples      []string // "family=value,..." per sample
	assignExportDir string   // Directory for CSV export
	showPriorities  bool     // Print the priority table after each assignment
)

// assignCmd assigns participants against existing group counts.
var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign participants to groups starting from existing group counts",
	Example: `  balancer assign --seeds groups.yaml --sample sex=male,age=age_30_40
  balancer assign --seeds groups.yaml --sample sex=female,age=age_55_65 --sample sex=male,age=age_40_45 --export-dir out`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadStudy(cmd, studyPath)
		enc, err := encoder.NewOneHot(cfg)
		if err != nil {
			logrus.Fatalf("Failed to create encoder: %v", err)
		}
		seeds, err := alloc.LoadSeedCounts(seedsPath)
		if err != nil {
			logrus.Fatalf("Failed to load seed counts: %v", err)
		}

		rng := alloc.NewPartitionedRNG(alloc.NewRunKey(seed))
		a := newAllocator(cfg, alloc.ModeInference, seeds, alloc.WithRNG(rng.ForSubsystem(alloc.SubsystemTieBreak)))

		fmt.Println("=== Current Group Distribution ===")
		report.RenderGroups(os.Stdout, a.Group(alloc.Group1), a.Group(alloc.Group2))

		for _, raw := range rawSamples {
			attrs, err := encoder.ParseAttributes(raw)
			if err != nil {
				logrus.Fatalf("Invalid --sample %q: %v", raw, err)
			}
			sample, err := enc.Encode(attrs)
			if err != nil {
				logrus.Fatalf("Invalid --sample %q: %v", raw, err)
			}
			g, err := a.Assign(sample)
			if err != nil {
				logrus.Fatalf("Assignment of %q failed: %v", raw, err)
			}
			fmt.Printf("The participant (%s) should be assigned to %s\n", raw, g)
			report.RenderGroups(os.Stdout, a.Group(alloc.Group1), a.Group(alloc.Group2))
			if showPriorities {
				report.RenderPriorities(os.Stdout, a.Priorities())
			}
		}

		if assignExportDir != "" {
			exportTables(assignExportDir, a)
		}
	},
}

func init() {
	assignCmd.Flags().StringVar(&seedsPath, "seeds", "", "Path to YAML with group1/group2 feature counts")
	assignCmd.Flags().StringArrayVar(&rawSamples, "sample", nil, "Participant attributes as family=value pairs, e.g. sex=male,age=age_30_40 (repeatable)")
	assignCmd.Flags().StringVar(&assignExportDir, "export-dir", "", "Export the four accumulator tables as CSV into this directory")
	assignCmd.Flags().BoolVar(&showPriorities, "show-priorities", false, "Print the priority table after each assignment")
	_ = assignCmd.MarkFlagRequired("seeds")
	_ = assignCmd.MarkFlagRequired("sample")

	rootCmd.AddCommand(assignCmd)
}
