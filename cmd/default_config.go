package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/group-balancer/alloc"
)

// loadStudy reads the study file, or the built-in study when path is empty,
// and applies CLI overrides. Flags only override when explicitly set, so a
// study file value is never replaced by a flag default.
func loadStudy(cmd *cobra.Command, path string) *alloc.StudyConfig {
	cfg := alloc.DefaultStudyConfig()
	if path != "" {
		loaded, err := alloc.LoadStudyConfig(path)
		if err != nil {
			logrus.Fatalf("Failed to load study config: %v", err)
		}
		cfg = loaded
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid study config: %v", err)
	}
	return cfg
}

func applyOverrides(cmd *cobra.Command, cfg *alloc.StudyConfig) {
	if cmd.Flags().Changed("capacity") {
		cfg.Capacity = capacity
	}
	if cmd.Flags().Changed("satisfaction") {
		cfg.Satisfaction = satisfaction
	}
}

// newAllocator builds an allocator for mode or exits.
func newAllocator(cfg *alloc.StudyConfig, mode alloc.Mode, seeds *alloc.SeedCounts, opts ...alloc.Option) *alloc.Allocator {
	allocCfg, err := cfg.AllocatorConfig(mode, seeds)
	if err != nil {
		logrus.Fatalf("Invalid study config: %v", err)
	}
	a, err := alloc.NewAllocator(allocCfg, opts...)
	if err != nil {
		logrus.Fatalf("Failed to create allocator: %v", err)
	}
	return a
}
