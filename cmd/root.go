package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel     string // Log verbosity level
	studyPath    string // Study YAML file (empty = built-in sex/age study)
	capacity     int    // Overrides the study capacity when set
	satisfaction string // Overrides the study satisfaction policy when set
	seed         int64  // Master seed for tie-breaks and synthetic samples
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "balancer",
	Short: "Online allocation of samples into two balanced groups",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&studyPath, "study", "", "Path to study YAML (targets, capacity, families); empty uses the built-in study")
	rootCmd.PersistentFlags().IntVar(&capacity, "capacity", 0, "Total sample budget (overrides the study file)")
	rootCmd.PersistentFlags().StringVar(&satisfaction, "satisfaction", "", "Satisfaction policy: rounded, proportion (overrides the study file)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Seed for random group choices and synthetic samples")
}
