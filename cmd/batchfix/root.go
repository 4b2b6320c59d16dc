package main

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	cleanFirst bool
	resultsDir string
)

var rootCmd = &cobra.Command{
	Use:   "batchfix",
	Short: "Batch record remediation pipeline",
	Long: `batchfix selects rows from a relational data source, derives one
corrective SQL statement per row, and tracks each statement as a job file
through generation, offline validation, and execution.

Without a subcommand it runs "test": generate then validate, touching no
data.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.RunE = testCmd.RunE

	rootCmd.AddCommand(
		generateCmd,
		executeCmd,
		testCmd,
		runCmd,
		setupTestCmd,
		cleanTestCmd,
		repairCountyCmd,
		repairCountyCodeCmd,
	)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&cleanFirst, "clean", false, "Wipe the working directory before running")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results", "", "Working directory (default results_<timestamp>)")
}
