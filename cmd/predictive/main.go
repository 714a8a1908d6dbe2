// predictive is the predictive maintenance service and its operator CLI.
//
// Usage:
//
//	predictive serve
//	predictive migrate
//	predictive analyze --machine=<id> | --number=<n> --section=<s>
//	predictive analyze-all
//	predictive alerts list|seen|take|resolve|ignore
//	predictive record failure|maintenance|measurement|hours --machine=<id>
//	predictive report fleet|zone|production|at-risk
//	predictive settings show|set
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sofemci/predictive/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfg       *config.Config
	logCloser io.Closer
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "predictive",
	Short: "Predictive maintenance for the factory machine fleet",
	Long: "predictive scores machine health from telemetry, failure history and\n" +
		"production output, estimates failure probabilities and raises alerts.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print results as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(analyzeAllCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.Version = version
}

// setup loads the environment and configuration shared by every command
func setup(cmd *cobra.Command, _ []string) error {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logCloser = config.SetupLogging(cfg.LogFile)
	return nil
}

func teardown(cmd *cobra.Command, _ []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
