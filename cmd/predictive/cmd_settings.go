package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofemci/predictive/internal/database"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the scheduled analysis settings",
}

var settingsFlags struct {
	enabled   bool
	interval  int
	workers   int
	recompute bool
	threshold float64
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the analysis settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the analysis settings; only the given flags are updated",
	Args:  cobra.NoArgs,
	RunE:  runSettingsSet,
}

func init() {
	f := settingsSetCmd.Flags()
	f.BoolVar(&settingsFlags.enabled, "enabled", true, "Run the scheduled analysis")
	f.IntVar(&settingsFlags.interval, "interval", 60, "Minutes between scheduled runs")
	f.IntVar(&settingsFlags.workers, "workers", 4, "Machines analyzed in parallel")
	f.BoolVar(&settingsFlags.recompute, "recompute-counters", true, "Rebuild failure counters from the event log before each run")
	f.Float64Var(&settingsFlags.threshold, "at-risk-threshold", 40, "7-day probability from which a machine is at risk")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	settings, err := database.GetOrCreateAnalysisSettings(a.db)
	if err != nil {
		return err
	}
	return printSettings(cmd, settings)
}

func runSettingsSet(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	settings, err := database.GetOrCreateAnalysisSettings(a.db)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	if f.Changed("enabled") {
		settings.Enabled = settingsFlags.enabled
	}
	if f.Changed("interval") {
		if settingsFlags.interval < 1 {
			return fmt.Errorf("--interval must be at least 1 minute")
		}
		settings.IntervalMinutes = settingsFlags.interval
	}
	if f.Changed("workers") {
		if settingsFlags.workers < 1 {
			return fmt.Errorf("--workers must be at least 1")
		}
		settings.Workers = settingsFlags.workers
	}
	if f.Changed("recompute-counters") {
		settings.RecomputeCounters = settingsFlags.recompute
	}
	if f.Changed("at-risk-threshold") {
		if settingsFlags.threshold <= 0 || settingsFlags.threshold > 100 {
			return fmt.Errorf("--at-risk-threshold must be in (0, 100]")
		}
		settings.AtRiskThreshold = settingsFlags.threshold
	}

	if err := database.UpdateAnalysisSettings(a.db, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return printSettings(cmd, settings)
}

func printSettings(cmd *cobra.Command, s *database.AnalysisSettings) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, s)
	}
	fmt.Fprintf(out, "Enabled:            %t\n", s.Enabled)
	fmt.Fprintf(out, "Interval:           %d minutes\n", s.IntervalMinutes)
	fmt.Fprintf(out, "Workers:            %d\n", s.Workers)
	fmt.Fprintf(out, "Recompute counters: %t\n", s.RecomputeCounters)
	fmt.Fprintf(out, "At-risk threshold:  %.1f%%\n", s.AtRiskThreshold)
	return nil
}
