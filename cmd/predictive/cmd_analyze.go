package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
)

// machineFlags selects a machine by id or by number within a section
type machineFlags struct {
	id      uint
	number  string
	section string
}

func (f *machineFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.UintVar(&f.id, "machine", 0, "Machine DB ID")
	fl.StringVar(&f.number, "number", "", "Machine number (with --section)")
	fl.StringVar(&f.section, "section", string(database.SectionExtrusion), "Machine section: extrusion, imprimerie, soudure, recyclage")
	cmd.MarkFlagsMutuallyExclusive("machine", "number")
}

// resolve returns the selected machine ID
func (f *machineFlags) resolve(a *app) (uint, error) {
	if f.id != 0 {
		return f.id, nil
	}
	if f.number == "" {
		return 0, errors.New("either --machine or --number is required")
	}
	section := database.Section(f.section)
	if !slices.Contains(database.ValidSections(), section) {
		return 0, fmt.Errorf("unknown section %q", f.section)
	}
	m, err := a.machines.FindMachine(f.number, section)
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

var analyzeFlags machineFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis pass on a machine",
	RunE:  runAnalyze,
}

var analyzeAllCmd = &cobra.Command{
	Use:   "analyze-all",
	Short: "Analyze every active or in-maintenance machine",
	RunE:  runAnalyzeAll,
}

func init() {
	analyzeFlags.register(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := analyzeFlags.resolve(a)
	if err != nil {
		return err
	}
	result, err := a.analysis.AnalyzeMachine(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("analyze machine %d: %w", id, err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, result)
	}
	printResult(out, result)
	return nil
}

func runAnalyzeAll(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	results, failed, err := a.analysis.AnalyzeAll(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, map[string]interface{}{
			"results": results,
			"failed":  failed,
		})
	}

	tw := newTable(out)
	fmt.Fprintln(tw, "MACHINE\tSECTION\tHEALTH\tP7(%)\tP30(%)\tRISK\tALERTS")
	critical := 0
	for _, r := range results {
		if r.RiskLevel == engine.RiskCritical {
			critical++
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%s\t%d\n",
			r.MachineNumber, r.Section, r.HealthScore, r.Probability7d, r.Probability30d, r.RiskLevel, len(r.Alerts))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d machines analyzed, %d critical, %d failed\n", len(results), critical, failed)
	return nil
}
