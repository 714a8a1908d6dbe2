package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sofemci/predictive/internal/services"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fleet, zone and production reports",
}

var reportFlags struct {
	zoneID    uint
	threshold float64
}

var reportFleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet health statistics",
	Args:  cobra.NoArgs,
	RunE:  runReportFleet,
}

var reportZoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Re-analyze a zone and report its statistics",
	Args:  cobra.NoArgs,
	RunE:  runReportZone,
}

var reportProductionCmd = &cobra.Command{
	Use:   "production",
	Short: "Seven-day production per section next to machine condition",
	Args:  cobra.NoArgs,
	RunE:  runReportProduction,
}

var reportAtRiskCmd = &cobra.Command{
	Use:   "at-risk",
	Short: "Active machines whose 7-day failure probability reaches the threshold",
	Args:  cobra.NoArgs,
	RunE:  runReportAtRisk,
}

func init() {
	reportZoneCmd.Flags().UintVar(&reportFlags.zoneID, "zone", 0, "Zone DB ID (required)")
	_ = reportZoneCmd.MarkFlagRequired("zone")
	reportAtRiskCmd.Flags().Float64Var(&reportFlags.threshold, "threshold", 0, "Probability threshold in percent (default from settings)")

	reportCmd.AddCommand(reportFleetCmd, reportZoneCmd, reportProductionCmd, reportAtRiskCmd)
}

func runReportFleet(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.reports.FleetStats(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, stats)
	}
	heading(out, "Fleet")
	fmt.Fprintf(out, "Machines:             %d\n", stats.Machines)
	fmt.Fprintf(out, "Average health:       %.1f\n", stats.AverageHealth)
	fmt.Fprintf(out, "Critical:             %d\n", stats.Critical)
	fmt.Fprintf(out, "High risk:            %d\n", stats.High)
	fmt.Fprintf(out, "Maintenance required: %d\n", stats.MaintenanceRequired)
	fmt.Fprintf(out, "With anomalies:       %d\n", stats.Anomalies)
	return nil
}

func runReportZone(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.reports.ZoneReport(cmd.Context(), reportFlags.zoneID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, report)
	}
	heading(out, report.Zone.Name)
	fmt.Fprintf(out, "Machines:        %d (%d at risk)\n", report.Machines, report.AtRisk)
	fmt.Fprintf(out, "Average health:  %.1f\n", report.AverageHealth)
	fmt.Fprintf(out, "7-day yield:     %.1f%%\n", report.AverageYield)
	fmt.Fprintf(out, "7-day output:    %.0f kg\n", report.TotalOutputKg)
	fmt.Fprintf(out, "7-day waste:     %.2f%%\n", report.WastePercent)
	fmt.Fprintln(out)
	for _, r := range report.Results {
		printResult(out, r)
		fmt.Fprintln(out)
	}
	return nil
}

func runReportProduction(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.reports.ProductionReport(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, report)
	}
	heading(out, "Production since "+report.Since.Format("2006-01-02"))
	tw := newTable(out)
	fmt.Fprintln(tw, "SECTION\tZONE\tMACHINES\tAT RISK\tYIELD(%)\tOUTPUT(kg)")
	for _, line := range report.Extrusion {
		writeSection(tw, line)
	}
	writeSection(tw, report.Printing)
	writeSection(tw, report.Welding)
	writeSection(tw, report.Recycling)
	return tw.Flush()
}

func writeSection(w io.Writer, s services.SectionProduction) {
	zone, yield := "-", "-"
	if s.Zone != "" {
		zone = s.Zone
	}
	if s.AverageYield != nil {
		yield = fmt.Sprintf("%.1f", *s.AverageYield)
	}
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%.0f\n", s.Section, zone, s.ActiveMachines, s.AtRisk, yield, s.OutputKg)
}

func runReportAtRisk(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	machines, err := a.reports.AtRiskMachines(cmd.Context(), reportFlags.threshold)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, machines)
	}
	if len(machines) == 0 {
		fmt.Fprintln(out, "No machine at risk")
		return nil
	}
	return printMachines(out, machines)
}
