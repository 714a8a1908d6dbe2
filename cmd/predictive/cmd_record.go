package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/services"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record machine events; each one re-analyzes the machine",
}

var recordMachine machineFlags

var recordFlags struct {
	description string
	downtime    float64
	cost        float64
	technician  string
	parts       string
	temperature float64
	power       float64
	hours       float64
}

var recordFailureCmd = &cobra.Command{
	Use:   "failure",
	Short: "Record a breakdown",
	Args:  cobra.NoArgs,
	RunE:  runRecordFailure,
}

var recordMaintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Record a completed maintenance",
	Args:  cobra.NoArgs,
	RunE:  runRecordMaintenance,
}

var recordMeasurementCmd = &cobra.Command{
	Use:   "measurement",
	Short: "Record a temperature and/or power reading",
	Args:  cobra.NoArgs,
	RunE:  runRecordMeasurement,
}

var recordHoursCmd = &cobra.Command{
	Use:   "hours",
	Short: "Add operating hours",
	Args:  cobra.NoArgs,
	RunE:  runRecordHours,
}

func init() {
	for _, c := range []*cobra.Command{recordFailureCmd, recordMaintenanceCmd, recordMeasurementCmd, recordHoursCmd} {
		recordMachine.register(c)
	}

	for _, c := range []*cobra.Command{recordFailureCmd, recordMaintenanceCmd} {
		f := c.Flags()
		f.StringVar(&recordFlags.description, "description", "", "What happened (required)")
		f.Float64Var(&recordFlags.downtime, "downtime", 0, "Downtime in hours")
		f.StringVar(&recordFlags.technician, "technician", "", "Technician name")
		f.StringVar(&recordFlags.parts, "parts", "", "Parts replaced")
		_ = c.MarkFlagRequired("description")
	}
	recordFailureCmd.Flags().Float64Var(&recordFlags.cost, "cost", 0, "Repair cost")

	recordMeasurementCmd.Flags().Float64Var(&recordFlags.temperature, "temperature", 0, "Current temperature")
	recordMeasurementCmd.Flags().Float64Var(&recordFlags.power, "power", 0, "Current power draw in kWh")
	recordMeasurementCmd.MarkFlagsOneRequired("temperature", "power")

	recordHoursCmd.Flags().Float64Var(&recordFlags.hours, "hours", 0, "Operating hours to add (required)")
	_ = recordHoursCmd.MarkFlagRequired("hours")

	recordCmd.AddCommand(recordFailureCmd, recordMaintenanceCmd, recordMeasurementCmd, recordHoursCmd)
}

// floatFlag returns a pointer to v when the flag was set on the command line
func floatFlag(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

type recordFunc func(cmd *cobra.Command, a *app, machineID uint) (*engine.Result, error)

func withRecordedMachine(cmd *cobra.Command, fn recordFunc) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := recordMachine.resolve(a)
	if err != nil {
		return err
	}
	result, err := fn(cmd, a, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, result)
	}
	printResult(out, result)
	return nil
}

func runRecordFailure(cmd *cobra.Command, _ []string) error {
	return withRecordedMachine(cmd, func(cmd *cobra.Command, a *app, id uint) (*engine.Result, error) {
		return a.machines.RecordFailure(cmd.Context(), id, services.FailureReport{
			Description:   recordFlags.description,
			DowntimeHours: recordFlags.downtime,
			Cost:          floatFlag(cmd, "cost", recordFlags.cost),
			Technician:    recordFlags.technician,
			PartsReplaced: recordFlags.parts,
		})
	})
}

func runRecordMaintenance(cmd *cobra.Command, _ []string) error {
	return withRecordedMachine(cmd, func(cmd *cobra.Command, a *app, id uint) (*engine.Result, error) {
		return a.machines.RecordMaintenance(cmd.Context(), id, services.MaintenanceReport{
			Description:   recordFlags.description,
			DowntimeHours: floatFlag(cmd, "downtime", recordFlags.downtime),
			Technician:    recordFlags.technician,
			PartsReplaced: recordFlags.parts,
		})
	})
}

func runRecordMeasurement(cmd *cobra.Command, _ []string) error {
	return withRecordedMachine(cmd, func(cmd *cobra.Command, a *app, id uint) (*engine.Result, error) {
		return a.machines.RecordMeasurement(cmd.Context(), id, services.Measurement{
			Temperature: floatFlag(cmd, "temperature", recordFlags.temperature),
			PowerKWh:    floatFlag(cmd, "power", recordFlags.power),
		})
	})
}

func runRecordHours(cmd *cobra.Command, _ []string) error {
	if recordFlags.hours <= 0 {
		return errors.New("--hours must be positive")
	}

	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := recordMachine.resolve(a)
	if err != nil {
		return err
	}
	m, err := a.machines.AddOperatingHours(cmd.Context(), id, recordFlags.hours)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, m)
	}
	fmt.Fprintf(out, "%s: %.1f operating hours, %.1f since last maintenance\n",
		m.Number, m.TotalOperatingHours, m.HoursSinceMaintenance)
	return nil
}
