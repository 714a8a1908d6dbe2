package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/services"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts and move them through their lifecycle",
}

var alertsListFlags struct {
	all       bool
	machineID uint
	level     string
	status    string
	limit     int
}

var alertActionFlags struct {
	user    string
	comment string
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts, open ones only unless --all",
	Args:  cobra.NoArgs,
	RunE:  runAlertsList,
}

var alertsSeenCmd = &cobra.Command{
	Use:   "seen <alert-id>",
	Short: "Mark a new alert as seen",
	Args:  cobra.ExactArgs(1),
	RunE: alertAction(func(cmd *cobra.Command, a *app, id uint) (*database.AIAlert, error) {
		return a.alerts.MarkSeen(cmd.Context(), id)
	}),
}

var alertsTakeCmd = &cobra.Command{
	Use:   "take <alert-id>",
	Short: "Take ownership of an alert",
	Args:  cobra.ExactArgs(1),
	RunE: alertAction(func(cmd *cobra.Command, a *app, id uint) (*database.AIAlert, error) {
		return a.alerts.Take(cmd.Context(), id, alertActionFlags.user)
	}),
}

var alertsResolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Resolve an alert",
	Args:  cobra.ExactArgs(1),
	RunE: alertAction(func(cmd *cobra.Command, a *app, id uint) (*database.AIAlert, error) {
		return a.alerts.Resolve(cmd.Context(), id, alertActionFlags.user, alertActionFlags.comment)
	}),
}

var alertsIgnoreCmd = &cobra.Command{
	Use:   "ignore <alert-id>",
	Short: "Ignore an alert",
	Args:  cobra.ExactArgs(1),
	RunE: alertAction(func(cmd *cobra.Command, a *app, id uint) (*database.AIAlert, error) {
		return a.alerts.Ignore(cmd.Context(), id, alertActionFlags.user)
	}),
}

func init() {
	f := alertsListCmd.Flags()
	f.BoolVar(&alertsListFlags.all, "all", false, "Include resolved and ignored alerts")
	f.UintVar(&alertsListFlags.machineID, "machine", 0, "Only alerts of this machine ID")
	f.StringVar(&alertsListFlags.level, "level", "", "Only alerts of this level: info, attention, urgent, critique")
	f.StringVar(&alertsListFlags.status, "status", "", "Only alerts with this status")
	f.IntVar(&alertsListFlags.limit, "limit", 50, "Maximum number of alerts")

	alertsTakeCmd.Flags().StringVar(&alertActionFlags.user, "user", "", "Operator taking the alert (required)")
	_ = alertsTakeCmd.MarkFlagRequired("user")
	alertsResolveCmd.Flags().StringVar(&alertActionFlags.user, "user", "", "Operator resolving the alert")
	alertsResolveCmd.Flags().StringVar(&alertActionFlags.comment, "comment", "", "Resolution comment")
	alertsIgnoreCmd.Flags().StringVar(&alertActionFlags.user, "user", "", "Operator ignoring the alert")

	alertsCmd.AddCommand(alertsListCmd, alertsSeenCmd, alertsTakeCmd, alertsResolveCmd, alertsIgnoreCmd)
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.alerts.ListAlerts(services.AlertFilter{
		MachineID: alertsListFlags.machineID,
		Level:     database.AlertLevel(alertsListFlags.level),
		Status:    database.AlertStatus(alertsListFlags.status),
		OpenOnly:  !alertsListFlags.all && alertsListFlags.status == "",
		Limit:     alertsListFlags.limit,
	})
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, alerts)
	}
	if len(alerts) == 0 {
		fmt.Fprintln(out, "No alerts")
		return nil
	}
	return printAlerts(out, alerts)
}

type alertActionFunc func(cmd *cobra.Command, a *app, id uint) (*database.AIAlert, error)

func alertAction(fn alertActionFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid alert id %q", args[0])
		}

		a, err := openApp(cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		alert, err := fn(cmd, a, uint(id))
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), alert)
		}
		printAlert(cmd.OutOrStdout(), alert)
		return nil
	}
}
