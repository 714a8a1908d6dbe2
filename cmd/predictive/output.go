package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printResult(w io.Writer, r *engine.Result) {
	fmt.Fprintf(w, "Machine:      %s (#%d, %s)\n", r.MachineNumber, r.MachineID, r.Section)
	fmt.Fprintf(w, "Health:       %.1f\n", r.HealthScore)
	fmt.Fprintf(w, "Failure risk: %.1f%% within 7 days, %.1f%% within 30 days (%s)\n",
		r.Probability7d, r.Probability30d, r.RiskLevel)
	if len(r.RiskFactors) > 0 {
		fmt.Fprintf(w, "Risk factors:\n")
		for _, f := range r.RiskFactors {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(r.Anomalies) > 0 {
		fmt.Fprintf(w, "Anomalies:\n")
		for _, a := range r.Anomalies {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
	if len(r.Alerts) > 0 {
		fmt.Fprintf(w, "Alerts:\n")
		for _, a := range r.Alerts {
			fmt.Fprintf(w, "  [%s] %s\n", a.Level, a.Title)
		}
	}
}

func printAlerts(w io.Writer, alerts []database.AIAlert) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tMACHINE\tLEVEL\tSTATUS\tP(%)\tPRIORITY\tTITLE\tCREATED")
	for _, a := range alerts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%d\t%s\t%s\n",
			a.ID, a.Machine.Number, a.Level, a.Status, a.FailureProbability,
			a.Priority, a.Title, a.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func printAlert(w io.Writer, a *database.AIAlert) {
	fmt.Fprintf(w, "Alert #%d (%s) is now %s\n", a.ID, a.UUID, a.Status)
	if a.HandledBy != "" {
		fmt.Fprintf(w, "Handled by %s\n", a.HandledBy)
	}
}

func printMachines(w io.Writer, machines []database.Machine) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNUMBER\tSECTION\tZONE\tSTATE\tHEALTH\tP7(%)\tP30(%)")
	for _, m := range machines {
		zone := "-"
		if m.Zone != nil {
			zone = m.Zone.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.1f\t%.1f\t%.1f\n",
			m.ID, m.Number, m.Section, zone, m.State,
			m.HealthScore, m.FailureProbability7d, m.FailureProbability30d)
	}
	return tw.Flush()
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}
