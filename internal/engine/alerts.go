package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/sofemci/predictive/internal/database"
)

// AlertDraft is an alert the pass wants open for the machine. Drafts are
// upserted by level: a draft at an already-open level rewrites that alert.
type AlertDraft struct {
	Level             database.AlertLevel    `json:"level"`
	Title             string                 `json:"title"`
	Message           string                 `json:"message"`
	Probability       float64                `json:"probability"`
	HorizonDays       int                    `json:"horizon_days"`
	Confidence        float64                `json:"confidence"`
	RecommendedAction string                 `json:"recommended_action"`
	Priority          int                    `json:"priority"`
	Payload           map[string]interface{} `json:"payload,omitempty"`
}

// DraftAlerts applies the generation rules in order. A machine may receive
// several drafts, and later drafts at the same level win.
func DraftAlerts(m *database.Machine, res *Result, cfg Config, now time.Time) []AlertDraft {
	var drafts []AlertDraft
	p7, p30 := res.Probability7d, res.Probability30d

	switch {
	case p7 >= cfg.CriticalProbability:
		drafts = append(drafts, AlertDraft{
			Level:             database.AlertLevelCritical,
			Title:             fmt.Sprintf("CRITICAL RISK - Machine %s", m.Number),
			Message:           fmt.Sprintf("7-day failure probability: %.1f%%. Factors: %s", p7, strings.Join(firstN(res.RiskFactors, 3), ", ")),
			Probability:       p7,
			HorizonDays:       7,
			Confidence:        85,
			RecommendedAction: "Immediate shutdown for preventive maintenance",
			Priority:          10,
		})
	case p7 >= cfg.UrgentProbability:
		drafts = append(drafts, AlertDraft{
			Level:             database.AlertLevelUrgent,
			Title:             fmt.Sprintf("WARNING - Machine %s", m.Number),
			Message:           fmt.Sprintf("7-day failure probability: %.1f%%. Prompt intervention recommended.", p7),
			Probability:       p7,
			HorizonDays:       7,
			Confidence:        75,
			RecommendedAction: "Schedule maintenance within 48h",
			Priority:          7,
		})
	}

	if m.MaintenanceOverdue(now) {
		drafts = append(drafts, AlertDraft{
			Level:             database.AlertLevelAttention,
			Title:             fmt.Sprintf("Maintenance required - Machine %s", m.Number),
			Message:           fmt.Sprintf("Maintenance overdue by %d days", m.DaysOverdue(now)),
			Probability:       p30,
			HorizonDays:       30,
			Confidence:        90,
			RecommendedAction: "Schedule preventive maintenance",
			Priority:          5,
		})
	}

	if len(res.Anomalies) > 0 {
		anomalies := make([]interface{}, len(res.Anomalies))
		for i, a := range res.Anomalies {
			anomalies[i] = a
		}
		drafts = append(drafts, AlertDraft{
			Level:             database.AlertLevelUrgent,
			Title:             fmt.Sprintf("Anomaly detected - Machine %s", m.Number),
			Message:           fmt.Sprintf("Anomalies: %s", strings.Join(res.Anomalies, ", ")),
			Probability:       p7,
			HorizonDays:       3,
			Confidence:        80,
			RecommendedAction: "Immediate machine inspection",
			Priority:          8,
			Payload:           map[string]interface{}{"anomalies": anomalies},
		})
	}
	return drafts
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
