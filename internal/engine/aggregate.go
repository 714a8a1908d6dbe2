package engine

import (
	"math"

	"github.com/sofemci/predictive/internal/database"
)

// RiskLevel buckets the 7-day failure probability
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// HealthScore blends the factor scores and applies the zone multiplier
func HealthScore(scores map[Factor]float64, w Weights, zone float64) float64 {
	var blend float64
	for _, f := range WeightedFactors() {
		blend += scores[f] * w.For(f)
	}
	return clamp(blend * zone / 100)
}

// FailureProbability projects the risk over the given horizon.
// Both horizons scale the same base risk, so once clamped the 30-day value
// is not guaranteed to exceed the 7-day one.
func FailureProbability(health float64, m *database.Machine, days int) float64 {
	base := 100 - health
	if m.FailuresLast30Days > 0 {
		base += 20 * float64(m.FailuresLast30Days)
	}
	if m.FailuresLast6Months > 2 {
		base += 10
	}
	return clamp(base * float64(days) / 30)
}

// Level returns the risk level of a 7-day probability
func (c Config) Level(p7 float64) RiskLevel {
	switch {
	case p7 >= c.CriticalProbability:
		return RiskCritical
	case p7 >= c.UrgentProbability:
		return RiskHigh
	case p7 >= c.MediumProbability:
		return RiskMedium
	}
	return RiskLow
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
