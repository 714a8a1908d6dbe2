package engine

import (
	"time"

	"github.com/sofemci/predictive/internal/database"
)

// ZoneContext is what the correlator sees of a machine's zone
type ZoneContext struct {
	Zone database.Zone
	// Peers are the other active machines of the zone
	Peers []database.Machine
}

// AnalyzeZone returns the zone multiplier (0-100) for extrusion machines with a zone.
// Every other machine gets a neutral 100.
func AnalyzeZone(m *database.Machine, zone *ZoneContext, production []database.ProductionExtrusion, cfg Config, now time.Time) FactorResult {
	r := neutral()
	if !m.InZoneCorrelation() || zone == nil {
		return r
	}
	z := zone.Zone

	if len(zone.Peers) > 0 {
		var atRisk, recentFailures, tempCount int
		var tempSum float64
		failureCutoff := now.Add(-7 * 24 * time.Hour)

		for _, p := range zone.Peers {
			if p.FailureProbability7d >= cfg.ZoneAtRiskProbability {
				atRisk++
			}
			if p.LastFailureAt != nil && !p.LastFailureAt.Before(failureCutoff) {
				recentFailures++
			}
			if p.CurrentTemperature != nil && finite(*p.CurrentTemperature) {
				tempSum += *p.CurrentTemperature
				tempCount++
			}
		}

		switch {
		case atRisk >= 2:
			r.penalize(20)
			r.risk("Zone %d: %d other machines at risk", z.Number, atRisk)
			r.anomaly("Widespread problem in zone %s", z.Name)
		case atRisk == 1:
			r.penalize(10)
			r.risk("Zone %d: 1 other machine at risk", z.Number)
		}

		if recentFailures >= 2 {
			r.penalize(15)
			r.risk("Zone %d: %d recent failures", z.Number, recentFailures)
		}

		if tempCount > 0 && tempSum/float64(tempCount) > 85 {
			r.penalize(10)
			r.risk("Zone %d: high ambient temperature", z.Number)
		}
	}

	if len(production) > 0 {
		s := SummarizeExtrusion(production)
		if s.YieldRecords > 0 && s.AverageYield < 75 {
			r.penalize(15)
			r.risk("Zone %d: low overall yield (%.1f%%)", z.Number, s.AverageYield)
		}

		utilization := 0.0
		if z.MaxMachines > 0 {
			utilization = s.AverageMachines / float64(z.MaxMachines) * 100
		}
		if utilization < 50 {
			r.penalize(10)
			r.risk("Zone %d: under-utilized (%.0f%%)", z.Number, utilization)
		}
	}
	return r
}
