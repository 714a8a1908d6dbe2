package engine

import (
	"github.com/sofemci/predictive/internal/database"
)

// DetectAnomalies cross-checks conditions the single-factor analyzers miss.
// recent holds the zone's extrusion records of the anomaly window.
// Findings are reported only; they never feed back into the score.
func DetectAnomalies(m *database.Machine, recent []database.ProductionExtrusion) FactorResult {
	r := neutral()
	overheating := m.IsOverheating()
	overconsuming := m.IsOverconsuming()

	if overheating && overconsuming {
		r.anomaly("ALERT: simultaneous overheating and overconsumption")
		r.risk("Critical anomaly detected")
	}

	if !m.InZoneCorrelation() || len(recent) == 0 || !(overheating || overconsuming) {
		return r
	}
	s := SummarizeExtrusion(recent)

	if overheating && s.YieldRecords > 0 && s.AverageYield < 75 {
		r.anomaly("CORRELATION: overheating + yield drop")
		r.risk("Thermal failure probable")
	}

	if overconsuming && s.HasWastePercent && s.WastePercent > 4 {
		r.anomaly("CORRELATION: overconsumption + high waste (%.1f%%)", s.WastePercent)
		r.risk("Transformation malfunction")
	}
	return r
}
