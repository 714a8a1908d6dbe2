package engine

import (
	"sort"
	"time"

	"github.com/sofemci/predictive/internal/database"
)

// ProductionWindow holds the production records of the trailing window.
// Extrusion records are those of the machine's zone; other sections report
// section-wide.
type ProductionWindow struct {
	Extrusion []database.ProductionExtrusion
	Printing  []database.ProductionPrinting
	Welding   []database.ProductionWelding
	Recycling []database.ProductionRecycling
}

// WindowStart returns the first production date included in a trailing window of n days
func WindowStart(now time.Time, days int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

// SectionAnalyzer scores the production performance of one section
type SectionAnalyzer interface {
	Section() database.Section
	Analyze(m *database.Machine, w ProductionWindow) FactorResult
}

var sectionAnalyzers = map[database.Section]SectionAnalyzer{}

func registerSection(a SectionAnalyzer) {
	sectionAnalyzers[a.Section()] = a
}

func init() {
	registerSection(extrusionAnalyzer{})
	registerSection(wasteAnalyzer{section: database.SectionPrinting, limit: 4, label: "printing"})
	registerSection(wasteAnalyzer{section: database.SectionWelding, limit: 5, label: "welding"})
	registerSection(recyclingAnalyzer{})
}

// AnalyzeProduction dispatches to the analyzer of the machine's section.
// Unknown sections score neutral.
func AnalyzeProduction(m *database.Machine, w ProductionWindow) FactorResult {
	a, ok := sectionAnalyzers[m.Section]
	if !ok {
		return neutral()
	}
	return a.Analyze(m, w)
}

// ExtrusionStats aggregates extrusion records over a window
type ExtrusionStats struct {
	Records int
	// YieldRecords counts records with raw material, the only ones with a yield
	YieldRecords     int
	AverageYield     float64
	TotalOutputKg    float64
	TotalWasteKg     float64
	AverageMachines  float64
	WastePercent     float64
	HasWastePercent  bool
	LatestOutputKg   float64
	PreviousOutputKg float64
	HasTrend         bool
}

// SummarizeExtrusion computes the window aggregates used by the production
// analyzer, the zone correlator and the anomaly detector.
func SummarizeExtrusion(records []database.ProductionExtrusion) ExtrusionStats {
	s := ExtrusionStats{Records: len(records)}
	if len(records) == 0 {
		return s
	}

	var yieldSum, machineSum float64
	for _, p := range records {
		if p.HasYield() && finite(p.YieldPercent) {
			yieldSum += p.YieldPercent
			s.YieldRecords++
		}
		if finite(p.TotalOutputKg, p.WasteKg) {
			s.TotalOutputKg += p.TotalOutputKg
			s.TotalWasteKg += p.WasteKg
		}
		machineSum += float64(p.ActiveMachines)
	}
	if s.YieldRecords > 0 {
		s.AverageYield = yieldSum / float64(s.YieldRecords)
	}
	s.AverageMachines = machineSum / float64(len(records))
	if s.TotalOutputKg > 0 {
		s.WastePercent = s.TotalWasteKg / s.TotalOutputKg * 100
		s.HasWastePercent = true
	}

	if len(records) >= 2 {
		sorted := make([]database.ProductionExtrusion, len(records))
		copy(sorted, records)
		sort.SliceStable(sorted, func(i, j int) bool {
			if !sorted[i].ProductionDate.Equal(sorted[j].ProductionDate) {
				return sorted[i].ProductionDate.After(sorted[j].ProductionDate)
			}
			return sorted[i].ID > sorted[j].ID
		})
		s.LatestOutputKg = sorted[0].TotalOutputKg
		s.PreviousOutputKg = sorted[1].TotalOutputKg
		s.HasTrend = true
	}
	return s
}

// Since keeps the records produced on or after start
func Since(records []database.ProductionExtrusion, start time.Time) []database.ProductionExtrusion {
	var out []database.ProductionExtrusion
	for _, p := range records {
		if !p.ProductionDate.Before(start) {
			out = append(out, p)
		}
	}
	return out
}

type extrusionAnalyzer struct{}

func (extrusionAnalyzer) Section() database.Section { return database.SectionExtrusion }

func (extrusionAnalyzer) Analyze(m *database.Machine, w ProductionWindow) FactorResult {
	r := neutral()
	if m.ZoneID == nil || len(w.Extrusion) == 0 {
		return r
	}
	s := SummarizeExtrusion(w.Extrusion)

	if s.YieldRecords > 0 {
		switch {
		case s.AverageYield < 70:
			r.penalize(30)
			r.risk("Low yield: %.1f%%", s.AverageYield)
			r.anomaly("Significant yield drop (%.1f%%)", s.AverageYield)
		case s.AverageYield < 80:
			r.penalize(15)
			r.risk("Declining yield: %.1f%%", s.AverageYield)
		}
	}

	if s.HasWastePercent {
		switch {
		case s.WastePercent > 5:
			r.penalize(20)
			r.risk("High waste rate: %.1f%%", s.WastePercent)
			r.anomaly("Abnormally high waste (%.1f%%)", s.WastePercent)
		case s.WastePercent > 3:
			r.penalize(10)
			r.risk("Rising waste: %.1f%%", s.WastePercent)
		}
	}

	if s.HasTrend && s.PreviousOutputKg > 0 {
		variation := (s.LatestOutputKg - s.PreviousOutputKg) / s.PreviousOutputKg * 100
		if variation < -20 {
			r.penalize(25)
			r.risk("Production drop: %.1f%%", -variation)
			r.anomaly("Production collapsing (%.1f%%)", variation)
		}
	}
	return r
}

// wasteAnalyzer covers the sections judged on waste rate alone
type wasteAnalyzer struct {
	section database.Section
	limit   float64
	label   string
}

func (a wasteAnalyzer) Section() database.Section { return a.section }

func (a wasteAnalyzer) Analyze(m *database.Machine, w ProductionWindow) FactorResult {
	r := neutral()

	var output, waste float64
	var n int
	switch a.section {
	case database.SectionPrinting:
		for _, p := range w.Printing {
			if finite(p.TotalOutputKg, p.WasteKg) {
				output += p.TotalOutputKg
				waste += p.WasteKg
			}
		}
		n = len(w.Printing)
	case database.SectionWelding:
		for _, p := range w.Welding {
			if finite(p.TotalOutputKg, p.WasteKg) {
				output += p.TotalOutputKg
				waste += p.WasteKg
			}
		}
		n = len(w.Welding)
	}
	if n == 0 || output <= 0 {
		return r
	}

	if pct := waste / output * 100; pct > a.limit {
		r.penalize(20)
		r.risk("High %s waste: %.1f%%", a.label, pct)
	}
	return r
}

type recyclingAnalyzer struct{}

func (recyclingAnalyzer) Section() database.Section { return database.SectionRecycling }

func (recyclingAnalyzer) Analyze(m *database.Machine, w ProductionWindow) FactorResult {
	r := neutral()

	var grinding, tarp float64
	for _, p := range w.Recycling {
		if finite(p.GrindingKg, p.BlackTarpKg) {
			grinding += p.GrindingKg
			tarp += p.BlackTarpKg
		}
	}
	if grinding <= 0 {
		return r
	}

	rate := tarp / grinding * 100
	switch {
	case rate < 60:
		r.penalize(25)
		r.risk("Low transformation rate: %.1f%%", rate)
		r.anomaly("Inefficient recycling (%.1f%%)", rate)
	case rate < 70:
		r.penalize(10)
		r.risk("Declining transformation: %.1f%%", rate)
	}
	return r
}
