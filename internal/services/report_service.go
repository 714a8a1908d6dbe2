package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
)

// DefaultAtRiskThreshold is the 7-day probability from which a machine is at risk
const DefaultAtRiskThreshold = 40.0

// FleetStats summarizes the machines covered by the batch analysis
type FleetStats struct {
	Machines            int     `json:"machines"`
	AverageHealth       float64 `json:"average_health"`
	Critical            int     `json:"critical"`
	High                int     `json:"high"`
	MaintenanceRequired int     `json:"maintenance_required"`
	Anomalies           int     `json:"anomalies"`
}

// ZoneReport is the outcome of a full zone analysis
type ZoneReport struct {
	Zone          database.Zone    `json:"zone"`
	Machines      int              `json:"machines"`
	AtRisk        int              `json:"at_risk"`
	AverageHealth float64          `json:"average_health"`
	AverageYield  float64          `json:"average_yield_7d"`
	TotalOutputKg float64          `json:"total_output_7d_kg"`
	WastePercent  float64          `json:"waste_percent_7d"`
	Results       []*engine.Result `json:"results"`
}

// SectionProduction is one line of the production report
type SectionProduction struct {
	Section        database.Section `json:"section"`
	Zone           string           `json:"zone,omitempty"`
	ActiveMachines int              `json:"active_machines"`
	AtRisk         int              `json:"at_risk"`
	AverageYield   *float64         `json:"average_yield,omitempty"`
	OutputKg       float64          `json:"output_kg"`
}

// ProductionReport correlates 7-day production with machine condition per section
type ProductionReport struct {
	Since     time.Time           `json:"since"`
	Extrusion []SectionProduction `json:"extrusion"`
	Printing  SectionProduction   `json:"printing"`
	Welding   SectionProduction   `json:"welding"`
	Recycling SectionProduction   `json:"recycling"`
}

// ReportService builds read-side reports over machines and production
type ReportService struct {
	db        *gorm.DB
	analysis  *AnalysisService
	threshold float64
	now       func() time.Time
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB, analysis *AnalysisService) *ReportService {
	return &ReportService{db: db, analysis: analysis, threshold: DefaultAtRiskThreshold, now: time.Now}
}

// SetClock overrides the time source
func (s *ReportService) SetClock(now func() time.Time) {
	s.now = now
}

// SetAtRiskThreshold changes the probability used for at-risk counts
func (s *ReportService) SetAtRiskThreshold(threshold float64) {
	s.threshold = threshold
}

// FleetStats returns statistics over active and in-maintenance machines.
// An empty fleet yields zero stats.
func (s *ReportService) FleetStats(ctx context.Context) (*FleetStats, error) {
	var machines []database.Machine
	if err := s.db.WithContext(ctx).Where("state IN ?", database.AnalyzableStates()).Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to load machines: %w", err)
	}

	cfg := s.analysis.Engine().Config()
	stats := &FleetStats{Machines: len(machines)}
	var healthSum float64
	for _, m := range machines {
		healthSum += m.HealthScore
		switch {
		case m.FailureProbability7d >= cfg.CriticalProbability:
			stats.Critical++
		case m.FailureProbability7d >= cfg.UrgentProbability:
			stats.High++
		}
		if m.HoursSinceMaintenance >= float64(m.MaintenanceIntervalDays*24) {
			stats.MaintenanceRequired++
		}
		if m.AnomalyDetected {
			stats.Anomalies++
		}
	}
	if len(machines) > 0 {
		stats.AverageHealth = round2(healthSum / float64(len(machines)))
	}
	return stats, nil
}

// AtRiskMachines returns active machines whose 7-day probability reaches
// threshold, most at risk first. A non-positive threshold uses the default.
func (s *ReportService) AtRiskMachines(ctx context.Context, threshold float64) ([]database.Machine, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	var machines []database.Machine
	err := s.db.WithContext(ctx).Preload("Zone").
		Where("state = ? AND failure_probability_7d >= ?", database.MachineStateActive, threshold).
		Order("failure_probability_7d DESC").Order("id").
		Find(&machines).Error
	return machines, err
}

// ZoneReport re-analyzes every active or in-maintenance machine of the zone
// and returns the zone statistics computed afterwards
func (s *ReportService) ZoneReport(ctx context.Context, zoneID uint) (*ZoneReport, error) {
	var zone database.Zone
	if err := s.db.WithContext(ctx).First(&zone, zoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrZoneNotFound, zoneID)
		}
		return nil, err
	}

	var ids []uint
	if err := s.db.WithContext(ctx).Model(&database.Machine{}).
		Where("zone_id = ? AND state IN ?", zone.ID, database.AnalyzableStates()).
		Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list zone machines: %w", err)
	}

	report := &ZoneReport{Zone: zone, Results: []*engine.Result{}}
	for _, id := range ids {
		res, err := s.analysis.AnalyzeMachine(ctx, id)
		if err != nil {
			log.Printf("Zone %s: failed to analyze machine %d: %v", zone.Name, id, err)
			continue
		}
		report.Results = append(report.Results, res)
	}

	var machines []database.Machine
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&machines).Error; err != nil {
		return nil, fmt.Errorf("failed to reload zone machines: %w", err)
	}
	report.Machines = len(machines)
	var healthSum float64
	for _, m := range machines {
		healthSum += m.HealthScore
		if m.FailureProbability7d >= s.threshold {
			report.AtRisk++
		}
	}
	if len(machines) > 0 {
		report.AverageHealth = round2(healthSum / float64(len(machines)))
	}

	records, err := s.extrusionSince(ctx, zone.ID)
	if err != nil {
		return nil, err
	}
	prod := engine.SummarizeExtrusion(records)
	report.AverageYield = round2(prod.AverageYield)
	report.TotalOutputKg = round2(prod.TotalOutputKg)
	if prod.HasWastePercent {
		report.WastePercent = round2(prod.WastePercent)
	}
	return report, nil
}

// ProductionReport returns the 7-day production per section next to the
// count of active and at-risk machines. Extrusion is reported per active
// zone that has both machines and production.
func (s *ReportService) ProductionReport(ctx context.Context) (*ProductionReport, error) {
	since := engine.WindowStart(s.now(), s.analysis.Engine().Config().ProductionWindowDays)
	report := &ProductionReport{Since: since, Extrusion: []SectionProduction{}}
	db := s.db.WithContext(ctx)

	var zones []database.Zone
	if err := db.Where("active = ?", true).Order("number").Find(&zones).Error; err != nil {
		return nil, fmt.Errorf("failed to load zones: %w", err)
	}
	for _, zone := range zones {
		active, atRisk, err := s.machineCounts(db.Where("zone_id = ?", zone.ID))
		if err != nil {
			return nil, err
		}
		records, err := s.extrusionSince(ctx, zone.ID)
		if err != nil {
			return nil, err
		}
		if active == 0 || len(records) == 0 {
			continue
		}
		stats := engine.SummarizeExtrusion(records)
		line := SectionProduction{
			Section:        database.SectionExtrusion,
			Zone:           zone.Name,
			ActiveMachines: active,
			AtRisk:         atRisk,
			OutputKg:       round2(stats.TotalOutputKg),
		}
		if stats.YieldRecords > 0 {
			yield := round2(stats.AverageYield)
			line.AverageYield = &yield
		}
		report.Extrusion = append(report.Extrusion, line)
	}

	sections := []struct {
		section database.Section
		model   interface{}
		out     *SectionProduction
	}{
		{database.SectionPrinting, &database.ProductionPrinting{}, &report.Printing},
		{database.SectionWelding, &database.ProductionWelding{}, &report.Welding},
		{database.SectionRecycling, &database.ProductionRecycling{}, &report.Recycling},
	}
	for _, sec := range sections {
		active, atRisk, err := s.machineCounts(db.Where("section = ?", sec.section))
		if err != nil {
			return nil, err
		}
		var outputs []float64
		if err := db.Model(sec.model).Where("production_date >= ?", since).
			Pluck("total_output_kg", &outputs).Error; err != nil {
			return nil, fmt.Errorf("failed to load %s production: %w", sec.section, err)
		}
		var total float64
		for _, v := range outputs {
			total += v
		}
		*sec.out = SectionProduction{
			Section:        sec.section,
			ActiveMachines: active,
			AtRisk:         atRisk,
			OutputKg:       round2(total),
		}
	}
	return report, nil
}

// machineCounts counts active machines in scope and those at risk
func (s *ReportService) machineCounts(scope *gorm.DB) (int, int, error) {
	var machines []database.Machine
	if err := scope.Where("state = ?", database.MachineStateActive).
		Select("id", "failure_probability_7d").Find(&machines).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count machines: %w", err)
	}
	atRisk := 0
	for _, m := range machines {
		if m.FailureProbability7d >= s.threshold {
			atRisk++
		}
	}
	return len(machines), atRisk, nil
}

func (s *ReportService) extrusionSince(ctx context.Context, zoneID uint) ([]database.ProductionExtrusion, error) {
	since := engine.WindowStart(s.now(), s.analysis.Engine().Config().ProductionWindowDays)
	var records []database.ProductionExtrusion
	if err := s.db.WithContext(ctx).
		Where("zone_id = ? AND production_date >= ?", zoneID, since).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load zone production: %w", err)
	}
	return records, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
