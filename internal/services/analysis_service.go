package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
)

// derivedColumns are the only machine fields an analysis pass writes
var derivedColumns = []string{
	"HealthScore",
	"FailureProbability7d",
	"FailureProbability30d",
	"AnomalyDetected",
	"AnomalyDescription",
	"LastAnalysisAt",
}

// AnalysisService runs one analysis pass per machine: it loads the inputs,
// evaluates the engine and persists the derived state and alerts atomically
type AnalysisService struct {
	db       *gorm.DB
	engine   *engine.Engine
	notifier AlertNotifier
	locks    *machineLocks
	now      func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(db *gorm.DB, eng *engine.Engine) *AnalysisService {
	return &AnalysisService{
		db:       db,
		engine:   eng,
		notifier: noopNotifier{},
		locks:    newMachineLocks(),
		now:      time.Now,
	}
}

// SetNotifier sets the receiver of committed alert changes
func (s *AnalysisService) SetNotifier(n AlertNotifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

// SetClock overrides the time source
func (s *AnalysisService) SetClock(now func() time.Time) {
	s.now = now
}

// Engine returns the engine used by the service
func (s *AnalysisService) Engine() *engine.Engine {
	return s.engine
}

// lock serializes work on one machine; the returned func releases it
func (s *AnalysisService) lock(machineID uint) func() {
	return s.locks.Lock(machineID)
}

// AnalyzeMachine runs a full pass for one machine. Either the machine state
// and every alert upsert are committed together, or nothing is.
func (s *AnalysisService) AnalyzeMachine(ctx context.Context, machineID uint) (*engine.Result, error) {
	unlock := s.lock(machineID)
	defer unlock()
	return s.analyzeLocked(ctx, machineID)
}

func (s *AnalysisService) analyzeLocked(ctx context.Context, machineID uint) (*engine.Result, error) {
	now := s.now().UTC()

	var (
		result *engine.Result
		events []AlertEvent
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var machine database.Machine
		if err := tx.First(&machine, machineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrMachineNotFound, machineID)
			}
			return fmt.Errorf("failed to load machine: %w", err)
		}

		input, err := s.loadInput(tx, machine, now)
		if err != nil {
			return err
		}

		result = s.engine.Evaluate(input)
		result.Apply(&machine)

		if err := tx.Model(&machine).Select(derivedColumns).Updates(&machine).Error; err != nil {
			return fmt.Errorf("failed to save machine state: %w", err)
		}

		events = events[:0]
		for _, draft := range result.Alerts {
			alert, created, err := upsertAlert(tx, machine.ID, draft, result.ModelVersion, now)
			if err != nil {
				return fmt.Errorf("failed to upsert %s alert: %w", draft.Level, err)
			}
			kind := AlertUpdated
			if created {
				kind = AlertCreated
			}
			events = append(events, AlertEvent{Kind: kind, MachineNumber: machine.Number, Alert: *alert})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ev := range dedupeEvents(events) {
		s.notifier.NotifyAlert(ctx, ev)
	}
	return result, nil
}

// dedupeEvents keeps the last event per alert. A created alert that was
// updated again in the same pass is still reported as created.
func dedupeEvents(events []AlertEvent) []AlertEvent {
	index := make(map[uint]int, len(events))
	out := make([]AlertEvent, 0, len(events))
	for _, ev := range events {
		i, ok := index[ev.Alert.ID]
		if !ok {
			index[ev.Alert.ID] = len(out)
			out = append(out, ev)
			continue
		}
		if out[i].Kind == AlertCreated {
			ev.Kind = AlertCreated
		}
		out[i] = ev
	}
	return out
}

// loadInput reads the production window, and for zoned extrusion machines the zone and its peers
func (s *AnalysisService) loadInput(tx *gorm.DB, m database.Machine, now time.Time) (engine.Input, error) {
	cfg := s.engine.Config()
	start := engine.WindowStart(now, cfg.ProductionWindowDays)
	in := engine.Input{Machine: m, Now: now}

	switch m.Section {
	case database.SectionExtrusion:
		if !m.InZoneCorrelation() {
			break
		}
		if err := tx.Where("zone_id = ? AND production_date >= ?", *m.ZoneID, start).
			Order("production_date DESC").Order("id DESC").
			Find(&in.Production.Extrusion).Error; err != nil {
			return in, fmt.Errorf("failed to load extrusion production: %w", err)
		}

		var zone database.Zone
		if err := tx.First(&zone, *m.ZoneID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("Machine %s references missing zone %d, skipping zone correlation", m.Number, *m.ZoneID)
				break
			}
			return in, fmt.Errorf("failed to load zone: %w", err)
		}
		var peers []database.Machine
		if err := tx.Where("zone_id = ? AND state = ? AND id <> ?", zone.ID, database.MachineStateActive, m.ID).
			Find(&peers).Error; err != nil {
			return in, fmt.Errorf("failed to load zone peers: %w", err)
		}
		in.Zone = &engine.ZoneContext{Zone: zone, Peers: peers}
	case database.SectionPrinting:
		if err := tx.Where("production_date >= ?", start).Find(&in.Production.Printing).Error; err != nil {
			return in, fmt.Errorf("failed to load printing production: %w", err)
		}
	case database.SectionWelding:
		if err := tx.Where("production_date >= ?", start).Find(&in.Production.Welding).Error; err != nil {
			return in, fmt.Errorf("failed to load welding production: %w", err)
		}
	case database.SectionRecycling:
		if err := tx.Where("production_date >= ?", start).Find(&in.Production.Recycling).Error; err != nil {
			return in, fmt.Errorf("failed to load recycling production: %w", err)
		}
	}
	return in, nil
}

// AnalyzableMachineIDs returns the machines covered by the batch analysis
func (s *AnalysisService) AnalyzableMachineIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&database.Machine{}).
		Where("state IN ?", database.AnalyzableStates()).
		Order("id").Pluck("id", &ids).Error
	return ids, err
}

// AnalyzeAll analyzes every active or in-maintenance machine sequentially.
// Failures are logged and counted; the run continues with the next machine.
func (s *AnalysisService) AnalyzeAll(ctx context.Context) ([]*engine.Result, int, error) {
	ids, err := s.AnalyzableMachineIDs(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list machines: %w", err)
	}

	results := make([]*engine.Result, 0, len(ids))
	failed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, failed, err
		}
		res, err := s.AnalyzeMachine(ctx, id)
		if err != nil {
			log.Printf("Failed to analyze machine %d: %v", id, err)
			failed++
			continue
		}
		results = append(results, res)
	}
	return results, failed, nil
}
