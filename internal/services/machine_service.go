package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
)

// Rolling windows of the failure counters
const (
	failureWindow6Months = 182 * 24 * time.Hour
	failureWindow30Days  = 30 * 24 * time.Hour
)

// FailureReport describes a breakdown to record
type FailureReport struct {
	Description   string
	DowntimeHours float64
	Cost          *float64
	Technician    string
	PartsReplaced string
}

// MaintenanceReport describes a completed maintenance
type MaintenanceReport struct {
	Description   string
	DowntimeHours *float64
	Technician    string
	PartsReplaced string
}

// Measurement is a telemetry reading; nil fields are left unchanged
type Measurement struct {
	Temperature *float64
	PowerKWh    *float64
}

// MachineService writes the machine event log and keeps the machine summary
// fields in step with it
type MachineService struct {
	db       *gorm.DB
	analysis *AnalysisService
	now      func() time.Time
}

// NewMachineService creates a new machine service. Recording operations
// re-analyze the machine through analysis.
func NewMachineService(db *gorm.DB, analysis *AnalysisService) *MachineService {
	return &MachineService{db: db, analysis: analysis, now: time.Now}
}

// SetClock overrides the time source
func (s *MachineService) SetClock(now func() time.Time) {
	s.now = now
}

// GetMachine returns a machine by ID
func (s *MachineService) GetMachine(id uint) (*database.Machine, error) {
	var m database.Machine
	if err := s.db.Preload("Zone").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrMachineNotFound, id)
		}
		return nil, err
	}
	return &m, nil
}

// FindMachine returns a machine by number and section
func (s *MachineService) FindMachine(number string, section database.Section) (*database.Machine, error) {
	var m database.Machine
	if err := s.db.Where("number = ? AND section = ?", number, section).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrMachineNotFound, section, number)
		}
		return nil, err
	}
	return &m, nil
}

// Events returns the event log of a machine, newest first
func (s *MachineService) Events(machineID uint, limit int) ([]database.MachineEvent, error) {
	q := s.db.Where("machine_id = ?", machineID).Order("occurred_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var events []database.MachineEvent
	return events, q.Find(&events).Error
}

// RecordFailure logs a breakdown, puts the machine in failure state,
// recomputes the failure counters from the log and re-analyzes the machine
func (s *MachineService) RecordFailure(ctx context.Context, machineID uint, report FailureReport) (*engine.Result, error) {
	unlock := s.analysis.lock(machineID)
	defer unlock()

	now := s.now().UTC()
	err := s.withMachine(ctx, machineID, func(tx *gorm.DB, m *database.Machine) error {
		downtime := report.DowntimeHours
		event := snapshotEvent(m, database.EventTypeFailure, now)
		event.Description = report.Description
		event.DowntimeHours = &downtime
		event.Cost = report.Cost
		event.Technician = report.Technician
		event.PartsReplaced = report.PartsReplaced
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to record failure event: %w", err)
		}

		if err := tx.Model(m).Update("state", database.MachineStateFailure).Error; err != nil {
			return fmt.Errorf("failed to update machine state: %w", err)
		}
		return recomputeFailureCounters(tx, m.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return s.analysis.analyzeLocked(ctx, machineID)
}

// RecordMaintenance logs a maintenance, restarts the maintenance interval,
// puts the machine back in service and re-analyzes it
func (s *MachineService) RecordMaintenance(ctx context.Context, machineID uint, report MaintenanceReport) (*engine.Result, error) {
	unlock := s.analysis.lock(machineID)
	defer unlock()

	now := s.now().UTC()
	err := s.withMachine(ctx, machineID, func(tx *gorm.DB, m *database.Machine) error {
		event := snapshotEvent(m, database.EventTypeMaintenance, now)
		event.Description = report.Description
		event.DowntimeHours = report.DowntimeHours
		event.Technician = report.Technician
		event.PartsReplaced = report.PartsReplaced
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to record maintenance event: %w", err)
		}

		today := startOfDay(now)
		next := today.AddDate(0, 0, m.MaintenanceIntervalDays)
		return tx.Model(m).Updates(map[string]interface{}{
			"last_maintenance_at":     today,
			"next_maintenance_at":     next,
			"hours_since_maintenance": 0,
			"state":                   database.MachineStateActive,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.analysis.analyzeLocked(ctx, machineID)
}

// RecordMeasurement stores a telemetry reading on the machine, logs it and re-analyzes the machine
func (s *MachineService) RecordMeasurement(ctx context.Context, machineID uint, reading Measurement) (*engine.Result, error) {
	unlock := s.analysis.lock(machineID)
	defer unlock()

	now := s.now().UTC()
	err := s.withMachine(ctx, machineID, func(tx *gorm.DB, m *database.Machine) error {
		updates := map[string]interface{}{}
		if reading.Temperature != nil {
			m.CurrentTemperature = reading.Temperature
			updates["current_temperature"] = *reading.Temperature
		}
		if reading.PowerKWh != nil {
			m.CurrentPowerKWh = *reading.PowerKWh
			updates["current_power_kwh"] = *reading.PowerKWh
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(m).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to store measurement: %w", err)
		}
		event := snapshotEvent(m, database.EventTypeMeasurement, now)
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return s.analysis.analyzeLocked(ctx, machineID)
}

// AddOperatingHours adds run time to the lifetime and since-maintenance totals
func (s *MachineService) AddOperatingHours(ctx context.Context, machineID uint, hours float64) (*database.Machine, error) {
	if hours < 0 {
		return nil, fmt.Errorf("operating hours must not be negative: %v", hours)
	}
	unlock := s.analysis.lock(machineID)
	defer unlock()

	var out database.Machine
	err := s.withMachine(ctx, machineID, func(tx *gorm.DB, m *database.Machine) error {
		if err := tx.Model(m).Updates(map[string]interface{}{
			"total_operating_hours":   gorm.Expr("total_operating_hours + ?", hours),
			"hours_since_maintenance": gorm.Expr("hours_since_maintenance + ?", hours),
		}).Error; err != nil {
			return fmt.Errorf("failed to add operating hours: %w", err)
		}
		return tx.First(&out, m.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecomputeFailureCounters rebuilds the failure counters of a machine from its event log
func (s *MachineService) RecomputeFailureCounters(ctx context.Context, machineID uint) error {
	unlock := s.analysis.lock(machineID)
	defer unlock()

	now := s.now().UTC()
	return s.withMachine(ctx, machineID, func(tx *gorm.DB, m *database.Machine) error {
		return recomputeFailureCounters(tx, m.ID, now)
	})
}

// MachinesWithFailureEvents returns the IDs of machines with at least one failure in the log
func (s *MachineService) MachinesWithFailureEvents(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&database.MachineEvent{}).
		Where("type = ?", database.EventTypeFailure).
		Distinct("machine_id").Order("machine_id").
		Pluck("machine_id", &ids).Error
	return ids, err
}

// withMachine loads the machine and runs fn in one transaction
func (s *MachineService) withMachine(ctx context.Context, machineID uint, fn func(tx *gorm.DB, m *database.Machine) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m database.Machine
		if err := tx.First(&m, machineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrMachineNotFound, machineID)
			}
			return err
		}
		return fn(tx, &m)
	})
}

// recomputeFailureCounters derives the lifetime, 6-month and 30-day failure
// counts and the last failure time from the event log
func recomputeFailureCounters(tx *gorm.DB, machineID uint, now time.Time) error {
	failures := func() *gorm.DB {
		return tx.Model(&database.MachineEvent{}).
			Where("machine_id = ? AND type = ?", machineID, database.EventTypeFailure)
	}

	var total, last6Months, last30Days int64
	if err := failures().Count(&total).Error; err != nil {
		return fmt.Errorf("failed to count failures: %w", err)
	}
	if err := failures().Where("occurred_at >= ?", now.Add(-failureWindow6Months)).Count(&last6Months).Error; err != nil {
		return fmt.Errorf("failed to count failures: %w", err)
	}
	if err := failures().Where("occurred_at >= ?", now.Add(-failureWindow30Days)).Count(&last30Days).Error; err != nil {
		return fmt.Errorf("failed to count failures: %w", err)
	}

	var lastFailure *time.Time
	var latest database.MachineEvent
	err := failures().Order("occurred_at DESC").Order("id DESC").First(&latest).Error
	switch {
	case err == nil:
		at := latest.OccurredAt.UTC()
		lastFailure = &at
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("failed to load last failure: %w", err)
	}

	return tx.Model(&database.Machine{ID: machineID}).Updates(map[string]interface{}{
		"failures_total":         total,
		"failures_last_6_months": last6Months,
		"failures_last_30_days":  last30Days,
		"last_failure_at":        lastFailure,
	}).Error
}

// snapshotEvent starts an event carrying the machine's current readings
func snapshotEvent(m *database.Machine, kind database.EventType, at time.Time) database.MachineEvent {
	power := m.CurrentPowerKWh
	hours := m.TotalOperatingHours
	event := database.MachineEvent{
		MachineID:      m.ID,
		Type:           kind,
		OccurredAt:     at,
		PowerKWh:       &power,
		OperatingHours: &hours,
	}
	if m.CurrentTemperature != nil {
		temp := *m.CurrentTemperature
		event.Temperature = &temp
	}
	return event
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
