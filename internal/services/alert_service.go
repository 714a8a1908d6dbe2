package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
)

// AlertService manages AI alerts: upserts from the analysis pass and the
// operator lifecycle (seen, take, resolve, ignore)
type AlertService struct {
	db       *gorm.DB
	notifier AlertNotifier
	now      func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db, notifier: noopNotifier{}, now: time.Now}
}

// SetNotifier sets the receiver of lifecycle changes
func (s *AlertService) SetNotifier(n AlertNotifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

// SetClock overrides the time source
func (s *AlertService) SetClock(now func() time.Time) {
	s.now = now
}

// AlertFilter narrows ListAlerts; zero fields match everything
type AlertFilter struct {
	MachineID uint
	Level     database.AlertLevel
	Status    database.AlertStatus
	OpenOnly  bool
	Limit     int
	Offset    int
}

// ActiveAlerts returns open alerts, highest priority first, newest first within a priority
func (s *AlertService) ActiveAlerts() ([]database.AIAlert, error) {
	return s.ListAlerts(AlertFilter{OpenOnly: true})
}

// ListAlerts returns alerts matching the filter
func (s *AlertService) ListAlerts(f AlertFilter) ([]database.AIAlert, error) {
	q := f.apply(s.db.Preload("Machine"))
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var alerts []database.AIAlert
	err := q.Order("priority DESC").Order("created_at DESC").Order("id DESC").Find(&alerts).Error
	return alerts, err
}

// CountAlerts counts alerts matching the filter, ignoring Limit and Offset
func (s *AlertService) CountAlerts(f AlertFilter) (int64, error) {
	var total int64
	err := f.apply(s.db.Model(&database.AIAlert{})).Count(&total).Error
	return total, err
}

func (f AlertFilter) apply(q *gorm.DB) *gorm.DB {
	if f.MachineID != 0 {
		q = q.Where("machine_id = ?", f.MachineID)
	}
	if f.Level != "" {
		q = q.Where("level = ?", f.Level)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OpenOnly {
		q = q.Where("status IN ?", database.OpenAlertStatuses())
	}
	return q
}

// GetAlert returns an alert by ID
func (s *AlertService) GetAlert(id uint) (*database.AIAlert, error) {
	var alert database.AIAlert
	if err := s.db.Preload("Machine").First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrAlertNotFound, id)
		}
		return nil, err
	}
	return &alert, nil
}

// GetAlertByUUID returns an alert by UUID
func (s *AlertService) GetAlertByUUID(id string) (*database.AIAlert, error) {
	var alert database.AIAlert
	if err := s.db.Preload("Machine").Where("uuid = ?", id).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
		}
		return nil, err
	}
	return &alert, nil
}

// MarkSeen moves a new alert to seen. Seen and in-progress alerts are left as they are.
func (s *AlertService) MarkSeen(ctx context.Context, id uint) (*database.AIAlert, error) {
	return s.transition(ctx, id, func(a *database.AIAlert, now time.Time) {
		if a.Status == database.AlertStatusNew {
			a.Status = database.AlertStatusSeen
		}
	})
}

// Take assigns the alert to an operator and moves it to in progress
func (s *AlertService) Take(ctx context.Context, id uint, user string) (*database.AIAlert, error) {
	return s.transition(ctx, id, func(a *database.AIAlert, now time.Time) {
		a.Status = database.AlertStatusInProgress
		a.HandledBy = user
		a.HandledAt = &now
	})
}

// Resolve closes the alert with an optional comment
func (s *AlertService) Resolve(ctx context.Context, id uint, user, comment string) (*database.AIAlert, error) {
	return s.transition(ctx, id, func(a *database.AIAlert, now time.Time) {
		a.Status = database.AlertStatusResolved
		if user != "" {
			a.HandledBy = user
		}
		a.HandledAt = &now
		a.ResolutionComment = comment
	})
}

// Ignore closes the alert without action
func (s *AlertService) Ignore(ctx context.Context, id uint, user string) (*database.AIAlert, error) {
	return s.transition(ctx, id, func(a *database.AIAlert, now time.Time) {
		a.Status = database.AlertStatusIgnored
		if user != "" {
			a.HandledBy = user
		}
		a.HandledAt = &now
	})
}

// transition applies change to an open alert and saves it. Closed alerts are final.
func (s *AlertService) transition(ctx context.Context, id uint, change func(*database.AIAlert, time.Time)) (*database.AIAlert, error) {
	var alert database.AIAlert
	before := database.AlertStatus("")
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Machine").First(&alert, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrAlertNotFound, id)
			}
			return err
		}
		if !alert.IsOpen() {
			return fmt.Errorf("%w: alert %d is %s", ErrInvalidTransition, id, alert.Status)
		}
		before = alert.Status
		change(&alert, s.now().UTC())
		return tx.Omit("Machine").Save(&alert).Error
	})
	if err != nil {
		return nil, err
	}

	if alert.Status != before {
		s.notifier.NotifyAlert(ctx, AlertEvent{Kind: AlertStatusChanged, MachineNumber: alert.Machine.Number, Alert: alert})
	}
	return &alert, nil
}

// upsertAlert writes the draft onto the open alert of the same machine and
// level, creating it when there is none. The unique open key makes a
// concurrent creation fail; the loser then updates the winner's row.
func upsertAlert(tx *gorm.DB, machineID uint, draft engine.AlertDraft, modelVersion string, now time.Time) (*database.AIAlert, bool, error) {
	key := database.AlertOpenKey(machineID, draft.Level)

	var existing database.AIAlert
	err := tx.Where("open_key = ?", key).First(&existing).Error
	if err == nil {
		applyDraft(&existing, draft, modelVersion, now)
		return &existing, false, tx.Save(&existing).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up open alert: %w", err)
	}

	alert := &database.AIAlert{
		UUID:      uuid.New().String(),
		MachineID: machineID,
		Level:     draft.Level,
		Status:    database.AlertStatusNew,
	}
	applyDraft(alert, draft, modelVersion, now)

	// savepoint so a unique violation leaves the outer transaction usable
	createErr := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(alert).Error
	})
	if createErr == nil {
		return alert, true, nil
	}

	if err := tx.Where("open_key = ?", key).First(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create alert: %w", createErr)
	}
	applyDraft(&existing, draft, modelVersion, now)
	return &existing, false, tx.Save(&existing).Error
}

func applyDraft(a *database.AIAlert, d engine.AlertDraft, modelVersion string, now time.Time) {
	a.Title = d.Title
	a.Message = d.Message
	a.FailureProbability = d.Probability
	a.HorizonDays = d.HorizonDays
	a.Confidence = d.Confidence
	a.RecommendedAction = d.RecommendedAction
	a.Priority = d.Priority
	a.ModelVersion = modelVersion
	if d.Payload != nil {
		a.AnalysisData = database.JSONB(d.Payload)
	} else if a.AnalysisData == nil {
		a.AnalysisData = database.JSONB{}
	}
	a.CreatedAt = now
}
