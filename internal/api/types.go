package api

import (
	"time"

	"github.com/sofemci/predictive/internal/database"
)

// ========== Alert Types ==========

// TakeAlertRequest is the request body for POST /api/alerts/{id}/take.
type TakeAlertRequest struct {
	User string `json:"user" validate:"required,max=100"`
}

// ResolveAlertRequest is the request body for POST /api/alerts/{id}/resolve.
type ResolveAlertRequest struct {
	User    string `json:"user" validate:"max=100"`
	Comment string `json:"comment" validate:"max=2000"`
}

// IgnoreAlertRequest is the request body for POST /api/alerts/{id}/ignore.
type IgnoreAlertRequest struct {
	User string `json:"user" validate:"max=100"`
}

// AlertListItem is a compact alert for list views, without the analysis payload.
type AlertListItem struct {
	ID                 uint                 `json:"id"`
	UUID               string               `json:"uuid"`
	MachineID          uint                 `json:"machine_id"`
	MachineNumber      string               `json:"machine_number"`
	Level              database.AlertLevel  `json:"level"`
	Status             database.AlertStatus `json:"status"`
	Title              string               `json:"title"`
	FailureProbability float64              `json:"failure_probability"`
	HorizonDays        int                  `json:"horizon_days"`
	Priority           int                  `json:"priority"`
	HandledBy          string               `json:"handled_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

// ========== Machine Event Types ==========

// RecordFailureRequest is the request body for POST /api/machines/{id}/failures.
type RecordFailureRequest struct {
	Description   string   `json:"description" validate:"required,max=2000"`
	DowntimeHours float64  `json:"downtime_hours" validate:"gte=0"`
	Cost          *float64 `json:"cost" validate:"omitempty,gte=0"`
	Technician    string   `json:"technician" validate:"max=100"`
	PartsReplaced string   `json:"parts_replaced" validate:"max=2000"`
}

// RecordMaintenanceRequest is the request body for POST /api/machines/{id}/maintenance.
type RecordMaintenanceRequest struct {
	Description   string   `json:"description" validate:"required,max=2000"`
	DowntimeHours *float64 `json:"downtime_hours" validate:"omitempty,gte=0"`
	Technician    string   `json:"technician" validate:"max=100"`
	PartsReplaced string   `json:"parts_replaced" validate:"max=2000"`
}

// RecordMeasurementRequest is the request body for POST /api/machines/{id}/measurements.
// At least one reading must be present.
type RecordMeasurementRequest struct {
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=-50,lte=1000"`
	PowerKWh    *float64 `json:"power_kwh" validate:"omitempty,gte=0"`
}

// AddHoursRequest is the request body for POST /api/machines/{id}/hours.
type AddHoursRequest struct {
	Hours float64 `json:"hours" validate:"gt=0,lte=10000"`
}
