package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AlertLevel is the severity of an AI alert
type AlertLevel string

const (
	AlertLevelInfo      AlertLevel = "info"
	AlertLevelAttention AlertLevel = "attention"
	AlertLevelUrgent    AlertLevel = "urgent"
	AlertLevelCritical  AlertLevel = "critique"
)

// ValidAlertLevels returns every severity, lowest first
func ValidAlertLevels() []AlertLevel {
	return []AlertLevel{AlertLevelInfo, AlertLevelAttention, AlertLevelUrgent, AlertLevelCritical}
}

// AlertStatus represents the lifecycle state of an AI alert
type AlertStatus string

const (
	AlertStatusNew        AlertStatus = "nouvelle"
	AlertStatusSeen       AlertStatus = "vue"
	AlertStatusInProgress AlertStatus = "en_traitement"
	AlertStatusResolved   AlertStatus = "resolue"
	AlertStatusIgnored    AlertStatus = "ignoree"
)

// OpenAlertStatuses are the statuses of alerts still awaiting an operator
func OpenAlertStatuses() []AlertStatus {
	return []AlertStatus{AlertStatusNew, AlertStatusSeen, AlertStatusInProgress}
}

// IsOpen reports whether the status belongs to the open group
func (s AlertStatus) IsOpen() bool {
	switch s {
	case AlertStatusNew, AlertStatusSeen, AlertStatusInProgress:
		return true
	}
	return false
}

// AIAlert is a finding raised by the analysis pass about one machine.
// OpenKey is set while the alert is open and cleared once it is closed, so the
// unique index holds at most one open alert per machine and level.
type AIAlert struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	UUID               string      `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	MachineID          uint        `gorm:"not null;index" json:"machine_id"`
	Level              AlertLevel  `gorm:"type:varchar(20);not null;index" json:"level"`
	Status             AlertStatus `gorm:"type:varchar(20);not null;default:'nouvelle';index" json:"status"`
	OpenKey            *string     `gorm:"uniqueIndex;size:64" json:"-"`
	Title              string      `gorm:"size:200;not null" json:"title"`
	Message            string      `gorm:"type:text" json:"message"`
	FailureProbability float64     `gorm:"type:decimal(5,2)" json:"failure_probability"`
	HorizonDays        int         `json:"horizon_days"`
	Confidence         float64     `gorm:"type:decimal(5,2)" json:"confidence"`
	RecommendedAction  string      `gorm:"type:text" json:"recommended_action"`
	Priority           int         `gorm:"index" json:"priority"`
	ModelVersion       string      `gorm:"size:20" json:"model_version"`
	AnalysisData       JSONB       `gorm:"type:jsonb" json:"analysis_data"`
	HandledBy          string      `gorm:"size:100" json:"handled_by,omitempty"`
	HandledAt          *time.Time  `json:"handled_at,omitempty"`
	ResolutionComment  string      `gorm:"type:text" json:"resolution_comment,omitempty"`
	CreatedAt          time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`

	Machine Machine `gorm:"foreignKey:MachineID" json:"-"`
}

func (AIAlert) TableName() string {
	return "ai_alerts"
}

// AlertOpenKey builds the uniqueness key held by an open alert
func AlertOpenKey(machineID uint, level AlertLevel) string {
	return fmt.Sprintf("%d:%s", machineID, level)
}

// BeforeSave keeps OpenKey in step with the status
func (a *AIAlert) BeforeSave(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = AlertStatusNew
	}
	if a.Status.IsOpen() {
		key := AlertOpenKey(a.MachineID, a.Level)
		a.OpenKey = &key
	} else {
		a.OpenKey = nil
	}
	return nil
}

// IsOpen reports whether the alert still awaits an operator
func (a *AIAlert) IsOpen() bool {
	return a.Status.IsOpen()
}
