package database

import "time"

// AnalysisSettings controls the scheduled analysis batch
type AnalysisSettings struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Enabled           bool      `gorm:"default:true" json:"enabled"`
	IntervalMinutes   int       `gorm:"default:60" json:"interval_minutes"`
	Workers           int       `gorm:"default:4" json:"workers"`
	RecomputeCounters bool      `gorm:"default:true" json:"recompute_counters"`
	AtRiskThreshold   float64   `gorm:"type:decimal(5,2);default:40" json:"at_risk_threshold"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (AnalysisSettings) TableName() string {
	return "analysis_settings"
}

// NewDefaultAnalysisSettings returns settings with default values
func NewDefaultAnalysisSettings() *AnalysisSettings {
	return &AnalysisSettings{
		Enabled:           true,
		IntervalMinutes:   60,
		Workers:           4,
		RecomputeCounters: true,
		AtRiskThreshold:   40,
	}
}
