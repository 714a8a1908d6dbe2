package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(raw, j)
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Section identifies a production section of the factory
type Section string

const (
	SectionExtrusion Section = "extrusion"
	SectionPrinting  Section = "imprimerie"
	SectionWelding   Section = "soudure"
	SectionRecycling Section = "recyclage"
)

// ValidSections returns every known section
func ValidSections() []Section {
	return []Section{SectionExtrusion, SectionPrinting, SectionWelding, SectionRecycling}
}

// MachineType is the kind of equipment
type MachineType string

const (
	MachineTypeExtruder MachineType = "extrudeuse"
	MachineTypeCooler   MachineType = "refroidisseur"
	MachineTypeWinder   MachineType = "enrouleur"
	MachineTypePrinter  MachineType = "imprimante"
	MachineTypeWelder   MachineType = "soudeuse"
	MachineTypeGrinder  MachineType = "moulinex"
)

// MachineState represents the operating state of a machine
type MachineState string

const (
	MachineStateActive      MachineState = "actif"
	MachineStateMaintenance MachineState = "maintenance"
	MachineStateStopped     MachineState = "arret"
	MachineStateFailure     MachineState = "panne"
)

// AnalyzableStates are the states covered by the batch analysis
func AnalyzableStates() []MachineState {
	return []MachineState{MachineStateActive, MachineStateMaintenance}
}

// Zone is a named group of extrusion machines
type Zone struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Number      int       `gorm:"uniqueIndex;not null" json:"number"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	MaxMachines int       `json:"max_machines"`
	Active      bool      `gorm:"index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Zone) TableName() string {
	return "zones"
}

// Machine is a physical production unit with the telemetry the engine scores.
// Failure counters are a materialized view of the failure events in MachineEvent.
// Fields where zero is meaningful (interval, health) carry no gorm default,
// since gorm substitutes the default for a zero value on create.
type Machine struct {
	ID      uint         `gorm:"primaryKey" json:"id"`
	Number  string       `gorm:"size:10;not null;uniqueIndex:idx_machine_number_section" json:"number"`
	Type    MachineType  `gorm:"type:varchar(20)" json:"type"`
	Section Section      `gorm:"type:varchar(20);not null;index;uniqueIndex:idx_machine_number_section" json:"section"`
	ZoneID  *uint        `gorm:"index" json:"zone_id,omitempty"`
	Zone    *Zone        `gorm:"foreignKey:ZoneID" json:"zone,omitempty"`
	State   MachineState `gorm:"type:varchar(15);not null;default:'actif';index" json:"state"`

	// Lifecycle
	InstalledAt             *time.Time `json:"installed_at,omitempty"`
	LastMaintenanceAt       *time.Time `json:"last_maintenance_at,omitempty"`
	NextMaintenanceAt       *time.Time `json:"next_maintenance_at,omitempty"`
	MaintenanceIntervalDays int        `json:"maintenance_interval_days"`
	TotalOperatingHours     float64    `gorm:"type:decimal(10,2);default:0" json:"total_operating_hours"`
	HoursSinceMaintenance   float64    `gorm:"type:decimal(10,2);default:0" json:"hours_since_maintenance"`

	// Telemetry
	CurrentTemperature *float64 `gorm:"type:decimal(5,2)" json:"current_temperature,omitempty"`
	NominalTemperature float64  `gorm:"type:decimal(5,2);default:0" json:"nominal_temperature"`
	MaxTemperature     float64  `gorm:"type:decimal(5,2);default:0" json:"max_temperature"`
	CurrentPowerKWh    float64  `gorm:"column:current_power_kwh;type:decimal(10,2);default:0" json:"current_power_kwh"`
	NominalPowerKWh    float64  `gorm:"column:nominal_power_kwh;type:decimal(10,2);default:0" json:"nominal_power_kwh"`

	// Failure history
	FailuresTotal       int        `gorm:"default:0" json:"failures_total"`
	FailuresLast6Months int        `gorm:"column:failures_last_6_months;default:0" json:"failures_last_6_months"`
	FailuresLast30Days  int        `gorm:"column:failures_last_30_days;default:0" json:"failures_last_30_days"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`

	// Derived state, written by the analysis pass only
	HealthScore           float64    `gorm:"type:decimal(5,2)" json:"health_score"`
	FailureProbability7d  float64    `gorm:"column:failure_probability_7d;type:decimal(5,2);default:0;index" json:"failure_probability_7d"`
	FailureProbability30d float64    `gorm:"column:failure_probability_30d;type:decimal(5,2);default:0" json:"failure_probability_30d"`
	AnomalyDetected       bool       `gorm:"default:false" json:"anomaly_detected"`
	AnomalyDescription    string     `gorm:"size:255" json:"anomaly_description"`
	LastAnalysisAt        *time.Time `json:"last_analysis_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Machine) TableName() string {
	return "machines"
}

// startOfDay truncates t to midnight UTC
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from `from` to `to`
func daysBetween(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)).Hours() / 24)
}

// AgeDays returns the days since installation, or 0 when unknown
func (m *Machine) AgeDays(now time.Time) int {
	if m.InstalledAt == nil {
		return 0
	}
	return daysBetween(*m.InstalledAt, now)
}

// DaysSinceMaintenance falls back to the machine age when it was never maintained
func (m *Machine) DaysSinceMaintenance(now time.Time) int {
	if m.LastMaintenanceAt != nil {
		return daysBetween(*m.LastMaintenanceAt, now)
	}
	return m.AgeDays(now)
}

// MaintenanceOverdue is true once the configured interval has elapsed.
// Machines without a positive interval have no schedule to be late on.
func (m *Machine) MaintenanceOverdue(now time.Time) bool {
	if m.MaintenanceIntervalDays <= 0 {
		return false
	}
	return m.DaysSinceMaintenance(now) >= m.MaintenanceIntervalDays
}

// DaysOverdue returns how far past the interval the machine is (may be negative)
func (m *Machine) DaysOverdue(now time.Time) int {
	return m.DaysSinceMaintenance(now) - m.MaintenanceIntervalDays
}

// UtilizationRate returns run-hours as a percentage of hours since install
func (m *Machine) UtilizationRate(now time.Time) float64 {
	age := m.AgeDays(now)
	if age <= 0 {
		return 0
	}
	return m.TotalOperatingHours / float64(age*24) * 100
}

// PowerVariation returns the signed deviation of current vs nominal draw in percent
func (m *Machine) PowerVariation() float64 {
	if m.NominalPowerKWh <= 0 {
		return 0
	}
	return (m.CurrentPowerKWh - m.NominalPowerKWh) / m.NominalPowerKWh * 100
}

// IsOverheating is true when the current temperature reaches 90% of the allowed max
func (m *Machine) IsOverheating() bool {
	if m.CurrentTemperature == nil || *m.CurrentTemperature == 0 || m.MaxTemperature == 0 {
		return false
	}
	return *m.CurrentTemperature >= m.MaxTemperature*0.9
}

// IsOverconsuming is true when power draw exceeds nominal by more than 20%
func (m *Machine) IsOverconsuming() bool {
	return m.PowerVariation() > 20
}

// InZoneCorrelation reports whether the machine takes part in zone-level analysis
func (m *Machine) InZoneCorrelation() bool {
	return m.Section == SectionExtrusion && m.ZoneID != nil
}

// EventType classifies entries of the machine event log
type EventType string

const (
	EventTypeMaintenance EventType = "maintenance"
	EventTypeFailure     EventType = "panne"
	EventTypeRepair      EventType = "reparation"
	EventTypeMeasurement EventType = "mesure"
	EventTypeAlert       EventType = "alerte"
)

// MachineEvent is an append-only log entry for a machine
type MachineEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	MachineID      uint      `gorm:"not null;index:idx_event_machine_type_date" json:"machine_id"`
	Type           EventType `gorm:"type:varchar(20);not null;index:idx_event_machine_type_date" json:"type"`
	OccurredAt     time.Time `gorm:"not null;index:idx_event_machine_type_date" json:"occurred_at"`
	Temperature    *float64  `gorm:"type:decimal(5,2)" json:"temperature,omitempty"`
	PowerKWh       *float64  `gorm:"column:power_kwh;type:decimal(10,2)" json:"power_kwh,omitempty"`
	OperatingHours *float64  `gorm:"type:decimal(10,2)" json:"operating_hours,omitempty"`
	Description    string    `gorm:"type:text" json:"description"`
	DowntimeHours  *float64  `gorm:"type:decimal(6,2)" json:"downtime_hours,omitempty"`
	Cost           *float64  `gorm:"type:decimal(12,2)" json:"cost,omitempty"`
	Technician     string    `gorm:"size:100" json:"technician"`
	PartsReplaced  string    `gorm:"type:text" json:"parts_replaced"`
	CreatedAt      time.Time `json:"created_at"`

	Machine Machine `gorm:"foreignKey:MachineID" json:"-"`
}

func (MachineEvent) TableName() string {
	return "machine_events"
}
