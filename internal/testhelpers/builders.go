// Package testhelpers provides data builders for testing
package testhelpers

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
)

// ========================================
// Machine Builder
// ========================================

// MachineBuilder builds Machine instances for testing. The defaults describe
// a healthy active extruder: installed 200 days ago, maintained 10 days ago,
// nominal telemetry and no failures.
type MachineBuilder struct {
	machine database.Machine
	now     time.Time
}

// NewMachineBuilder creates a new machine builder with defaults relative to now
func NewMachineBuilder(now time.Time) *MachineBuilder {
	now = now.UTC()
	installed := now.AddDate(0, 0, -200)
	maintained := now.AddDate(0, 0, -10)
	temp := 70.0
	return &MachineBuilder{
		now: now,
		machine: database.Machine{
			Number:                  "EXT-01",
			Type:                    database.MachineTypeExtruder,
			Section:                 database.SectionExtrusion,
			State:                   database.MachineStateActive,
			InstalledAt:             &installed,
			LastMaintenanceAt:       &maintained,
			MaintenanceIntervalDays: 90,
			TotalOperatingHours:     200 * 6,
			HoursSinceMaintenance:   80,
			CurrentTemperature:      &temp,
			NominalTemperature:      70,
			MaxTemperature:          100,
			CurrentPowerKWh:         50,
			NominalPowerKWh:         50,
			HealthScore:             100,
		},
	}
}

// WithID sets the machine ID
func (b *MachineBuilder) WithID(id uint) *MachineBuilder {
	b.machine.ID = id
	return b
}

// WithNumber sets the machine number
func (b *MachineBuilder) WithNumber(number string) *MachineBuilder {
	b.machine.Number = number
	return b
}

// InSection sets the section and the matching machine type
func (b *MachineBuilder) InSection(section database.Section) *MachineBuilder {
	b.machine.Section = section
	switch section {
	case database.SectionPrinting:
		b.machine.Type = database.MachineTypePrinter
	case database.SectionWelding:
		b.machine.Type = database.MachineTypeWelder
	case database.SectionRecycling:
		b.machine.Type = database.MachineTypeGrinder
	default:
		b.machine.Type = database.MachineTypeExtruder
	}
	return b
}

// InZone attaches the machine to a zone
func (b *MachineBuilder) InZone(zoneID uint) *MachineBuilder {
	b.machine.ZoneID = &zoneID
	return b
}

// WithState sets the operating state
func (b *MachineBuilder) WithState(state database.MachineState) *MachineBuilder {
	b.machine.State = state
	return b
}

// InstalledDaysAgo sets the install date
func (b *MachineBuilder) InstalledDaysAgo(days int) *MachineBuilder {
	at := b.now.AddDate(0, 0, -days)
	b.machine.InstalledAt = &at
	return b
}

// MaintainedDaysAgo sets the last maintenance date
func (b *MachineBuilder) MaintainedDaysAgo(days int) *MachineBuilder {
	at := b.now.AddDate(0, 0, -days)
	b.machine.LastMaintenanceAt = &at
	return b
}

// NeverMaintained clears the last maintenance date
func (b *MachineBuilder) NeverMaintained() *MachineBuilder {
	b.machine.LastMaintenanceAt = nil
	return b
}

// WithMaintenanceInterval sets the maintenance interval in days
func (b *MachineBuilder) WithMaintenanceInterval(days int) *MachineBuilder {
	b.machine.MaintenanceIntervalDays = days
	return b
}

// WithHours sets the lifetime and since-maintenance operating hours
func (b *MachineBuilder) WithHours(total, sinceMaintenance float64) *MachineBuilder {
	b.machine.TotalOperatingHours = total
	b.machine.HoursSinceMaintenance = sinceMaintenance
	return b
}

// WithTemperature sets current, nominal and max temperature
func (b *MachineBuilder) WithTemperature(current, nominal, max float64) *MachineBuilder {
	b.machine.CurrentTemperature = &current
	b.machine.NominalTemperature = nominal
	b.machine.MaxTemperature = max
	return b
}

// WithoutTemperatureReading clears the current temperature
func (b *MachineBuilder) WithoutTemperatureReading() *MachineBuilder {
	b.machine.CurrentTemperature = nil
	return b
}

// WithPower sets current and nominal power draw
func (b *MachineBuilder) WithPower(current, nominal float64) *MachineBuilder {
	b.machine.CurrentPowerKWh = current
	b.machine.NominalPowerKWh = nominal
	return b
}

// WithFailures sets the failure counters
func (b *MachineBuilder) WithFailures(total, last6Months, last30Days int) *MachineBuilder {
	b.machine.FailuresTotal = total
	b.machine.FailuresLast6Months = last6Months
	b.machine.FailuresLast30Days = last30Days
	return b
}

// FailedDaysAgo sets the last failure time
func (b *MachineBuilder) FailedDaysAgo(days int) *MachineBuilder {
	at := b.now.AddDate(0, 0, -days)
	b.machine.LastFailureAt = &at
	return b
}

// WithProbability sets the stored 7-day probability, as left by a previous pass
func (b *MachineBuilder) WithProbability(p7 float64) *MachineBuilder {
	b.machine.FailureProbability7d = p7
	return b
}

// Build returns the constructed machine
func (b *MachineBuilder) Build() database.Machine {
	return b.machine
}

// Create inserts the machine and returns it
func (b *MachineBuilder) Create(t *testing.T, db *gorm.DB) database.Machine {
	t.Helper()
	m := b.machine
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("failed to create machine %s: %v", m.Number, err)
	}
	return m
}

// ========================================
// Zone Builder
// ========================================

// ZoneBuilder builds Zone instances for testing
type ZoneBuilder struct {
	zone database.Zone
}

// NewZoneBuilder creates a new zone builder with defaults
func NewZoneBuilder() *ZoneBuilder {
	return &ZoneBuilder{
		zone: database.Zone{
			Number:      1,
			Name:        "Zone 1",
			MaxMachines: 4,
			Active:      true,
		},
	}
}

// WithNumber sets the zone number and a matching name
func (b *ZoneBuilder) WithNumber(number int, name string) *ZoneBuilder {
	b.zone.Number = number
	b.zone.Name = name
	return b
}

// WithCapacity sets the maximum machine count
func (b *ZoneBuilder) WithCapacity(max int) *ZoneBuilder {
	b.zone.MaxMachines = max
	return b
}

// Inactive marks the zone inactive
func (b *ZoneBuilder) Inactive() *ZoneBuilder {
	b.zone.Active = false
	return b
}

// Build returns the constructed zone
func (b *ZoneBuilder) Build() database.Zone {
	return b.zone
}

// Create inserts the zone and returns it
func (b *ZoneBuilder) Create(t *testing.T, db *gorm.DB) database.Zone {
	t.Helper()
	z := b.zone
	if err := db.Create(&z).Error; err != nil {
		t.Fatalf("failed to create zone %s: %v", z.Name, err)
	}
	return z
}

// ========================================
// Production Builders
// ========================================

// Day returns midnight UTC of the day n days before now
func Day(now time.Time, daysAgo int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
}

// ExtrusionBuilder builds ProductionExtrusion records for testing
type ExtrusionBuilder struct {
	record database.ProductionExtrusion
}

// NewExtrusionBuilder creates a shift report for the zone with a 90% yield and 2% waste
func NewExtrusionBuilder(zoneID uint, date time.Time) *ExtrusionBuilder {
	return &ExtrusionBuilder{
		record: database.ProductionExtrusion{
			ZoneID:         zoneID,
			ProductionDate: date,
			Shift:          "A",
			StartTime:      "06:00",
			EndTime:        "14:00",
			RawMaterialKg:  1000,
			ActiveMachines: 4,
			Operators:      3,
			FinishedKg:     800,
			SemiFinishedKg: 100,
			WasteKg:        18,
		},
	}
}

// WithRawMaterial sets the raw material consumed
func (b *ExtrusionBuilder) WithRawMaterial(kg float64) *ExtrusionBuilder {
	b.record.RawMaterialKg = kg
	return b
}

// WithOutput sets finished and semi-finished output
func (b *ExtrusionBuilder) WithOutput(finished, semiFinished float64) *ExtrusionBuilder {
	b.record.FinishedKg = finished
	b.record.SemiFinishedKg = semiFinished
	return b
}

// WithWaste sets the waste
func (b *ExtrusionBuilder) WithWaste(kg float64) *ExtrusionBuilder {
	b.record.WasteKg = kg
	return b
}

// WithMachines sets the active machine count
func (b *ExtrusionBuilder) WithMachines(n int) *ExtrusionBuilder {
	b.record.ActiveMachines = n
	return b
}

// Build returns the constructed record
func (b *ExtrusionBuilder) Build() database.ProductionExtrusion {
	return b.record
}

// Create inserts the record and returns it with its derived fields
func (b *ExtrusionBuilder) Create(t *testing.T, db *gorm.DB) database.ProductionExtrusion {
	t.Helper()
	r := b.record
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("failed to create extrusion record: %v", err)
	}
	return r
}

// CreatePrinting inserts a printing report
func CreatePrinting(t *testing.T, db *gorm.DB, date time.Time, finished, semiFinished, waste float64) database.ProductionPrinting {
	t.Helper()
	r := database.ProductionPrinting{
		ProductionDate: date,
		StartTime:      "06:00",
		EndTime:        "14:00",
		ActiveMachines: 2,
		FinishedKg:     finished,
		SemiFinishedKg: semiFinished,
		WasteKg:        waste,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("failed to create printing record: %v", err)
	}
	return r
}

// CreateWelding inserts a welding report; specific output goes to straps
func CreateWelding(t *testing.T, db *gorm.DB, date time.Time, finished, specific, waste float64) database.ProductionWelding {
	t.Helper()
	r := database.ProductionWelding{
		ProductionDate: date,
		StartTime:      "06:00",
		EndTime:        "14:00",
		ActiveMachines: 2,
		FinishedKg:     finished,
		StrapsKg:       specific,
		WasteKg:        waste,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("failed to create welding record: %v", err)
	}
	return r
}

// CreateRecycling inserts a recycling report
func CreateRecycling(t *testing.T, db *gorm.DB, date time.Time, mills int, grinding, blackTarp float64) database.ProductionRecycling {
	t.Helper()
	r := database.ProductionRecycling{
		ProductionDate: date,
		Shift:          "A",
		Mills:          mills,
		GrindingKg:     grinding,
		BlackTarpKg:    blackTarp,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("failed to create recycling record: %v", err)
	}
	return r
}

// ========================================
// Event Builder
// ========================================

// CreateFailureEvent appends a failure to the machine's event log
func CreateFailureEvent(t *testing.T, db *gorm.DB, machineID uint, at time.Time) database.MachineEvent {
	t.Helper()
	e := database.MachineEvent{
		MachineID:   machineID,
		Type:        database.EventTypeFailure,
		OccurredAt:  at.UTC(),
		Description: "test failure",
	}
	if err := db.Create(&e).Error; err != nil {
		t.Fatalf("failed to create failure event: %v", err)
	}
	return e
}
