package engine

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sofemci/predictive/internal/database"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := testNow.AddDate(0, 0, -n)
	return &t
}

func ptr(f float64) *float64 { return &f }

func uintPtr(u uint) *uint { return &u }

// healthyMachine scores 100 on every factor
func healthyMachine() database.Machine {
	return database.Machine{
		ID:                      1,
		Number:                  "EX-01",
		Type:                    database.MachineTypeExtruder,
		Section:                 database.SectionExtrusion,
		State:                   database.MachineStateActive,
		InstalledAt:             daysAgo(200),
		LastMaintenanceAt:       daysAgo(10),
		MaintenanceIntervalDays: 90,
		TotalOperatingHours:     1000,
		HoursSinceMaintenance:   50,
		CurrentTemperature:      ptr(70),
		NominalTemperature:      70,
		MaxTemperature:          100,
		CurrentPowerKWh:         50,
		NominalPowerKWh:         50,
	}
}

func extrusionRecord(id uint, day int, raw, output, waste float64, machines int) database.ProductionExtrusion {
	p := database.ProductionExtrusion{
		ID:             id,
		ProductionDate: WindowStart(testNow, day),
		ZoneID:         1,
		RawMaterialKg:  raw,
		ActiveMachines: machines,
		FinishedKg:     output,
		WasteKg:        waste,
	}
	_ = p.BeforeSave(nil)
	return p
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func containsPrefix(items []string, prefix string) bool {
	for _, s := range items {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
