package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/sofemci/predictive/internal/database"
)

// Factor names one input of the health score
type Factor string

const (
	FactorAge         Factor = "age"
	FactorHours       Factor = "hours"
	FactorFailures    Factor = "failures"
	FactorMaintenance Factor = "maintenance"
	FactorTemperature Factor = "temperature"
	FactorPower       Factor = "power"
	FactorUtilization Factor = "utilization"
	FactorProduction  Factor = "production"
	// FactorZone is reported in the breakdown but applied as a multiplier
	FactorZone Factor = "zone"
)

// WeightedFactors returns the factors blended into the health score, in evaluation order
func WeightedFactors() []Factor {
	return []Factor{
		FactorAge, FactorHours, FactorFailures, FactorMaintenance,
		FactorTemperature, FactorPower, FactorUtilization, FactorProduction,
	}
}

// FactorResult is the outcome of one analyzer
type FactorResult struct {
	Score     float64
	Risks     []string
	Anomalies []string
}

func neutral() FactorResult {
	return FactorResult{Score: 100}
}

func (r *FactorResult) risk(format string, args ...interface{}) {
	r.Risks = append(r.Risks, fmt.Sprintf(format, args...))
}

func (r *FactorResult) anomaly(format string, args ...interface{}) {
	r.Anomalies = append(r.Anomalies, fmt.Sprintf(format, args...))
}

// penalize subtracts from the score, never going below zero
func (r *FactorResult) penalize(points float64) {
	r.Score = math.Max(r.Score-points, 0)
}

// finite is false if any value is NaN or infinite; analyzers fed such values
// report a neutral score with no notes
func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AnalyzeAge scores the machine age in steps of 1, 3, 5 and 7 years
func AnalyzeAge(m *database.Machine, now time.Time) FactorResult {
	age := m.AgeDays(now)
	r := FactorResult{}
	switch {
	case age < 365:
		r.Score = 100
	case age < 1095:
		r.Score = 90
		r.risk("Machine older than 1 year")
	case age < 1825:
		r.Score = 80
		r.risk("Machine older than 3 years")
	case age < 2555:
		r.Score = 70
		r.risk("Machine older than 5 years")
	default:
		r.Score = 60
		r.risk("Aging machine (>7 years)")
	}
	return r
}

// AnalyzeOperatingHours compares hours since maintenance with the hour budget
// of one maintenance interval.
func AnalyzeOperatingHours(m *database.Machine, hoursPerDay float64) FactorResult {
	limit := float64(m.MaintenanceIntervalDays) * hoursPerDay
	hours := m.HoursSinceMaintenance
	if limit <= 0 || !finite(hours, limit) {
		return neutral()
	}

	r := FactorResult{}
	switch {
	case hours < limit*0.5:
		r.Score = 100
	case hours < limit*0.75:
		r.Score = 85
	case hours < limit:
		r.Score = 70
		r.risk("Maintenance due soon")
	case hours < limit*1.2:
		r.Score = 50
		r.risk("Maintenance overdue")
	default:
		r.Score = 30
		r.risk("Maintenance severely overdue")
	}
	return r
}

// AnalyzeFailureHistory penalizes recent and repeated failures
func AnalyzeFailureHistory(m *database.Machine) FactorResult {
	r := neutral()
	if m.FailuresLast30Days > 0 {
		r.penalize(float64(m.FailuresLast30Days) * 25)
		r.risk("%d failure(s) this month", m.FailuresLast30Days)
	}
	if m.FailuresLast6Months > 2 {
		r.penalize(float64(m.FailuresLast6Months-2) * 10)
		r.risk("%d failures in 6 months", m.FailuresLast6Months)
	}
	if m.FailuresTotal > 10 {
		r.penalize(15)
		r.risk("Heavy failure history")
	}
	return r
}

// AnalyzeMaintenance scores days since the last maintenance against the interval
func AnalyzeMaintenance(m *database.Machine, now time.Time) FactorResult {
	interval := float64(m.MaintenanceIntervalDays)
	if interval <= 0 {
		return neutral()
	}
	days := float64(m.DaysSinceMaintenance(now))

	r := FactorResult{}
	switch {
	case days < interval*0.5:
		r.Score = 100
	case days < interval*0.75:
		r.Score = 90
	case days < interval:
		r.Score = 75
	case days < interval*1.1:
		r.Score = 50
		r.risk("Maintenance required")
	case days < interval*1.3:
		r.Score = 30
		r.risk("Maintenance urgent")
	default:
		r.Score = 10
		r.risk("Maintenance critical")
	}
	return r
}

// AnalyzeTemperature scores the current temperature against nominal and max
func AnalyzeTemperature(m *database.Machine) FactorResult {
	if m.CurrentTemperature == nil || *m.CurrentTemperature == 0 || m.NominalTemperature == 0 {
		return neutral()
	}
	current, nominal := *m.CurrentTemperature, m.NominalTemperature
	if !finite(current, nominal, m.MaxTemperature) {
		return neutral()
	}

	r := FactorResult{}
	switch {
	case current < nominal*1.05:
		r.Score = 100
	case current < nominal*1.10:
		r.Score = 85
		r.anomaly("Slightly elevated temperature (%.1f°C)", current)
	case current < nominal*1.15:
		r.Score = 70
		r.anomaly("Elevated temperature (%.1f°C)", current)
		r.risk("Moderate overheating")
	case current < m.MaxTemperature:
		r.Score = 50
		r.anomaly("Very high temperature (%.1f°C)", current)
		r.risk("Overheating risk")
	default:
		r.Score = 20
		r.anomaly("CRITICAL OVERHEATING (%.1f°C)", current)
		r.risk("CRITICAL OVERHEATING")
	}
	return r
}

// AnalyzePower scores the deviation of power draw from nominal
func AnalyzePower(m *database.Machine) FactorResult {
	if m.NominalPowerKWh == 0 || !finite(m.CurrentPowerKWh, m.NominalPowerKWh) {
		return neutral()
	}
	variation := (m.CurrentPowerKWh - m.NominalPowerKWh) / m.NominalPowerKWh * 100
	deviation := math.Abs(variation)

	r := FactorResult{}
	switch {
	case deviation < 10:
		r.Score = 100
	case deviation < 20:
		r.Score = 85
		if variation > 0 {
			r.anomaly("Overconsumption of %.1f%%", variation)
		} else {
			r.anomaly("Underconsumption of %.1f%%", deviation)
		}
	case deviation < 30:
		r.Score = 70
		r.risk("Abnormal power consumption")
	default:
		r.Score = 50
		r.risk("Severely abnormal power consumption")
	}
	return r
}

// AnalyzeUtilization scores run-hours against the theoretical maximum since install
func AnalyzeUtilization(m *database.Machine, now time.Time) FactorResult {
	rate := m.UtilizationRate(now)
	if !finite(rate) {
		return neutral()
	}

	r := FactorResult{}
	switch {
	case rate < 30:
		r.Score = 100
	case rate < 50:
		r.Score = 95
	case rate < 70:
		r.Score = 90
	case rate < 85:
		r.Score = 80
		r.risk("High utilization rate")
	default:
		r.Score = 70
		r.risk("Very high utilization rate")
	}
	return r
}
