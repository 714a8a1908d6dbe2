package engine

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when factor weights are negative or do not sum to 1
var ErrInvalidWeights = errors.New("factor weights must be non-negative and sum to 1.0")

const weightTolerance = 1e-6

// Weights are the contributions of each factor to the health score
type Weights struct {
	Age         float64 `yaml:"age" json:"age"`
	Hours       float64 `yaml:"hours" json:"hours"`
	Failures    float64 `yaml:"failures" json:"failures"`
	Maintenance float64 `yaml:"maintenance" json:"maintenance"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	Power       float64 `yaml:"power" json:"power"`
	Utilization float64 `yaml:"utilization" json:"utilization"`
	Production  float64 `yaml:"production" json:"production"`
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Age + w.Hours + w.Failures + w.Maintenance + w.Temperature + w.Power + w.Utilization + w.Production
}

// For returns the weight of one factor
func (w Weights) For(f Factor) float64 {
	switch f {
	case FactorAge:
		return w.Age
	case FactorHours:
		return w.Hours
	case FactorFailures:
		return w.Failures
	case FactorMaintenance:
		return w.Maintenance
	case FactorTemperature:
		return w.Temperature
	case FactorPower:
		return w.Power
	case FactorUtilization:
		return w.Utilization
	case FactorProduction:
		return w.Production
	}
	return 0
}

func (w Weights) validate() error {
	for _, f := range WeightedFactors() {
		v := w.For(f)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidWeights, f, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: sum = %v", ErrInvalidWeights, sum)
	}
	return nil
}

// Config is the immutable configuration of the scoring engine
type Config struct {
	Weights Weights `yaml:"weights" json:"weights"`

	// Alert and risk level thresholds on the 7-day probability
	CriticalProbability float64 `yaml:"critical_probability" json:"critical_probability"`
	UrgentProbability   float64 `yaml:"urgent_probability" json:"urgent_probability"`
	MediumProbability   float64 `yaml:"medium_probability" json:"medium_probability"`

	// Trailing windows, in days, over production records
	ProductionWindowDays int `yaml:"production_window_days" json:"production_window_days"`
	AnomalyWindowDays    int `yaml:"anomaly_window_days" json:"anomaly_window_days"`

	// Run-hour budget granted per day of maintenance interval
	HoursPerIntervalDay float64 `yaml:"hours_per_interval_day" json:"hours_per_interval_day"`

	// Peers at or above this 7-day probability count as at risk in zone correlation
	ZoneAtRiskProbability float64 `yaml:"zone_at_risk_probability" json:"zone_at_risk_probability"`

	ModelVersion string `yaml:"model_version" json:"model_version"`
}

// DefaultConfig returns the production weights and thresholds
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Age:         0.12,
			Hours:       0.18,
			Failures:    0.20,
			Maintenance: 0.15,
			Temperature: 0.10,
			Power:       0.10,
			Utilization: 0.05,
			Production:  0.10,
		},
		CriticalProbability:   70,
		UrgentProbability:     40,
		MediumProbability:     20,
		ProductionWindowDays:  7,
		AnomalyWindowDays:     3,
		HoursPerIntervalDay:   8,
		ZoneAtRiskProbability: 40,
		ModelVersion:          "1.0",
	}
}

// Validate checks that the configuration can drive an analysis pass
func (c Config) Validate() error {
	if err := c.Weights.validate(); err != nil {
		return err
	}
	if c.ProductionWindowDays <= 0 || c.AnomalyWindowDays <= 0 {
		return fmt.Errorf("windows must be positive (production=%d, anomaly=%d)", c.ProductionWindowDays, c.AnomalyWindowDays)
	}
	if c.AnomalyWindowDays > c.ProductionWindowDays {
		return fmt.Errorf("anomaly window (%d) cannot exceed production window (%d)", c.AnomalyWindowDays, c.ProductionWindowDays)
	}
	if !(c.MediumProbability <= c.UrgentProbability && c.UrgentProbability < c.CriticalProbability) {
		return fmt.Errorf("probability thresholds out of order (medium=%v, urgent=%v, critical=%v)",
			c.MediumProbability, c.UrgentProbability, c.CriticalProbability)
	}
	if c.HoursPerIntervalDay <= 0 {
		return fmt.Errorf("hours per interval day must be positive, got %v", c.HoursPerIntervalDay)
	}
	return nil
}
