package engine

import (
	"strings"
	"time"

	"github.com/sofemci/predictive/internal/database"
)

const maxAnomalyDescription = 255

// Input is everything one analysis pass reads
type Input struct {
	Machine database.Machine
	Now     time.Time
	// Production covers the production window; extrusion records belong to the machine's zone
	Production ProductionWindow
	Zone       *ZoneContext
}

// Result is the outcome of one analysis pass
type Result struct {
	MachineID      uint               `json:"machine_id"`
	MachineNumber  string             `json:"machine_number"`
	Section        database.Section   `json:"section"`
	HealthScore    float64            `json:"health_score"`
	Probability7d  float64            `json:"probability_7d"`
	Probability30d float64            `json:"probability_30d"`
	RiskLevel      RiskLevel          `json:"risk_level"`
	RiskFactors    []string           `json:"risk_factors"`
	Anomalies      []string           `json:"anomalies"`
	Scores         map[Factor]float64 `json:"scores"`
	Alerts         []AlertDraft       `json:"alerts"`
	ModelVersion   string             `json:"model_version"`
	AnalyzedAt     time.Time          `json:"analyzed_at"`
}

// AnomalyDescription summarizes the first anomalies for the machine record
func (r *Result) AnomalyDescription() string {
	desc := strings.Join(firstN(r.Anomalies, 3), ", ")
	if len(desc) > maxAnomalyDescription {
		// keep valid UTF-8 when cutting
		cut := maxAnomalyDescription
		for cut > 0 && !isRuneStart(desc[cut]) {
			cut--
		}
		desc = desc[:cut]
	}
	return desc
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Apply writes the derived state onto the machine record
func (r *Result) Apply(m *database.Machine) {
	analyzedAt := r.AnalyzedAt
	m.HealthScore = r.HealthScore
	m.FailureProbability7d = r.Probability7d
	m.FailureProbability30d = r.Probability30d
	m.AnomalyDetected = len(r.Anomalies) > 0
	m.AnomalyDescription = r.AnomalyDescription()
	m.LastAnalysisAt = &analyzedAt
}

// Engine scores machines with a fixed configuration
type Engine struct {
	cfg Config
}

// New validates the configuration and returns an engine
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate runs the analyzers, the zone correlator, the aggregator and the
// anomaly detector, then drafts alerts. It performs no I/O.
func (e *Engine) Evaluate(in Input) *Result {
	m := &in.Machine
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	res := &Result{
		MachineID:     m.ID,
		MachineNumber: m.Number,
		Section:       m.Section,
		RiskFactors:   []string{},
		Anomalies:     []string{},
		Scores:        make(map[Factor]float64, len(WeightedFactors())+1),
		ModelVersion:  e.cfg.ModelVersion,
		AnalyzedAt:    now,
	}
	collect := func(f Factor, r FactorResult) {
		res.Scores[f] = r.Score
		res.RiskFactors = append(res.RiskFactors, r.Risks...)
		res.Anomalies = append(res.Anomalies, r.Anomalies...)
	}

	collect(FactorAge, AnalyzeAge(m, now))
	collect(FactorHours, AnalyzeOperatingHours(m, e.cfg.HoursPerIntervalDay))
	collect(FactorFailures, AnalyzeFailureHistory(m))
	collect(FactorMaintenance, AnalyzeMaintenance(m, now))
	collect(FactorTemperature, AnalyzeTemperature(m))
	collect(FactorPower, AnalyzePower(m))
	collect(FactorUtilization, AnalyzeUtilization(m, now))
	collect(FactorProduction, AnalyzeProduction(m, in.Production))
	collect(FactorZone, AnalyzeZone(m, in.Zone, in.Production.Extrusion, e.cfg, now))

	health := HealthScore(res.Scores, e.cfg.Weights, res.Scores[FactorZone])
	p7 := FailureProbability(health, m, 7)
	p30 := FailureProbability(health, m, 30)

	detected := DetectAnomalies(m, Since(in.Production.Extrusion, WindowStart(now, e.cfg.AnomalyWindowDays)))
	res.Anomalies = append(res.Anomalies, detected.Anomalies...)
	res.RiskFactors = append(res.RiskFactors, detected.Risks...)

	res.HealthScore = round2(health)
	res.Probability7d = round2(p7)
	res.Probability30d = round2(p30)
	res.RiskLevel = e.cfg.Level(res.Probability7d)
	res.Alerts = DraftAlerts(m, res, e.cfg, now)
	return res
}
