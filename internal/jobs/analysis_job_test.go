package jobs

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/services"
	"github.com/sofemci/predictive/internal/testhelpers"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestJob(t *testing.T) (*gorm.DB, *AnalysisJob) {
	t.Helper()

	db := testhelpers.SetupTestDB(t)
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	clock := func() time.Time { return testNow }

	analysis := services.NewAnalysisService(db, eng)
	analysis.SetClock(clock)
	machines := services.NewMachineService(db, analysis)
	machines.SetClock(clock)

	return db, NewAnalysisJob(db, analysis, machines)
}

func updateSettings(t *testing.T, db *gorm.DB, change func(*database.AnalysisSettings)) {
	t.Helper()
	settings, err := database.GetOrCreateAnalysisSettings(db)
	if err != nil {
		t.Fatalf("failed to load settings: %v", err)
	}
	change(settings)
	if err := database.UpdateAnalysisSettings(db, settings); err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
}

func TestAnalysisJob_SkipsWhenDisabled(t *testing.T) {
	db, job := newTestJob(t)
	m := testhelpers.NewMachineBuilder(testNow).Create(t, db)
	updateSettings(t, db, func(s *database.AnalysisSettings) { s.Enabled = false })

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Skipped {
		t.Error("expected the run to be skipped")
	}

	var stored database.Machine
	db.First(&stored, m.ID)
	if stored.LastAnalysisAt != nil {
		t.Error("expected no analysis when disabled")
	}
}

func TestAnalysisJob_AnalyzesActiveAndMaintenance(t *testing.T) {
	db, job := newTestJob(t)
	job.SetWorkers(3)

	for i, state := range []database.MachineState{
		database.MachineStateActive,
		database.MachineStateActive,
		database.MachineStateMaintenance,
		database.MachineStateStopped,
		database.MachineStateFailure,
	} {
		testhelpers.NewMachineBuilder(testNow).
			WithNumber("EXT-0" + string(rune('1'+i))).
			WithState(state).
			Create(t, db)
	}
	testhelpers.NewMachineBuilder(testNow).WithNumber("EXT-09").WithFailures(15, 14, 14).Create(t, db)

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.RunID == "" {
		t.Error("expected a run ID")
	}
	if report.Machines != 4 || report.Analyzed != 4 || report.Failed != 0 {
		t.Errorf("unexpected counts: %+v", report)
	}
	if report.Critical != 1 {
		t.Errorf("expected 1 critical machine, got %d", report.Critical)
	}

	var analyzed int64
	db.Model(&database.Machine{}).Where("last_analysis_at IS NOT NULL").Count(&analyzed)
	if analyzed != 4 {
		t.Errorf("expected 4 machines analyzed, got %d", analyzed)
	}
}

func TestAnalysisJob_RecomputesCountersBeforeAnalysis(t *testing.T) {
	db, job := newTestJob(t)
	// stale counters claim a heavy history the log does not hold
	m := testhelpers.NewMachineBuilder(testNow).WithFailures(15, 14, 14).Create(t, db)
	testhelpers.CreateFailureEvent(t, db, m.ID, testNow.AddDate(0, -2, 0))

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.CountersRecomputed != 1 {
		t.Errorf("expected 1 machine recomputed, got %d", report.CountersRecomputed)
	}
	if report.Critical != 0 {
		t.Errorf("expected the recomputed history to clear the critical risk, got %d", report.Critical)
	}

	var stored database.Machine
	db.First(&stored, m.ID)
	if stored.FailuresTotal != 1 || stored.FailuresLast30Days != 0 {
		t.Errorf("unexpected counters: total=%d 30d=%d", stored.FailuresTotal, stored.FailuresLast30Days)
	}
}

func TestAnalysisJob_KeepsCountersWhenRecomputeDisabled(t *testing.T) {
	db, job := newTestJob(t)
	m := testhelpers.NewMachineBuilder(testNow).WithFailures(15, 14, 14).Create(t, db)
	testhelpers.CreateFailureEvent(t, db, m.ID, testNow.AddDate(0, -2, 0))
	updateSettings(t, db, func(s *database.AnalysisSettings) { s.RecomputeCounters = false })

	report, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.CountersRecomputed != 0 || report.Critical != 1 {
		t.Errorf("expected stored counters to be used, got %+v", report)
	}
}

func TestAnalysisJob_CancelledContext(t *testing.T) {
	db, job := newTestJob(t)
	testhelpers.NewMachineBuilder(testNow).Create(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := job.Run(ctx); err == nil {
		t.Error("expected an error for a cancelled run")
	}
}

func TestAnalysisJob_StartStops(t *testing.T) {
	_, job := newTestJob(t)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		job.Start(stop)
		close(done)
	}()
	close(stop)

	testhelpers.MustCompleteWithin(t, 2*time.Second, func() { <-done })
}

func TestIntervalOf(t *testing.T) {
	if got := intervalOf(&database.AnalysisSettings{IntervalMinutes: 15}); got != 15*time.Minute {
		t.Errorf("expected 15m, got %v", got)
	}
	if got := intervalOf(&database.AnalysisSettings{}); got != time.Minute {
		t.Errorf("expected 1m floor, got %v", got)
	}
}
