package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/testhelpers"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// testClock is a settable time source shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingNotifier keeps every event it receives
type recordingNotifier struct {
	mu     sync.Mutex
	events []AlertEvent
}

func (n *recordingNotifier) NotifyAlert(_ context.Context, ev AlertEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []AlertEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]AlertEvent, len(n.events))
	copy(out, n.events)
	return out
}

type testEnv struct {
	db       *gorm.DB
	clock    *testClock
	notifier *recordingNotifier
	analysis *AnalysisService
	alerts   *AlertService
	machines *MachineService
	reports  *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testhelpers.SetupTestDB(t)
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	env := &testEnv{
		db:       db,
		clock:    &testClock{now: testNow},
		notifier: &recordingNotifier{},
	}
	env.analysis = NewAnalysisService(db, eng)
	env.analysis.SetClock(env.clock.Now)
	env.analysis.SetNotifier(env.notifier)

	env.alerts = NewAlertService(db)
	env.alerts.SetClock(env.clock.Now)
	env.alerts.SetNotifier(env.notifier)

	env.machines = NewMachineService(db, env.analysis)
	env.machines.SetClock(env.clock.Now)

	env.reports = NewReportService(db, env.analysis)
	env.reports.SetClock(env.clock.Now)
	return env
}

// criticalMachine scores a 7-day probability of about 72%
func criticalMachine(number string) *testhelpers.MachineBuilder {
	return testhelpers.NewMachineBuilder(testNow).WithNumber(number).WithFailures(15, 14, 14)
}

func (env *testEnv) openAlerts(t *testing.T, machineID uint) []database.AIAlert {
	t.Helper()
	var alerts []database.AIAlert
	if err := env.db.Where("machine_id = ? AND status IN ?", machineID, database.OpenAlertStatuses()).
		Order("id").Find(&alerts).Error; err != nil {
		t.Fatalf("failed to load alerts: %v", err)
	}
	return alerts
}

func (env *testEnv) reload(t *testing.T, id uint) database.Machine {
	t.Helper()
	var m database.Machine
	if err := env.db.First(&m, id).Error; err != nil {
		t.Fatalf("failed to reload machine %d: %v", id, err)
	}
	return m
}

func (env *testEnv) reloadZone(t *testing.T, id uint) database.Zone {
	t.Helper()
	var z database.Zone
	if err := env.db.First(&z, id).Error; err != nil {
		t.Fatalf("failed to reload zone %d: %v", id, err)
	}
	return z
}
