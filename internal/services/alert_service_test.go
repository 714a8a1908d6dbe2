package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/testhelpers"
)

func createAlert(t *testing.T, env *testEnv, machineID uint, level database.AlertLevel, priority int, createdAt time.Time) database.AIAlert {
	t.Helper()
	a := database.AIAlert{
		UUID:      uuid.New().String(),
		MachineID: machineID,
		Level:     level,
		Title:     "test alert",
		Priority:  priority,
		CreatedAt: createdAt,
	}
	if err := env.db.Create(&a).Error; err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}
	return a
}

func TestAlertService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := testhelpers.NewMachineBuilder(testNow).Create(t, env.db)
	a := createAlert(t, env, m.ID, database.AlertLevelUrgent, 7, testNow)

	seen, err := env.alerts.MarkSeen(ctx, a.ID)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if seen.Status != database.AlertStatusSeen {
		t.Errorf("expected seen, got %s", seen.Status)
	}

	env.clock.Advance(time.Minute)
	taken, err := env.alerts.Take(ctx, a.ID, "alice")
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if taken.Status != database.AlertStatusInProgress || taken.HandledBy != "alice" {
		t.Errorf("expected in progress by alice, got %s by %q", taken.Status, taken.HandledBy)
	}
	if taken.HandledAt == nil || !taken.HandledAt.Equal(testNow.Add(time.Minute)) {
		t.Errorf("expected handled at %v, got %v", testNow.Add(time.Minute), taken.HandledAt)
	}

	// seen is a no-op once the alert is being handled
	again, err := env.alerts.MarkSeen(ctx, a.ID)
	if err != nil {
		t.Fatalf("MarkSeen on in-progress alert failed: %v", err)
	}
	if again.Status != database.AlertStatusInProgress {
		t.Errorf("expected in progress to stay, got %s", again.Status)
	}

	resolved, err := env.alerts.Resolve(ctx, a.ID, "", "belt replaced")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != database.AlertStatusResolved || resolved.ResolutionComment != "belt replaced" {
		t.Errorf("unexpected resolved alert: %s %q", resolved.Status, resolved.ResolutionComment)
	}
	if resolved.HandledBy != "alice" {
		t.Errorf("expected handler to be kept, got %q", resolved.HandledBy)
	}

	var stored database.AIAlert
	env.db.First(&stored, a.ID)
	if stored.OpenKey != nil {
		t.Errorf("expected open key cleared, got %q", *stored.OpenKey)
	}
}

func TestAlertService_ClosedAlertRejectsTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := testhelpers.NewMachineBuilder(testNow).Create(t, env.db)
	a := createAlert(t, env, m.ID, database.AlertLevelInfo, 1, testNow)

	if _, err := env.alerts.Ignore(ctx, a.ID, "bob"); err != nil {
		t.Fatalf("Ignore failed: %v", err)
	}

	actions := map[string]func() error{
		"seen":    func() error { _, err := env.alerts.MarkSeen(ctx, a.ID); return err },
		"take":    func() error { _, err := env.alerts.Take(ctx, a.ID, "bob"); return err },
		"resolve": func() error { _, err := env.alerts.Resolve(ctx, a.ID, "bob", ""); return err },
		"ignore":  func() error { _, err := env.alerts.Ignore(ctx, a.ID, "bob"); return err },
	}
	for name, action := range actions {
		if err := action(); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s: expected ErrInvalidTransition, got %v", name, err)
		}
	}
}

func TestAlertService_NotFound(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.alerts.MarkSeen(context.Background(), 42); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound, got %v", err)
	}
	if _, err := env.alerts.GetAlert(42); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound, got %v", err)
	}
	if _, err := env.alerts.GetAlertByUUID("missing"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestAlertService_ActiveAlertsOrdering(t *testing.T) {
	env := newTestEnv(t)
	m1 := testhelpers.NewMachineBuilder(testNow).WithNumber("EXT-01").Create(t, env.db)
	m2 := testhelpers.NewMachineBuilder(testNow).WithNumber("EXT-02").Create(t, env.db)

	low := createAlert(t, env, m1.ID, database.AlertLevelAttention, 5, testNow)
	olderHigh := createAlert(t, env, m1.ID, database.AlertLevelCritical, 10, testNow.Add(-time.Hour))
	newerHigh := createAlert(t, env, m2.ID, database.AlertLevelCritical, 10, testNow)
	closed := createAlert(t, env, m2.ID, database.AlertLevelUrgent, 8, testNow)
	if _, err := env.alerts.Resolve(context.Background(), closed.ID, "tech", ""); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	alerts, err := env.alerts.ActiveAlerts()
	if err != nil {
		t.Fatalf("ActiveAlerts failed: %v", err)
	}
	want := []uint{newerHigh.ID, olderHigh.ID, low.ID}
	if len(alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %d", len(want), len(alerts))
	}
	for i, id := range want {
		if alerts[i].ID != id {
			t.Errorf("position %d: expected alert %d, got %d", i, id, alerts[i].ID)
		}
	}
	if alerts[0].Machine.Number != "EXT-02" {
		t.Errorf("expected machine preloaded, got %q", alerts[0].Machine.Number)
	}
}

func TestAlertService_ListAlertsFilter(t *testing.T) {
	env := newTestEnv(t)
	m1 := testhelpers.NewMachineBuilder(testNow).WithNumber("EXT-01").Create(t, env.db)
	m2 := testhelpers.NewMachineBuilder(testNow).WithNumber("EXT-02").Create(t, env.db)
	createAlert(t, env, m1.ID, database.AlertLevelCritical, 10, testNow)
	createAlert(t, env, m1.ID, database.AlertLevelAttention, 5, testNow)
	createAlert(t, env, m2.ID, database.AlertLevelCritical, 10, testNow)

	byMachine, err := env.alerts.ListAlerts(AlertFilter{MachineID: m1.ID})
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(byMachine) != 2 {
		t.Errorf("expected 2 alerts for machine, got %d", len(byMachine))
	}

	byLevel, _ := env.alerts.ListAlerts(AlertFilter{Level: database.AlertLevelCritical, Limit: 1})
	if len(byLevel) != 1 || byLevel[0].Level != database.AlertLevelCritical {
		t.Errorf("expected one critique alert, got %+v", byLevel)
	}

	page2, _ := env.alerts.ListAlerts(AlertFilter{Level: database.AlertLevelCritical, Limit: 1, Offset: 1})
	if len(page2) != 1 || page2[0].ID == byLevel[0].ID {
		t.Errorf("expected the other critique alert on page 2, got %+v", page2)
	}

	total, err := env.alerts.CountAlerts(AlertFilter{Level: database.AlertLevelCritical, Limit: 1})
	if err != nil {
		t.Fatalf("CountAlerts failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 critique alerts in total, got %d", total)
	}
}

func TestAlertService_NotifiesStatusChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := testhelpers.NewMachineBuilder(testNow).WithNumber("EXT-07").Create(t, env.db)
	a := createAlert(t, env, m.ID, database.AlertLevelUrgent, 7, testNow)

	env.alerts.MarkSeen(ctx, a.ID)
	env.alerts.MarkSeen(ctx, a.ID)
	env.alerts.Take(ctx, a.ID, "alice")

	events := env.notifier.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 status events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Kind != AlertStatusChanged || ev.MachineNumber != "EXT-07" {
			t.Errorf("unexpected event %s for %q", ev.Kind, ev.MachineNumber)
		}
	}
}

func TestUpsertAlert_UpdatesOpenAlertOfSameLevel(t *testing.T) {
	env := newTestEnv(t)
	m := testhelpers.NewMachineBuilder(testNow).Create(t, env.db)

	draft := engine.AlertDraft{
		Level:       database.AlertLevelUrgent,
		Title:       "first",
		Probability: 45,
		Priority:    7,
	}
	first, created, err := upsertAlert(env.db, m.ID, draft, "1.0", testNow)
	if err != nil || !created {
		t.Fatalf("expected creation, got created=%v err=%v", created, err)
	}

	draft.Title = "second"
	draft.Priority = 8
	draft.Payload = map[string]interface{}{"anomalies": []interface{}{"x"}}
	later := testNow.Add(time.Hour)
	second, created, err := upsertAlert(env.db, m.ID, draft, "1.1", later)
	if err != nil || created {
		t.Fatalf("expected update, got created=%v err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same alert, got %d and %d", first.ID, second.ID)
	}
	if second.Title != "second" || second.Priority != 8 || second.ModelVersion != "1.1" {
		t.Errorf("expected draft applied, got %q priority %d version %q", second.Title, second.Priority, second.ModelVersion)
	}
	if !second.CreatedAt.Equal(later) {
		t.Errorf("expected timestamp %v, got %v", later, second.CreatedAt)
	}

	// other levels get their own alert
	draft.Level = database.AlertLevelCritical
	third, created, err := upsertAlert(env.db, m.ID, draft, "1.1", later)
	if err != nil || !created || third.ID == first.ID {
		t.Errorf("expected a new alert for another level, got created=%v err=%v", created, err)
	}
}
