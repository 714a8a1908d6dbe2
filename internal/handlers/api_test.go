package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/sofemci/predictive/internal/api"
	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/engine"
	"github.com/sofemci/predictive/internal/testhelpers"
)

func (s *testServer) criticalMachine(t *testing.T, number string) database.Machine {
	t.Helper()
	return testhelpers.NewMachineBuilder(s.now).WithNumber(number).WithFailures(15, 14, 14).Create(t, s.db)
}

func (s *testServer) analyze(t *testing.T, machineID uint) engine.Result {
	t.Helper()
	var result engine.Result
	s.do(t, http.MethodPost, fmt.Sprintf("/api/machines/%d/analyze", machineID), "").
		AssertStatus(http.StatusOK).
		DecodeJSON(&result)
	return result
}

func (s *testServer) firstOpenAlert(t *testing.T, machineID uint) api.AlertListItem {
	t.Helper()
	var page struct {
		Data       []api.AlertListItem `json:"data"`
		Pagination api.PaginationMeta  `json:"pagination"`
	}
	s.do(t, http.MethodGet, fmt.Sprintf("/api/alerts?open=true&machine_id=%d", machineID), "").
		AssertStatus(http.StatusOK).
		DecodeJSON(&page)
	if len(page.Data) == 0 {
		t.Fatalf("expected open alerts for machine %d", machineID)
	}
	return page.Data[0]
}

func TestAPI_AnalyzeMachine(t *testing.T) {
	srv := newTestServer(t)
	m := srv.criticalMachine(t, "EXT-01")

	result := srv.analyze(t, m.ID)
	if result.RiskLevel != engine.RiskCritical {
		t.Errorf("risk level = %q, want %q", result.RiskLevel, engine.RiskCritical)
	}
	if len(result.Alerts) == 0 {
		t.Error("expected alert drafts for a critical machine")
	}

	srv.do(t, http.MethodPost, "/api/machines/999/analyze", "").AssertStatus(http.StatusNotFound)
	srv.do(t, http.MethodPost, "/api/machines/abc/analyze", "").AssertStatus(http.StatusBadRequest)
}

func TestAPI_ListAlerts(t *testing.T) {
	srv := newTestServer(t)
	m := srv.criticalMachine(t, "EXT-01")
	srv.analyze(t, m.ID)

	var page struct {
		Data       []api.AlertListItem `json:"data"`
		Pagination api.PaginationMeta  `json:"pagination"`
	}
	srv.do(t, http.MethodGet, "/api/alerts?per_page=1", "").
		AssertStatus(http.StatusOK).
		DecodeJSON(&page)

	if len(page.Data) != 1 {
		t.Fatalf("expected one alert on the page, got %d", len(page.Data))
	}
	if page.Pagination.Total < 1 || page.Pagination.PerPage != 1 {
		t.Errorf("unexpected pagination %+v", page.Pagination)
	}
	if page.Data[0].MachineNumber != "EXT-01" {
		t.Errorf("machine number = %q, want EXT-01", page.Data[0].MachineNumber)
	}
	if page.Data[0].Level != database.AlertLevelCritical {
		t.Errorf("highest priority alert level = %q, want critique", page.Data[0].Level)
	}

	srv.do(t, http.MethodGet, "/api/alerts?level=severe", "").AssertStatus(http.StatusBadRequest)
	srv.do(t, http.MethodGet, "/api/alerts?machine_id=x", "").AssertStatus(http.StatusBadRequest)
}

func TestAPI_AlertLifecycle(t *testing.T) {
	srv := newTestServer(t)
	m := srv.criticalMachine(t, "EXT-01")
	srv.analyze(t, m.ID)
	alert := srv.firstOpenAlert(t, m.ID)
	base := fmt.Sprintf("/api/alerts/%d", alert.ID)

	var got database.AIAlert
	srv.do(t, http.MethodPost, base+"/seen", "").AssertStatus(http.StatusOK).DecodeJSON(&got)
	if got.Status != database.AlertStatusSeen {
		t.Errorf("status = %q, want vue", got.Status)
	}

	srv.do(t, http.MethodPost, base+"/take", `{}`).
		AssertStatus(http.StatusUnprocessableEntity).
		AssertBodyContains(`"user":"is required"`)

	srv.do(t, http.MethodPost, base+"/take", `{"user":"alice"}`).AssertStatus(http.StatusOK).DecodeJSON(&got)
	if got.Status != database.AlertStatusInProgress || got.HandledBy != "alice" {
		t.Errorf("after take: status %q handled by %q", got.Status, got.HandledBy)
	}
	if got.HandledAt == nil {
		t.Fatal("expected handled_at to be set")
	}
	testhelpers.AssertTimeWithin(t, *got.HandledAt, time.Now(), time.Minute, "handled_at")

	srv.do(t, http.MethodPost, base+"/resolve", `{"comment":"bearing replaced"}`).AssertStatus(http.StatusOK).DecodeJSON(&got)
	if got.Status != database.AlertStatusResolved || got.ResolutionComment != "bearing replaced" {
		t.Errorf("after resolve: status %q comment %q", got.Status, got.ResolutionComment)
	}
	if got.HandledBy != "alice" {
		t.Errorf("handler = %q, want alice kept", got.HandledBy)
	}

	srv.do(t, http.MethodPost, base+"/ignore", "").
		AssertStatus(http.StatusConflict).
		AssertBodyContains("invalid_transition")

	srv.do(t, http.MethodGet, base, "").AssertStatus(http.StatusOK).AssertBodyContains(`"status":"resolue"`)
	srv.do(t, http.MethodGet, "/api/alerts/424242", "").AssertStatus(http.StatusNotFound)
	srv.do(t, http.MethodPost, base+"/take", `{"user":`).AssertStatus(http.StatusBadRequest)
}

func TestAPI_RecordFailure(t *testing.T) {
	srv := newTestServer(t)
	m := testhelpers.NewMachineBuilder(srv.now).Create(t, srv.db)
	path := fmt.Sprintf("/api/machines/%d/failures", m.ID)

	srv.do(t, http.MethodPost, path, `{"downtime_hours":-1}`).
		AssertStatus(http.StatusUnprocessableEntity).
		AssertBodyContains("description").
		AssertBodyContains("downtime_hours")

	srv.do(t, http.MethodPost, path, `{"description":"Motor burnt","downtime_hours":6,"technician":"Koffi"}`).
		AssertStatus(http.StatusOK)

	var machine database.Machine
	srv.do(t, http.MethodGet, fmt.Sprintf("/api/machines/%d", m.ID), "").AssertStatus(http.StatusOK).DecodeJSON(&machine)
	if machine.State != database.MachineStateFailure {
		t.Errorf("state = %q, want panne", machine.State)
	}
	if machine.FailuresTotal != 1 {
		t.Errorf("failures total = %d, want 1", machine.FailuresTotal)
	}

	var events []database.MachineEvent
	srv.do(t, http.MethodGet, fmt.Sprintf("/api/machines/%d/events?limit=5", m.ID), "").
		AssertStatus(http.StatusOK).
		DecodeJSON(&events)
	if len(events) != 1 || events[0].Type != database.EventTypeFailure {
		t.Errorf("events = %+v, want one failure event", events)
	}

	srv.do(t, http.MethodGet, fmt.Sprintf("/api/machines/%d/events?limit=0", m.ID), "").AssertStatus(http.StatusBadRequest)
	srv.do(t, http.MethodGet, "/api/machines/999/events", "").AssertStatus(http.StatusNotFound)
	srv.do(t, http.MethodPost, "/api/machines/999/failures", `{"description":"x"}`).AssertStatus(http.StatusNotFound)
}

func TestAPI_RecordMaintenanceAndMeasurement(t *testing.T) {
	srv := newTestServer(t)
	m := testhelpers.NewMachineBuilder(srv.now).WithHours(2000, 900).Create(t, srv.db)

	srv.do(t, http.MethodPost, fmt.Sprintf("/api/machines/%d/maintenance", m.ID), `{"description":"Quarterly service"}`).
		AssertStatus(http.StatusOK)

	srv.do(t, http.MethodPost, fmt.Sprintf("/api/machines/%d/measurements", m.ID), `{}`).
		AssertStatus(http.StatusUnprocessableEntity)
	srv.do(t, http.MethodPost, fmt.Sprintf("/api/machines/%d/measurements", m.ID), `{"temperature":88.5,"power_kwh":55}`).
		AssertStatus(http.StatusOK)

	var machine database.Machine
	srv.do(t, http.MethodGet, fmt.Sprintf("/api/machines/%d", m.ID), "").DecodeJSON(&machine)
	if machine.HoursSinceMaintenance != 0 {
		t.Errorf("hours since maintenance = %v, want 0", machine.HoursSinceMaintenance)
	}
	if machine.CurrentTemperature == nil || *machine.CurrentTemperature != 88.5 {
		t.Errorf("current temperature = %v, want 88.5", machine.CurrentTemperature)
	}
	if machine.CurrentPowerKWh != 55 {
		t.Errorf("current power = %v, want 55", machine.CurrentPowerKWh)
	}
}

func TestAPI_AddHours(t *testing.T) {
	srv := newTestServer(t)
	m := testhelpers.NewMachineBuilder(srv.now).WithHours(1000, 100).Create(t, srv.db)
	path := fmt.Sprintf("/api/machines/%d/hours", m.ID)

	srv.do(t, http.MethodPost, path, `{"hours":0}`).AssertStatus(http.StatusUnprocessableEntity)

	var machine database.Machine
	srv.do(t, http.MethodPost, path, `{"hours":8}`).AssertStatus(http.StatusOK).DecodeJSON(&machine)
	if machine.TotalOperatingHours != 1008 || machine.HoursSinceMaintenance != 108 {
		t.Errorf("hours = %v/%v, want 1008/108", machine.TotalOperatingHours, machine.HoursSinceMaintenance)
	}
}

func TestAPI_Reports(t *testing.T) {
	srv := newTestServer(t)
	healthy := testhelpers.NewMachineBuilder(srv.now).WithNumber("EXT-01").Create(t, srv.db)
	critical := srv.criticalMachine(t, "EXT-02")
	srv.analyze(t, healthy.ID)
	srv.analyze(t, critical.ID)

	var stats struct {
		Machines int `json:"machines"`
		Critical int `json:"critical"`
	}
	srv.do(t, http.MethodGet, "/api/reports/fleet", "").AssertStatus(http.StatusOK).DecodeJSON(&stats)
	if stats.Machines != 2 || stats.Critical != 1 {
		t.Errorf("fleet stats = %+v, want 2 machines with 1 critical", stats)
	}

	var atRisk []database.Machine
	srv.do(t, http.MethodGet, "/api/machines/at-risk", "").AssertStatus(http.StatusOK).DecodeJSON(&atRisk)
	if len(atRisk) != 1 || atRisk[0].ID != critical.ID {
		t.Errorf("at-risk = %d machines, want only EXT-02", len(atRisk))
	}
	srv.do(t, http.MethodGet, "/api/machines/at-risk?threshold=high", "").AssertStatus(http.StatusBadRequest)

	srv.do(t, http.MethodGet, "/api/reports/production", "").AssertStatus(http.StatusOK).AssertBodyContains(`"printing"`)
	srv.do(t, http.MethodGet, "/api/reports/zones/77", "").AssertStatus(http.StatusNotFound)

	zone := testhelpers.NewZoneBuilder().Create(t, srv.db)
	srv.do(t, http.MethodGet, fmt.Sprintf("/api/reports/zones/%d", zone.ID), "").
		AssertStatus(http.StatusOK).
		AssertBodyContains(`"machines":0`)
}
