package handlers

import (
	"net/http"
	"strconv"

	"github.com/sofemci/predictive/internal/api"
	"github.com/sofemci/predictive/internal/engine"
)

const defaultEventLimit = 100

// handleGetMachine handles GET /api/machines/{id}
func (h *APIHandler) handleGetMachine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	machine, err := h.machines.GetMachine(id)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, machine)
}

// handleMachineEvents handles GET /api/machines/{id}/events?limit=N
func (h *APIHandler) handleMachineEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			api.RespondError(w, http.StatusBadRequest, "invalid_query", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if _, err := h.machines.GetMachine(id); err != nil {
		api.RespondServiceError(w, err)
		return
	}
	events, err := h.machines.Events(id, limit)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, events)
}

// handleAtRisk handles GET /api/machines/at-risk?threshold=P
func (h *APIHandler) handleAtRisk(w http.ResponseWriter, r *http.Request) {
	threshold, err := api.QueryFloat(r, "threshold")
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	machines, err := h.reports.AtRiskMachines(r.Context(), threshold)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, machines)
}

// handleAnalyzeMachine handles POST /api/machines/{id}/analyze
func (h *APIHandler) handleAnalyzeMachine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondResult(w)(h.analysis.AnalyzeMachine(r.Context(), id))
}

// handleRecordFailure handles POST /api/machines/{id}/failures
func (h *APIHandler) handleRecordFailure(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.RecordFailureRequest
	if !decodeValid(w, r, &req, false) {
		return
	}
	respondResult(w)(h.machines.RecordFailure(r.Context(), id, req.Report()))
}

// handleRecordMaintenance handles POST /api/machines/{id}/maintenance
func (h *APIHandler) handleRecordMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.RecordMaintenanceRequest
	if !decodeValid(w, r, &req, false) {
		return
	}
	respondResult(w)(h.machines.RecordMaintenance(r.Context(), id, req.Report()))
}

// handleRecordMeasurement handles POST /api/machines/{id}/measurements
func (h *APIHandler) handleRecordMeasurement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.RecordMeasurementRequest
	if !decodeValid(w, r, &req, false) {
		return
	}
	if req.Empty() {
		api.RespondValidationError(w, map[string]string{"_": "temperature or power_kwh is required"})
		return
	}
	respondResult(w)(h.machines.RecordMeasurement(r.Context(), id, req.Measurement()))
}

// handleAddHours handles POST /api/machines/{id}/hours
func (h *APIHandler) handleAddHours(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.AddHoursRequest
	if !decodeValid(w, r, &req, false) {
		return
	}
	machine, err := h.machines.AddOperatingHours(r.Context(), id, req.Hours)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, machine)
}

func respondResult(w http.ResponseWriter) func(*engine.Result, error) {
	return func(result *engine.Result, err error) {
		if err != nil {
			api.RespondServiceError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, result)
	}
}
