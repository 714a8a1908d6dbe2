package handlers

import (
	"net/http"

	"github.com/sofemci/predictive/internal/api"
	"github.com/sofemci/predictive/internal/services"
)

// APIHandler exposes alerts, machine events and reports over JSON
type APIHandler struct {
	alerts   *services.AlertService
	analysis *services.AnalysisService
	machines *services.MachineService
	reports  *services.ReportService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(alerts *services.AlertService, analysis *services.AnalysisService, machines *services.MachineService, reports *services.ReportService) *APIHandler {
	return &APIHandler{
		alerts:   alerts,
		analysis: analysis,
		machines: machines,
		reports:  reports,
	}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	// Alerts
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)
	mux.HandleFunc("GET /api/alerts/{id}", h.handleGetAlert)
	mux.HandleFunc("POST /api/alerts/{id}/seen", h.handleMarkSeen)
	mux.HandleFunc("POST /api/alerts/{id}/take", h.handleTakeAlert)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", h.handleResolveAlert)
	mux.HandleFunc("POST /api/alerts/{id}/ignore", h.handleIgnoreAlert)

	// Machines
	mux.HandleFunc("GET /api/machines/at-risk", h.handleAtRisk)
	mux.HandleFunc("GET /api/machines/{id}", h.handleGetMachine)
	mux.HandleFunc("GET /api/machines/{id}/events", h.handleMachineEvents)
	mux.HandleFunc("POST /api/machines/{id}/analyze", h.handleAnalyzeMachine)
	mux.HandleFunc("POST /api/machines/{id}/failures", h.handleRecordFailure)
	mux.HandleFunc("POST /api/machines/{id}/maintenance", h.handleRecordMaintenance)
	mux.HandleFunc("POST /api/machines/{id}/measurements", h.handleRecordMeasurement)
	mux.HandleFunc("POST /api/machines/{id}/hours", h.handleAddHours)

	// Reports
	mux.HandleFunc("GET /api/reports/fleet", h.handleFleetStats)
	mux.HandleFunc("GET /api/reports/production", h.handleProductionReport)
	mux.HandleFunc("GET /api/reports/zones/{id}", h.handleZoneReport)
}

// pathID writes a 400 and returns false when the {id} path value is invalid
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := api.PathID(r, "id")
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return 0, false
	}
	return id, true
}

// decodeValid decodes and validates the body into dst, writing the error response on failure
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	decode := api.DecodeJSON
	if optional {
		decode = api.DecodeOptionalJSON
	}
	if err := decode(r, dst); err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return false
	}
	if errs := api.Validate(dst); errs != nil {
		api.RespondValidationError(w, errs)
		return false
	}
	return true
}
