package handlers

import (
	"net/http"

	"github.com/sofemci/predictive/internal/api"
)

// handleFleetStats handles GET /api/reports/fleet
func (h *APIHandler) handleFleetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.FleetStats(r.Context())
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, stats)
}

// handleProductionReport handles GET /api/reports/production
func (h *APIHandler) handleProductionReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.ProductionReport(r.Context())
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, report)
}

// handleZoneReport handles GET /api/reports/zones/{id}. It re-analyzes the zone first.
func (h *APIHandler) handleZoneReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.ZoneReport(r.Context(), id)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, report)
}
