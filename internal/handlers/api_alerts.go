package handlers

import (
	"net/http"
	"slices"

	"github.com/sofemci/predictive/internal/api"
	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/services"
)

// handleListAlerts handles GET /api/alerts.
// Filters: machine_id, level, status, open=true. Paginated with page/per_page.
func (h *APIHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	machineID, err := api.QueryID(r, "machine_id")
	if err != nil {
		api.RespondError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	filter := services.AlertFilter{
		MachineID: machineID,
		Level:     database.AlertLevel(q.Get("level")),
		Status:    database.AlertStatus(q.Get("status")),
		OpenOnly:  q.Get("open") == "true",
	}
	if filter.Level != "" && !slices.Contains(database.ValidAlertLevels(), filter.Level) {
		api.RespondError(w, http.StatusBadRequest, "invalid_query", "unknown alert level "+string(filter.Level))
		return
	}

	params := api.ParsePagination(r)
	total, err := h.alerts.CountAlerts(filter)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	filter.Limit = params.PerPage
	filter.Offset = params.Offset()
	alerts, err := h.alerts.ListAlerts(filter)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data:       api.AlertsToListItems(alerts),
		Pagination: params.Meta(total),
	})
}

// handleGetAlert handles GET /api/alerts/{id}
func (h *APIHandler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	alert, err := h.alerts.GetAlert(id)
	if err != nil {
		api.RespondServiceError(w, err)
		return
	}
	api.RespondJSON(w, http.StatusOK, alert)
}

// handleMarkSeen handles POST /api/alerts/{id}/seen
func (h *APIHandler) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respondAlert(w)(h.alerts.MarkSeen(r.Context(), id))
}

// handleTakeAlert handles POST /api/alerts/{id}/take
func (h *APIHandler) handleTakeAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.TakeAlertRequest
	if !decodeValid(w, r, &req, false) {
		return
	}
	h.respondAlert(w)(h.alerts.Take(r.Context(), id, req.User))
}

// handleResolveAlert handles POST /api/alerts/{id}/resolve
func (h *APIHandler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.ResolveAlertRequest
	if !decodeValid(w, r, &req, true) {
		return
	}
	h.respondAlert(w)(h.alerts.Resolve(r.Context(), id, req.User, req.Comment))
}

// handleIgnoreAlert handles POST /api/alerts/{id}/ignore
func (h *APIHandler) handleIgnoreAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req api.IgnoreAlertRequest
	if !decodeValid(w, r, &req, true) {
		return
	}
	h.respondAlert(w)(h.alerts.Ignore(r.Context(), id, req.User))
}

func (h *APIHandler) respondAlert(w http.ResponseWriter) func(*database.AIAlert, error) {
	return func(alert *database.AIAlert, err error) {
		if err != nil {
			api.RespondServiceError(w, err)
			return
		}
		api.RespondJSON(w, http.StatusOK, alert)
	}
}
