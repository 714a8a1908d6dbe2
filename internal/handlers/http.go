package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/sofemci/predictive/internal/notify"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HTTPHandler handles HTTP endpoints
type HTTPHandler struct {
	db  *gorm.DB
	hub *notify.Hub
}

// NewHTTPHandler creates a new HTTP handler. A nil hub disables the alert feed.
func NewHTTPHandler(db *gorm.DB, hub *notify.Hub) *HTTPHandler {
	return &HTTPHandler{
		db:  db,
		hub: hub,
	}
}

// SetupRoutes configures all HTTP routes
func (h *HTTPHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	if h.hub != nil {
		mux.HandleFunc("/ws/alerts", h.handleAlertFeed)
	}
}

// handleHealth reports whether the process and its database are reachable
func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, code := "ok", http.StatusOK
	database := "ok"
	if err := h.pingDB(r); err != nil {
		log.Printf("Health check: database unreachable: %v", err)
		status, code = "degraded", http.StatusServiceUnavailable
		database = "unreachable"
	}

	response := map[string]string{
		"status":   status,
		"database": database,
		"version":  Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

func (h *HTTPHandler) pingDB(r *http.Request) error {
	if h.db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(r.Context())
}

// handleAlertFeed upgrades to a websocket streaming alert events
func (h *HTTPHandler) handleAlertFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	notify.ServeWS(h.hub, w, r)
}
