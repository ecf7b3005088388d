package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/harvestguard/fieldsync/internal/reconcile"
	"github.com/harvestguard/fieldsync/internal/store"
	"github.com/harvestguard/fieldsync/internal/types"
)

// Handler implements the API handlers
type Handler struct {
	store        *store.SQLiteStore
	orchestrator *reconcile.Orchestrator
	mediaRoot    string
	version      string
}

// NewHandler creates a new Handler backed by the SQLite store.
func NewHandler(st *store.SQLiteStore, orch *reconcile.Orchestrator, mediaRoot, version string) *Handler {
	return &Handler{
		store:        st,
		orchestrator: orch,
		mediaRoot:    mediaRoot,
		version:      version,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body, mapping failures to 400 problems.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.CountUsers(r.Context())
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	farms, err := h.store.CountFarms(r.Context())
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Users:   users,
		Farms:   farms,
	})
}
