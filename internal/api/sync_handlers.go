package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harvestguard/fieldsync/internal/reconcile"
)

// SyncKind returns the handler for POST /api/<kind>/sync/. The request body
// carries the batch under the kind's plural name, e.g. {"farms": [...]}.
func (h *Handler) SyncKind(kind reconcile.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]json.RawMessage
		if !decodeBody(w, r, &body) {
			return
		}
		records, ok := body[string(kind)]
		if !ok {
			WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Missing %q list", string(kind)))
			return
		}

		user := MustUserFromContext(r.Context())
		outcome, err := h.orchestrator.SyncKind(r.Context(), user.ID, kind, records)
		if err != nil {
			slog.Error("sync failed", "component", "api", "kind", string(kind), "user_id", user.ID, "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status":  "error",
				"message": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}

// SyncAll handles POST /api/sync/, reconciling every kind present in the
// body in one transaction.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	var batch reconcile.Batch
	if !decodeBody(w, r, &batch) {
		return
	}

	user := MustUserFromContext(r.Context())
	outcome, err := h.orchestrator.SyncAll(r.Context(), user.ID, batch)
	if err != nil {
		slog.Error("combined sync failed", "component", "api", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// watermarkFormats are the accepted last_sync layouts, RFC 3339 first.
var watermarkFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseWatermark(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range watermarkFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", raw)
}

// PendingSync returns the handler for GET /api/<kind>/pending_sync/. With a
// last_sync watermark only records modified strictly after it are returned;
// without one, everything the user owns.
func (h *Handler) PendingSync(kind reconcile.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since, err := parseWatermark(r.URL.Query().Get("last_sync"))
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "Invalid last_sync timestamp")
			return
		}

		user := MustUserFromContext(r.Context())
		records, err := reconcile.PendingSince(r.Context(), h.store, user.ID, kind, since)
		if err != nil {
			MapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}
