package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/harvestguard/fieldsync/internal/types"
	"github.com/harvestguard/fieldsync/internal/validation"
)

// pathID parses the {id} route parameter, writing a 400 problem on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

// ownFarm loads a farm only if the authenticated user owns it.
func (h *Handler) ownFarm(w http.ResponseWriter, r *http.Request, farmID int64) (*types.Farm, bool) {
	user := MustUserFromContext(r.Context())
	farm, err := h.store.FarmByIDForUser(r.Context(), farmID, user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return nil, false
	}
	return farm, true
}

// ListFarms handles GET /api/farms/.
func (h *Handler) ListFarms(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	farms, err := h.store.FarmsForUser(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, farms)
}

// GetFarm handles GET /api/farms/{id}/.
func (h *Handler) GetFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	farm, ok := h.ownFarm(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, farm)
}

// CreateFarm handles POST /api/farms/.
func (h *Handler) CreateFarm(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	var farm types.Farm
	if !decodeBody(w, r, &farm) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateRequired("name", farm.Name))
	c.Add(validation.ValidateMaxLength("name", farm.Name, 255))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	farm.ID = 0
	farm.UserID = user.ID
	if farm.SyncStatus == "" {
		farm.SyncStatus = types.SyncPending
	}
	if err := h.store.CreateFarm(r.Context(), &farm); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, farm)
}

// UpdateFarm handles PUT /api/farms/{id}/. Absent body fields keep their
// stored values.
func (h *Handler) UpdateFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	farm, ok := h.ownFarm(w, r, id)
	if !ok {
		return
	}
	if !decodeBody(w, r, farm) {
		return
	}
	farm.ID = id
	farm.UserID = MustUserFromContext(r.Context()).ID
	if err := h.store.UpdateFarm(r.Context(), farm); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, farm)
}

// DeleteFarm handles DELETE /api/farms/{id}/. Child records go with it via
// foreign key cascade.
func (h *Handler) DeleteFarm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	if err := h.store.DeleteFarmForUser(r.Context(), id, user.ID); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBoundaryPoints handles GET /api/boundary_points/.
func (h *Handler) ListBoundaryPoints(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	points, err := h.store.BoundaryPointsForUser(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// GetBoundaryPoint handles GET /api/boundary_points/{id}/.
func (h *Handler) GetBoundaryPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	point, err := h.store.BoundaryPointByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// CreateBoundaryPoint handles POST /api/boundary_points/.
func (h *Handler) CreateBoundaryPoint(w http.ResponseWriter, r *http.Request) {
	var point types.BoundaryPoint
	if !decodeBody(w, r, &point) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateLatitude("latitude", point.Latitude))
	c.Add(validation.ValidateLongitude("longitude", point.Longitude))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	if _, ok := h.ownFarm(w, r, point.FarmID); !ok {
		return
	}
	point.ID = 0
	if point.SyncStatus == "" {
		point.SyncStatus = types.SyncPending
	}
	if err := h.store.CreateBoundaryPoint(r.Context(), &point); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

// UpdateBoundaryPoint handles PUT /api/boundary_points/{id}/.
func (h *Handler) UpdateBoundaryPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	point, err := h.store.BoundaryPointByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if !decodeBody(w, r, point) {
		return
	}
	point.ID = id
	if _, ok := h.ownFarm(w, r, point.FarmID); !ok {
		return
	}
	if err := h.store.UpdateBoundaryPoint(r.Context(), point); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// DeleteBoundaryPoint handles DELETE /api/boundary_points/{id}/.
func (h *Handler) DeleteBoundaryPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	if err := h.store.DeleteBoundaryPointForUser(r.Context(), id, user.ID); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListObservationPoints handles GET /api/observation_points/. An optional
// farm_id query narrows the list to one owned farm.
func (h *Handler) ListObservationPoints(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())

	if raw := r.URL.Query().Get("farm_id"); raw != "" {
		farmID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "Invalid farm_id")
			return
		}
		if _, ok := h.ownFarm(w, r, farmID); !ok {
			return
		}
		points, err := h.store.ObservationPointsForFarm(r.Context(), farmID)
		if err != nil {
			MapStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, points)
		return
	}

	points, err := h.store.ObservationPointsForUser(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// GetObservationPoint handles GET /api/observation_points/{id}/.
func (h *Handler) GetObservationPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	point, err := h.store.ObservationPointByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// CreateObservationPoint handles POST /api/observation_points/.
func (h *Handler) CreateObservationPoint(w http.ResponseWriter, r *http.Request) {
	var point types.ObservationPoint
	if !decodeBody(w, r, &point) {
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateLatitude("latitude", point.Latitude))
	c.Add(validation.ValidateLongitude("longitude", point.Longitude))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	if _, ok := h.ownFarm(w, r, point.FarmID); !ok {
		return
	}
	point.ID = 0
	if point.ObservationStatus == "" {
		point.ObservationStatus = "Nil"
	}
	if point.SyncStatus == "" {
		point.SyncStatus = types.SyncPending
	}
	if err := h.store.CreateObservationPoint(r.Context(), &point); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

// UpdateObservationPoint handles PUT /api/observation_points/{id}/.
func (h *Handler) UpdateObservationPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	point, err := h.store.ObservationPointByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if !decodeBody(w, r, point) {
		return
	}
	point.ID = id
	if _, ok := h.ownFarm(w, r, point.FarmID); !ok {
		return
	}
	if err := h.store.UpdateObservationPoint(r.Context(), point); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// DeleteObservationPoint handles DELETE /api/observation_points/{id}/.
func (h *Handler) DeleteObservationPoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	if err := h.store.DeleteObservationPointForUser(r.Context(), id, user.ID); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSuggestions handles GET /api/inspection_suggestions/.
func (h *Handler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	suggestions, err := h.store.SuggestionsForUser(r.Context(), user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// GetSuggestion handles GET /api/inspection_suggestions/{id}/.
func (h *Handler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	sg, err := h.store.SuggestionByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

// CreateSuggestion handles POST /api/inspection_suggestions/.
func (h *Handler) CreateSuggestion(w http.ResponseWriter, r *http.Request) {
	user := MustUserFromContext(r.Context())
	var sg types.InspectionSuggestion
	if !decodeBody(w, r, &sg) {
		return
	}
	if _, ok := h.ownFarm(w, r, sg.FarmID); !ok {
		return
	}
	sg.ID = 0
	sg.UserID = user.ID
	if sg.SyncStatus == "" {
		sg.SyncStatus = types.SyncPending
	}
	if err := h.store.CreateSuggestion(r.Context(), &sg); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sg)
}

// UpdateSuggestion handles PUT /api/inspection_suggestions/{id}/.
func (h *Handler) UpdateSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	sg, err := h.store.SuggestionByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if !decodeBody(w, r, sg) {
		return
	}
	sg.ID = id
	sg.UserID = user.ID
	if _, ok := h.ownFarm(w, r, sg.FarmID); !ok {
		return
	}
	if err := h.store.UpdateSuggestion(r.Context(), sg); err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

// DeleteSuggestion handles DELETE /api/inspection_suggestions/{id}/.
func (h *Handler) DeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user := MustUserFromContext(r.Context())
	if err := h.store.DeleteSuggestionForUser(r.Context(), id, user.ID); err != nil {
		MapStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
