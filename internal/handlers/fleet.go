package handlers

import (
	"net/http"

	"github.com/Shahid-khan015/FarmTrack/internal/fleet"
	"github.com/Shahid-khan015/FarmTrack/internal/middleware"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

// FleetHandler serves the registry, operation, logbook and report endpoints.
type FleetHandler struct {
	svc *fleet.Service
}

// NewFleetHandler creates a handler over the fleet service
func NewFleetHandler(svc *fleet.Service) *FleetHandler {
	return &FleetHandler{svc: svc}
}

func currentUser(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
	}
	return claims, ok
}

// ListTractors handles GET /api/tractors
func (h *FleetHandler) ListTractors(w http.ResponseWriter, r *http.Request) {
	tractors, err := h.svc.ListTractors(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tractors)
}

// GetTractor handles GET /api/tractors/{id}
func (h *FleetHandler) GetTractor(w http.ResponseWriter, r *http.Request) {
	tractor, err := h.svc.GetTractor(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tractor)
}

// CreateTractor handles POST /api/tractors
func (h *FleetHandler) CreateTractor(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in models.TractorCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	tractor, err := h.svc.CreateTractor(r.Context(), claims.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tractor)
}

// UpdateTractor handles PATCH /api/tractors/{id}
func (h *FleetHandler) UpdateTractor(w http.ResponseWriter, r *http.Request) {
	var patch models.TractorPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	tractor, err := h.svc.UpdateTractor(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tractor)
}

// DeleteTractor handles DELETE /api/tractors/{id}
func (h *FleetHandler) DeleteTractor(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTractor(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tractor deleted successfully"})
}

// ListImplements handles GET /api/implements
func (h *FleetHandler) ListImplements(w http.ResponseWriter, r *http.Request) {
	implements, err := h.svc.ListImplements(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, implements)
}

// GetImplement handles GET /api/implements/{id}
func (h *FleetHandler) GetImplement(w http.ResponseWriter, r *http.Request) {
	implement, err := h.svc.GetImplement(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, implement)
}

// CreateImplement handles POST /api/implements
func (h *FleetHandler) CreateImplement(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in models.ImplementCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	implement, err := h.svc.CreateImplement(r.Context(), claims.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, implement)
}

// UpdateImplement handles PATCH /api/implements/{id}
func (h *FleetHandler) UpdateImplement(w http.ResponseWriter, r *http.Request) {
	var patch models.ImplementPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	implement, err := h.svc.UpdateImplement(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, implement)
}

// DeleteImplement handles DELETE /api/implements/{id}
func (h *FleetHandler) DeleteImplement(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteImplement(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Implement deleted successfully"})
}
