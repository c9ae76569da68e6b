package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Shahid-khan015/FarmTrack/internal/fleet"
	"github.com/Shahid-khan015/FarmTrack/internal/middleware"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("Failed to write response body")
	}
}

// appendStatus is 201 for a newly stored record and 200 for an existing one.
func appendStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		middleware.WriteDetail(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		middleware.WriteDetail(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// writeError maps domain error kinds to statuses. Anything else is logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *fleet.Error
	if errors.As(err, &fe) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(fe.Kind, fleet.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(fe.Kind, fleet.ErrConflict):
			status = http.StatusConflict
		case errors.Is(fe.Kind, fleet.ErrInvalid):
			status = http.StatusBadRequest
		}
		middleware.WriteDetail(w, status, fe.Message)
		return
	}

	log.WithError(err).WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("Request failed")
	middleware.WriteDetail(w, http.StatusInternalServerError, "Internal server error")
}
