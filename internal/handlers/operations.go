package handlers

import (
	"net/http"

	"github.com/Shahid-khan015/FarmTrack/internal/fleet"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
)

// ListOperations handles GET /api/operations
func (h *FleetHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := h.svc.ListOperations(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

// GetOperation handles GET /api/operations/{id}
func (h *FleetHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := h.svc.GetOperation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// StartOperation handles POST /api/operations. The caller is the operator.
func (h *FleetHandler) StartOperation(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in models.OperationStart
	if !decodeJSON(w, r, &in) {
		return
	}
	op, err := h.svc.StartOperation(r.Context(), claims.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

// StopOperation handles POST /api/operations/{id}/stop
func (h *FleetHandler) StopOperation(w http.ResponseWriter, r *http.Request) {
	op, err := h.svc.StopOperation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// ListTelemetry handles GET /api/telemetry/{operationId}
func (h *FleetHandler) ListTelemetry(w http.ResponseWriter, r *http.Request) {
	samples, err := h.svc.ListTelemetry(r.Context(), r.PathValue("operationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

// AppendTelemetry handles POST /api/telemetry
func (h *FleetHandler) AppendTelemetry(w http.ResponseWriter, r *http.Request) {
	var in models.TelemetryCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	sample, created, err := h.svc.AppendTelemetry(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, appendStatus(created), sample)
}

// ListFuelLogs handles GET /api/fuel-logs
func (h *FleetHandler) ListFuelLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.ListFuelLogs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// LogFuel handles POST /api/fuel-logs. The caller is recorded as the operator.
func (h *FleetHandler) LogFuel(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in models.FuelLogCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	fuel, created, err := h.svc.LogFuel(r.Context(), claims.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, appendStatus(created), fuel)
}

// ListAlerts handles GET /api/alerts
func (h *FleetHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.ListAlerts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// RaiseAlert handles POST /api/alerts
func (h *FleetHandler) RaiseAlert(w http.ResponseWriter, r *http.Request) {
	var in models.AlertCreate
	if !decodeJSON(w, r, &in) {
		return
	}
	alert, created, err := h.svc.RaiseAlert(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, appendStatus(created), alert)
}

// ResolveAlert handles POST /api/alerts/{id}/resolve
func (h *FleetHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.svc.ResolveAlert(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// Report handles GET /api/reports
func (h *FleetHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := h.svc.BuildReport(r.Context(), fleet.WindowQuery{
		FilterType: q.Get("filterType"),
		Date:       q.Get("date"),
		StartDate:  q.Get("startDate"),
		EndDate:    q.Get("endDate"),
		StartTime:  q.Get("startTime"),
		EndTime:    q.Get("endTime"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Dashboard handles GET /api/dashboard/stats
func (h *FleetHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
