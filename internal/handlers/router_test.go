package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/auth"
	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/fleet"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	st, err := db.OpenSQLite(filepath.Join(t.TempDir(), "farmtrack.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>farmtrack</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log(1)"), 0o644))

	handler := NewRouter(RouterConfig{
		Auth:      auth.NewService("test-secret", 0),
		Users:     st,
		Fleet:     fleet.NewService(st),
		Health:    st,
		StaticDir: static,
	})
	return &apiClient{t: t, handler: handler}
}

func (c *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func (c *apiClient) decode(w *httptest.ResponseRecorder, v any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (c *apiClient) register(username string, role models.Role) models.User {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Username: username, Password: "secret1", FullName: "Asha Patil", Role: role,
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var res models.LoginResponse
	c.decode(w, &res)
	c.token = res.Token
	return res.User
}

func (c *apiClient) createFleet() (models.Tractor, models.Implement) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/tractors", models.TractorCreate{
		ManufacturerName: "Mahindra", Model: "575 DI", RegistrationNumber: "MH-12-AB-1234",
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var tractor models.Tractor
	c.decode(w, &tractor)

	w = c.do(http.MethodPost, "/api/implements", models.ImplementCreate{
		OperationType: models.OperationTillage, Name: "Rotavator", BrandName: "Shaktiman", WorkingWidth: 4,
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var implement models.Implement
	c.decode(w, &implement)
	return tractor, implement
}

func TestRouter_OperationLifecycle(t *testing.T) {
	api := newTestAPI(t)
	api.register("asha", models.RoleOwner)
	tractor, implement := api.createFleet()

	start := models.OperationStart{TractorID: tractor.ID, ImplementID: implement.ID, OperationType: models.OperationTillage}
	w := api.do(http.MethodPost, "/api/operations", start)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first models.Operation
	api.decode(w, &first)
	assert.Equal(t, models.StatusActive, first.Status)
	assert.Nil(t, first.EndTime)

	w = api.do(http.MethodPost, "/api/operations", start)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "an active operation already exists for this tractor", detail(t, w))

	w = api.do(http.MethodPost, "/api/operations/"+first.ID+"/stop", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stopped models.Operation
	api.decode(w, &stopped)
	assert.Equal(t, models.StatusCompleted, stopped.Status)
	require.NotNil(t, stopped.EndTime)

	w = api.do(http.MethodPost, "/api/operations/"+first.ID+"/stop", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/operations", start)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodGet, "/api/telemetry/"+first.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var samples []models.Telemetry
	api.decode(w, &samples)
	assert.Len(t, samples, 2)

	w = api.do(http.MethodGet, "/api/operations/"+first.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detailView models.OperationDetail
	api.decode(w, &detailView)
	require.NotNil(t, detailView.Implement)
	assert.Equal(t, "Rotavator", detailView.Implement.Name)
	require.NotNil(t, detailView.Operator)
	assert.Equal(t, "Asha Patil", detailView.Operator.FullName)

	w = api.do(http.MethodGet, "/api/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.DashboardStats
	api.decode(w, &stats)
	assert.Equal(t, 1, stats.TractorsCount)
	assert.Equal(t, 1, stats.ActiveOperations)
	assert.Len(t, stats.RecentOperations, 2)
}

func TestRouter_StartOperation_UnknownTractor(t *testing.T) {
	api := newTestAPI(t)
	api.register("asha", models.RoleOwner)
	_, implement := api.createFleet()

	w := api.do(http.MethodPost, "/api/operations", models.OperationStart{
		TractorID: "missing", ImplementID: implement.ID, OperationType: models.OperationTillage,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Tractor not found", detail(t, w))
}

func TestRouter_AppendsAreIdempotent(t *testing.T) {
	api := newTestAPI(t)
	api.register("asha", models.RoleOperator)
	tractor, implement := api.createFleet()

	w := api.do(http.MethodPost, "/api/operations", models.OperationStart{
		TractorID: tractor.ID, ImplementID: implement.ID, OperationType: models.OperationTillage,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var op models.Operation
	api.decode(w, &op)

	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	sample := models.TelemetryCreate{OperationID: op.ID, Timestamp: &ts, EngineOn: true, Speed: 4.5}
	w = api.do(http.MethodPost, "/api/telemetry", sample)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Telemetry
	api.decode(w, &created)

	sample.Speed = 9
	w = api.do(http.MethodPost, "/api/telemetry", sample)
	require.Equal(t, http.StatusOK, w.Code)
	var again models.Telemetry
	api.decode(w, &again)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, 4.5, again.Speed)

	w = api.do(http.MethodPost, "/api/telemetry", models.TelemetryCreate{OperationID: op.ID, TractorID: "other", Timestamp: &ts})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/telemetry", map[string]any{"operationId": op.ID, "timestamp": "2024-03-15T11:00:00.250000", "speed": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var naive models.Telemetry
	api.decode(w, &naive)
	local := time.Date(2024, 3, 15, 11, 0, 0, 250000000, time.Local)
	assert.True(t, local.Equal(naive.Timestamp))
	w = api.do(http.MethodPost, "/api/telemetry", models.TelemetryCreate{OperationID: op.ID, Timestamp: &local})
	require.Equal(t, http.StatusOK, w.Code)
	api.decode(w, &again)
	assert.Equal(t, naive.ID, again.ID)

	w = api.do(http.MethodPost, "/api/telemetry", map[string]any{"operationId": op.ID, "timestamp": "15/03/2024"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	fuel := models.FuelLogCreate{TractorID: tractor.ID, Timestamp: &ts, Quantity: 20}
	w = api.do(http.MethodPost, "/api/fuel-logs", fuel)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = api.do(http.MethodPost, "/api/fuel-logs", fuel)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/fuel-logs", models.FuelLogCreate{TractorID: tractor.ID, Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	alert := models.AlertCreate{TractorID: tractor.ID, Timestamp: &ts, AlertType: models.AlertTypeBreakdown, Message: "Hydraulic leak"}
	w = api.do(http.MethodPost, "/api/alerts", alert)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var raised models.Alert
	api.decode(w, &raised)
	w = api.do(http.MethodPost, "/api/alerts", alert)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, "/api/alerts/"+raised.ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolved models.Alert
	api.decode(w, &resolved)
	assert.True(t, resolved.IsResolved)

	w = api.do(http.MethodGet, "/api/fuel-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.FuelLogDetail
	api.decode(w, &logs)
	assert.Len(t, logs, 1)

	w = api.do(http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []models.AlertDetail
	api.decode(w, &alerts)
	assert.Len(t, alerts, 1)
}

func TestRouter_Authentication(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/tractors", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authenticated", detail(t, w))

	api.token = "not-a-jwt"
	w = api.do(http.MethodGet, "/api/tractors", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	api.token = ""
	api.register("ravi", models.RoleFarmer)
	w = api.do(http.MethodGet, "/api/tractors", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = api.do(http.MethodPost, "/api/tractors", models.TractorCreate{
		ManufacturerName: "Sonalika", Model: "DI 745", RegistrationNumber: "PB-10-XY-9",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", detail(t, w))

	w = api.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	api.decode(w, &me)
	assert.Equal(t, "ravi", me.Username)
}

func TestRouter_DeleteTractor(t *testing.T) {
	api := newTestAPI(t)
	api.register("ravi", models.RoleOperator)
	tractor, implement := api.createFleet()

	w := api.do(http.MethodDelete, "/api/tractors/"+tractor.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	api.register("asha", models.RoleOwner)
	w = api.do(http.MethodPost, "/api/operations", models.OperationStart{
		TractorID: tractor.ID, ImplementID: implement.ID, OperationType: models.OperationTillage,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(http.MethodDelete, "/api/tractors/"+tractor.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/tractors", models.TractorCreate{
		ManufacturerName: "Sonalika", Model: "DI 745", RegistrationNumber: "PB-10-XY-9",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var spare models.Tractor
	api.decode(w, &spare)

	w = api.do(http.MethodDelete, "/api/tractors/"+spare.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(http.MethodGet, "/api/tractors/"+spare.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_PatchTractor(t *testing.T) {
	api := newTestAPI(t)
	api.register("asha", models.RoleOwner)
	tractor, _ := api.createFleet()

	w := api.do(http.MethodPatch, "/api/tractors/"+tractor.ID, map[string]any{"model": "575 DI XP"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var patched models.Tractor
	api.decode(w, &patched)
	assert.Equal(t, "575 DI XP", patched.Model)
	assert.Equal(t, "MH-12-AB-1234", patched.RegistrationNumber)

	w = api.do(http.MethodPost, "/api/implements", models.ImplementCreate{
		OperationType: models.OperationTillage, Name: "Rotavator", BrandName: "Shaktiman", WorkingWidth: 2,
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "implement with this name already exists", detail(t, w))

	w = api.do(http.MethodPost, "/api/implements", models.ImplementCreate{
		OperationType: models.OperationTillage, Name: "Rotavator II", WorkingWidth: 2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "brandName is required", detail(t, w))
}

func TestRouter_Reports(t *testing.T) {
	api := newTestAPI(t)
	api.register("asha", models.RoleOwner)

	w := api.do(http.MethodGet, "/api/reports?filterType=day&date=2024-03-15", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report models.Report
	api.decode(w, &report)
	assert.Equal(t, 2024, report.Window.Start.Year())
	assert.Equal(t, time.March, report.Window.Start.Month())
	assert.Equal(t, 15, report.Window.Start.Day())
	assert.Empty(t, report.Operations)

	w = api.do(http.MethodGet, "/api/reports?filterType=day&date=15-03-2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_PublicPaths(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = api.do(http.MethodGet, "/fleet/tractors", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "farmtrack")

	w = api.do(http.MethodGet, "/app.js", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "console.log")

	w = api.do(http.MethodOptions, "/api/tractors", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	api.register("asha", models.RoleOwner)
	w = api.do(http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", detail(t, w))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return assert.AnError }

func TestHealthHandler_Unavailable(t *testing.T) {
	w := httptest.NewRecorder()
	healthHandler(failingPinger{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
