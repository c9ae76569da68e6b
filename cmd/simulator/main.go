package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/models"
	log "github.com/sirupsen/logrus"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64
	Lon float64
}

// Farm plots the simulated tractors work on
var farms = []Location{
	{Lat: 18.5204, Lon: 73.8567}, // Pune
	{Lat: 30.9010, Lon: 75.8573}, // Ludhiana
	{Lat: 29.3909, Lon: 76.9635}, // Karnal
	{Lat: 21.1458, Lon: 79.0882}, // Nagpur
	{Lat: 26.8467, Lon: 80.9462}, // Lucknow
	{Lat: 22.7196, Lon: 75.8577}, // Indore
}

const (
	rowLengthKm   = 0.25
	fuelPerHourL  = 4.5
	refuelBelowL  = 10
	tankCapacityL = 60
)

func jitterLocation(base Location, meters float64) Location {
	latMetersPerDeg := 111320.0
	lonMetersPerDeg := 111320.0 * math.Cos(base.Lat*math.Pi/180)
	dLat := (rand.Float64()*2 - 1) * (meters / latMetersPerDeg)
	dLon := (rand.Float64()*2 - 1) * (meters / lonMetersPerDeg)
	return Location{Lat: base.Lat + dLat, Lon: base.Lon + dLon}
}

func haversineKm(a, b Location) float64 {
	R := 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return R * c
}

// offset moves base by north and east kilometres.
func offset(base Location, northKm, eastKm float64) Location {
	return Location{
		Lat: base.Lat + northKm/111.32,
		Lon: base.Lon + eastKm/(111.32*math.Cos(base.Lat*math.Pi/180)),
	}
}

// --- API client ---

// apiClient calls the FarmTrack API with a bearer token
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{baseURL: baseURL, token: token, http: &http.Client{Timeout: 10 * time.Second}}
}

// do sends in as JSON and decodes a 2xx response into out. Non-2xx answers
// are returned as an error carrying the status and detail.
func (c *apiClient) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(data, &e)
		return resp.StatusCode, &apiError{Status: resp.StatusCode, Detail: e.Detail}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type apiError struct {
	Status int
	Detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Detail)
}

func statusOf(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func (c *apiClient) login(ctx context.Context, username, password string) error {
	var res models.LoginResponse
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", models.LoginRequest{Username: username, Password: password}, &res); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	c.token = res.Token
	log.WithFields(log.Fields{"user": res.User.Username, "role": res.User.Role}).Info("Logged in")
	return nil
}

// ensureTractor returns the tractor with the given registration, creating it
// if it does not exist.
func (c *apiClient) ensureTractor(ctx context.Context, reg string) (*models.Tractor, error) {
	var tractors []models.Tractor
	if _, err := c.do(ctx, http.MethodGet, "/tractors", nil, &tractors); err != nil {
		return nil, fmt.Errorf("failed to list tractors: %w", err)
	}
	for i := range tractors {
		if tractors[i].RegistrationNumber == reg {
			return &tractors[i], nil
		}
	}

	makes := []string{"Mahindra", "Sonalika", "Swaraj", "John Deere", "Eicher"}
	var t models.Tractor
	_, err := c.do(ctx, http.MethodPost, "/tractors", models.TractorCreate{
		ManufacturerName:   makes[rand.Intn(len(makes))],
		Model:              fmt.Sprintf("%d DI", 400+rand.Intn(6)*25),
		RegistrationNumber: reg,
		Specifications:     map[string]any{"horsepower": 40 + rand.Intn(20)},
	}, &t)
	if err != nil {
		return nil, fmt.Errorf("failed to create tractor: %w", err)
	}
	log.WithFields(log.Fields{"tractor_id": t.ID, "registration": reg}).Info("Created tractor")
	return &t, nil
}

// ensureImplement returns the caller's implement with the given name,
// creating it if it does not exist.
func (c *apiClient) ensureImplement(ctx context.Context, name string, opType models.OperationType) (*models.Implement, error) {
	var implements []models.Implement
	if _, err := c.do(ctx, http.MethodGet, "/implements", nil, &implements); err != nil {
		return nil, fmt.Errorf("failed to list implements: %w", err)
	}
	for i := range implements {
		if implements[i].Name == name {
			return &implements[i], nil
		}
	}

	var impl models.Implement
	_, err := c.do(ctx, http.MethodPost, "/implements", models.ImplementCreate{
		OperationType: opType,
		Name:          name,
		BrandName:     "Shaktiman",
		WorkingWidth:  1.5 + float64(rand.Intn(4))*0.5,
	}, &impl)
	if err != nil {
		return nil, fmt.Errorf("failed to create implement: %w", err)
	}
	log.WithFields(log.Fields{"implement_id": impl.ID, "width": impl.WorkingWidth}).Info("Created implement")
	return &impl, nil
}

// startOperation starts work on the tractor. If the tractor already has an
// active operation it is resumed instead.
func (c *apiClient) startOperation(ctx context.Context, tractor *models.Tractor, impl *models.Implement) (*models.Operation, error) {
	var op models.Operation
	_, err := c.do(ctx, http.MethodPost, "/operations", models.OperationStart{
		TractorID:     tractor.ID,
		ImplementID:   impl.ID,
		OperationType: impl.OperationType,
		Notes:         "simulated field session",
	}, &op)
	if err == nil {
		return &op, nil
	}
	if statusOf(err) != http.StatusConflict {
		return nil, fmt.Errorf("failed to start operation: %w", err)
	}

	var ops []models.OperationDetail
	if _, err := c.do(ctx, http.MethodGet, "/operations", nil, &ops); err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	for _, d := range ops {
		if d.TractorID == tractor.ID && d.Status == models.StatusActive {
			log.WithField("operation_id", d.ID).Info("Resuming active operation")
			resumed := d.Operation
			return &resumed, nil
		}
	}
	return nil, errors.New("tractor is busy but no active operation was found")
}

func (c *apiClient) stopOperation(ctx context.Context, id string) (*models.Operation, error) {
	var op models.Operation
	if _, err := c.do(ctx, http.MethodPost, "/operations/"+id+"/stop", nil, &op); err != nil {
		return nil, fmt.Errorf("failed to stop operation: %w", err)
	}
	return &op, nil
}

// sendTelemetry posts a sample and reports whether the server stored it as new.
func (c *apiClient) sendTelemetry(ctx context.Context, tele models.TelemetryCreate) (bool, error) {
	status, err := c.do(ctx, http.MethodPost, "/telemetry", tele, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusCreated, nil
}

func (c *apiClient) logFuel(ctx context.Context, entry models.FuelLogCreate) (bool, error) {
	status, err := c.do(ctx, http.MethodPost, "/fuel-logs", entry, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusCreated, nil
}

func (c *apiClient) raiseAlert(ctx context.Context, alert models.AlertCreate) error {
	_, err := c.do(ctx, http.MethodPost, "/alerts", alert, nil)
	return err
}

// --- Field movement ---

// FieldState tracks a tractor working rows back and forth across a plot.
type FieldState struct {
	Origin   Location
	Position Location
	Width    float64 // implement working width in metres
	Row      int
	RowKm    float64 // progress along the current row
	SpeedKmh float64
	FuelL    float64
	Moving   bool
}

func newFieldState(width float64) *FieldState {
	origin := jitterLocation(farms[rand.Intn(len(farms))], 2000)
	return &FieldState{
		Origin:   origin,
		Position: origin,
		Width:    width,
		SpeedKmh: 4 + rand.Float64()*2,
		FuelL:    30 + rand.Float64()*30,
		Moving:   true,
	}
}

// step advances the tractor along its rows for tickSec seconds, turning onto
// the next row at each headland.
func (s *FieldState) step(tickSec float64) {
	s.SpeedKmh += (rand.Float64()*2 - 1) * 0.5
	s.SpeedKmh = math.Max(2, math.Min(8, s.SpeedKmh))
	// Occasional pause at the headland or for a blockage.
	s.Moving = rand.Float64() > 0.05

	if s.Moving {
		s.RowKm += s.SpeedKmh * (tickSec / 3600.0)
		for s.RowKm >= rowLengthKm {
			s.RowKm -= rowLengthKm
			s.Row++
		}
	}
	along := s.RowKm
	if s.Row%2 == 1 {
		along = rowLengthKm - s.RowKm
	}
	s.Position = offset(s.Origin, along, float64(s.Row)*s.Width/1000)

	s.FuelL -= fuelPerHourL * (tickSec / 3600.0)
	if s.FuelL < 0 {
		s.FuelL = 0
	}
}

func (s *FieldState) telemetry(operationID string, at time.Time) models.TelemetryCreate {
	lat, lon := s.Position.Lat, s.Position.Lon
	speed := 0.0
	if s.Moving {
		speed = s.SpeedKmh
	}
	return models.TelemetryCreate{
		OperationID: operationID,
		Timestamp:   &at,
		EngineOn:    true,
		Latitude:    &lat,
		Longitude:   &lon,
		IsMoving:    s.Moving,
		PtoOn:       s.Moving,
		Speed:       math.Round(speed*100) / 100,
		ImplementData: map[string]any{
			"row":        s.Row,
			"fuelLitres": math.Round(s.FuelL*10) / 10,
		},
	}
}

// --- Session ---

// SessionConfig controls one simulated field session
type SessionConfig struct {
	Registration  string
	ImplementName string
	OperationType models.OperationType
	Interval      time.Duration
	Ticks         int
	// ResendEvery re-posts the previous sample every n ticks; 0 disables it.
	ResendEvery int
}

// SessionStats counts what the server accepted during a session
type SessionStats struct {
	Samples    int
	Duplicates int
	Refuels    int
	Alerts     int
	Failures   int
}

// runSession starts an operation, reports telemetry each tick and stops the
// operation when the ticks are used up or ctx is cancelled.
func runSession(ctx context.Context, c *apiClient, cfg SessionConfig) (*SessionStats, error) {
	tractor, err := c.ensureTractor(ctx, cfg.Registration)
	if err != nil {
		return nil, err
	}
	impl, err := c.ensureImplement(ctx, cfg.ImplementName, cfg.OperationType)
	if err != nil {
		return nil, err
	}
	op, err := c.startOperation(ctx, tractor, impl)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"operation_id": op.ID,
		"tractor":      tractor.RegistrationNumber,
		"implement":    impl.Name,
	}).Info("Field session started")

	state := newFieldState(impl.WorkingWidth)
	stats := &SessionStats{}
	var last *models.TelemetryCreate

	tick := time.NewTicker(cfg.Interval)
	defer tick.Stop()

loop:
	for i := 1; cfg.Ticks <= 0 || i <= cfg.Ticks; i++ {
		select {
		case <-ctx.Done():
			break loop
		case <-tick.C:
		}

		state.step(cfg.Interval.Seconds())
		tele := state.telemetry(op.ID, time.Now().Truncate(time.Millisecond))
		created, err := c.sendTelemetry(ctx, tele)
		if err != nil {
			stats.Failures++
			log.WithError(err).Warn("Failed to send telemetry")
			continue
		}
		stats.Samples++
		if !created {
			stats.Duplicates++
		}

		if cfg.ResendEvery > 0 && last != nil && i%cfg.ResendEvery == 0 {
			created, err := c.sendTelemetry(ctx, *last)
			if err == nil && !created {
				stats.Duplicates++
			}
		}
		last = &tele

		if state.FuelL < refuelBelowL {
			qty := math.Round((tankCapacityL-state.FuelL)*10) / 10
			if _, err := c.logFuel(ctx, models.FuelLogCreate{
				TractorID:   tractor.ID,
				OperationID: &op.ID,
				Quantity:    qty,
				Notes:       "field refuel",
			}); err != nil {
				stats.Failures++
				log.WithError(err).Warn("Failed to log fuel")
			} else {
				stats.Refuels++
				state.FuelL = tankCapacityL
			}
		}

		if !state.Moving && rand.Float64() < 0.1 {
			if err := c.raiseAlert(ctx, models.AlertCreate{
				TractorID:   tractor.ID,
				OperationID: &op.ID,
				AlertType:   "stoppage",
				Message:     fmt.Sprintf("Unplanned stop on row %d", state.Row),
			}); err == nil {
				stats.Alerts++
			}
		}
	}

	// Stop even when ctx was cancelled so the tractor is free for the next run.
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	stopped, err := c.stopOperation(stopCtx, op.ID)
	if err != nil {
		return stats, err
	}
	log.WithFields(log.Fields{
		"operation_id": stopped.ID,
		"samples":      stats.Samples,
		"duplicates":   stats.Duplicates,
		"refuels":      stats.Refuels,
		"distance_km":  math.Round(haversineKm(state.Origin, state.Position)*1000) / 1000,
	}).Info("Field session completed")
	return stats, nil
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	apiURL := envOrDefault("API_BASE_URL", "http://localhost:8000/api")

	interval := 2 * time.Second
	if n := envInt("SIM_TICK_SECONDS", 2); n >= 1 {
		interval = time.Duration(n) * time.Second
	}

	cfg := SessionConfig{
		Registration:  envOrDefault("SIM_TRACTOR_REG", "SIM-TR-001"),
		ImplementName: envOrDefault("SIM_IMPLEMENT", "Sim Rotavator"),
		OperationType: models.OperationType(envOrDefault("SIM_OPERATION_TYPE", string(models.OperationTillage))),
		Interval:      interval,
		Ticks:         envInt("SIM_TICKS", 60),
		ResendEvery:   envInt("SIM_RESEND_EVERY", 5),
	}

	client := newAPIClient(apiURL, os.Getenv("SIM_AUTH_TOKEN"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if client.token == "" {
		username, password := os.Getenv("SIM_USERNAME"), os.Getenv("SIM_PASSWORD")
		if username == "" || password == "" {
			log.Fatal("Set SIM_AUTH_TOKEN or SIM_USERNAME and SIM_PASSWORD")
		}
		if err := client.login(ctx, username, password); err != nil {
			log.WithError(err).Fatal("Cannot authenticate")
		}
	}

	log.WithFields(log.Fields{
		"api_url":  apiURL,
		"interval": interval,
		"ticks":    cfg.Ticks,
	}).Info("Starting field simulation")

	if _, err := runSession(ctx, client, cfg); err != nil {
		log.WithError(err).Fatal("Simulation failed")
	}
}
