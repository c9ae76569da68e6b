package handlers

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/auth"
	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/fleet"
	"github.com/Shahid-khan015/FarmTrack/internal/middleware"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	log "github.com/sirupsen/logrus"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Auth   *auth.Service
	Users  db.UserCollection
	Fleet  *fleet.Service
	Health Pinger
	// StaticDir is the bundled frontend; empty disables it.
	StaticDir string
	// AuthRateLimit caps login and register requests per client per minute.
	AuthRateLimit int
}

// NewRouter builds the full handler chain.
func NewRouter(cfg RouterConfig) http.Handler {
	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	limiter := middleware.NewRateLimitMiddleware().RateLimit(cfg.AuthRateLimit, 60)
	writers := authMW.RequireRole(models.RoleOwner, models.RoleOperator)
	owners := authMW.RequireRole(models.RoleOwner)

	authH := NewAuthHandler(cfg.Auth, cfg.Users)
	h := NewFleetHandler(cfg.Fleet)

	mux := http.NewServeMux()
	mux.Handle("POST /api/auth/register", limiter(http.HandlerFunc(authH.Register)))
	mux.Handle("POST /api/auth/login", limiter(http.HandlerFunc(authH.Login)))
	mux.HandleFunc("GET /api/auth/me", authH.GetProfile)

	mux.HandleFunc("GET /api/dashboard/stats", h.Dashboard)
	mux.HandleFunc("GET /api/reports", h.Report)

	mux.HandleFunc("GET /api/tractors", h.ListTractors)
	mux.HandleFunc("GET /api/tractors/{id}", h.GetTractor)
	mux.Handle("POST /api/tractors", writers(http.HandlerFunc(h.CreateTractor)))
	mux.Handle("PATCH /api/tractors/{id}", writers(http.HandlerFunc(h.UpdateTractor)))
	mux.Handle("DELETE /api/tractors/{id}", owners(http.HandlerFunc(h.DeleteTractor)))

	mux.HandleFunc("GET /api/implements", h.ListImplements)
	mux.HandleFunc("GET /api/implements/{id}", h.GetImplement)
	mux.Handle("POST /api/implements", writers(http.HandlerFunc(h.CreateImplement)))
	mux.Handle("PATCH /api/implements/{id}", writers(http.HandlerFunc(h.UpdateImplement)))
	mux.Handle("DELETE /api/implements/{id}", owners(http.HandlerFunc(h.DeleteImplement)))

	mux.HandleFunc("GET /api/operations", h.ListOperations)
	mux.HandleFunc("GET /api/operations/{id}", h.GetOperation)
	mux.Handle("POST /api/operations", writers(http.HandlerFunc(h.StartOperation)))
	mux.Handle("POST /api/operations/{id}/stop", writers(http.HandlerFunc(h.StopOperation)))

	mux.HandleFunc("GET /api/telemetry/{operationId}", h.ListTelemetry)
	mux.Handle("POST /api/telemetry", writers(http.HandlerFunc(h.AppendTelemetry)))

	mux.HandleFunc("GET /api/fuel-logs", h.ListFuelLogs)
	mux.Handle("POST /api/fuel-logs", writers(http.HandlerFunc(h.LogFuel)))

	mux.HandleFunc("GET /api/alerts", h.ListAlerts)
	mux.Handle("POST /api/alerts", writers(http.HandlerFunc(h.RaiseAlert)))
	mux.Handle("POST /api/alerts/{id}/resolve", writers(http.HandlerFunc(h.ResolveAlert)))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteDetail(w, http.StatusNotFound, "Not found")
	})
	mux.Handle("GET /health", healthHandler(cfg.Health))
	if cfg.StaticDir != "" {
		mux.Handle("/", spaHandler(cfg.StaticDir))
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			middleware.WriteDetail(w, http.StatusNotFound, "Not found")
		})
	}

	var handler http.Handler = mux
	handler = authMW.Authenticate(handler)
	handler = middleware.CORS(handler)
	handler = middleware.RequestLogger(handler)
	handler = middleware.Recover(handler)
	return handler
}

func healthHandler(p Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				log.WithError(err).Warn("Health check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// spaHandler serves files from dir and falls back to index.html for paths
// that do not name a file, so client-side routes resolve.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			middleware.WriteDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		name := path.Clean("/" + r.URL.Path)
		if name != "/" {
			info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(name, "/"))))
			if err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, index)
	})
}
