package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/auth"
	"github.com/Shahid-khan015/FarmTrack/internal/fleet"
	"github.com/Shahid-khan015/FarmTrack/internal/handlers"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the FarmTrack API server",
	Long: `Run the HTTP API and serve the bundled frontend.

The store, token secret, event broker and listen port come from the config
file, a .env file or the environment.

Examples:
  farmtrack serve
  farmtrack serve --config /etc/farmtrack.toml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	publisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	if cfg.SessionSecret == "" {
		log.Warn("SESSION_SECRET is not set, using the built-in development secret")
	}
	authService := auth.NewService(cfg.SessionSecret, cfg.TokenTTL())
	fleetService := fleet.NewService(st, fleet.WithPublisher(publisher))

	staticDir := cfg.StaticDir
	if info, err := os.Stat(staticDir); err != nil || !info.IsDir() {
		log.WithField("dir", staticDir).Warn("Frontend directory not found, serving the API only")
		staticDir = ""
	}

	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Auth:          authService,
			Users:         st,
			Fleet:         fleetService,
			Health:        st,
			StaticDir:     staticDir,
			AuthRateLimit: cfg.AuthRateLimit,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":   server.Addr,
			"store":  cfg.StoreDriver,
			"events": cfg.EventsBroker,
		}).Info("Starting FarmTrack API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down server gracefully")
		return err
	}
	log.Info("Server shutdown complete")
	return nil
}
