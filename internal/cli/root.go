// Package cli implements the farmtrack command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Shahid-khan015/FarmTrack/internal/config"
	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/events"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "farmtrack",
	Short: "FarmTrack fleet management",
	Long: `FarmTrack tracks tractors, implements and the field operations they perform,
with telemetry, fuel and alert logs and period reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("FARMTRACK_CONFIG"), "Path to a TOML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
}

// ExitError prints an error and exits
func ExitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig reads the layered configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ConfigureLogging(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured backend and ensures its schema.
func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	var st db.Store
	switch cfg.StoreDriver {
	case config.DriverMongo:
		ms, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		st = ms
	default:
		ss, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st = ss
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	return st, nil
}

// openPublisher connects the configured lifecycle event broker.
func openPublisher(cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsBroker {
	case config.BrokerMQTT:
		return events.DialMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.EventsPrefix)
	case config.BrokerNATS:
		return events.DialNATS(cfg.NATSURL, cfg.EventsPrefix)
	default:
		return events.NewLogPublisher(), nil
	}
}
