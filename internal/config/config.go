// Package config loads FarmTrack settings. Values are layered: built-in
// defaults, then an optional TOML file, then a .env file, then the process
// environment. Later layers win.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	BrokerNone = "none"
	BrokerMQTT = "mqtt"
	BrokerNATS = "nats"

	// DefaultEnvFile is read from the working directory when present.
	DefaultEnvFile = ".env"
)

// Config holds the server settings
type Config struct {
	Port          string `toml:"port"`
	StoreDriver   string `toml:"store_driver"`
	SQLitePath    string `toml:"sqlite_path"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDB       string `toml:"mongo_db"`
	SessionSecret string `toml:"session_secret"`
	// TokenExpiry is a Go duration such as "168h".
	TokenExpiry   string `toml:"token_expiry"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	StaticDir     string `toml:"static_dir"`
	AuthRateLimit int    `toml:"auth_rate_limit"`
	EventsBroker  string `toml:"events_broker"`
	MQTTBroker    string `toml:"mqtt_broker"`
	MQTTClientID  string `toml:"mqtt_client_id"`
	NATSURL       string `toml:"nats_url"`
	EventsPrefix  string `toml:"events_prefix"`

	tokenTTL time.Duration
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Port:          "8000",
		StoreDriver:   DriverSQLite,
		SQLitePath:    "farmtrack.db",
		MongoURI:      "mongodb://localhost:27017",
		MongoDB:       "farmtrack",
		TokenExpiry:   "168h",
		LogLevel:      "info",
		LogFormat:     "text",
		StaticDir:     "dist/public",
		AuthRateLimit: 20,
		EventsBroker:  BrokerNone,
		MQTTBroker:    "tcp://localhost:1883",
		MQTTClientID:  "farmtrack",
		NATSURL:       "nats://127.0.0.1:4222",
		EventsPrefix:  "farmtrack",
	}
}

// Load builds the configuration. configPath may be empty; a missing env file
// is not an error.
func Load(configPath string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decodeTOML(data); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, name := range envFiles {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.WithField("file", name).Debug("No env file found, using environment variables")
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeTOML(data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PORT":           &c.Port,
		"STORE_DRIVER":   &c.StoreDriver,
		"SQLITE_PATH":    &c.SQLitePath,
		"MONGO_URI":      &c.MongoURI,
		"MONGO_DB":       &c.MongoDB,
		"SESSION_SECRET": &c.SessionSecret,
		"TOKEN_EXPIRY":   &c.TokenExpiry,
		"LOG_LEVEL":      &c.LogLevel,
		"LOG_FORMAT":     &c.LogFormat,
		"STATIC_DIR":     &c.StaticDir,
		"EVENTS_BROKER":  &c.EventsBroker,
		"MQTT_BROKER":    &c.MQTTBroker,
		"MQTT_CLIENT_ID": &c.MQTTClientID,
		"NATS_URL":       &c.NATSURL,
		"EVENTS_PREFIX":  &c.EventsPrefix,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("AUTH_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid AUTH_RATE_LIMIT %q: %w", v, err)
		}
		c.AuthRateLimit = n
	}
	return nil
}

// Validate checks enumerated settings and parses the token expiry.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	switch c.EventsBroker {
	case BrokerNone, BrokerMQTT, BrokerNATS:
	default:
		return fmt.Errorf("unknown events broker %q", c.EventsBroker)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}

	ttl, err := time.ParseDuration(c.TokenExpiry)
	if err != nil || ttl <= 0 {
		return fmt.Errorf("invalid token expiry %q", c.TokenExpiry)
	}
	c.tokenTTL = ttl
	return nil
}

// TokenTTL is the parsed token lifetime. It is zero until Validate succeeds.
func (c *Config) TokenTTL() time.Duration {
	return c.tokenTTL
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ConfigureLogging applies the level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
