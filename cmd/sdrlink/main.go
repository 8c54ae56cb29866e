// sdrlink manages a fleet of software-defined radios over their control
// interfaces.
//
// It loads radios from a YAML file, connects the ones marked auto_connect,
// journals every command to SQLite, mirrors component state to MQTT and
// InfluxDB when enabled, and serves a REST and WebSocket API.
//
// Usage:
//
//	sdrlink [-config path]
//	sdrlink -config path -token subject [-role admin]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/sdrlink/internal/api"
	"github.com/nerrad567/sdrlink/internal/auth"
	"github.com/nerrad567/sdrlink/internal/fleet"
	"github.com/nerrad567/sdrlink/internal/infrastructure/config"
	"github.com/nerrad567/sdrlink/internal/infrastructure/database"
	"github.com/nerrad567/sdrlink/internal/infrastructure/influxdb"
	"github.com/nerrad567/sdrlink/internal/infrastructure/logging"
	"github.com/nerrad567/sdrlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/sdrlink/internal/journal"
	"github.com/nerrad567/sdrlink/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// options are the command-line flags.
type options struct {
	configPath string
	tokenFor   string
	role       string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.tokenFor != "" {
		err = mintToken(os.Stdout, opts)
	} else {
		err = run(ctx, opts.configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. The config path falls back to
// SDRLINK_CONFIG and then the default.
func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("sdrlink", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", getConfigPath(), "path to the YAML configuration file")
	fs.StringVar(&opts.tokenFor, "token", "", "print an API bearer token for this subject and exit")
	fs.StringVar(&opts.role, "role", string(auth.RoleAdmin), "role granted by -token (viewer, operator, admin)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// getConfigPath returns SDRLINK_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("SDRLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mintToken signs a bearer token with the configured JWT secret.
func mintToken(w io.Writer, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is not set")
	}

	ttl := time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	token, err := auth.GenerateToken(opts.tokenFor, auth.Role(opts.role), cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(w, token)
	return nil
}

// run is the application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting sdrlink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "radios", len(cfg.Radios))

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	checks := map[string]api.HealthChecker{}
	fleetOpts := []fleet.Option{fleet.WithLogger(log)}

	// Command journal
	var repo journal.Repository
	if cfg.Database.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		log.Info("database connected", "path", cfg.Database.Path)

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database migrations complete")

		sqlRepo := journal.NewSQLiteRepository(db.DB)
		repo = sqlRepo
		fleetOpts = append(fleetOpts, fleet.WithJournal(journal.NewRecorder(sqlRepo, log)))
		checks["database"] = db
	} else {
		log.Info("command journal disabled")
	}

	// MQTT state mirror and remote commands
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"prefix", cfg.MQTT.TopicPrefix,
		)
		fleetOpts = append(fleetOpts, fleet.WithBroker(mqttClient))
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		fleetOpts = append(fleetOpts, fleet.WithMetrics(influxClient))
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// The hub exists even without the API so the fleet has one event sink.
	hub := api.NewHub(cfg.WebSocket, log)
	fleetOpts = append(fleetOpts, fleet.WithEvents(hub))

	manager, err := fleet.New(cfg.Radios, cfg.Transport, fleetOpts...)
	if err != nil {
		return fmt.Errorf("creating fleet: %w", err)
	}
	defer func() {
		log.Info("disconnecting radios")
		manager.Close()
	}()

	// Radios that fail to connect are logged and stay manageable over the API.
	if startErr := manager.Start(ctx); startErr != nil {
		log.Warn("fleet start incomplete", "error", startErr)
	}
	log.Info("fleet started", "radios", manager.Names())

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log,
			Fleet:    manager,
			Journal:  repo,
			Hub:      hub,
			Checks:   checks,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("sdrlink stopped")
	return nil
}

// healthCheck verifies every infrastructure connection.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
