// MQTT Media Bridge
//
// Discovers media players that announce themselves with retained MQTT
// discovery configs, keeps their telemetry subscriptions bound to the latest
// config, and exposes their state and commands over HTTP and WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqtt-media-bridge/internal/api"
	"github.com/nerrad567/mqtt-media-bridge/internal/bridges/mediaplayer"
	"github.com/nerrad567/mqtt-media-bridge/internal/device"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/config"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/database"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/mdns"
	"github.com/nerrad567/mqtt-media-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-media-bridge/migrations"
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

// bridgeStopTimeout bounds player disposal during shutdown.
const bridgeStopTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mediabridge",
		Short:         "MQTT media player discovery bridge",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), resolveConfigPath(configPath))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $MEDIABRIDGE_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the bridge until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd.Context(), resolveConfigPath(configPath))
			},
		},
		newVersionCommand(),
		newTokenCommand(&configPath),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show version information",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mediabridge %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// resolveConfigPath prefers the flag, then MEDIABRIDGE_CONFIG, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("MEDIABRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// run wires the bridge together and blocks until ctx is cancelled.
// Deferred shutdown runs in reverse order of startup.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting media bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.ID)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	health := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		health["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	bridge, err := mediaplayer.NewBridge(mediaplayer.Options{
		Prefix:    cfg.Discovery.Prefix,
		Transport: &mqttTransport{client: mqttClient, log: log},
		Registry:  &registryAdapter{registry: registry},
		Resolver:  mediaplayer.PrefixResolver{BaseURL: cfg.Media.BaseURL},
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating media bridge: %w", err)
	}

	hub := api.NewHub(cfg.WebSocket, log)
	bridge.AddObserver(hub)
	if influxClient != nil {
		bridge.AddObserver(mediaplayer.NewStateRecorder(influxClient, nil))
	}

	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting media bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping media bridge")
		stopCtx, cancel := context.WithTimeout(context.Background(), bridgeStopTimeout)
		defer cancel()
		if stopErr := bridge.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping media bridge", "error", stopErr)
		}
	}()
	log.Info("media bridge started",
		"prefix", bridge.Prefix(),
		"players", len(bridge.Players()),
	)

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Players:  bridge,
		Hub:      hub,
		Health:   health,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if cfg.API.MDNS.Enabled {
		advertiser, mdnsErr := mdns.Register(mdns.Advertisement{
			Instance: cfg.API.MDNS.Instance,
			Port:     cfg.API.Port,
			BridgeID: cfg.Bridge.ID,
			Version:  version,
			WSPath:   cfg.WebSocket.Path,
		}, log)
		if mdnsErr != nil {
			// The API is still reachable by address.
			log.Warn("mDNS advertisement failed", "error", mdnsErr)
		} else {
			defer advertiser.Shutdown()
		}
	}

	if err := healthCheck(ctx, health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// healthCheck verifies every infrastructure connection once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		c, ok := checks[name]
		if !ok {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
