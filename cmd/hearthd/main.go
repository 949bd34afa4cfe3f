// Command hearthd is the Hearth core daemon.
//
// It connects the message bus to the device state store, sensor ingest,
// alert evaluation, scene execution, and the automation engine, and serves
// the operational status endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hearthwise/hearth-core/internal/alert"
	"github.com/hearthwise/hearth-core/internal/api"
	"github.com/hearthwise/hearth-core/internal/automation"
	"github.com/hearthwise/hearth-core/internal/device"
	"github.com/hearthwise/hearth-core/internal/gateway"
	"github.com/hearthwise/hearth-core/internal/infrastructure/config"
	"github.com/hearthwise/hearth-core/internal/infrastructure/database"
	"github.com/hearthwise/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearthwise/hearth-core/internal/infrastructure/logging"
	"github.com/hearthwise/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthwise/hearth-core/internal/scene"
	"github.com/hearthwise/hearth-core/internal/sensor"

	// Registers the embedded migration files with the database package.
	_ "github.com/hearthwise/hearth-core/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hearthd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("hearthd starting", "version", version, "site", cfg.Site.Name)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	deviceRepo := device.NewRepository(db)
	sensorRepo := sensor.NewRepository(db)
	alertRepo := alert.NewRepository(db)
	sceneRepo := scene.NewRepository(db)
	ruleRepo := automation.NewRepository(db)

	devices, err := device.NewStore(ctx, deviceRepo, logger.With("component", "devices"))
	if err != nil {
		return fmt.Errorf("loading device store: %w", err)
	}

	scenes, err := scene.NewRegistry(ctx, sceneRepo)
	if err != nil {
		return fmt.Errorf("loading scene registry: %w", err)
	}

	bus, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer bus.Close()
	bus.SetLogger(logger.With("component", "mqtt"))

	mirror := influxdb.New(cfg.InfluxDB, logger.With("component", "influxdb"))
	defer mirror.Close()

	gw := gateway.New(gateway.Config{
		Bus:       bus,
		Topics:    mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix},
		Devices:   devices,
		Readings:  sensorRepo,
		Alerts:    alertRepo,
		Evaluator: alert.NewEvaluator(cfg.AlertCooldown()),
		Mirror:    mirrorOrNil(mirror),
		Logger:    logger.With("component", "gateway"),
		HouseID:   cfg.Site.HouseID,
	})
	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}

	// Re-establishing subscriptions after a reconnect is handled inside the
	// mqtt client; the gateway only needs to subscribe once.

	executor := scene.NewExecutor(
		devices, gw, sceneRepo,
		logger.With("component", "scenes"),
		cfg.Site.HouseID, cfg.ActionDelay(),
	)

	engine := automation.NewEngine(
		ruleRepo, devices, sensorRepo, executor,
		logger.With("component", "automation"),
		cfg.PollInterval(),
	)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting automation engine: %w", err)
	}
	defer engine.Stop()

	go runLivenessSweep(ctx, devices, cfg.SweepInterval(), cfg.HeartbeatTimeout(), logger)

	server := api.New(cfg.API, api.Deps{
		Bus:     gw,
		Devices: devices,
		Scenes:  scenes,
		DB:      db,
		Version: version,
	}, logger.With("component", "api"))
	server.Start()

	logger.Info("hearthd ready",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"devices", devices.Count(),
		"scenes", scenes.Count(),
	)

	<-ctx.Done()
	logger.Info("hearthd shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("status server shutdown", "error", err)
	}

	return nil
}

// runLivenessSweep periodically marks silent devices offline.
func runLivenessSweep(ctx context.Context, devices *device.Store, interval, timeout time.Duration, logger *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := devices.SweepStale(ctx, timeout); err != nil {
				logger.Warn("liveness sweep failed", "error", err)
			}
		}
	}
}

// mirrorOrNil avoids handing the gateway a typed-nil interface value.
func mirrorOrNil(m *influxdb.Mirror) gateway.Mirror {
	if m == nil {
		return nil
	}
	return m
}
