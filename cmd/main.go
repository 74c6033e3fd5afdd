package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather_station/internal/advisory"
	"weather_station/internal/config"
	"weather_station/internal/handlers"
	"weather_station/internal/hardware"
	"weather_station/internal/logger"
	"weather_station/internal/repository"
	"weather_station/internal/repository/db"
	"weather_station/internal/server"
	"weather_station/internal/service"
	"weather_station/internal/telemetry"
)

const (
	configDir       = "configs"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(configDir)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level)

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer closeDB(sqlDB, log)

	repos := repository.NewRepository(sqlDB)
	board := service.NewStateBoard()
	portal := service.NewPortalGateway()

	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		signingKey = randomKey()
		log.Warnw("auth.signing_key not set; tokens will not survive a process restart")
	}
	services := service.NewService(repos, board, portal, signingKey, cfg.Auth.TokenTTL)
	apiHandler := handlers.NewHandler(services, log.Named("http"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := service.DeviceDeps{
		Radio:     hardware.NewSimRadio(simNetworks(cfg), cfg.Simulation.LinkDropAfter, log.Named("radio")),
		Sensors:   hardware.NewSimSensors(cfg.Simulation.Seed, cfg.Simulation.SensorFaultPct),
		Actuators: hardware.NewLogActuators(log.Named("actuators")),
		Display:   hardware.NewLogDisplay(log.Named("display")),
		NVRAM:     repos.NVRAM,
		Events:    repos.EventRepo,
		Board:     board,
		Portal:    portal,
	}

	if cfg.Advisory.APIKey != "" {
		adv, err := advisory.New(cfg.Advisory.Endpoint, cfg.Advisory.APIKey, cfg.Advisory.Timeout, log.Named("advisory"))
		if err != nil {
			log.Fatalw("invalid advisory config", "err", err)
		}
		deps.Advisor = adv
	} else {
		log.Infow("advisory disabled; no api key configured")
	}

	var pub *telemetry.Publisher
	if cfg.MQTT.Broker != "" {
		pub = telemetry.New(cfg.MQTT, log.Named("mqtt"))
		if err := pub.Start(ctx); err != nil {
			log.Fatalw("failed to start mqtt publisher", "err", err)
		}
		deps.Telemetry = pub
	}

	deviceDone := make(chan struct{})
	go func() {
		defer close(deviceDone)
		runDevice(ctx, deviceConfig(cfg), deps, log.Named("device"))
	}()

	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, log)

	waitForShutdown(cancel, srv, log)
	<-deviceDone

	if pub != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if err := pub.Stop(stopCtx); err != nil {
			log.Warnw("mqtt disconnect failed", "err", err)
		}
	}
}

// runDevice boots a fresh Device after every restart request until ctx is
// canceled.
func runDevice(ctx context.Context, cfg service.DeviceConfig, deps service.DeviceDeps, log *logger.Logger) {
	for boot := 1; ; boot++ {
		dev, err := service.NewDevice(ctx, cfg, deps, log)
		if err != nil {
			log.Errorw("device_init_failed", "err", err)
			return
		}
		log.Infow("device_boot", "boot", boot)

		err = dev.Run(ctx)
		if errors.Is(err, service.ErrRestart) {
			continue
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("device_stopped", "err", err)
		}
		return
	}
}

func deviceConfig(cfg *config.Config) service.DeviceConfig {
	return service.DeviceConfig{
		LoopInterval:     cfg.Device.LoopInterval,
		RestartDelay:     cfg.Device.RestartDelay,
		ReconnectBackoff: cfg.Device.ReconnectBackoff,
		SamplePeriodMs:   cfg.Scheduler.SamplePeriodMs,
		AdvisoryPeriodMs: cfg.Scheduler.AdvisoryPeriodMs,
		DisplayHold:      cfg.Advisory.DisplayHold,
		Policy:           service.Policy{HotC: cfg.Policy.HotC, ColdC: cfg.Policy.ColdC},
		Connectivity: service.ConnectivityOptions{
			Saved:        service.JoinBudget{Attempts: cfg.Connectivity.SavedJoinAttempts, Interval: cfg.Connectivity.SavedJoinInterval},
			Portal:       service.JoinBudget{Attempts: cfg.Connectivity.PortalJoinAttempts, Interval: cfg.Connectivity.PortalJoinInterval},
			APName:       cfg.Connectivity.APName,
			APPassphrase: cfg.Connectivity.APPassphrase,
		},
	}
}

func simNetworks(cfg *config.Config) map[string]string {
	known := make(map[string]string, len(cfg.Simulation.Networks))
	for _, n := range cfg.Simulation.Networks {
		known[n.Name] = n.Secret
	}
	return known
}

func randomKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the control loop
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
