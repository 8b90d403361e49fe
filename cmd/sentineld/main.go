package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/perimetra/sentinel/internal/config"
	"github.com/perimetra/sentinel/internal/database"
	"github.com/perimetra/sentinel/internal/ingest"
	"github.com/perimetra/sentinel/internal/logging"
	"github.com/perimetra/sentinel/internal/model/core"
	"github.com/perimetra/sentinel/internal/service"
	"github.com/perimetra/sentinel/internal/store"
	"github.com/perimetra/sentinel/internal/telemetry"
	"github.com/spf13/viper"
)

var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"
)

var SessionStartTime time.Time = time.Now()

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sentineld: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Load("."); err != nil {
		// defaults still apply; a missing config file is not fatal
		fmt.Fprintf(os.Stderr, "config: %v, using defaults\n", err)
	}

	log, closeLogs, err := logging.Setup(SessionStartTime)
	if err != nil {
		return err
	}
	defer closeLogs()

	log.Info().Str("version", CurrentVersion).Str("buildDate", BuildDate).Msg("Starting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// database
	dbm := database.NewManager(log)
	dbm.SqliteFilePath = filepath.Join(viper.GetString("logsDir"),
		fmt.Sprintf("sentinel_%s.db", SessionStartTime.Format("20060102_150405")))
	if err := dbm.Connect(); err != nil {
		return err
	}
	defer dbm.Close()
	if err := dbm.Setup(); err != nil {
		return err
	}

	// canonical stores, one per entity family
	devices := store.New[core.Device]("devices", log)
	events := store.New[core.Event]("events", log)
	accounts := store.New[*core.Account]("accounts", log)
	logins := store.New[*core.LoginRecord]("logins", log)

	devices.Run(ctx)
	events.Run(ctx)
	accounts.Run(ctx)
	logins.Run(ctx)

	// derived views
	openEvents := store.NewView("open-events", events, func(e core.Event) bool {
		return e.Base().Open
	}, log)
	faultedDevices := store.NewView("faulted-devices", devices, func(d core.Device) bool {
		return d.Base().Status == core.StatusFault
	}, log)

	// orchestrators
	deviceSvc := service.NewDeviceService(dbm.DB, devices, log)
	eventSvc := service.NewEventService(dbm.DB, events, log)
	accountSvc := service.NewAccountService(dbm.DB, accounts, log)
	loginSvc := service.NewLoginService(dbm.DB, logins, log)
	accountSvc.SetLoginService(loginSvc)

	for name, svc := range map[string]interface {
		Connect(context.Context) error
	}{
		"devices": deviceSvc, "events": eventSvc, "accounts": accountSvc, "logins": loginSvc,
	} {
		if err := svc.Connect(ctx); err != nil {
			return fmt.Errorf("connecting %s service: %w", name, err)
		}
	}
	defer func() {
		deviceSvc.Disconnect()
		eventSvc.Disconnect()
		accountSvc.Disconnect()
		loginSvc.Disconnect()
	}()

	// initial hydration
	if err := deviceSvc.Rehydrate(ctx); err != nil {
		return err
	}
	if err := eventSvc.Rehydrate(ctx); err != nil {
		return err
	}
	if err := accountSvc.Rehydrate(ctx); err != nil {
		return err
	}
	if err := loginSvc.Rehydrate(ctx); err != nil {
		return err
	}

	// ingest routing
	router, err := ingest.New(log)
	if err != nil {
		return err
	}
	ingest.RegisterRoutes(router, ingest.Services{
		Devices: deviceSvc,
		Events:  eventSvc,
	}, log)

	// telemetry
	influxManager := telemetry.NewManager(log,
		filepath.Join(viper.GetString("logsDir"), "influx_backup.log.gzip"))
	if err := influxManager.Connect(); err != nil {
		log.Warn().Err(err).Msg("Telemetry disabled")
	} else {
		defer influxManager.Close()
		collector := telemetry.NewCollector(influxManager, telemetry.Sources{
			Devices:  devices,
			Events:   events,
			Accounts: accounts,
			Logins:   logins,
		}, log)
		go collector.Run(ctx)
	}

	log.Info().
		Int("devices", devices.Len()).
		Int("openEvents", openEvents.Len()).
		Int("faultedDevices", faultedDevices.Len()).
		Msg("Ready")

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}
