package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"gallon-leak-watch/internal/alerting"
	"gallon-leak-watch/internal/config"
	"gallon-leak-watch/internal/inventory"
	"gallon-leak-watch/internal/metrics"
	"gallon-leak-watch/internal/monitor"
	"gallon-leak-watch/internal/sensor"
	"gallon-leak-watch/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newSource selects the pressure source from configuration.
func (a *App) newSource() (sensor.Source, error) {
	cfg := a.Config.Sensor
	switch cfg.Kind {
	case "analog":
		read := sensor.SysfsVoltageReader(cfg.Analog.DevicePath, cfg.Analog.VoltsPerBit)
		return sensor.NewAnalog(sensor.AnalogOptions{
			VoltageLow:  cfg.Analog.VoltageLow,
			VoltageHigh: cfg.Analog.VoltageHigh,
			Scale:       cfg.Analog.Scale,
			Channel:     cfg.Analog.Channel,
		}, read, a.Logger)
	case "digital":
		read := sensor.SysfsUnitReader(cfg.Digital.ValuePath)
		return sensor.NewDigital(sensor.DigitalOptions{
			UnitFactor: cfg.Digital.UnitFactor,
		}, read, a.Logger)
	case "opcua":
		return sensor.NewOPCUA(sensor.OPCUAOptions{
			Endpoint:       cfg.OPCUA.Endpoint,
			NodeID:         cfg.OPCUA.NodeID,
			SecurityMode:   cfg.OPCUA.SecurityMode,
			SecurityPolicy: cfg.OPCUA.SecurityPolicy,
			Username:       cfg.OPCUA.Username,
			Password:       cfg.OPCUA.Password,
			RequestTimeout: cfg.OPCUA.RequestTimeout,
		}, a.Logger)
	case "simulated":
		return a.newSimulatedSource(), nil
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", cfg.Kind)
	}
}

func (a *App) newSimulatedSource() *sensor.Simulated {
	return sensor.NewSimulated(sensor.SimOptions{
		BasePressure: a.Config.Sensor.Sim.BasePressure,
		// Decay just past the threshold so an armed simulation always
		// crosses the confirmation rule within the monitoring window.
		DecaySpan:   a.Config.Monitor.ThresholdPct + 5,
		DecayWindow: a.Config.Monitor.Duration,
	})
}

func (a *App) newMonitorConfig() monitor.Config {
	cfg := a.Config.Monitor
	return monitor.Config{
		ThresholdPct:    cfg.ThresholdPct,
		Duration:        cfg.Duration,
		WindowSize:      cfg.WindowSize,
		SampleInterval:  cfg.SampleInterval,
		BaselineSamples: cfg.BaselineSamples,
		BaselineSpacing: cfg.BaselineSpacing,
		StopTimeout:     cfg.StopTimeout,
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*inventory.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := inventory.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := inventory.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Watch runs one long-lived monitoring session for a gallon.
func (a *App) Watch(ctx context.Context, gallonID string) error {
	src, err := a.newSource()
	if err != nil {
		return err
	}
	return a.watch(ctx, gallonID, src)
}

func (a *App) watch(ctx context.Context, gallonID string, src sensor.Source) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	mon, err := monitor.New(src, a.newMonitorConfig(), a.Logger)
	if err != nil {
		return err
	}

	var metricSet *metrics.Metrics
	var metricsSrv *metrics.Server
	if a.Config.Metrics.Enabled {
		metricSet = metrics.New()
		metricsSrv = metrics.NewServer(a.Config.Metrics.ListenAddr, metricSet, mon.Status, a.Logger)
		metricsSrv.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	stores := service.Stores{}
	if store != nil {
		stores = service.Stores{
			Gallons: store,
			Samples: store,
			Leaks:   store,
			Locker:  store,
		}
	}

	watcher := service.New(a.Config, mon, stores, a.newNotifier(), metricSet, a.Logger)

	a.Logger.Info().Str("inventory_id", gallonID).Str("sensor", src.Kind()).Msg("starting leak watch")
	err = watcher.Watch(ctx, gallonID)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("leak watch terminated with error")
		return err
	}

	a.Logger.Info().Str("inventory_id", gallonID).Msg("leak watch finished")
	return nil
}

// ExportOptions hold parameters for exporting pressure history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
	Leaks bool
}
