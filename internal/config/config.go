package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"gallon-leak-watch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Reports  ReportsConfig  `mapstructure:"reports"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SensorConfig selects and calibrates the pressure source.
type SensorConfig struct {
	Kind    string        `mapstructure:"kind"`
	Analog  AnalogConfig  `mapstructure:"analog"`
	Digital DigitalConfig `mapstructure:"digital"`
	OPCUA   OPCUAConfig   `mapstructure:"opcua"`
	Sim     SimConfig     `mapstructure:"sim"`
}

// AnalogConfig holds the voltage-to-pressure linear mapping and the IIO
// device the ADC is exposed through.
type AnalogConfig struct {
	VoltageLow  float64 `mapstructure:"voltage_low"`
	VoltageHigh float64 `mapstructure:"voltage_high"`
	Scale       float64 `mapstructure:"scale"`
	Channel     int     `mapstructure:"channel"`
	DevicePath  string  `mapstructure:"device_path"`
	VoltsPerBit float64 `mapstructure:"volts_per_bit"`
}

// DigitalConfig covers calibrated digital sensors read through IIO.
type DigitalConfig struct {
	UnitFactor float64 `mapstructure:"unit_factor"`
	ValuePath  string  `mapstructure:"value_path"`
}

// OPCUAConfig covers pressure tags exposed over OPC UA.
type OPCUAConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	NodeID         string        `mapstructure:"node_id"`
	SecurityMode   string        `mapstructure:"security_mode"`
	SecurityPolicy string        `mapstructure:"security_policy"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SimConfig tunes the hardware-free simulator.
type SimConfig struct {
	BasePressure float64 `mapstructure:"base_pressure"`
}

// MonitorConfig governs the leak-detection decision.
type MonitorConfig struct {
	ThresholdPct    float64       `mapstructure:"threshold_pct"`
	Duration        time.Duration `mapstructure:"duration"`
	WindowSize      int           `mapstructure:"window_size"`
	SampleInterval  time.Duration `mapstructure:"sample_interval"`
	BaselineSamples int           `mapstructure:"baseline_samples"`
	BaselineSpacing time.Duration `mapstructure:"baseline_spacing"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout"`
	StatusInterval  time.Duration `mapstructure:"status_interval"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram alert channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// MetricsConfig controls the metrics/status HTTP endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// ReportsConfig sets where text artifacts are written.
type ReportsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GALLONWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gallonwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("sensor.kind", "simulated")
	v.SetDefault("sensor.analog.voltage_low", 0.5)
	v.SetDefault("sensor.analog.voltage_high", 4.5)
	v.SetDefault("sensor.analog.scale", 100.0)
	v.SetDefault("sensor.analog.channel", 0)
	v.SetDefault("sensor.analog.device_path", "/sys/bus/iio/devices/iio:device0")
	v.SetDefault("sensor.analog.volts_per_bit", 0.001875)
	v.SetDefault("sensor.digital.unit_factor", 0.1)
	v.SetDefault("sensor.digital.value_path", "/sys/bus/iio/devices/iio:device0/in_pressure_input")
	v.SetDefault("sensor.opcua.security_mode", "None")
	v.SetDefault("sensor.opcua.security_policy", "None")
	v.SetDefault("sensor.opcua.request_timeout", "5s")
	v.SetDefault("sensor.sim.base_pressure", 30.0)

	v.SetDefault("monitor.threshold_pct", 5.0)
	v.SetDefault("monitor.duration", "30s")
	v.SetDefault("monitor.window_size", 10)
	v.SetDefault("monitor.sample_interval", "1s")
	v.SetDefault("monitor.baseline_samples", 5)
	v.SetDefault("monitor.baseline_spacing", "100ms")
	v.SetDefault("monitor.stop_timeout", "2s")
	v.SetDefault("monitor.status_interval", "5s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9190")

	v.SetDefault("reports.dir", "reports")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Sensor.Kind {
	case "analog", "digital", "opcua", "simulated":
	default:
		return fmt.Errorf("sensor.kind %q is not one of analog, digital, opcua, simulated", c.Sensor.Kind)
	}
	if c.Sensor.Kind == "analog" && c.Sensor.Analog.VoltageHigh <= c.Sensor.Analog.VoltageLow {
		return fmt.Errorf("sensor.analog.voltage_high must be greater than voltage_low")
	}
	if c.Sensor.Kind == "digital" && c.Sensor.Digital.UnitFactor <= 0 {
		return fmt.Errorf("sensor.digital.unit_factor must be greater than zero")
	}
	if c.Sensor.Kind == "opcua" {
		if c.Sensor.OPCUA.Endpoint == "" {
			return fmt.Errorf("sensor.opcua.endpoint is required")
		}
		if c.Sensor.OPCUA.NodeID == "" {
			return fmt.Errorf("sensor.opcua.node_id is required")
		}
	}
	if c.Monitor.ThresholdPct <= 0 {
		return fmt.Errorf("monitor.threshold_pct must be greater than zero")
	}
	if c.Monitor.Duration <= 0 {
		return fmt.Errorf("monitor.duration must be greater than zero")
	}
	if c.Monitor.WindowSize <= 0 {
		return fmt.Errorf("monitor.window_size must be greater than zero")
	}
	if c.Monitor.SampleInterval <= 0 {
		return fmt.Errorf("monitor.sample_interval must be greater than zero")
	}
	if c.Monitor.BaselineSamples <= 0 {
		return fmt.Errorf("monitor.baseline_samples must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
