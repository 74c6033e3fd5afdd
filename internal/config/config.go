package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// ENVNODE_ADVISORY_API_KEY for advisory.api_key.
const EnvPrefix = "ENVNODE"

// Config is the full runtime configuration of the node.
type Config struct {
	Port         string             `mapstructure:"port"`
	DB           DBConfig           `mapstructure:"db"`
	Log          LogConfig          `mapstructure:"log"`
	Device       DeviceConfig       `mapstructure:"device"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Policy       PolicyConfig       `mapstructure:"policy"`
	Advisory     AdvisoryConfig     `mapstructure:"advisory"`
	MQTT         MQTTConfig         `mapstructure:"mqtt"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Simulation   SimulationConfig   `mapstructure:"simulation"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DeviceConfig tunes the control loop.
type DeviceConfig struct {
	LoopInterval time.Duration `mapstructure:"loop_interval"`
	RestartDelay time.Duration `mapstructure:"restart_delay"`
	// ReconnectBackoff spaces reconnect attempts while neither a saved
	// network nor the access point comes up.
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
}

// ConnectivityConfig holds the join budgets and the access point identity.
type ConnectivityConfig struct {
	SavedJoinAttempts  int           `mapstructure:"saved_join_attempts"`
	SavedJoinInterval  time.Duration `mapstructure:"saved_join_interval"`
	PortalJoinAttempts int           `mapstructure:"portal_join_attempts"`
	PortalJoinInterval time.Duration `mapstructure:"portal_join_interval"`
	APName             string        `mapstructure:"ap_name"`
	APPassphrase       string        `mapstructure:"ap_passphrase"`
}

// SchedulerConfig holds task periods in milliseconds.
type SchedulerConfig struct {
	SamplePeriodMs   int64 `mapstructure:"sample_period_ms"`
	AdvisoryPeriodMs int64 `mapstructure:"advisory_period_ms"`
}

type PolicyConfig struct {
	HotC  float64 `mapstructure:"hot_c"`
	ColdC float64 `mapstructure:"cold_c"`
}

// AdvisoryConfig configures the external text-generation endpoint. The
// advisory task is disabled while APIKey is empty.
type AdvisoryConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DisplayHold time.Duration `mapstructure:"display_hold"`
}

// MQTTConfig enables telemetry publishing when Broker is set.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// SimulationConfig drives the host stand-ins for the radio and sensors.
type SimulationConfig struct {
	Networks       []Network `mapstructure:"networks"`
	LinkDropAfter  int       `mapstructure:"link_drop_after"`
	SensorFaultPct float64   `mapstructure:"sensor_fault_pct"`
	Seed           int64     `mapstructure:"seed"`
}

// Network is a network the simulated radio can join.
type Network struct {
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "node.db")
	v.SetDefault("log.level", "info")

	v.SetDefault("device.loop_interval", 100*time.Millisecond)
	v.SetDefault("device.restart_delay", time.Second)
	v.SetDefault("device.reconnect_backoff", 30*time.Second)

	v.SetDefault("connectivity.saved_join_attempts", 10)
	v.SetDefault("connectivity.saved_join_interval", 500*time.Millisecond)
	v.SetDefault("connectivity.portal_join_attempts", 20)
	v.SetDefault("connectivity.portal_join_interval", 500*time.Millisecond)
	v.SetDefault("connectivity.ap_name", "EstacionMeteo-Setup")
	v.SetDefault("connectivity.ap_passphrase", "estacion123")

	v.SetDefault("scheduler.sample_period_ms", 3000)
	v.SetDefault("scheduler.advisory_period_ms", 30000)

	v.SetDefault("policy.hot_c", 30.0)
	v.SetDefault("policy.cold_c", 18.0)

	v.SetDefault("advisory.endpoint", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent")
	v.SetDefault("advisory.api_key", "")
	v.SetDefault("advisory.timeout", 15*time.Second)
	v.SetDefault("advisory.display_hold", 3*time.Second)

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "weather-node")
	v.SetDefault("mqtt.topic_prefix", "weather_station")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("simulation.networks", []map[string]string{})
	v.SetDefault("simulation.link_drop_after", 0)
	v.SetDefault("simulation.sensor_fault_pct", 0.0)
	v.SetDefault("simulation.seed", 0)
}

// Load reads config.yml from dir (a missing file is fine), applies
// environment overrides and validates the result.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the control loop cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Device.LoopInterval <= 0 {
		errs = append(errs, errors.New("device.loop_interval must be positive"))
	}
	if c.Device.ReconnectBackoff <= 0 {
		errs = append(errs, errors.New("device.reconnect_backoff must be positive"))
	}
	if c.Connectivity.SavedJoinAttempts <= 0 || c.Connectivity.PortalJoinAttempts <= 0 {
		errs = append(errs, errors.New("connectivity join attempts must be positive"))
	}
	if c.Connectivity.SavedJoinInterval <= 0 || c.Connectivity.PortalJoinInterval <= 0 {
		errs = append(errs, errors.New("connectivity join intervals must be positive"))
	}
	if c.Connectivity.APName == "" {
		errs = append(errs, errors.New("connectivity.ap_name is required"))
	}
	if n := len(c.Connectivity.APPassphrase); n > 0 && n < 8 {
		errs = append(errs, errors.New("connectivity.ap_passphrase must be empty or at least 8 characters"))
	}
	if c.Scheduler.SamplePeriodMs <= 0 || c.Scheduler.AdvisoryPeriodMs <= 0 {
		errs = append(errs, errors.New("scheduler periods must be positive"))
	}
	if c.Policy.ColdC > c.Policy.HotC {
		errs = append(errs, fmt.Errorf("policy.cold_c %.1f is above policy.hot_c %.1f", c.Policy.ColdC, c.Policy.HotC))
	}
	if c.Advisory.Timeout <= 0 {
		errs = append(errs, errors.New("advisory.timeout must be positive"))
	}
	if c.Simulation.SensorFaultPct < 0 || c.Simulation.SensorFaultPct > 100 {
		errs = append(errs, errors.New("simulation.sensor_fault_pct must be within 0..100"))
	}

	return errors.Join(errs...)
}
