package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Controller link kinds.
const (
	LinkSerial    = "serial"
	LinkMQTT      = "mqtt"
	LinkSimulator = "simulator"
)

// Log store drivers.
const (
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

const envPrefix = "ENCLOSURE"

// Config is the root configuration of the gateway.
type Config struct {
	Port       string           `mapstructure:"port"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	RawTrail   RawTrailConfig   `mapstructure:"raw_trail"`
	Controller ControllerConfig `mapstructure:"controller"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Commands   CommandsConfig   `mapstructure:"commands"`
	Influx     InfluxConfig     `mapstructure:"influx"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects the audit log backend.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

type RawTrailConfig struct {
	Path string `mapstructure:"path"`
}

// ControllerConfig describes how the gateway reaches the enclosure controller.
type ControllerConfig struct {
	Kind           string          `mapstructure:"kind"`
	CommandTimeout time.Duration   `mapstructure:"command_timeout"`
	Serial         SerialConfig    `mapstructure:"serial"`
	MQTT           MQTTConfig      `mapstructure:"mqtt"`
	Simulator      SimulatorConfig `mapstructure:"simulator"`
}

type SerialConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baud_rate"`
}

// MQTTConfig is used when the controller sits behind an MQTT broker.
type MQTTConfig struct {
	Broker         string `mapstructure:"broker"`
	ClientID       string `mapstructure:"client_id"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	TelemetryTopic string `mapstructure:"telemetry_topic"`
	CommandTopic   string `mapstructure:"command_topic"`
	QoS            int    `mapstructure:"qos"`
}

type SimulatorConfig struct {
	Tick       time.Duration `mapstructure:"tick"`
	TravelTime time.Duration `mapstructure:"travel_time"`
}

// AuthConfig guards the command endpoint with operator tokens when Enabled.
type AuthConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type CommandsConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// InfluxConfig enables forwarding of raw readings to InfluxDB.
type InfluxConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	Token         string `mapstructure:"token"`
	Org           string `mapstructure:"org"`
	Bucket        string `mapstructure:"bucket"`
	BatchSize     int    `mapstructure:"batch_size"`
	FlushInterval int    `mapstructure:"flush_interval"` // seconds
}

var (
	errUnknownLink   = errors.New("controller.kind must be serial, mqtt or simulator")
	errUnknownStore  = errors.New("store.driver must be sqlite or badger")
	errMissingSecret = errors.New("auth.signing_key is required when auth is enabled")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.sqlite_path", "history.db")
	v.SetDefault("store.badger_path", "history.badger")
	v.SetDefault("raw_trail.path", "data.txt")
	v.SetDefault("controller.kind", LinkSerial)
	v.SetDefault("controller.command_timeout", 3*time.Second)
	v.SetDefault("controller.serial.port", "/dev/ttyUSB0")
	v.SetDefault("controller.serial.baud_rate", 9600)
	v.SetDefault("controller.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("controller.mqtt.client_id", "enclosure-gateway")
	v.SetDefault("controller.mqtt.username", "")
	v.SetDefault("controller.mqtt.password", "")
	v.SetDefault("controller.mqtt.telemetry_topic", "enclosure/telemetry")
	v.SetDefault("controller.mqtt.command_topic", "enclosure/command")
	v.SetDefault("controller.mqtt.qos", 1)
	v.SetDefault("controller.simulator.tick", time.Second)
	v.SetDefault("controller.simulator.travel_time", 1500*time.Millisecond)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("commands.rate_per_second", 2.0)
	v.SetDefault("commands.burst", 4)
	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "enclosure")
	v.SetDefault("influx.batch_size", 100)
	v.SetDefault("influx.flush_interval", 10)
}

// Load reads the config file at path, or configs/config.yml when path is empty.
// A missing default file is not an error; defaults and ENCLOSURE_* variables apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the gateway cannot run with.
func (c Config) Validate() error {
	switch c.Controller.Kind {
	case LinkSerial, LinkMQTT, LinkSimulator:
	default:
		return fmt.Errorf("%w, got %q", errUnknownLink, c.Controller.Kind)
	}
	switch c.Store.Driver {
	case StoreSQLite, StoreBadger:
	default:
		return fmt.Errorf("%w, got %q", errUnknownStore, c.Store.Driver)
	}
	if c.Auth.Enabled && c.Auth.SigningKey == "" {
		return errMissingSecret
	}
	return nil
}
