// Package config handles loading and validating the jukebox configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nadzzz/jukebox/internal/message"
)

// Config is the root configuration for the jukebox daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	LMS        LMSConfig        `mapstructure:"lms"`
	Players    PlayersConfig    `mapstructure:"players"`
	Playback   PlaybackConfig   `mapstructure:"playback"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each inbound transport.
type TransportsConfig struct {
	Trigger TriggerConfig `mapstructure:"trigger"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	GRPC    GRPCConfig    `mapstructure:"grpc"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
}

// TriggerConfig configures the raw TCP trigger listener.
type TriggerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Port        int           `mapstructure:"port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Burst       int           `mapstructure:"burst"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Broker     string         `mapstructure:"broker"`
	ClientID   string         `mapstructure:"client_id"`
	Username   string         `mapstructure:"username"`
	Password   string         `mapstructure:"password"`
	Topic      string         `mapstructure:"topic"`
	ReplyTopic string         `mapstructure:"reply_topic"`
	QoS        int            `mapstructure:"qos"`
	Embedded   EmbeddedBroker `mapstructure:"embedded"`
}

// EmbeddedBroker configures the optional in-process MQTT broker.
type EmbeddedBroker struct {
	Enabled        bool   `mapstructure:"enabled"`
	Listen         string `mapstructure:"listen"`
	AllowAnonymous bool   `mapstructure:"allow_anonymous"`
}

// LMSConfig locates the Logitech Media Server CLI.
type LMSConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Addr returns host:port of the LMS CLI.
func (c LMSConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PlayersConfig lists the device sources and the default player.
//
// DefaultName, when found in the loaded registry, overrides DefaultID.
// Devices is a list rather than a name-keyed map because viper lower-cases
// map keys and player names are matched case-sensitively.
type PlayersConfig struct {
	DefaultName   string           `mapstructure:"default_name"`
	DefaultID     string           `mapstructure:"default_id"`
	CastbridgeXML string           `mapstructure:"castbridge_xml"`
	DevicesFile   string           `mapstructure:"devices_file"`
	Devices       []message.Device `mapstructure:"devices"`
}

// PlaybackConfig bounds the search-and-play polling.
type PlaybackConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ClearAttempts  int           `mapstructure:"clear_attempts"`
	ResultAttempts int           `mapstructure:"result_attempts"`
	Deadline       time.Duration `mapstructure:"deadline"` // per wait step, 0 = attempts only
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`   // empty logs to stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Stdout     bool   `mapstructure:"stdout"` // mirror file output to stdout
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./jukebox.yaml, ./configs/jukebox.yaml, /etc/jukebox/jukebox.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("jukebox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/jukebox")
	}

	// Environment variables: JUKEBOX_LMS_HOST, JUKEBOX_PLAYERS_DEFAULT_ID, etc.
	v.SetEnvPrefix("JUKEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${MQTT_PASSWORD}")
	cfg.Transports.MQTT.Password = resolveEnvRef(cfg.Transports.MQTT.Password)
	cfg.Transports.MQTT.Username = resolveEnvRef(cfg.Transports.MQTT.Username)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.trigger.enabled", true)
	v.SetDefault("transports.trigger.port", 8123)
	v.SetDefault("transports.trigger.read_timeout", 10*time.Second)
	v.SetDefault("transports.trigger.rate_limit", 0.0)
	v.SetDefault("transports.trigger.burst", 1)
	v.SetDefault("transports.http.enabled", false)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.client_id", "jukebox")
	v.SetDefault("transports.mqtt.topic", "jukebox/command")
	v.SetDefault("transports.mqtt.reply_topic", "jukebox/result")
	v.SetDefault("transports.mqtt.qos", 1)
	v.SetDefault("transports.mqtt.embedded.enabled", false)
	v.SetDefault("transports.mqtt.embedded.listen", "127.0.0.1:1883")
	v.SetDefault("transports.mqtt.embedded.allow_anonymous", true)
	v.SetDefault("lms.host", "localhost")
	v.SetDefault("lms.port", 9090)
	v.SetDefault("lms.timeout", 5*time.Second)
	v.SetDefault("players.default_name", "kitchen")
	v.SetDefault("players.default_id", "cc:cc:5c:56:cb:58")
	v.SetDefault("players.castbridge_xml", "")
	v.SetDefault("players.devices_file", "")
	v.SetDefault("playback.poll_interval", time.Second)
	v.SetDefault("playback.clear_attempts", 30)
	v.SetDefault("playback.result_attempts", 19)
	v.SetDefault("playback.deadline", time.Duration(0))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 64)
	v.SetDefault("logging.max_backups", 9)
	v.SetDefault("logging.stdout", false)
}

// Validate checks the values the daemon cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Players.DefaultID == "" {
		errs = append(errs, errors.New("players.default_id is required"))
	}
	if c.LMS.Host == "" {
		errs = append(errs, errors.New("lms.host is required"))
	}
	if c.LMS.Port <= 0 || c.LMS.Port > 65535 {
		errs = append(errs, fmt.Errorf("lms.port %d out of range", c.LMS.Port))
	}
	if c.Playback.PollInterval <= 0 {
		errs = append(errs, errors.New("playback.poll_interval must be positive"))
	}
	if c.Playback.ClearAttempts < 1 || c.Playback.ResultAttempts < 1 {
		errs = append(errs, errors.New("playback attempts must be at least 1"))
	}
	if q := c.Transports.MQTT.QoS; q < 0 || q > 2 {
		errs = append(errs, fmt.Errorf("transports.mqtt.qos %d out of range", q))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
// With a log file set, output goes to a size-rotated file, and also to
// stdout when cfg.Stdout is true.
func SetupLogging(cfg LoggingConfig) {
	slog.SetDefault(NewLogger(cfg, os.Stdout))
}

// NewLogger builds the logger SetupLogging installs, writing to stdout when
// no file is configured.
func NewLogger(cfg LoggingConfig, stdout io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var out io.Writer = stdout
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out = rotated
		if cfg.Stdout {
			out = io.MultiWriter(rotated, stdout)
		}
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
