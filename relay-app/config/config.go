// Package config loads the relay application configuration from a yaml file
// with environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	apisrv "github.com/framewire-net/framewire/server/api"
)

// Config holds the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	API     apisrv.Config `mapstructure:"api"     yaml:"api"`
	Relay   RelayConfig   `mapstructure:"relay"   yaml:"relay"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log"     yaml:"log"`
}

// ServerConfig holds the framed TCP server configuration.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"      yaml:"listen_addr"      env:"SERVER_LISTEN_ADDR"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"`
	MaxMessageSize  uint32        `mapstructure:"max_message_size" yaml:"max_message_size" env:"SERVER_MAX_MESSAGE_SIZE"`
	MaxConnections  int           `mapstructure:"max_connections"  yaml:"max_connections"  env:"SERVER_MAX_CONNECTIONS"`
	Encoding        string        `mapstructure:"encoding"         yaml:"encoding"         env:"SERVER_ENCODING"`
	AcceptEncodings []string      `mapstructure:"accept_encodings" yaml:"accept_encodings"`
	WriteRate       float64       `mapstructure:"write_rate"       yaml:"write_rate"       env:"SERVER_WRITE_RATE"`
	WriteBurst      int           `mapstructure:"write_burst"      yaml:"write_burst"      env:"SERVER_WRITE_BURST"`
}

// RelayConfig selects what the relay does with inbound messages.
type RelayConfig struct {
	// Mode is "echo" (reply to the sender) or "broadcast" (forward to
	// every other connection).
	Mode string `mapstructure:"mode" yaml:"mode" env:"RELAY_MODE"`
	// StatsInterval is the cadence of the periodic connection-stats log
	// line. Zero disables it.
	StatsInterval time.Duration `mapstructure:"stats_interval" yaml:"stats_interval" env:"RELAY_STATS_INTERVAL"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; a decode failure here is a programming error.
		panic(fmt.Sprintf("default config: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":9000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "20s")
	v.SetDefault("server.max_message_size", 4*1024*1024)
	v.SetDefault("server.max_connections", 256)
	v.SetDefault("server.encoding", "")
	v.SetDefault("server.accept_encodings", []string{"zstd", "gzip", "snappy"})
	v.SetDefault("server.write_rate", 0)
	v.SetDefault("server.write_burst", 0)

	v.SetDefault("api.listen_addr", ":8081")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.idle_timeout", "120s")
	v.SetDefault("api.shutdown_timeout", "10s")

	v.SetDefault("relay.mode", "echo")
	v.SetDefault("relay.stats_interval", "30s")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Relay.Mode != "echo" && c.Relay.Mode != "broadcast" {
		return fmt.Errorf("relay.mode must be echo or broadcast, got %q", c.Relay.Mode)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	if c.Relay.StatsInterval < 0 {
		return fmt.Errorf("relay.stats_interval must not be negative")
	}
	return nil
}

// Dump renders the effective configuration as yaml, for `--dump-config`.
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return string(out), nil
}
