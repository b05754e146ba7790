package config

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP server configuration
	Server ServerConfig `mapstructure:"server"`

	// Upstream file host configuration
	Upstream UpstreamConfig `mapstructure:"upstream"`

	// Download proxy configuration
	Download DownloadConfig `mapstructure:"download"`

	// Upstream reachability monitor configuration
	Monitor MonitorConfig `mapstructure:"monitor"`

	// Alerting configuration
	Alerts AlertsConfig `mapstructure:"alerts"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// UpstreamConfig holds file host configuration
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`  // response header timeout, 0 disables
	MaxSize int64         `mapstructure:"max_size"` // bytes, 0 disables
}

// DownloadConfig holds download proxy configuration
type DownloadConfig struct {
	CacheMaxAge time.Duration `mapstructure:"cache_max_age"`
}

// MonitorConfig holds upstream monitor configuration
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"` // 0 disables
}

// AlertsConfig holds Discord alert configuration
type AlertsConfig struct {
	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
	PerMinute         int    `mapstructure:"per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Upstream: UpstreamConfig{
			BaseURL: "https://pixeldrain.com",
			Timeout: 30 * time.Second,
		},
		Download: DownloadConfig{
			CacheMaxAge: time.Hour,
		},
		Monitor: MonitorConfig{
			Interval: time.Minute,
		},
		Alerts: AlertsConfig{
			PerMinute: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	// Set defaults
	def := Default()
	viper.SetDefault("server.addr", def.Server.Addr)
	viper.SetDefault("server.read_header_timeout", def.Server.ReadHeaderTimeout.String())
	viper.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout.String())
	viper.SetDefault("upstream.base_url", def.Upstream.BaseURL)
	viper.SetDefault("upstream.timeout", def.Upstream.Timeout.String())
	viper.SetDefault("upstream.max_size", def.Upstream.MaxSize)
	viper.SetDefault("download.cache_max_age", def.Download.CacheMaxAge.String())
	viper.SetDefault("monitor.interval", def.Monitor.Interval.String())
	viper.SetDefault("alerts.discord_webhook_url", "")
	viper.SetDefault("alerts.per_minute", def.Alerts.PerMinute)
	viper.SetDefault("logging.level", def.Logging.Level)
	viper.SetDefault("logging.format", def.Logging.Format)

	// Read config file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.pixelplay")
	viper.AddConfigPath("/etc/pixelplay")

	// Allow environment variables
	viper.SetEnvPrefix("PIXELPLAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return &ConfigError{Field: "server.addr", Message: "listen address is required"}
	}
	if c.Upstream.BaseURL == "" {
		return &ConfigError{Field: "upstream.base_url", Message: "upstream base URL is required"}
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ConfigError{Field: "upstream.base_url", Message: "upstream base URL must be absolute"}
	}
	if c.Upstream.Timeout < 0 {
		return &ConfigError{Field: "upstream.timeout", Message: "must not be negative"}
	}
	if c.Upstream.MaxSize < 0 {
		return &ConfigError{Field: "upstream.max_size", Message: "must not be negative"}
	}
	if c.Download.CacheMaxAge < 0 {
		return &ConfigError{Field: "download.cache_max_age", Message: "must not be negative"}
	}
	if c.Monitor.Interval < 0 {
		return &ConfigError{Field: "monitor.interval", Message: "must not be negative"}
	}
	if c.Alerts.DiscordWebhookURL != "" && c.Alerts.PerMinute <= 0 {
		return &ConfigError{Field: "alerts.per_minute", Message: "must be positive when alerts are enabled"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
