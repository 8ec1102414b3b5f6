// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Ingest        IngestConfig       `mapstructure:"ingest"`
	Alerts        AlertConfig        `mapstructure:"alerts"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Server        ServerConfig       `mapstructure:"server"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// StorageConfig contains database configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`
}

// IngestConfig contains ingestion pipeline configuration
type IngestConfig struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// AlertConfig contains alert rule engine configuration
type AlertConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// NotificationConfig contains notification dispatcher configuration
type NotificationConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	NotificationTimeout time.Duration `mapstructure:"notification_timeout"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	RetryDelay          time.Duration `mapstructure:"retry_delay"`
	SMTPHost            string        `mapstructure:"smtp_host"`
	SMTPPort            int           `mapstructure:"smtp_port"`
	SMTPUsername        string        `mapstructure:"smtp_username"`
	SMTPPassword        string        `mapstructure:"smtp_password"`
	FromEmail           string        `mapstructure:"from_email"`
	FromName            string        `mapstructure:"from_name"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json, text
	Output     string `mapstructure:"output"` // stdout, file
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("ERROR_TRACKER")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "error-tracker")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/errors.db")
	viper.SetDefault("storage.max_connections", 25)
	viper.SetDefault("storage.max_idle_time", "15m")
	viper.SetDefault("storage.query_timeout", "5s")

	// Ingest defaults
	viper.SetDefault("ingest.retry_attempts", 3)
	viper.SetDefault("ingest.retry_delay", "100ms")

	// Alert defaults
	viper.SetDefault("alerts.enabled", true)
	viper.SetDefault("alerts.tick_interval", "30s")

	// Notification defaults
	viper.SetDefault("notifications.enabled", true)
	viper.SetDefault("notifications.notification_timeout", "10s")
	viper.SetDefault("notifications.retry_attempts", 3)
	viper.SetDefault("notifications.retry_delay", "5s")
	viper.SetDefault("notifications.smtp_port", 587)
	viper.SetDefault("notifications.from_email", "noreply@error-tracker.local")
	viper.SetDefault("notifications.from_name", "Error Tracker")

	// Server defaults
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Storage.Type != "sqlite" && c.Storage.Type != "postgres" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.QueryTimeout <= 0 {
		return fmt.Errorf("storage query timeout must be positive")
	}
	if c.Alerts.TickInterval <= 0 {
		return fmt.Errorf("alert tick interval must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	return nil
}
