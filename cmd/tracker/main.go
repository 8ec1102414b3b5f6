// File: cmd/tracker/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/error-tracker/internal/aggregate"
	"github.com/smartdevs17/error-tracker/internal/alert"
	"github.com/smartdevs17/error-tracker/internal/config"
	"github.com/smartdevs17/error-tracker/internal/ingest"
	"github.com/smartdevs17/error-tracker/internal/metrics"
	"github.com/smartdevs17/error-tracker/internal/notification"
	"github.com/smartdevs17/error-tracker/internal/server"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application represents the main application
type Application struct {
	config     *config.Config
	logger     *logrus.Logger
	storage    storage.Storage
	windows    *aggregate.Windows
	ingest     *ingest.Service
	engine     *alert.Engine
	dispatcher *notification.Dispatcher
	metrics    *metrics.Manager
	server     *server.HTTPServer
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	rotation := &utils.LogRotation{
		MaxSizeMB:  logCfg.MaxSize,
		MaxBackups: logCfg.MaxBackups,
		MaxAgeDays: logCfg.MaxAge,
	}
	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File, rotation); err != nil {
		return err
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	app.metrics = metrics.NewManager()

	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initializePipeline()

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeStorage initializes the storage layer
func (app *Application) initializeStorage() error {
	app.logger.Info("Initializing storage layer")

	storageCfg := &storage.StorageConfig{
		Type:             app.config.Storage.Type,
		ConnectionString: app.config.Storage.ConnectionString,
		MaxConnections:   app.config.Storage.MaxConnections,
		MaxIdleTime:      app.config.Storage.MaxIdleTime,
		QueryTimeout:     app.config.Storage.QueryTimeout,
	}

	store, err := storage.NewStorage(storageCfg)
	if err != nil {
		return err
	}
	if err := store.Connect(); err != nil {
		return err
	}
	if err := store.Migrate(); err != nil {
		return err
	}

	app.storage = store
	app.logger.Info("Storage layer initialized successfully")
	return nil
}

// initializePipeline wires the ingestion, aggregation, alerting and
// notification components together
func (app *Application) initializePipeline() {
	app.windows = aggregate.NewWindows()

	resolver := ingest.NewGroupResolver(app.storage, app.metrics,
		app.config.Storage.QueryTimeout,
		app.config.Ingest.RetryAttempts, app.config.Ingest.RetryDelay)
	app.ingest = ingest.NewService(app.storage, resolver, app.metrics,
		app.config.Storage.QueryTimeout)

	app.engine = alert.NewEngine(app.storage, app.windows, app.metrics,
		app.config.Storage.QueryTimeout, app.config.Alerts.TickInterval)
	app.ingest.SetSink(app.engine)

	app.dispatcher = notification.NewDispatcher(app.storage, app.metrics, notification.Config{
		Enabled:       app.config.Notifications.Enabled,
		Timeout:       app.config.Notifications.NotificationTimeout,
		RetryAttempts: app.config.Notifications.RetryAttempts,
		RetryDelay:    app.config.Notifications.RetryDelay,
		Email: notification.EmailConfig{
			SMTPHost:  app.config.Notifications.SMTPHost,
			SMTPPort:  app.config.Notifications.SMTPPort,
			Username:  app.config.Notifications.SMTPUsername,
			Password:  app.config.Notifications.SMTPPassword,
			FromEmail: app.config.Notifications.FromEmail,
			FromName:  app.config.Notifications.FromName,
		},
	})
	app.engine.SetDispatcher(app.dispatcher)
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	app.logger.Info("Initializing HTTP server")

	serverCfg := &server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
	}

	srv, err := server.NewHTTPServer(serverCfg, app.storage, app.ingest,
		app.engine, app.dispatcher, app.metrics)
	if err != nil {
		return err
	}

	app.server = srv
	app.logger.Info("HTTP server initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting error tracker")

	if app.config.Alerts.Enabled {
		if err := app.engine.Start(app.ctx); err != nil {
			return fmt.Errorf("failed to start alert engine: %w", err)
		}
	}

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"storage_type":   app.config.Storage.Type,
		"alerts_enabled": app.config.Alerts.Enabled,
	}).Info("Error tracker started successfully")

	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping error tracker")

	app.cancel()

	// Stop components in reverse order
	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithField("error", err).Error("Failed to stop HTTP server")
		}
	}

	if app.engine != nil {
		if err := app.engine.Stop(); err != nil {
			app.logger.WithField("error", err).Error("Failed to stop alert engine")
		}
	}

	if app.dispatcher != nil {
		if err := app.dispatcher.Stop(); err != nil {
			app.logger.WithField("error", err).Error("Failed to stop notification dispatcher")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithField("error", err).Error("Failed to close storage")
		}
	}

	app.logger.Info("Error tracker stopped successfully")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "error-tracker",
	Short:   "Error grouping and alerting engine",
	Long:    `An error-tracking service that ingests raw error events, deduplicates them into groups via deterministic fingerprints, and evaluates alert rules against the incoming stream with time windows and cooldowns.`,
	Version: AppVersion,
	RunE:    runTracker,
}

// runTracker is the main command to run the error tracker
func runTracker(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	// Set up signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Error Tracker %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		fmt.Printf("Alerts enabled: %v\n", cfg.Alerts.Enabled)

		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Testing error tracker connectivity...")

		fmt.Printf("Testing storage connection (%s)...\n", cfg.Storage.Type)
		store, err := storage.NewStorage(&storage.StorageConfig{
			Type:             cfg.Storage.Type,
			ConnectionString: cfg.Storage.ConnectionString,
			MaxConnections:   cfg.Storage.MaxConnections,
			MaxIdleTime:      cfg.Storage.MaxIdleTime,
			QueryTimeout:     cfg.Storage.QueryTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Connect(); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		defer store.Close()
		fmt.Println("✓ Storage connection successful")

		if cfg.Notifications.SMTPHost != "" {
			fmt.Printf("SMTP configured: %s:%d\n", cfg.Notifications.SMTPHost, cfg.Notifications.SMTPPort)
		}

		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
