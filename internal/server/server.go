// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/error-tracker/internal/alert"
	"github.com/smartdevs17/error-tracker/internal/ingest"
	"github.com/smartdevs17/error-tracker/internal/metrics"
	"github.com/smartdevs17/error-tracker/internal/notification"
	"github.com/smartdevs17/error-tracker/internal/storage"
	"github.com/smartdevs17/error-tracker/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
}

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	storage        storage.Storage
	ingest         *ingest.Service
	engine         *alert.Engine
	dispatcher     *notification.Dispatcher
	metricsManager *metrics.Manager
	logger         *logrus.Logger
	startTime      time.Time
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	config *ServerConfig,
	store storage.Storage,
	ingestService *ingest.Service,
	engine *alert.Engine,
	dispatcher *notification.Dispatcher,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {

	server := &HTTPServer{
		config:         config,
		storage:        store,
		ingest:         ingestService,
		engine:         engine,
		dispatcher:     dispatcher,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
		startTime:      time.Now(),
	}

	// Setup router
	server.setupRouter()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server, nil
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// Root and health endpoints
	s.router.HandleFunc("/", s.rootHandler).Methods("GET")
	if s.config.EnableHealth {
		s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
		s.router.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	// Metrics endpoint
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	// Error endpoints
	s.router.HandleFunc("/api/errors", s.createErrorHandler).Methods("POST")
	s.router.HandleFunc("/api/errors", s.listErrorsHandler).Methods("GET")
	s.router.HandleFunc("/api/errors/{id}", s.getErrorHandler).Methods("GET")
	s.router.HandleFunc("/api/errors/{id}", s.updateErrorHandler).Methods("PATCH")
	s.router.HandleFunc("/api/errors/{id}", s.deleteErrorHandler).Methods("DELETE")

	// Statistics endpoints
	s.router.HandleFunc("/api/stats/summary", s.statsSummaryHandler).Methods("GET")
	s.router.HandleFunc("/api/stats/timeline", s.statsTimelineHandler).Methods("GET")
	s.router.HandleFunc("/api/stats/top-errors", s.statsTopErrorsHandler).Methods("GET")

	// Group endpoints
	s.router.HandleFunc("/groups", s.listGroupsHandler).Methods("GET")
	s.router.HandleFunc("/groups/{id}", s.getGroupHandler).Methods("GET")
	s.router.HandleFunc("/groups/{id}", s.updateGroupHandler).Methods("PATCH")
	s.router.HandleFunc("/groups/{id}", s.deleteGroupHandler).Methods("DELETE")

	// Alert rule endpoints
	s.router.HandleFunc("/alerts", s.listAlertsHandler).Methods("GET")
	s.router.HandleFunc("/alerts", s.createAlertHandler).Methods("POST")
	s.router.HandleFunc("/alerts/{id}", s.getAlertHandler).Methods("GET")
	s.router.HandleFunc("/alerts/{id}", s.updateAlertHandler).Methods("PATCH")
	s.router.HandleFunc("/alerts/{id}", s.deleteAlertHandler).Methods("DELETE")
	s.router.HandleFunc("/alerts/{id}/toggle", s.toggleAlertHandler).Methods("POST")
	s.router.HandleFunc("/alerts/{id}/notifications", s.alertNotificationsHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		go s.systemMetricsUpdater()
	}

	// Create a channel to receive startup errors
	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithField("error", err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the server a moment to start and check for immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.metricsManager.UpdateSystemMetrics()
		s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("storage", s.storage.Ping() == nil)
		if s.engine != nil {
			s.metricsManager.GetPrometheusMetrics().UpdateComponentHealth("alert_engine", s.engine.IsRunning())
		}
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handler returns the underlying router. Used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Utility Methods

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithField("error", err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response with an explicit status
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().UTC(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err,
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}

// writeAppError maps an application error onto an HTTP status
func (s *HTTPServer) writeAppError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case utils.ErrCodeValidation:
			status = http.StatusBadRequest
		case utils.ErrCodeNotFound:
			status = http.StatusNotFound
		case utils.ErrCodeConflict:
			status = http.StatusConflict
		case utils.ErrCodeStorageTimeout:
			status = http.StatusServiceUnavailable
		}
	}

	s.writeError(w, status, message, err)
}
