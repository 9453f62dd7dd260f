package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/cache"
	"github.com/textmill/textmill/internal/config"
	"github.com/textmill/textmill/internal/history"
	"github.com/textmill/textmill/internal/logger"
	"github.com/textmill/textmill/internal/masking"
	"github.com/textmill/textmill/internal/security"
	"github.com/textmill/textmill/internal/web"
	"github.com/textmill/textmill/internal/websocket"
)

// Server represents the main conversion API server
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	limiter *security.RateLimiter

	// engine, config.Masking, and config.Convert are swapped on config
	// reload; guarded by engineMu. Handlers read them through the
	// maskingEngine, maskingEnabled, and convertDefaults accessors.
	engine   *masking.Engine
	engineMu sync.RWMutex

	// optional collaborators, nil when disabled
	cache   *cache.ResultCache
	history *history.Store

	startTime     time.Time
	totalRequests int64
}

// New creates a new API server instance
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	// Create masking engine
	engine, err := masking.New(cfg.Masking, log.WithComponent("masking"))
	if err != nil {
		return nil, fmt.Errorf("failed to create masking engine: %w", err)
	}

	// Create WebSocket hub
	hubConfig := &websocket.HubConfig{
		BroadcastConversions: cfg.WebSocket.Events.BroadcastConversions,
		BroadcastMaskings:    cfg.WebSocket.Events.BroadcastMaskings,
		BroadcastSystem:      cfg.WebSocket.Events.BroadcastSystem,
		BroadcastConnections: cfg.WebSocket.Events.BroadcastConnections,
		Username:             cfg.WebSocket.Username,
		Password:             cfg.WebSocket.Password,
	}
	wsHub := websocket.NewHub(hubConfig, log.WithComponent("websocket").Logger)

	server := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		engine:    engine,
		router:    mux.NewRouter(),
		wsHub:     wsHub,
		limiter:   security.NewRateLimiter(&cfg.Server),
		startTime: time.Now(),
	}

	// Optional Redis result cache
	if cfg.Cache.Enabled {
		resultCache, err := cache.New(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		server.cache = resultCache
	}

	// Optional Postgres usage history
	if cfg.History.Enabled {
		store, err := history.NewStore(&cfg.History, log.WithComponent("history").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.history = store
	}

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Dashboard endpoint - embedded HTML
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// WebSocket endpoint for dashboard
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)

	// Conversion endpoints
	api.HandleFunc("/convert/csv-to-json", s.handleOperation(opCSVToJSON)).Methods("POST")
	api.HandleFunc("/convert/json-to-csv", s.handleOperation(opJSONToCSV)).Methods("POST")
	api.HandleFunc("/convert/xml-to-json", s.handleOperation(opXMLToJSON)).Methods("POST")
	api.HandleFunc("/convert/json-to-xml", s.handleOperation(opJSONToXML)).Methods("POST")
	api.HandleFunc("/convert/yaml-to-json", s.handleOperation(opYAMLToJSON)).Methods("POST")
	api.HandleFunc("/convert/json-to-yaml", s.handleOperation(opJSONToYAML)).Methods("POST")

	// Formatting endpoints
	api.HandleFunc("/format/json", s.handleOperation(opFormatJSON)).Methods("POST")
	api.HandleFunc("/format/yaml", s.handleOperation(opFormatYAML)).Methods("POST")

	// Validation endpoints
	api.HandleFunc("/validate/json", s.handleValidate(opValidateJSON)).Methods("POST")
	api.HandleFunc("/validate/yaml", s.handleValidate(opValidateYAML)).Methods("POST")
	api.HandleFunc("/validate/xml", s.handleValidate(opValidateXML)).Methods("POST")

	// Masking endpoint
	api.HandleFunc("/mask", s.handleMask).Methods("POST")

	// Operational endpoints
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/history/recent", s.handleHistoryRecent).Methods("GET")
	api.HandleFunc("/cache", s.handleCacheClear).Methods("DELETE")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting textmill API server",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("history_enabled", s.history != nil),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	// Start rate limiter cleanup
	s.limiter.StartCleanupRoutine()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping textmill API server")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("Failed to close result cache", zap.Error(err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("Failed to close history store", zap.Error(err))
		}
	}
	return nil
}

// ApplyConfig swaps in masking settings from a reloaded configuration.
// Server-level settings (port, timeouts, cache, history) require a restart.
func (s *Server) ApplyConfig(cfg *config.Config) error {
	engine, err := masking.New(cfg.Masking, s.logger.WithComponent("masking"))
	if err != nil {
		return fmt.Errorf("failed to rebuild masking engine: %w", err)
	}

	s.engineMu.Lock()
	s.engine = engine
	s.config.Masking = cfg.Masking
	s.config.Convert = cfg.Convert
	s.engineMu.Unlock()

	s.logger.Info("Configuration reloaded",
		zap.Strings("detectors", cfg.Masking.Detectors),
		zap.Int("default_indent", cfg.Convert.DefaultIndent),
	)
	return nil
}

// maskingEngine returns the current masking engine
func (s *Server) maskingEngine() *masking.Engine {
	s.engineMu.RLock()
	defer s.engineMu.RUnlock()
	return s.engine
}

// convertDefaults returns a snapshot of the current conversion defaults
func (s *Server) convertDefaults() config.ConvertConfig {
	s.engineMu.RLock()
	defer s.engineMu.RUnlock()
	return s.config.Convert
}

// maskingEnabled reports whether masking is currently enabled
func (s *Server) maskingEnabled() bool {
	s.engineMu.RLock()
	defer s.engineMu.RUnlock()
	return s.config.Masking.Enabled
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}
