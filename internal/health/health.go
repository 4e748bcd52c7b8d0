package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/strategy"
	"github.com/amaslov/equitybot/pkg/logger"
	"github.com/amaslov/equitybot/pkg/models"
)

// Broker is pinged to verify brokerage connectivity
type Broker interface {
	Ping(ctx context.Context) error
}

// Engine exposes the orchestrator state the probes report on
type Engine interface {
	Status() models.BotStatus
	CurrentSelection() strategy.Selection
}

// Server provides health check HTTP endpoints for K8s
type Server struct {
	server          *http.Server
	broker          Broker
	engine          Engine
	selectionMaxAge time.Duration
	ready           bool
	readyMu         sync.RWMutex
	startTime       time.Time
}

// HealthStatus represents system health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents system readiness
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Engine    EngineStatus      `json:"engine"`
}

// EngineStatus shows orchestrator state
type EngineStatus struct {
	Status         string `json:"status"`
	SelectedStocks int    `json:"selected_stocks"`
	SelectionAge   string `json:"selection_age"`
}

// NewServer creates new health check server. selectionMaxAge bounds how
// stale the selection may be before readiness fails.
func NewServer(port string, broker Broker, engine Engine, selectionMaxAge time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         ":" + port,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		broker:          broker,
		engine:          engine,
		selectionMaxAge: selectionMaxAge,
		startTime:       time.Now(),
	}

	// Health endpoints for K8s probes only
	mux.HandleFunc("/health", s.handleHealth)    // Liveness probe
	mux.HandleFunc("/ready", s.handleReadiness)  // Readiness probe
	mux.HandleFunc("/healthz", s.handleHealth)   // Alias
	mux.HandleFunc("/readyz", s.handleReadiness) // Alias

	return s
}

// Start starts the health check server
func (s *Server) Start() error {
	logger.Info("health check server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping health check server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks the service as ready
func (s *Server) SetReady(ready bool) {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	s.ready = ready

	if ready {
		logger.Info("✅ service marked as READY")
	} else {
		logger.Warn("⚠️ service marked as NOT READY")
	}
}

// handleHealth handles liveness probe - /health
// Returns 200 if process is alive (even if dependencies are down)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	// Optional: include dependency checks (for debugging)
	if r.URL.Query().Get("verbose") == "true" {
		checks := make(map[string]string)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.broker.Ping(ctx); err != nil {
			checks["broker"] = "unhealthy: " + err.Error()
		} else {
			checks["broker"] = "healthy"
		}

		status.Checks = checks
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// handleReadiness handles readiness probe - /ready
// Returns 200 only if service is ready to accept traffic
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.readyMu.RLock()
	ready := s.ready
	s.readyMu.RUnlock()

	checks := make(map[string]string)
	allHealthy := true

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.broker.Ping(ctx); err != nil {
		checks["broker"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else {
		checks["broker"] = "healthy"
	}

	selection := s.engine.CurrentSelection()
	selectionAge := time.Since(selection.ComputedAt)

	if len(selection.Symbols) == 0 {
		checks["selection"] = "unhealthy: no stocks selected"
		allHealthy = false
	} else if selectionAge > s.selectionMaxAge {
		checks["selection"] = "unhealthy: selection stale"
		allHealthy = false
	} else {
		checks["selection"] = "healthy"
	}

	engineStatus := EngineStatus{
		Status:         string(s.engine.Status()),
		SelectedStocks: len(selection.Symbols),
		SelectionAge:   selectionAge.Round(time.Second).String(),
	}

	isReady := ready && allHealthy

	status := ReadinessStatus{
		Ready:     isReady,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Engine:    engineStatus,
	}

	w.Header().Set("Content-Type", "application/json")

	if isReady {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(status)
}
