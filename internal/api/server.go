package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hearthwise/hearth-core/internal/infrastructure/config"
	"github.com/hearthwise/hearth-core/internal/infrastructure/mqtt"
)

// BusStatus reports the bus connection state.
// Satisfied by *gateway.Gateway.
type BusStatus interface {
	Status() mqtt.Status
}

// DeviceCounter reports the device population.
// Satisfied by *device.Store and *scene.Registry.
type DeviceCounter interface {
	Count() int
}

// HealthChecker verifies a dependency is usable.
// Satisfied by *database.DB.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Logger is the minimal logging surface the server needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server exposes the operational status endpoints.
//
// This is not the product API; rooms, scenes, and device CRUD live in the
// separate HTTP service. The core only answers two questions here: is the
// process healthy, and what state is the bus connection in. The latter is
// what lets an operator see a parked (retries exhausted) bus connection
// and decide to restart it.
type Server struct {
	httpServer *http.Server
	logger     Logger
}

// Deps collects the server's read-only views of the core.
type Deps struct {
	Bus     BusStatus
	Devices DeviceCounter
	Scenes  DeviceCounter
	DB      HealthChecker
	Version string
}

// New creates the status server.
func New(cfg config.APIConfig, deps Deps, logger Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.GetReadTimeout()))

	startedAt := time.Now().UTC()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.HealthCheck(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"version":        deps.Version,
			"uptime_seconds": int(time.Since(startedAt).Seconds()),
			"bus":            deps.Bus.Status(),
			"devices":        deps.Devices.Count(),
			"scenes":         deps.Scenes.Count(),
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      r,
			ReadTimeout:  cfg.GetReadTimeout(),
			WriteTimeout: cfg.GetWriteTimeout(),
			IdleTimeout:  cfg.GetIdleTimeout(),
		},
		logger: logger,
	}
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
