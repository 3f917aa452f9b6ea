// Package server exposes the extraction pipeline over HTTP and websocket.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
)

// Processor is the part of the pipeline the server needs.
type Processor interface {
	ProcessBytes(ctx context.Context, name string, data []byte) (*pipeline.Result, error)
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	Timeout     time.Duration // per-document processing deadline
	Validate    bool          // check responses against the record schema

	// Reported by /health.
	Backend             string
	RecognizerAvailable bool
}

// DefaultConfig returns the stock server settings.
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        8080,
		CORSOrigin:  "*",
		MaxUploadMB: 20,
		Timeout:     60 * time.Second,
		Validate:    true,
		Backend:     pipeline.BackendONNX,
	}
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	cfg      Config
	pipeline Processor
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics
	upgrader websocket.Upgrader
	started  time.Time
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status              string     `json:"status"`
	Version             string     `json:"version"`
	Time                string     `json:"time"`
	UptimeSeconds       int64      `json:"uptime_seconds"`
	Backend             string     `json:"backend"`
	RecognizerAvailable bool       `json:"recognizer_available"`
	Memory              *HostStats `json:"memory,omitempty"`
}

// HostStats reports host memory.
type HostStats struct {
	TotalMB     uint64  `json:"total_mb"`
	AvailableMB uint64  `json:"available_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewServer creates a server around an already built pipeline. A nil logger
// uses slog.Default().
func NewServer(cfg Config, p Processor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultConfig().MaxUploadMB
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		logger:   logger,
		registry: reg,
		metrics:  newMetrics(reg),
		started:  time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.middleware("/health", s.healthHandler))
	mux.HandleFunc("/extract", s.middleware("/extract", s.extractHandler))
	mux.HandleFunc("/ws", s.middleware("/ws", s.wsHandler))
	mux.Handle("/metrics", s.metricsHandler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) maxUploadBytes() int64 { return s.cfg.MaxUploadMB * 1024 * 1024 }
