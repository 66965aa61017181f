package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/metrics"
	"github.com/vitos/bsp_resonance/internal/usecase"
)

// LevelViewer exposes the live level data of a symbol.
type LevelViewer interface {
	Snapshot(symbol string) (domain.Levels, bool)
}

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	signalRepo domain.SignalRepository
	registry   *usecase.Registry
	levels     LevelViewer
	logger     *zap.Logger
}

// NewServer wires the read-only API. levels may be nil when no live feed runs.
func NewServer(
	port int,
	signalRepo domain.SignalRepository,
	registry *usecase.Registry,
	levels LevelViewer,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		signalRepo: signalRepo,
		registry:   registry,
		levels:     levels,
		logger:     logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Signal journal
	s.router.HandleFunc("GET /signals", s.handleListSignals)

	// Positions
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Live levels
	s.router.HandleFunc("GET /levels/{symbol}", s.handleLevels)

	s.router.Handle("GET /metrics", metrics.Handler())
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
