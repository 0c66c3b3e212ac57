// Package api provides the HTTP status server for the trader, exposing open
// positions, the latest ranking, simulated intents and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"quantbot/internal/broker"
	"quantbot/internal/domain"
	"quantbot/internal/metrics"
)

// PositionLister returns the currently open positions.
type PositionLister interface {
	List() []domain.Position
}

// IntentJournal returns the intents a broker has recorded.
type IntentJournal interface {
	Intents() broker.Journal
}

// Ranking is the most recent ranking published by the trader.
type Ranking struct {
	UpdatedAt time.Time            `json:"updated_at"`
	Scores    []domain.SymbolScore `json:"scores"`
}

// Server is the status API server. Rankings and decisions are pushed into it
// by the trader; positions and intents are read on demand.
type Server struct {
	addr      string
	positions PositionLister
	intents   IntentJournal
	log       *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	ranking   Ranking
	decisions []domain.Decision

	srv *http.Server
}

// NewServer creates a new Server listening on addr.
func NewServer(addr string, positions PositionLister, intents IntentJournal, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		positions: positions,
		intents:   intents,
		log:       logger.With("component", "api"),
		now:       time.Now,
		ranking:   Ranking{Scores: []domain.SymbolScore{}},
		decisions: []domain.Decision{},
	}
}

// SetRanking publishes a new ranking.
func (s *Server) SetRanking(scores []domain.SymbolScore) {
	cp := append([]domain.SymbolScore{}, scores...)
	s.mu.Lock()
	s.ranking = Ranking{UpdatedAt: s.now(), Scores: cp}
	s.mu.Unlock()
}

// SetDecisions publishes the decisions of the latest trade pass.
func (s *Server) SetDecisions(decisions []domain.Decision) {
	cp := append([]domain.Decision{}, decisions...)
	s.mu.Lock()
	s.decisions = cp
	s.mu.Unlock()
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/ranking", s.handleRanking)
	mux.HandleFunc("GET /api/intents", s.handleIntents)
	mux.HandleFunc("GET /api/decisions", s.handleDecisions)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns the server's routes as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// ListenAndServe starts the HTTP listener and blocks until the context is
// cancelled or a fatal error occurs. Cancellation triggers a graceful
// shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status API listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown performs a graceful shutdown of the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.srv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
