package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"quantbot/internal/domain"
)

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	positions := []domain.Position{}
	if s.positions != nil {
		positions = append(positions, s.positions.List()...)
	}
	writeJSON(w, positions)
}

func (s *Server) handleRanking(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	r := s.ranking
	s.mu.RUnlock()
	writeJSON(w, r)
}

func (s *Server) handleIntents(w http.ResponseWriter, _ *http.Request) {
	if s.intents == nil {
		writeError(w, http.StatusNotFound, "no broker journal")
		return
	}
	j := s.intents.Intents()
	if j.Orders == nil {
		j.Orders = []domain.OrderIntent{}
	}
	if j.Exits == nil {
		j.Exits = []domain.ExitIntent{}
	}
	writeJSON(w, j)
}

func (s *Server) handleDecisions(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	d := s.decisions
	s.mu.RUnlock()
	writeJSON(w, d)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
