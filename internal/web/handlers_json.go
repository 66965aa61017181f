package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
)

const maxSignalsLimit = 1000

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	if s.signalRepo == nil {
		http.Error(w, "Signal journal disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxSignalsLimit)
	}

	signals, err := s.signalRepo.ListSignals(r.Context(), r.URL.Query().Get("symbol"), limit)
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
		http.Error(w, "Failed to list signals", http.StatusInternalServerError)
		return
	}
	if signals == nil {
		signals = []*domain.SignalRecord{}
	}
	s.writeJSON(w, signals)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":    "ok",
		"positions": s.registry.Positions(),
	})
}

type levelView struct {
	Name      string                  `json:"name"`
	Bars      int                     `json:"bars"`
	Pens      int                     `json:"pens"`
	LastBar   *domain.Bar             `json:"last_bar,omitempty"`
	LastPoint *domain.StructuralPoint `json:"last_point,omitempty"`
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	if s.levels == nil {
		http.Error(w, "No live feed", http.StatusServiceUnavailable)
		return
	}
	symbol := r.PathValue("symbol")
	levels, ok := s.levels.Snapshot(symbol)
	if !ok {
		http.Error(w, "Unknown symbol", http.StatusNotFound)
		return
	}

	views := make([]levelView, 0, len(levels))
	for _, data := range levels {
		v := levelView{Name: data.Name, Bars: len(data.Bars), Pens: data.Pens}
		if b, ok := data.LastBar(); ok {
			v.LastBar = &b
		}
		if p, ok := data.LastPoint(); ok {
			v.LastPoint = &p
		}
		views = append(views, v)
	}
	s.writeJSON(w, map[string]any{"symbol": symbol, "levels": views})
}
