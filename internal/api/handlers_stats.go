package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const usageWindow = 24 * time.Hour

func (s *Server) handleBackendStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "backend stats unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{
		"engine":      s.cfg.DefaultEngine,
		"latency":     s.stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	}
	if s.glossaries != nil {
		totals, err := s.glossaries.UsageTotals(r.Context(), time.Now().Add(-usageWindow))
		if err != nil {
			s.log.Warn("usage totals failed", "error", err)
		} else {
			resp["usage_24h"] = totals
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleGlossary(w http.ResponseWriter, r *http.Request) {
	source, target, ok := s.glossaryPair(w, r)
	if !ok {
		return
	}
	n, err := s.glossaries.GlossarySize(r.Context(), source, target)
	if err != nil {
		jsonError(w, "failed to read glossary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"source":  source,
		"target":  target,
		"entries": n,
	})
}

func (s *Server) handlePurgeGlossary(w http.ResponseWriter, r *http.Request) {
	source, target, ok := s.glossaryPair(w, r)
	if !ok {
		return
	}
	n, err := s.glossaries.PurgeGlossary(r.Context(), source, target)
	if err != nil {
		jsonError(w, "failed to purge glossary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("glossary purged", "source", source, "target", target, "entries", n)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"source":  source,
		"target":  target,
		"deleted": n,
	})
}

func (s *Server) glossaryPair(w http.ResponseWriter, r *http.Request) (source, target string, ok bool) {
	if s.glossaries == nil {
		jsonError(w, "glossary storage unavailable", http.StatusServiceUnavailable)
		return "", "", false
	}
	source = strings.ToLower(r.URL.Query().Get("source"))
	target = strings.ToLower(r.URL.Query().Get("target"))
	if source == "" || target == "" {
		jsonError(w, "source and target query parameters are required", http.StatusBadRequest)
		return "", "", false
	}
	return source, target, true
}
