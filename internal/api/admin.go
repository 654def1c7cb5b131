package api

import "net/http"

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "cache is not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "cache is not configured")
		return
	}
	n := s.cache.Clear()
	s.logger.Info("cache cleared", "entries", n)
	respondJSON(w, http.StatusOK, map[string]int{"cleared": n})
}
