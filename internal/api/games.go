package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) storeReady(w http.ResponseWriter) bool {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Default catalog is not configured")
		return false
	}
	return true
}

// handleGetGames returns the default catalog
func (s *Server) handleGetGames(w http.ResponseWriter, r *http.Request) {
	if !s.storeReady(w) {
		return
	}
	games, err := s.store.GetGames()
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"games":       games,
		"total_count": len(games),
	})
}

// handleGetGame returns a single game by appid
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_GAME_ID", "Game id must be a Steam appid")
		return
	}

	if !s.storeReady(w) {
		return
	}
	game, err := s.store.GetGame(gameID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if game == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Game not found")
		return
	}

	respondJSON(w, http.StatusOK, game)
}
