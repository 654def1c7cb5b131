package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/meur/steamtier/internal/board"
	"github.com/meur/steamtier/internal/steam"
)

const (
	sourceOwned  = "owned"
	sourceFamily = "family"
)

type familyRequest struct {
	Token         string `json:"token"`
	FamilyGroupID string `json:"family_group_id" validate:"omitempty,numeric"`
}

type steamImportRequest struct {
	Source        string `json:"source" validate:"omitempty,oneof=owned family"`
	SteamID       string `json:"steam_id"`
	Token         string `json:"token"`
	FamilyGroupID string `json:"family_group_id" validate:"omitempty,numeric"`
}

type steamImportResponse struct {
	ImportID      string      `json:"import_id"`
	Source        string      `json:"source"`
	SteamID       string      `json:"steam_id,omitempty"`
	FamilyGroupID string      `json:"family_group_id,omitempty"`
	Cached        bool        `json:"cached"`
	GameCount     int         `json:"game_count"`
	Board         board.Board `json:"board"`
}

func (s *Server) steamReady(w http.ResponseWriter) bool {
	if s.steam == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "Steam import is not configured")
		return false
	}
	return true
}

// handleSteamUser returns the profile behind ?steamId= (id, profile URL or
// vanity name)
func (s *Server) handleSteamUser(w http.ResponseWriter, r *http.Request) {
	if !s.steamReady(w) {
		return
	}
	player, err := s.steam.User(r.Context(), r.URL.Query().Get("steamId"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, player)
}

// handleSteamGames returns the owned library behind ?steamId=
func (s *Server) handleSteamGames(w http.ResponseWriter, r *http.Request) {
	if !s.steamReady(w) {
		return
	}
	imp, err := s.steam.OwnedGames(r.Context(), r.URL.Query().Get("steamId"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, imp)
}

// handleSteamFamily returns the family-shared library. The token travels in
// the body so it stays out of access logs.
func (s *Server) handleSteamFamily(w http.ResponseWriter, r *http.Request) {
	if !s.steamReady(w) {
		return
	}
	var req familyRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	imp, err := s.steam.FamilyGames(r.Context(), req.Token, req.FamilyGroupID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, imp)
}

// handleSteamImport fetches a library and returns a fresh board for it. On
// failure nothing is returned but the error, so the caller keeps its board.
func (s *Server) handleSteamImport(w http.ResponseWriter, r *http.Request) {
	if !s.steamReady(w) {
		return
	}
	var req steamImportRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	if req.Source == "" {
		req.Source = sourceOwned
	}

	var (
		imp *steam.Import
		err error
	)
	if req.Source == sourceFamily {
		imp, err = s.steam.FamilyGames(r.Context(), req.Token, req.FamilyGroupID)
	} else {
		imp, err = s.steam.OwnedGames(r.Context(), req.SteamID)
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	b, err := board.ImportCatalog(imp.Games)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	resp := steamImportResponse{
		ImportID:      uuid.NewString(),
		Source:        req.Source,
		SteamID:       imp.SteamID,
		FamilyGroupID: imp.FamilyGroupID,
		Cached:        imp.Cached,
		GameCount:     len(imp.Games),
		Board:         b,
	}
	s.logger.Info("board imported from steam",
		"import_id", resp.ImportID,
		"source", resp.Source,
		"games", resp.GameCount,
		"cached", resp.Cached,
	)
	respondJSON(w, http.StatusOK, resp)
}
