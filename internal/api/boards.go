package api

import (
	"net/http"

	"github.com/meur/steamtier/internal/board"
	"github.com/meur/steamtier/internal/drag"
	"github.com/meur/steamtier/internal/models"
)

// Boards are never stored: every request carries the board it operates on
// and every response carries the result.

type resetRequest struct {
	Catalog models.Catalog `json:"catalog"` // nil uses the stored default catalog
}

type importRequest struct {
	Catalog models.Catalog `json:"catalog" validate:"required"`
}

type reorderRequest struct {
	Board     *board.Board `json:"board" validate:"required"`
	Container string       `json:"container" validate:"required"`
	ActiveID  int64        `json:"active_id"`
	OverID    int64        `json:"over_id"`
}

type moveRequest struct {
	Board  *board.Board `json:"board" validate:"required"`
	GameID int64        `json:"game_id"`
	From   string       `json:"from" validate:"required"`
	To     string       `json:"to" validate:"required"`
	Index  *int         `json:"index"` // nil appends, out of range is clamped
}

type tierRequest struct {
	Board *board.Board `json:"board" validate:"required"`
	Key   string       `json:"key" validate:"max=64"`
}

type renameRequest struct {
	Board *board.Board `json:"board" validate:"required"`
	Key   string       `json:"key" validate:"max=64"`
	Name  string       `json:"name" validate:"max=64"`
}

type dragRequest struct {
	Board  *board.Board `json:"board" validate:"required"`
	GameID int64        `json:"game_id"`
	Target string       `json:"target"` // see drag.ParseTarget, empty for a missed drop
}

type boardResponse struct {
	Board   board.Board   `json:"board"`
	Outcome *drag.Outcome `json:"outcome,omitempty"`
}

// handleReset returns a fresh board for the given or the stored catalog
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	catalog := req.Catalog
	if catalog == nil {
		if !s.storeReady(w) {
			return
		}
		stored, err := s.store.GetGames()
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		catalog = stored
	}

	b, err := board.ImportCatalog(catalog)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_CATALOG", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: b})
}

// handleImport replaces the board with a new catalog. Rankings are not
// carried over.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	b, err := board.ImportCatalog(req.Catalog)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_CATALOG", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: b})
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	b := req.Board.Reorder(req.Container, req.ActiveID, req.OverID)
	respondJSON(w, http.StatusOK, boardResponse{Board: b})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	b := req.Board.Move(req.GameID, req.From, req.To, req.Index)
	respondJSON(w, http.StatusOK, boardResponse{Board: b})
}

func (s *Server) handleAddTier(w http.ResponseWriter, r *http.Request) {
	var req tierRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	b, err := req.Board.AddTier(req.Key)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: b})
}

func (s *Server) handleDeleteTier(w http.ResponseWriter, r *http.Request) {
	var req tierRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	b, err := req.Board.DeleteTier(req.Key)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: b})
}

func (s *Server) handleRenameTier(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}
	b, err := req.Board.RenameTier(req.Key, req.Name)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, boardResponse{Board: b})
}

// handleDrag replays a whole drag gesture: pick up game_id, drop it over
// target.
func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	b, outcome := drag.Drop(*req.Board, req.GameID, drag.ParseTarget(req.Target), s.logger)
	s.logger.Debug("drag resolved",
		"session_id", outcome.Session.ID,
		"game_id", req.GameID,
		"action", outcome.Action,
		"container", outcome.Container,
	)
	respondJSON(w, http.StatusOK, boardResponse{Board: b, Outcome: &outcome})
}
