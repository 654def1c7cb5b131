package api

import (
	"net/http"

	"github.com/meur/steamtier/internal/models"
)

type colorUpdate struct {
	Key   string `json:"key" validate:"required,max=64"`
	Color string `json:"color" validate:"required,hexcolor"`
}

type colorsRequest struct {
	Colors  models.TierColorMap `json:"colors"`
	Updates []colorUpdate       `json:"updates" validate:"omitempty,dive"`
	Keys    []string            `json:"keys" validate:"omitempty,max=256"`
}

// handleGetPalette returns the canonical tiers and the color swatches
func (s *Server) handleGetPalette(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"tiers":         models.DefaultTiers(),
		"swatches":      models.SwatchPalette(),
		"generic_color": models.GenericTierColor,
	})
}

// handleResolveColors applies color updates to a TierColorMap and resolves
// the effective color of each requested key
func (s *Server) handleResolveColors(w http.ResponseWriter, r *http.Request) {
	var req colorsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	colors := req.Colors
	if colors == nil {
		colors = models.TierColorMap{}
	}
	for _, u := range req.Updates {
		next, err := colors.Set(u.Key, u.Color)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_COLOR", err.Error())
			return
		}
		colors = next
	}

	keys := req.Keys
	if len(keys) == 0 {
		keys = models.CanonicalTierKeys()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"colors":   colors,
		"resolved": colors.Resolve(keys),
	})
}
