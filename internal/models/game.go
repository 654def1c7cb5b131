package models

import (
	"fmt"
	"time"
)

// Game represents a rankable game from a Steam library
type Game struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Image       string     `json:"image"`
	Genre       string     `json:"genre"`
	ReleaseYear int        `json:"release_year"`
	Playtime    *float64   `json:"playtime,omitempty"`  // Hours played
	IsShared    *bool      `json:"is_shared,omitempty"` // Family shared game
	OwnerID     *string    `json:"owner_id,omitempty"`  // Steam ID of the owner (shared games)
	LastPlayed  *time.Time `json:"last_played,omitempty"`
}

// Catalog is the full set of games available for ranking, in import order
type Catalog []Game

// Validate checks that no appid appears twice
func (c Catalog) Validate() error {
	seen := make(map[int64]struct{}, len(c))
	for _, g := range c {
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("duplicate game id %d in catalog", g.ID)
		}
		seen[g.ID] = struct{}{}
	}
	return nil
}

// IDs returns the appids in catalog order
func (c Catalog) IDs() []int64 {
	ids := make([]int64, len(c))
	for i, g := range c {
		ids[i] = g.ID
	}
	return ids
}

// Clone returns a copy that shares no backing array with c
func (c Catalog) Clone() Catalog {
	if c == nil {
		return Catalog{}
	}
	out := make(Catalog, len(c))
	copy(out, c)
	return out
}
