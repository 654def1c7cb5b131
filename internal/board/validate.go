package board

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/meur/steamtier/internal/models"
)

// Validate checks the structural invariants: at least one tier, unique tier
// keys that never shadow the available pool, and no game in two places.
func (b Board) Validate() error {
	if len(b.tiers) == 0 {
		return fmt.Errorf("%w: board has no tiers", ErrCorrupt)
	}
	if len(b.keys) != len(b.tiers) {
		return fmt.Errorf("%w: %d keys for %d tiers", ErrCorrupt, len(b.keys), len(b.tiers))
	}
	for i, k := range b.keys {
		if _, ok := b.tiers[k]; !ok {
			return fmt.Errorf("%w: key %q has no tier", ErrCorrupt, k)
		}
		if k == Available || k == "" {
			return fmt.Errorf("%w: invalid tier key %q", ErrCorrupt, k)
		}
		if slices.Contains(b.keys[:i], k) {
			return fmt.Errorf("%w: duplicate tier key %q", ErrCorrupt, k)
		}
	}

	seen := make(map[int64]string, b.Len())
	check := func(container string, games []models.Game) error {
		for _, g := range games {
			if prev, dup := seen[g.ID]; dup {
				return fmt.Errorf("%w: game %d in both %q and %q", ErrCorrupt, g.ID, prev, container)
			}
			seen[g.ID] = container
		}
		return nil
	}
	if err := check(Available, b.available); err != nil {
		return err
	}
	for _, k := range b.keys {
		if err := check(k, b.tiers[k]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAgainst checks that the board is an exact partition of catalog.
func (b Board) ValidateAgainst(catalog models.Catalog) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.Len() != len(catalog) {
		return fmt.Errorf("%w: board holds %d games, catalog %d", ErrCorrupt, b.Len(), len(catalog))
	}
	for _, g := range catalog {
		if _, _, ok := b.Locate(g.ID); !ok {
			return fmt.Errorf("%w: game %d missing from board", ErrCorrupt, g.ID)
		}
	}
	return nil
}

type tierJSON struct {
	Key   string        `json:"key"`
	Games []models.Game `json:"games"`
}

type boardJSON struct {
	Tiers        []tierJSON    `json:"tiers"`
	Available    []models.Game `json:"available"`
	DisplayOrder []string      `json:"display_order,omitempty"`
}

// MarshalJSON encodes tiers in creation order along with the display order.
func (b Board) MarshalJSON() ([]byte, error) {
	out := boardJSON{
		Tiers:        make([]tierJSON, 0, len(b.keys)),
		Available:    nonNil(b.available),
		DisplayOrder: b.DisplayOrder(),
	}
	for _, k := range b.keys {
		out.Tiers = append(out.Tiers, tierJSON{Key: k, Games: nonNil(b.tiers[k])})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a board and rejects one whose invariants are broken.
// display_order is derived and ignored on input.
func (b *Board) UnmarshalJSON(data []byte) error {
	var in boardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	decoded := Board{
		tiers:     make(map[string][]models.Game, len(in.Tiers)),
		keys:      make([]string, 0, len(in.Tiers)),
		available: nonNil(in.Available),
	}
	for _, t := range in.Tiers {
		if _, dup := decoded.tiers[t.Key]; dup {
			return fmt.Errorf("%w: duplicate tier key %q", ErrCorrupt, t.Key)
		}
		decoded.tiers[t.Key] = nonNil(t.Games)
		decoded.keys = append(decoded.keys, t.Key)
	}
	if err := decoded.Validate(); err != nil {
		return err
	}

	*b = decoded
	return nil
}

func nonNil(games []models.Game) []models.Game {
	if games == nil {
		return []models.Game{}
	}
	return games
}
