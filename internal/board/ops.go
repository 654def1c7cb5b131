package board

import (
	"slices"

	"github.com/meur/steamtier/internal/models"
)

// Reorder places activeID at the index overID held, shifting the games in
// between by one. Unknown containers, games outside container and
// activeID == overID are no-ops.
func (b Board) Reorder(container string, activeID, overID int64) Board {
	if activeID == overID {
		return b
	}
	games, ok := b.container(container)
	if !ok {
		return b
	}
	from, to := indexOf(games, activeID), indexOf(games, overID)
	if from < 0 || to < 0 {
		return b
	}

	next := b.clone()
	next.set(container, arrayMove(games, from, to))
	return next
}

// Move takes id out of src and inserts it into dst at index, clamped to
// [0, len(dst)], or appends it when index is nil. A game missing from src
// or an unknown container leaves the board unchanged. src == dst
// repositions the game within its container.
func (b Board) Move(id int64, src, dst string, index *int) Board {
	srcGames, ok := b.container(src)
	if !ok {
		return b
	}
	from := indexOf(srcGames, id)
	if from < 0 {
		return b
	}
	dstGames, ok := b.container(dst)
	if !ok {
		return b
	}

	game := srcGames[from]
	remaining := slices.Delete(slices.Clone(srcGames), from, from+1)
	if src == dst {
		dstGames = remaining
	}

	at := len(dstGames)
	if index != nil {
		at = min(max(*index, 0), len(dstGames))
	}
	inserted := slices.Insert(slices.Clone(dstGames), at, game)

	next := b.clone()
	if src != dst {
		next.set(src, remaining)
	}
	next.set(dst, inserted)
	return next
}

// AddTier adds an empty tier under the normalized key
func (b Board) AddTier(raw string) (Board, error) {
	key := NormalizeKey(raw)
	if key == "" {
		return b, reject(ReasonEmptyKey, raw)
	}
	if b.HasTier(key) {
		return b, reject(ReasonDuplicateKey, key)
	}

	next := b.clone()
	next.tiers[key] = []models.Game{}
	next.keys = append(next.keys, key)
	return next, nil
}

// DeleteTier removes a tier and appends its games to the available pool in
// their tier order. The last remaining tier cannot be deleted.
func (b Board) DeleteTier(raw string) (Board, error) {
	key, ok := b.resolveKey(raw)
	if !ok {
		return b, reject(ReasonUnknownTier, raw)
	}
	if len(b.tiers) <= 1 {
		return b, reject(ReasonLastTier, key)
	}

	next := b.clone()
	next.available = append(slices.Clone(b.available), b.tiers[key]...)
	delete(next.tiers, key)
	next.keys = slices.DeleteFunc(next.keys, func(k string) bool { return k == key })
	return next, nil
}

// RenameTier moves a tier's games to the key derived from newName. The
// renamed tier sorts after every existing custom tier.
func (b Board) RenameTier(oldKey, newName string) (Board, error) {
	old, ok := b.resolveKey(oldKey)
	if !ok {
		return b, reject(ReasonUnknownTier, oldKey)
	}
	key := RenameKey(newName)
	if key == "" {
		return b, reject(ReasonEmptyKey, newName)
	}
	if key == old {
		return b, nil
	}
	if b.HasTier(key) {
		return b, reject(ReasonDuplicateKey, key)
	}

	next := b.clone()
	next.tiers[key] = b.tiers[old]
	delete(next.tiers, old)
	next.keys = slices.DeleteFunc(next.keys, func(k string) bool { return k == old })
	next.keys = append(next.keys, key)
	return next, nil
}

func arrayMove(games []models.Game, from, to int) []models.Game {
	out := slices.Clone(games)
	game := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, game)
}
