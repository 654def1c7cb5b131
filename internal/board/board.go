// Package board holds the tier board: the assignment of every imported game
// to exactly one container, either the available pool or a tier.
//
// A Board is a value. Every operation returns a new Board and leaves its
// receiver untouched, so callers can keep the previous snapshot around or
// swap boards atomically.
package board

import (
	"maps"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/meur/steamtier/internal/models"
)

// Available is the name of the pool holding unranked games. Tier keys
// always start with an upper-case rune, so no tier can shadow it.
const Available = "available"

// Board maps tier keys to ordered games plus the available pool
type Board struct {
	tiers     map[string][]models.Game
	keys      []string // tier keys in creation order
	available []models.Game
}

// Reset returns the initial board: every catalog game available and the
// canonical tiers empty.
func Reset(catalog models.Catalog) Board {
	keys := models.CanonicalTierKeys()
	tiers := make(map[string][]models.Game, len(keys))
	for _, k := range keys {
		tiers[k] = []models.Game{}
	}
	return Board{
		tiers:     tiers,
		keys:      keys,
		available: []models.Game(catalog.Clone()),
	}
}

// ImportCatalog replaces the board with a fresh one built from catalog.
// Existing rankings are discarded. A catalog with duplicate ids is refused
// as a whole.
func ImportCatalog(catalog models.Catalog) (Board, error) {
	if err := catalog.Validate(); err != nil {
		return Board{}, err
	}
	return Reset(catalog), nil
}

// NormalizeKey trims raw and upper-cases its first rune
func NormalizeKey(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// RenameKey reduces raw to its first rune, upper-cased. "top" and "Tulip"
// both become "T".
func RenameKey(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r))
}

// DisplayOrder returns the canonical keys that exist, followed by custom
// keys in creation order.
func (b Board) DisplayOrder() []string {
	canonical := models.CanonicalTierKeys()
	order := make([]string, 0, len(b.keys))
	for _, k := range canonical {
		if _, ok := b.tiers[k]; ok {
			order = append(order, k)
		}
	}
	for _, k := range b.keys {
		if !slices.Contains(canonical, k) {
			order = append(order, k)
		}
	}
	return order
}

// Keys returns tier keys in creation order
func (b Board) Keys() []string {
	return slices.Clone(b.keys)
}

// HasTier reports whether key names a tier
func (b Board) HasTier(key string) bool {
	_, ok := b.tiers[key]
	return ok
}

// HasContainer reports whether name is the available pool or a tier
func (b Board) HasContainer(name string) bool {
	_, ok := b.container(name)
	return ok
}

// TierCount returns the number of tiers
func (b Board) TierCount() int {
	return len(b.tiers)
}

// Games returns a copy of the games in container, or nil if it does not exist
func (b Board) Games(container string) []models.Game {
	games, ok := b.container(container)
	if !ok {
		return nil
	}
	return slices.Clone(games)
}

// Available returns a copy of the available pool
func (b Board) Available() []models.Game {
	return slices.Clone(b.available)
}

// Len returns the number of games on the board
func (b Board) Len() int {
	n := len(b.available)
	for _, games := range b.tiers {
		n += len(games)
	}
	return n
}

// Index returns the position of id in container, or -1
func (b Board) Index(container string, id int64) int {
	games, ok := b.container(container)
	if !ok {
		return -1
	}
	return indexOf(games, id)
}

// Contains reports whether id is anywhere on the board
func (b Board) Contains(id int64) bool {
	_, _, ok := b.Locate(id)
	return ok
}

// Locate finds the container holding id, searching the available pool
// first and then tiers in display order.
func (b Board) Locate(id int64) (container string, index int, ok bool) {
	if i := indexOf(b.available, id); i >= 0 {
		return Available, i, true
	}
	for _, k := range b.DisplayOrder() {
		if i := indexOf(b.tiers[k], id); i >= 0 {
			return k, i, true
		}
	}
	return "", -1, false
}

func (b Board) container(name string) ([]models.Game, bool) {
	if name == Available {
		return b.available, true
	}
	games, ok := b.tiers[name]
	return games, ok
}

// resolveKey accepts an exact tier key or one that normalizes to it
func (b Board) resolveKey(raw string) (string, bool) {
	if _, ok := b.tiers[raw]; ok {
		return raw, true
	}
	key := NormalizeKey(raw)
	_, ok := b.tiers[key]
	return key, ok
}

// clone copies the map and key list. Game slices are shared and must be
// replaced, never written through.
func (b Board) clone() Board {
	tiers := maps.Clone(b.tiers)
	if tiers == nil {
		tiers = make(map[string][]models.Game)
	}
	return Board{
		tiers:     tiers,
		keys:      slices.Clone(b.keys),
		available: b.available,
	}
}

func (b *Board) set(container string, games []models.Game) {
	if container == Available {
		b.available = games
		return
	}
	b.tiers[container] = games
}

func indexOf(games []models.Game, id int64) int {
	return slices.IndexFunc(games, func(g models.Game) bool { return g.ID == id })
}
