package steam

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meur/steamtier/internal/cache"
	"github.com/meur/steamtier/internal/models"
)

// API is the subset of the Steam Web API the importer needs
type API interface {
	ResolveSteamID(ctx context.Context, input string) (string, error)
	OwnedGames(ctx context.Context, steamID string) (models.Catalog, error)
	PlayerSummary(ctx context.Context, steamID string) (*Player, error)
	FamilyGames(ctx context.Context, token, familyGroupID string) (models.Catalog, error)
}

// Enricher looks up catalog metadata (genre, release year) by appid
type Enricher interface {
	LookupGames(ids []int64) (map[int64]models.Game, error)
}

// TTLs holds cache lifetimes per response class
type TTLs struct {
	Vanity time.Duration
	User   time.Duration
	Games  time.Duration
	Family time.Duration
}

// DefaultTTLs mirrors how often each kind of data changes
func DefaultTTLs() TTLs {
	return TTLs{
		Vanity: 24 * time.Hour,
		User:   60 * time.Minute,
		Games:  30 * time.Minute,
		Family: 15 * time.Minute,
	}
}

// Import is a successful library import
type Import struct {
	SteamID       string         `json:"steam_id,omitempty"`
	FamilyGroupID string         `json:"family_group_id,omitempty"`
	Games         models.Catalog `json:"games"`
	Cached        bool           `json:"cached"`
}

// sharedFetchTimeout bounds a deduplicated upstream fetch
const sharedFetchTimeout = time.Minute

// Importer fronts the API with a TTL cache and collapses identical
// concurrent requests into one upstream call.
type Importer struct {
	api      API
	cache    *cache.Cache
	ttl      TTLs
	enricher Enricher
	group    singleflight.Group
	logger   *slog.Logger
}

// NewImporter wires an importer. enricher may be nil.
func NewImporter(api API, c *cache.Cache, ttl TTLs, enricher Enricher, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		api:      api,
		cache:    c,
		ttl:      ttl,
		enricher: enricher,
		logger:   logger,
	}
}

// ResolveSteamID resolves and caches vanity names
func (i *Importer) ResolveSteamID(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" || steamIDPattern.MatchString(input) {
		return i.api.ResolveSteamID(ctx, input)
	}
	v, _, err := i.cached(ctx, "vanity:"+strings.ToLower(input), i.ttl.Vanity, func(ctx context.Context) (any, error) {
		return i.api.ResolveSteamID(ctx, input)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// User returns the profile for a Steam ID, profile URL or vanity name
func (i *Importer) User(ctx context.Context, input string) (*Player, error) {
	steamID, err := i.ResolveSteamID(ctx, input)
	if err != nil {
		return nil, err
	}
	v, _, err := i.cached(ctx, "user:"+steamID, i.ttl.User, func(ctx context.Context) (any, error) {
		return i.api.PlayerSummary(ctx, steamID)
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*Player)
	return &p, nil
}

// OwnedGames imports the library of a Steam ID, profile URL or vanity name
func (i *Importer) OwnedGames(ctx context.Context, input string) (*Import, error) {
	steamID, err := i.ResolveSteamID(ctx, input)
	if err != nil {
		return nil, err
	}
	v, hit, err := i.cached(ctx, "games:"+steamID, i.ttl.Games, func(ctx context.Context) (any, error) {
		games, err := i.api.OwnedGames(ctx, steamID)
		if err != nil {
			return nil, err
		}
		return i.enrich(games), nil
	})
	if err != nil {
		return nil, err
	}

	games := v.(models.Catalog).Clone()
	i.logger.Info("steam library imported",
		"steam_id", steamID,
		"games", len(games),
		"cached", hit,
	)
	return &Import{SteamID: steamID, Games: games, Cached: hit}, nil
}

// FamilyGames imports the family-shared library visible to token
func (i *Importer) FamilyGames(ctx context.Context, token, familyGroupID string) (*Import, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, missingCredential("Web API token is required for Family Sharing games")
	}
	if familyGroupID == "" {
		familyGroupID = "0"
	}

	key := fmt.Sprintf("family:%s:%s", tokenFingerprint(token), familyGroupID)
	v, hit, err := i.cached(ctx, key, i.ttl.Family, func(ctx context.Context) (any, error) {
		games, err := i.api.FamilyGames(ctx, token, familyGroupID)
		if err != nil {
			return nil, err
		}
		return i.enrich(games), nil
	})
	if err != nil {
		return nil, err
	}

	games := v.(models.Catalog).Clone()
	i.logger.Info("steam family library imported",
		"family_group_id", familyGroupID,
		"games", len(games),
		"cached", hit,
	)
	return &Import{FamilyGroupID: familyGroupID, Games: games, Cached: hit}, nil
}

// cached serves key from the cache or runs fetch once for all concurrent
// callers asking for the same key. Failures are never cached. The shared
// fetch is detached from any single caller's cancellation; each caller
// stops waiting when its own ctx is done.
func (i *Importer) cached(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, bool, error) {
	if v, ok := i.cache.Get(key); ok {
		return v, true, nil
	}

	ch := i.group.DoChan(key, func() (any, error) {
		if v, ok := i.cache.Get(key); ok {
			return v, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		i.cache.Set(key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Shared {
			i.logger.Debug("steam request deduplicated", "key", redactKey(key))
		}
		return res.Val, false, res.Err
	}
}

// enrich fills genre and release year from the stored catalog when known
func (i *Importer) enrich(games models.Catalog) models.Catalog {
	if i.enricher == nil || len(games) == 0 {
		return games
	}
	known, err := i.enricher.LookupGames(games.IDs())
	if err != nil {
		i.logger.Warn("catalog enrichment failed", "error", err)
		return games
	}
	for idx, g := range games {
		k, ok := known[g.ID]
		if !ok {
			continue
		}
		if k.Genre != "" {
			games[idx].Genre = k.Genre
		}
		if k.ReleaseYear != 0 {
			games[idx].ReleaseYear = k.ReleaseYear
		}
	}
	return games
}

// tokenFingerprint keeps raw tokens out of cache keys and stats
func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func redactKey(key string) string {
	if strings.HasPrefix(key, "family:") {
		return "family:<redacted>"
	}
	return key
}
