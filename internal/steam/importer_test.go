package steam

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/steamtier/internal/cache"
	"github.com/meur/steamtier/internal/models"
)

type fakeAPI struct {
	resolveCalls atomic.Int32
	gamesCalls   atomic.Int32
	userCalls    atomic.Int32
	familyCalls  atomic.Int32

	gate     chan struct{} // when set, OwnedGames blocks until closed
	gamesErr error
	games    models.Catalog
}

func (f *fakeAPI) ResolveSteamID(_ context.Context, input string) (string, error) {
	f.resolveCalls.Add(1)
	if input == "" {
		return "", missingCredential("Steam ID is required")
	}
	if steamIDPattern.MatchString(input) {
		return input, nil
	}
	if input == "gaben" || input == "GabeN" {
		return "76561197960287930", nil
	}
	return "", notFound("Invalid Steam profile URL or username")
}

func (f *fakeAPI) OwnedGames(ctx context.Context, _ string) (models.Catalog, error) {
	f.gamesCalls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.gamesErr != nil {
		return nil, f.gamesErr
	}
	return f.games.Clone(), nil
}

func (f *fakeAPI) PlayerSummary(_ context.Context, steamID string) (*Player, error) {
	f.userCalls.Add(1)
	return &Player{SteamID: steamID, Username: "gaben"}, nil
}

func (f *fakeAPI) FamilyGames(_ context.Context, _, _ string) (models.Catalog, error) {
	f.familyCalls.Add(1)
	return f.games.Clone(), nil
}

type fakeEnricher map[int64]models.Game

func (f fakeEnricher) LookupGames(ids []int64) (map[int64]models.Game, error) {
	out := make(map[int64]models.Game)
	for _, id := range ids {
		if g, ok := f[id]; ok {
			out[id] = g
		}
	}
	return out, nil
}

func newTestImporter(t *testing.T, api API, enricher Enricher) *Importer {
	t.Helper()
	c := cache.New(time.Minute, 0)
	t.Cleanup(c.Close)
	return NewImporter(api, c, DefaultTTLs(), enricher, nil)
}

func sampleGames() models.Catalog {
	return models.Catalog{
		{ID: 620, Name: "Portal 2", Genre: UnknownGenre, ReleaseYear: 2026},
		{ID: 440, Name: "Team Fortress 2", Genre: UnknownGenre, ReleaseYear: 2026},
	}
}

func TestImporter_OwnedGamesCached(t *testing.T) {
	api := &fakeAPI{games: sampleGames()}
	imp := newTestImporter(t, api, nil)

	first, err := imp.OwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, []int64{620, 440}, first.Games.IDs())

	second, err := imp.OwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, int32(1), api.gamesCalls.Load())

	// callers get their own copy
	second.Games[0].Name = "changed"
	third, err := imp.OwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, "Portal 2", third.Games[0].Name)
}

func TestImporter_VanityResolutionCached(t *testing.T) {
	api := &fakeAPI{games: sampleGames()}
	imp := newTestImporter(t, api, nil)

	for _, input := range []string{"gaben", "GabeN", " gaben "} {
		res, err := imp.OwnedGames(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, "76561197960287930", res.SteamID)
	}
	assert.Equal(t, int32(1), api.resolveCalls.Load())
	assert.Equal(t, int32(1), api.gamesCalls.Load())
}

func TestImporter_FailuresNotCached(t *testing.T) {
	api := &fakeAPI{gamesErr: notFound("No games found. Profile might be private.")}
	imp := newTestImporter(t, api, nil)

	_, err := imp.OwnedGames(context.Background(), "76561197960287930")
	assert.ErrorIs(t, err, ErrProfilePrivateOrNotFound)

	api.gamesErr = nil
	api.games = sampleGames()
	res, err := imp.OwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.Len(t, res.Games, 2)
	assert.Equal(t, int32(2), api.gamesCalls.Load())
}

func TestImporter_ConcurrentRequestsShareOneFetch(t *testing.T) {
	api := &fakeAPI{games: sampleGames(), gate: make(chan struct{})}
	imp := newTestImporter(t, api, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Import, callers)
	errs := make([]error, callers)
	for n := 0; n < callers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], errs[n] = imp.OwnedGames(context.Background(), "76561197960287930")
		}(n)
	}

	require.Eventually(t, func() bool { return api.gamesCalls.Load() == 1 }, time.Second, time.Millisecond)
	// give the rest time to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	for n := 0; n < callers; n++ {
		require.NoError(t, errs[n])
		assert.Len(t, results[n].Games, 2)
	}
	assert.Equal(t, int32(1), api.gamesCalls.Load())
}

func TestImporter_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	api := &fakeAPI{games: sampleGames(), gate: make(chan struct{})}
	imp := newTestImporter(t, api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := imp.OwnedGames(ctx, "76561197960287930")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return api.gamesCalls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		imp *Import
		err error
	}
	second := make(chan result, 1)
	go func() {
		res, err := imp.OwnedGames(context.Background(), "76561197960287930")
		second <- result{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(api.gate)
	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.imp.Games, 2)
	assert.Equal(t, int32(1), api.gamesCalls.Load())

	// the shared result was cached for later callers
	again, err := imp.OwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestImporter_Enrichment(t *testing.T) {
	api := &fakeAPI{games: sampleGames()}
	enricher := fakeEnricher{
		620: {ID: 620, Genre: "Puzzle", ReleaseYear: 2011},
		999: {ID: 999, Genre: "Other", ReleaseYear: 2000},
	}
	imp := newTestImporter(t, api, enricher)

	res, err := imp.OwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, "Puzzle", res.Games[0].Genre)
	assert.Equal(t, 2011, res.Games[0].ReleaseYear)
	assert.Equal(t, UnknownGenre, res.Games[1].Genre)
	assert.Len(t, res.Games, 2)
}

type failingEnricher struct{}

func (failingEnricher) LookupGames([]int64) (map[int64]models.Game, error) {
	return nil, errors.New("database is locked")
}

func TestImporter_EnrichmentFailureIsNotFatal(t *testing.T) {
	api := &fakeAPI{games: sampleGames()}
	imp := newTestImporter(t, api, failingEnricher{})

	res, err := imp.OwnedGames(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, UnknownGenre, res.Games[0].Genre)
}

func TestImporter_User(t *testing.T) {
	api := &fakeAPI{}
	imp := newTestImporter(t, api, nil)

	p, err := imp.User(context.Background(), "gaben")
	require.NoError(t, err)
	assert.Equal(t, "76561197960287930", p.SteamID)

	p.Username = "changed"
	p, err = imp.User(context.Background(), "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, "gaben", p.Username)
	assert.Equal(t, int32(1), api.userCalls.Load())
}

func TestImporter_FamilyGames(t *testing.T) {
	api := &fakeAPI{games: sampleGames()}
	imp := newTestImporter(t, api, nil)

	_, err := imp.FamilyGames(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, int32(0), api.familyCalls.Load())

	res, err := imp.FamilyGames(context.Background(), "tok-a", "")
	require.NoError(t, err)
	assert.Equal(t, "0", res.FamilyGroupID)
	assert.False(t, res.Cached)

	res, err = imp.FamilyGames(context.Background(), "tok-a", "0")
	require.NoError(t, err)
	assert.True(t, res.Cached)

	_, err = imp.FamilyGames(context.Background(), "tok-b", "0")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.familyCalls.Load())
}

func TestImporter_CacheKeysHideTokens(t *testing.T) {
	api := &fakeAPI{games: sampleGames()}
	c := cache.New(time.Minute, 0)
	t.Cleanup(c.Close)
	imp := NewImporter(api, c, DefaultTTLs(), nil, nil)

	_, err := imp.FamilyGames(context.Background(), "very-secret-token", "0")
	require.NoError(t, err)

	for _, e := range c.Stats().Entries {
		assert.NotContains(t, e.Key, "very-secret-token")
	}
}
