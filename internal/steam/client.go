// Package steam imports game libraries from the Steam Web API.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/meur/steamtier/internal/models"
	"github.com/meur/steamtier/internal/retry"
)

const (
	DefaultBaseURL = "https://api.steampowered.com"
	userAgent      = "steamtier/1.0"
)

var (
	steamIDPattern    = regexp.MustCompile(`^\d{17}$`)
	profileURLPattern = regexp.MustCompile(`steamcommunity\.com/profiles/(\d+)`)
	vanityURLPattern  = regexp.MustCompile(`steamcommunity\.com/id/([^/?#]+)`)
)

// ClientConfig configures a Client
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64 // outbound pacing, 0 disables it
	Burst             int
	MaxAttempts       int
	InitialBackoff    time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
	Now               func() time.Time
}

// Client handles Steam Web API requests
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retry      *retry.Policy
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a Steam Web API client
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		retry:      retry.NewPolicy(cfg.MaxAttempts, cfg.InitialBackoff, isTemporary),
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// HasAPIKey reports whether key-based endpoints can be called
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

// Player is a Steam profile summary
type Player struct {
	SteamID        string     `json:"steam_id"`
	Username       string     `json:"username"`
	RealName       *string    `json:"real_name"`
	ProfileURL     string     `json:"profile_url"`
	Avatar         string     `json:"avatar"`
	IsPublic       bool       `json:"is_public"`
	Country        *string    `json:"country"`
	AccountCreated *time.Time `json:"account_created"`
}

// ResolveSteamID turns a 64-bit Steam ID, a profile URL or a vanity name
// into a 64-bit Steam ID.
func (c *Client) ResolveSteamID(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", missingCredential("Steam ID is required")
	}
	if steamIDPattern.MatchString(input) {
		return input, nil
	}
	if m := profileURLPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}

	vanity := input
	if m := vanityURLPattern.FindStringSubmatch(input); m != nil {
		vanity = m[1]
	}
	if !c.HasAPIKey() {
		return "", missingCredential("Steam API key not configured")
	}

	var resp struct {
		Response struct {
			Success int    `json:"success"`
			SteamID string `json:"steamid"`
		} `json:"response"`
	}
	q := url.Values{"key": {c.apiKey}, "vanityurl": {vanity}}
	if err := c.get(ctx, "/ISteamUser/ResolveVanityURL/v0001/", q, &resp); err != nil {
		return "", err
	}
	if resp.Response.Success != 1 || resp.Response.SteamID == "" {
		return "", notFound("Invalid Steam profile URL or username")
	}
	return resp.Response.SteamID, nil
}

// OwnedGames returns the games owned by steamID
func (c *Client) OwnedGames(ctx context.Context, steamID string) (models.Catalog, error) {
	if !c.HasAPIKey() {
		return nil, missingCredential("Steam API key not configured")
	}

	var resp ownedGamesResponse
	q := url.Values{
		"key":                       {c.apiKey},
		"steamid":                   {steamID},
		"format":                    {"json"},
		"include_appinfo":           {"1"},
		"include_played_free_games": {"1"},
	}
	if err := c.get(ctx, "/IPlayerService/GetOwnedGames/v0001/", q, &resp); err != nil {
		return nil, err
	}
	if resp.Response.Games == nil {
		return nil, notFound("No games found. Profile might be private.")
	}
	return mapOwnedGames(resp.Response.Games, c.now()), nil
}

// PlayerSummary returns the profile of steamID
func (c *Client) PlayerSummary(ctx context.Context, steamID string) (*Player, error) {
	if !c.HasAPIKey() {
		return nil, missingCredential("Steam API key not configured")
	}

	var resp playerSummariesResponse
	q := url.Values{"key": {c.apiKey}, "steamids": {steamID}}
	if err := c.get(ctx, "/ISteamUser/GetPlayerSummaries/v0002/", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Response.Players) == 0 {
		return nil, notFound("Steam user not found")
	}
	return mapPlayer(resp.Response.Players[0]), nil
}

// FamilyGames returns the apps shared with the family group the token
// belongs to
func (c *Client) FamilyGames(ctx context.Context, token, familyGroupID string) (models.Catalog, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, missingCredential("Web API token is required for Family Sharing games")
	}
	if familyGroupID == "" {
		familyGroupID = "0"
	}

	var resp familyAppsResponse
	q := url.Values{
		"access_token":      {token},
		"family_groupid":    {familyGroupID},
		"include_own":       {"true"},
		"include_excluded":  {"false"},
		"include_free":      {"true"},
		"include_non_games": {"false"},
	}
	if err := c.get(ctx, "/IFamilyGroupsService/GetSharedLibraryApps/v1/", q, &resp); err != nil {
		return nil, err
	}
	if resp.Response.Apps == nil {
		return nil, notFound("No family shared apps found")
	}
	return mapFamilyApps(resp.Response.Apps, c.now()), nil
}

// get issues a paced, retried GET and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	return c.retry.Execute(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return upstream(0, "rate limiter wait", err)
		}

		start := time.Now()
		err := c.do(ctx, endpoint, out)
		c.logger.Debug("steam request",
			"path", path,
			"duration", time.Since(start),
			"error", err,
		)
		return err
	})
}

func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return upstream(0, "creating request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return upstream(0, "making request", redactError(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Kind:       KindRateLimited,
			Message:    "Steam API rate limit reached",
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{
			Kind:    KindInvalidOrExpiredToken,
			Message: "Invalid or expired web API token",
			Status:  resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: KindProfilePrivateOrNotFound, Message: "Steam profile not found", Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return upstream(resp.StatusCode, fmt.Sprintf("Steam API error: status=%d", resp.StatusCode),
			fmt.Errorf("body=%s", strings.TrimSpace(string(body))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return upstream(resp.StatusCode, "decoding response", err)
	}
	return nil
}

// redactError strips the query string (which carries credentials) from
// transport errors.
func redactError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if u, perr := url.Parse(uerr.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
		}
	}
	return err
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
