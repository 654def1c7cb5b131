package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/meur/steamtier/internal/board"
	"github.com/meur/steamtier/internal/cache"
	"github.com/meur/steamtier/internal/models"
	"github.com/meur/steamtier/internal/ratelimit"
	"github.com/meur/steamtier/internal/steam"
	"github.com/meur/steamtier/internal/validation"
)

const maxBodyBytes = 5 << 20

// CatalogStore serves the default catalog
type CatalogStore interface {
	GetGames() (models.Catalog, error)
	GetGame(id int64) (*models.Game, error)
	Ping() error
}

// SteamImporter fetches libraries from Steam
type SteamImporter interface {
	User(ctx context.Context, input string) (*steam.Player, error)
	OwnedGames(ctx context.Context, input string) (*steam.Import, error)
	FamilyGames(ctx context.Context, token, familyGroupID string) (*steam.Import, error)
}

// CacheAdmin exposes the response cache to operators
type CacheAdmin interface {
	Stats() cache.Stats
	Clear() int
}

// Options holds the HTTP server dependencies. Limiter may be nil to
// disable inbound rate limiting. Without a Store the catalog endpoints and
// body-less resets answer 503; without Steam the proxy does.
type Options struct {
	Store          CatalogStore
	Steam          SteamImporter
	Cache          CacheAdmin
	Limiter        *ratelimit.Limiter
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server holds the HTTP server dependencies
type Server struct {
	store     CatalogStore
	steam     SteamImporter
	cache     CacheAdmin
	limiter   *ratelimit.Limiter
	validator *validation.Validator
	logger    *slog.Logger
	router    chi.Router
}

// New creates a new API server
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		store:     opts.Store,
		steam:     opts.Steam,
		cache:     opts.Cache,
		limiter:   opts.Limiter,
		validator: validation.New(),
		logger:    opts.Logger,
		router:    chi.NewRouter(),
	}

	s.setupMiddleware(opts.AllowedOrigins)
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the chi router so callers can mount extra handlers
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Default catalog
		r.Get("/games", s.handleGetGames)
		r.Get("/games/{gameID}", s.handleGetGame)

		// Tier palette
		r.Get("/tiers/palette", s.handleGetPalette)
		r.Post("/tiers/colors", s.handleResolveColors)

		// Board operations
		r.Route("/board", func(r chi.Router) {
			r.Post("/reset", s.handleReset)
			r.Post("/import", s.handleImport)
			r.Post("/reorder", s.handleReorder)
			r.Post("/move", s.handleMove)
			r.Post("/tiers", s.handleAddTier)
			r.Post("/tiers/delete", s.handleDeleteTier)
			r.Post("/tiers/rename", s.handleRenameTier)
			r.Post("/drag", s.handleDrag)
		})

		// Steam proxy
		r.Route("/steam", func(r chi.Router) {
			if s.limiter != nil {
				r.Use(ratelimit.Middleware(s.limiter, "steam", ratelimit.RemoteAddr))
			}
			r.Get("/user", s.handleSteamUser)
			r.Get("/games", s.handleSteamGames)
			r.Post("/family", s.handleSteamFamily)
			r.Post("/import", s.handleSteamImport)
		})

		// Operators
		r.Get("/admin/cache", s.handleCacheStats)
		r.Post("/admin/cache/clear", s.handleCacheClear)
	})

	// Health check
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if s.store != nil {
			if err := s.store.Ping(); err != nil {
				s.logger.Error("health check failed", "error", err)
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// --- Response helpers ---

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error      string            `json:"error"`
	Code       string            `json:"code"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}

// bodyError marks a request body that could not be decoded
type bodyError struct {
	err error
}

func (e *bodyError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *bodyError) Unwrap() error { return e.err }

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: message, Code: code})
}

// respondErr maps domain errors onto status codes
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rejected *board.Rejected
		verr     *validation.Error
		serr     *steam.Error
		berr     *bodyError
	)

	switch {
	case errors.As(err, &rejected):
		respondError(w, http.StatusConflict, string(rejected.Reason), rejected.Error())
	case errors.Is(err, board.ErrCorrupt):
		respondError(w, http.StatusUnprocessableEntity, "INVALID_BOARD", err.Error())
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Code: "VALIDATION_FAILED", Fields: verr.Fields})
	case errors.As(err, &berr):
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
	case errors.As(err, &serr):
		body := errorBody{Error: serr.Message, Code: string(serr.Kind)}
		if body.Error == "" {
			body.Error = string(serr.Kind)
		}
		if serr.RetryAfter > 0 {
			secs := int((serr.RetryAfter + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			body.RetryAfter = secs
		}
		if serr.Kind == steam.KindUpstreamError {
			s.logger.Warn("steam upstream failure",
				"request_id", middleware.GetReqID(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
		}
		respondJSON(w, serr.HTTPStatus(), body)
	default:
		s.logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

// decode reads and validates a JSON body into v. An empty body decodes
// to the zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, board.ErrCorrupt) {
			return err
		}
		return &bodyError{err: err}
	}
	return s.validator.Validate(v)
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		rctx := chi.RouteContext(req.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, req)
	})
}
