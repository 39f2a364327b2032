package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/sydlexius/crossfade/internal/api/middleware"
	"github.com/sydlexius/crossfade/internal/provider"
	"github.com/sydlexius/crossfade/internal/provider/lastfm"
	"github.com/sydlexius/crossfade/internal/resolver"
	"github.com/sydlexius/crossfade/internal/version"
)

// Resolver is the artist resolution service the handlers call.
type Resolver interface {
	SearchAll(ctx context.Context, term string) resolver.SearchResult
	ResolveArtist(ctx context.Context, name string) resolver.Resolution
	LookupArtist(ctx context.Context, key provider.ArtistKey) resolver.Resolution
}

// Scrobbler forwards scrobbler API calls.
type Scrobbler interface {
	Forward(ctx context.Context, rawQuery string) (*lastfm.Response, error)
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Resolver  Resolver
	Scrobbler Scrobbler
	// CatalogABaseURL receives every request no other route claims.
	CatalogABaseURL    string
	Logger             *slog.Logger
	BasePath           string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Router sets up all HTTP routes for the application.
type Router struct {
	resolver  Resolver
	scrobbler Scrobbler
	proxy     *httputil.ReverseProxy
	limiter   *middleware.ClientRateLimiter
	logger    *slog.Logger
	basePath  string
}

// NewRouter creates a Router. ctx bounds background work such as rate
// limiter cleanup.
func NewRouter(ctx context.Context, deps RouterDeps) (*Router, error) {
	target, err := url.Parse(deps.CatalogABaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog A base URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("catalog A base URL %q must be absolute", deps.CatalogABaseURL)
	}

	r := &Router{
		resolver:  deps.Resolver,
		scrobbler: deps.Scrobbler,
		logger:    deps.Logger.With(slog.String("component", "api")),
		basePath:  deps.BasePath,
	}
	r.proxy = r.newCatalogProxy(target)
	if deps.RateLimitPerSecond > 0 {
		r.limiter = middleware.NewClientRateLimiter(ctx, deps.RateLimitPerSecond, deps.RateLimitBurst)
	}
	return r, nil
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath
	api := middleware.APIHeaders("crossfade/" + version.Version)

	mux.Handle("GET "+bp+"/api/v1/health", api(http.HandlerFunc(r.handleHealth)))
	mux.Handle("GET "+bp+"/api/v1/search", api(http.HandlerFunc(r.handleSearch)))
	mux.Handle("GET "+bp+"/api/v1/resolve", api(http.HandlerFunc(r.handleResolve)))
	mux.Handle("GET "+bp+"/api/v1/artist/{id}", api(http.HandlerFunc(r.handleGetArtist)))
	mux.HandleFunc("GET "+bp+"/scrobbler/", r.handleScrobbler)

	// Everything else belongs to Catalog A.
	mux.Handle(bp+"/", r.proxy)

	var handler http.Handler = mux
	if r.limiter != nil {
		handler = r.limiter.Middleware(handler)
	}
	handler = middleware.Logging(r.logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
