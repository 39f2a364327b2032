package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/sydlexius/crossfade/internal/provider"
)

// newCatalogProxy forwards unclaimed requests to Catalog A unchanged apart
// from the base path, which is stripped before the target path is joined.
func (r *Router) newCatalogProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, r.basePath)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				r.logger.DebugContext(req.Context(), "client canceled proxied request", slog.String("path", req.URL.Path))
				return
			}
			r.logger.WarnContext(req.Context(), "catalog proxy failed",
				slog.String("provider", string(provider.NameMusicBrainz)),
				slog.String("path", req.URL.Path),
				slog.String("error", err.Error()))
			setDegraded(w, []provider.ProviderName{provider.NameMusicBrainz})
			writeError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}
}
