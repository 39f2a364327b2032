package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sydlexius/crossfade/internal/provider"
)

// handleScrobbler forwards the query string to the scrobbler API and relays
// its status and rewritten body.
func (r *Router) handleScrobbler(w http.ResponseWriter, req *http.Request) {
	resp, err := r.scrobbler.Forward(req.Context(), req.URL.RawQuery)
	if err != nil {
		var unavailable *provider.ErrProviderUnavailable
		if errors.As(err, &unavailable) {
			r.logger.WarnContext(req.Context(), "scrobbler unavailable", slog.String("error", err.Error()))
			setDegraded(w, []provider.ProviderName{provider.NameLastFM})
			writeError(w, http.StatusBadGateway, "scrobbler unavailable")
			return
		}
		r.logger.ErrorContext(req.Context(), "forwarding scrobbler request", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
