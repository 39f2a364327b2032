package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sydlexius/crossfade/internal/provider"
	"github.com/sydlexius/crossfade/internal/provider/deezer"
)

// handleSearch merges both catalogs' artists for ?query=. An empty merge is
// reported as 404 with an empty list body.
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	query := strings.TrimSpace(req.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	res := r.resolver.SearchAll(req.Context(), query)
	setDegraded(w, res.Degraded())
	if len(res.Artists) == 0 {
		writeJSON(w, http.StatusNotFound, []provider.Artist{})
		return
	}
	writeJSON(w, http.StatusOK, res.Artists)
}

// handleResolve returns the single artist best matching ?name=.
func (r *Router) handleResolve(w http.ResponseWriter, req *http.Request) {
	name := strings.TrimSpace(req.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name parameter is required")
		return
	}

	res := r.resolver.ResolveArtist(req.Context(), name)
	setDegraded(w, res.Degraded())
	if !res.Found() {
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	writeJSON(w, http.StatusOK, res.Artist)
}

// handleGetArtist fetches an artist by id. Without ?source= an all-digit id
// is taken as a Catalog B id and anything else as a MusicBrainz id.
func (r *Router) handleGetArtist(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	source, ok := artistSource(id, req.URL.Query().Get("source"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown source")
		return
	}

	res := r.resolver.LookupArtist(req.Context(), provider.ArtistKey{Source: source, ID: id})
	setDegraded(w, res.Degraded())
	if !res.Found() {
		r.logger.DebugContext(req.Context(), "artist not found",
			slog.String("source", string(source)),
			slog.String("id", id))
		writeError(w, http.StatusNotFound, "artist not found")
		return
	}
	writeJSON(w, http.StatusOK, res.Artist)
}

func artistSource(id, explicit string) (provider.ProviderName, bool) {
	if explicit != "" {
		name, ok := provider.ParseProviderName(explicit)
		if !ok || name == provider.NameLastFM {
			return "", false
		}
		return name, true
	}
	if deezer.IsDeezerID(id) {
		return provider.NameDeezer, true
	}
	return provider.NameMusicBrainz, true
}
