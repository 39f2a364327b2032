package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sydlexius/crossfade/internal/provider"
	"github.com/sydlexius/crossfade/internal/version"
)

// DegradedHeader lists the upstream sources that failed while building the
// response, comma separated. It is absent when every source answered.
const DegradedHeader = "X-Crossfade-Degraded"

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func setDegraded(w http.ResponseWriter, sources []provider.ProviderName) {
	if len(sources) == 0 {
		return
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	w.Header().Set(DegradedHeader, strings.Join(names, ","))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
