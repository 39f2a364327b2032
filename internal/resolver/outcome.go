package resolver

import (
	"errors"

	"github.com/sydlexius/crossfade/internal/provider"
)

// Outcome is the result of one call to one upstream. A failed outcome never
// carries artists: a transport or parse error discards the whole response.
type Outcome struct {
	Source  provider.ProviderName
	Artists []provider.Artist
	Err     error
}

// Failed reports whether the upstream could not be consulted.
func (o Outcome) Failed() bool { return o.Err != nil }

// classify turns an adapter result into an Outcome. ErrNotFound is a valid
// "no such artist" answer, not a failure.
func classify(source provider.ProviderName, artists []provider.Artist, err error) Outcome {
	if err == nil {
		return Outcome{Source: source, Artists: artists}
	}
	var notFound *provider.ErrNotFound
	if errors.As(err, &notFound) {
		return Outcome{Source: source}
	}
	return Outcome{Source: source, Err: err}
}

// Resolution is the answer to a single-artist lookup. Artist is nil when no
// upstream produced a match.
type Resolution struct {
	Artist   *provider.Artist
	Outcomes []Outcome
}

// Found reports whether an artist was resolved.
func (r Resolution) Found() bool { return r.Artist != nil }

// Degraded lists the sources that failed while resolving.
func (r Resolution) Degraded() []provider.ProviderName { return failedSources(r.Outcomes) }

// SearchResult is the merged answer to a multi-source search.
type SearchResult struct {
	Artists  []provider.Artist
	Outcomes []Outcome
}

// Degraded lists the sources whose search failed.
func (r SearchResult) Degraded() []provider.ProviderName { return failedSources(r.Outcomes) }

func failedSources(outcomes []Outcome) []provider.ProviderName {
	var names []provider.ProviderName
	for _, o := range outcomes {
		if o.Failed() {
			names = append(names, o.Source)
		}
	}
	return names
}
