// Package resolver answers artist lookups by consulting the primary catalog
// and, when allowed, the secondary one. Every operation is total: upstream
// failures are reported through Outcome values and logs, never as errors.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sydlexius/crossfade/internal/provider"
)

// CatalogA is the MusicBrainz-backed primary catalog.
type CatalogA interface {
	SearchHits(ctx context.Context, query string) ([]provider.SearchHit, error)
	GetArtist(ctx context.Context, id string) (*provider.Artist, error)
}

// CatalogB is the secondary streaming catalog.
type CatalogB interface {
	SearchArtists(ctx context.Context, term string, limit, offset int) ([]provider.Artist, error)
	GetArtist(ctx context.Context, id string) (*provider.Artist, error)
}

// Options controls resolution policy.
type Options struct {
	// FallbackEnabled allows Catalog B to answer single-artist lookups that
	// Catalog A could not match.
	FallbackEnabled bool
	// SearchLimit caps the Catalog B page size for merged searches.
	SearchLimit int
}

// DefaultOptions returns the default policy: fallback on, 25 results.
func DefaultOptions() Options {
	return Options{
		FallbackEnabled: true,
		SearchLimit:     25,
	}
}

// Service resolves and searches artists across both catalogs. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	catalogA CatalogA
	catalogB CatalogB
	opts     Options
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(a CatalogA, b CatalogB, opts Options, logger *slog.Logger) *Service {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultOptions().SearchLimit
	}
	return &Service{
		catalogA: a,
		catalogB: b,
		opts:     opts,
		logger:   logger.With(slog.String("component", "resolver")),
	}
}

// Options returns the policy the service was built with.
func (s *Service) Options() Options { return s.opts }

// ResolveArtist finds the artist called name. Catalog A is asked first and
// only an exact normalized-name match on an artist hit counts. Catalog B is
// consulted only when that yields nothing and fallback is enabled; its first
// result is returned as-is.
func (s *Service) ResolveArtist(ctx context.Context, name string) Resolution {
	var res Resolution
	if strings.TrimSpace(name) == "" {
		return res
	}

	outA := s.searchA(ctx, name)
	res.Outcomes = append(res.Outcomes, outA)

	if match := firstExactMatch(outA.Artists, Normalize(name)); match != nil {
		res.Artist = match
		s.logger.Debug("resolved from primary catalog",
			slog.String("name", name),
			slog.String("id", match.ID))
		return res
	}

	if !s.opts.FallbackEnabled {
		s.logger.Debug("no primary match and fallback disabled", slog.String("name", name))
		return res
	}

	outB := s.guard(provider.NameDeezer, "search", func() Outcome {
		artists, err := s.catalogB.SearchArtists(ctx, name, 1, 0)
		return classify(provider.NameDeezer, artists, err)
	})
	res.Outcomes = append(res.Outcomes, outB)
	if !outB.Failed() && len(outB.Artists) > 0 {
		artist := outB.Artists[0]
		res.Artist = &artist
		s.logger.Debug("resolved from secondary catalog",
			slog.String("name", name),
			slog.String("id", artist.ID))
	}
	return res
}

// LookupArtist fetches an artist by its source-scoped id.
func (s *Service) LookupArtist(ctx context.Context, key provider.ArtistKey) Resolution {
	var res Resolution
	if strings.TrimSpace(key.ID) == "" {
		return res
	}

	var get func(context.Context, string) (*provider.Artist, error)
	switch key.Source {
	case provider.NameMusicBrainz:
		get = s.catalogA.GetArtist
	case provider.NameDeezer:
		get = s.catalogB.GetArtist
	default:
		s.logger.Debug("lookup for unknown source", slog.String("source", string(key.Source)))
		return res
	}

	out := s.guard(key.Source, "lookup", func() Outcome {
		artist, err := get(ctx, key.ID)
		var artists []provider.Artist
		if artist != nil {
			artists = []provider.Artist{*artist}
		}
		return classify(key.Source, artists, err)
	})
	res.Outcomes = append(res.Outcomes, out)
	if !out.Failed() && len(out.Artists) > 0 {
		artist := out.Artists[0]
		res.Artist = &artist
	}
	return res
}

// searchA runs the Catalog A search and keeps only artist hits.
func (s *Service) searchA(ctx context.Context, query string) Outcome {
	return s.guard(provider.NameMusicBrainz, "search", func() Outcome {
		hits, err := s.catalogA.SearchHits(ctx, query)
		if err != nil {
			return classify(provider.NameMusicBrainz, nil, err)
		}
		artists := make([]provider.Artist, 0, len(hits))
		for _, h := range hits {
			if h.IsArtist() {
				artists = append(artists, *h.Artist)
			}
		}
		return classify(provider.NameMusicBrainz, artists, nil)
	})
}

// guard runs one upstream call, converting a panic into a failed Outcome and
// logging failures.
func (s *Service) guard(source provider.ProviderName, op string, call func() Outcome) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Source: source, Err: fmt.Errorf("%s %s panicked: %v", source, op, r)}
		}
		if out.Failed() {
			s.logger.Warn("upstream call failed",
				slog.String("provider", string(source)),
				slog.String("operation", op),
				slog.String("error", out.Err.Error()))
		}
	}()
	return call()
}

func firstExactMatch(artists []provider.Artist, key string) *provider.Artist {
	for i := range artists {
		if Normalize(artists[i].Name) == key {
			match := artists[i]
			return &match
		}
	}
	return nil
}
