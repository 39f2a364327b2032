package resolver

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/crossfade/internal/provider"
)

// SearchAll queries both catalogs concurrently and merges their artists.
// Catalog A results come first, so A wins name collisions. A failure of one
// catalog never cancels or hides the other; if both fail the result is empty.
func (s *Service) SearchAll(ctx context.Context, term string) SearchResult {
	if strings.TrimSpace(term) == "" {
		return SearchResult{Artists: []provider.Artist{}}
	}

	var outA, outB Outcome
	// No shared cancel context: each call succeeds or fails on its own.
	var g errgroup.Group
	g.Go(func() error {
		outA = s.searchA(ctx, term)
		return nil
	})
	g.Go(func() error {
		outB = s.guard(provider.NameDeezer, "search", func() Outcome {
			artists, err := s.catalogB.SearchArtists(ctx, term, s.opts.SearchLimit, 0)
			return classify(provider.NameDeezer, artists, err)
		})
		return nil
	})
	_ = g.Wait()

	res := SearchResult{Outcomes: []Outcome{outA, outB}}
	switch {
	case outA.Failed() && outB.Failed():
		res.Artists = []provider.Artist{}
	case outA.Failed():
		res.Artists = Dedup(outB.Artists)
	case outB.Failed():
		res.Artists = Dedup(outA.Artists)
	default:
		merged := make([]provider.Artist, 0, len(outA.Artists)+len(outB.Artists))
		merged = append(merged, outA.Artists...)
		merged = append(merged, outB.Artists...)
		res.Artists = Dedup(merged)
	}
	return res
}

// Dedup keeps the first artist for each normalized name, preserving order.
// It is idempotent.
func Dedup(artists []provider.Artist) []provider.Artist {
	seen := make(map[string]struct{}, len(artists))
	out := make([]provider.Artist, 0, len(artists))
	for _, a := range artists {
		key := Normalize(a.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
