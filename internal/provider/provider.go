package provider

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProviderName uniquely identifies an upstream catalog.
type ProviderName string

// Known provider names.
const (
	NameMusicBrainz ProviderName = "musicbrainz" // Catalog A
	NameDeezer      ProviderName = "deezer"      // Catalog B
	NameLastFM      ProviderName = "lastfm"      // scrobbler passthrough
)

// AllProviderNames returns all known provider names in priority order.
func AllProviderNames() []ProviderName {
	return []ProviderName{
		NameMusicBrainz,
		NameDeezer,
		NameLastFM,
	}
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameDeezer:
		return "Deezer"
	case NameLastFM:
		return "Last.fm"
	default:
		return string(n)
	}
}

// ParseProviderName maps a user-supplied source name to a ProviderName,
// ignoring case.
func ParseProviderName(s string) (ProviderName, bool) {
	for _, n := range AllProviderNames() {
		if strings.EqualFold(string(n), strings.TrimSpace(s)) {
			return n, true
		}
	}
	return "", false
}

// ArtistKey identifies an artist within a single provider's id namespace.
// Keys from different providers never compare equal, even when the raw ids do.
type ArtistKey struct {
	Source ProviderName
	ID     string
}

func (k ArtistKey) String() string {
	return string(k.Source) + ":" + k.ID
}

// Artist is one artist as known to exactly one provider. Extra carries the
// provider's full object untouched.
type Artist struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Source ProviderName    `json:"source"`
	Extra  json.RawMessage `json:"extra,omitempty"`
}

// Key returns the source-scoped identity of the artist.
func (a Artist) Key() ArtistKey {
	return ArtistKey{Source: a.Source, ID: a.ID}
}

// SearchHit is a single entry from a Catalog A "type=all" search. Hits for
// other entity types carry a non-null album payload.
type SearchHit struct {
	Type   string
	Album  json.RawMessage
	Artist *Artist
}

// IsArtist reports whether the hit describes an artist: no album payload and
// a nested artist record.
func (h SearchHit) IsArtist() bool {
	if h.Artist == nil {
		return false
	}
	return len(h.Album) == 0 || string(h.Album) == "null"
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrProviderUnavailable struct {
	Provider   ProviderName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the requested ID.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: artist %s not found", e.Provider, e.ID)
}
