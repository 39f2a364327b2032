package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/crossfade/internal/provider"
	"github.com/sydlexius/crossfade/internal/version"
)

const defaultBaseURL = "https://api.lidarr.audio/api/v0.4"

// Adapter talks to the MusicBrainz-backed metadata API (Catalog A).
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a metadata API adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a metadata API adapter with a custom base URL.
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetTimeout overrides the per-request timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameMusicBrainz }

// BaseURL returns the upstream base address, used as the reverse proxy target.
func (a *Adapter) BaseURL() string { return a.baseURL }

// SearchHits runs a mixed-type search and returns every hit in upstream
// order. Non-artist hits are kept so the caller can apply its own filter.
func (a *Adapter) SearchHits(ctx context.Context, query string) ([]provider.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	params := url.Values{
		"type":  {"all"},
		"query": {query},
	}
	reqURL := a.baseURL + "/search?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, "")
	if err != nil {
		return nil, err
	}

	var raw []searchHit
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	hits := make([]provider.SearchHit, 0, len(raw))
	for _, h := range raw {
		hit := provider.SearchHit{Type: h.Type, Album: h.Album}
		artist, err := decodeArtist(h.Artist)
		if err != nil {
			return nil, fmt.Errorf("parsing search hit: %w", err)
		}
		hit.Artist = artist
		hits = append(hits, hit)
	}

	a.logger.Debug("search completed",
		slog.String("query", query),
		slog.Int("hits", len(hits)))

	return hits, nil
}

// GetArtist fetches a full artist record by its metadata API id.
func (a *Adapter) GetArtist(ctx context.Context, id string) (*provider.Artist, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: id}
	}

	reqURL := a.baseURL + "/artist/" + url.PathEscape(id)
	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	artist, err := decodeArtist(body)
	if err != nil {
		return nil, fmt.Errorf("parsing artist response: %w", err)
	}
	if artist == nil || artist.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: id}
	}
	if artist.ID == "" {
		artist.ID = id
	}
	return artist, nil
}

// TestConnection verifies connectivity to the metadata API.
func (a *Adapter) TestConnection(ctx context.Context) error {
	params := url.Values{
		"type":  {"all"},
		"query": {"test"},
	}
	_, err := a.doRequest(ctx, a.baseURL+"/search?"+params.Encode(), "")
	return err
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
// The limiter wait and the request share one timeout budget. A 404 is
// ErrNotFound only when id names the entity being fetched; collection
// endpoints such as search report it as unavailable.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.client.Timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx, provider.NameMusicBrainz); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped input
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound && id != "" {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{
			Provider: provider.NameMusicBrainz,
			ID:       id,
		}
	}

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider:   provider.NameMusicBrainz,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: 2 * time.Second,
		}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("reading body: %w", err),
		}
	}
	return body, nil
}

// decodeArtist maps a raw artist object to a provider.Artist, keeping the
// original bytes as Extra. A missing or null object yields nil.
func decodeArtist(raw json.RawMessage) (*provider.Artist, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var r artistResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &provider.Artist{
		ID:     r.ArtistID,
		Name:   normalizeHyphens(r.ArtistName),
		Source: provider.NameMusicBrainz,
		Extra:  append(json.RawMessage(nil), raw...),
	}, nil
}

// normalizeHyphens replaces the Unicode hyphens MusicBrainz uses in names
// (U+2010, U+2011) with ASCII hyphen-minus. Dashes are left alone.
func normalizeHyphens(s string) string {
	return strings.NewReplacer("\u2010", "-", "\u2011", "-").Replace(s)
}

func userAgent() string {
	return fmt.Sprintf("Crossfade/%s (https://github.com/sydlexius/crossfade)", version.Version)
}
