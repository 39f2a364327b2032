package deezer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/sydlexius/crossfade/internal/provider"
	"github.com/sydlexius/crossfade/internal/version"
)

const defaultBaseURL = "https://api.deezer.com"

// Adapter talks to the streaming catalog (Catalog B). No authentication is
// required.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a catalog adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a catalog adapter with a custom base URL.
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "deezer")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetTimeout overrides the per-request timeout.
func (a *Adapter) SetTimeout(d time.Duration) {
	if d > 0 {
		a.client.Timeout = d
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() provider.ProviderName { return provider.NameDeezer }

// SearchArtists searches the catalog for artists matching term. Results are
// returned in upstream order without filtering.
func (a *Adapter) SearchArtists(ctx context.Context, term string, limit, offset int) ([]provider.Artist, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	params := url.Values{
		"q":      {term},
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
	reqURL := a.baseURL + "/search/artists?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL, "")
	if err != nil {
		return nil, err
	}

	raws, err := decodeSearch(body)
	if err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]provider.Artist, 0, len(raws))
	for _, raw := range raws {
		artist, err := decodeArtist(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing search response: %w", err)
		}
		results = append(results, *artist)
	}

	a.logger.Debug("artist search completed",
		slog.String("query", term),
		slog.Int("results", len(results)))

	return results, nil
}

// GetArtist fetches an artist by catalog ID (numeric string). Non-numeric
// IDs such as MusicBrainz UUIDs return ErrNotFound without a request.
func (a *Adapter) GetArtist(ctx context.Context, id string) (*provider.Artist, error) {
	if !IsDeezerID(id) {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: id}
	}

	reqURL := fmt.Sprintf("%s/artists/%s", a.baseURL, url.PathEscape(id))
	body, err := a.doRequest(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}

	artist, err := decodeArtist(body)
	if err != nil {
		return nil, fmt.Errorf("parsing artist response: %w", err)
	}
	if artist.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: id}
	}
	if artist.ID == "" {
		artist.ID = id
	}
	return artist, nil
}

// doRequest executes a GET request and returns the response body. The
// limiter wait counts against the client timeout. Not-found answers become
// ErrNotFound only for single-artist fetches, where id is non-empty.
func (a *Adapter) doRequest(ctx context.Context, reqURL, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.client.Timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx, provider.NameDeezer); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Crossfade/"+version.Version)

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from adapter config and validated inputs
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusNotFound:
		if id != "" {
			return nil, &provider.ErrNotFound{Provider: provider.NameDeezer, ID: id}
		}
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	case http.StatusTooManyRequests:
		return nil, &provider.ErrProviderUnavailable{
			Provider:   provider.NameDeezer,
			Cause:      fmt.Errorf("rate limited by server"),
			RetryAfter: 5 * time.Second,
		}
	default:
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameDeezer,
			Cause:    fmt.Errorf("reading body: %w", err),
		}
	}
	if err := apiError(body, id); err != nil {
		return nil, err
	}
	return body, nil
}

// apiError detects the {"error": {...}} envelope the public API returns with
// a 200 status, for example when the quota is exceeded. Code 800 (no data)
// is a not-found only when an id was requested.
func apiError(body []byte, id string) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var env struct {
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Error == nil {
		return nil
	}
	if env.Error.Code == 800 && id != "" {
		return &provider.ErrNotFound{Provider: provider.NameDeezer, ID: id}
	}
	return &provider.ErrProviderUnavailable{
		Provider: provider.NameDeezer,
		Cause:    fmt.Errorf("api error %d: %s", env.Error.Code, env.Error.Message),
	}
}

// decodeSearch returns the raw artist objects from either a bare list or a
// {"data": [...]} envelope.
func decodeSearch(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var resp searchResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func decodeArtist(raw json.RawMessage) (*provider.Artist, error) {
	var r artistResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &provider.Artist{
		ID:     string(r.ID),
		Name:   r.Name,
		Source: provider.NameDeezer,
		Extra:  append(json.RawMessage(nil), raw...),
	}, nil
}

// IsDeezerID reports whether id is a valid catalog artist ID (all digits).
func IsDeezerID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
