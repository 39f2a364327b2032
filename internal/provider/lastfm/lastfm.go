package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sydlexius/crossfade/internal/provider"
	"github.com/sydlexius/crossfade/internal/version"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Response is a forwarded scrobbler response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Passthrough forwards read-only API calls to Last.fm and strips a fixed set
// of object keys from JSON responses. It adds no auth of its own: the
// caller's api_key travels in the forwarded query.
type Passthrough struct {
	client      *http.Client
	limiter     *provider.RateLimiterMap
	logger      *slog.Logger
	baseURL     string
	stripFields map[string]struct{}
}

// New creates a passthrough with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, stripFields []string) *Passthrough {
	return NewWithBaseURL(limiter, logger, defaultBaseURL, stripFields)
}

// NewWithBaseURL creates a passthrough with a custom base URL.
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string, stripFields []string) *Passthrough {
	fields := make(map[string]struct{}, len(stripFields))
	for _, f := range stripFields {
		if f = strings.TrimSpace(f); f != "" {
			fields[f] = struct{}{}
		}
	}
	return &Passthrough{
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     limiter,
		logger:      logger.With(slog.String("provider", "lastfm")),
		baseURL:     strings.TrimRight(baseURL, "/"),
		stripFields: fields,
	}
}

// SetTimeout overrides the per-request timeout.
func (p *Passthrough) SetTimeout(d time.Duration) {
	if d > 0 {
		p.client.Timeout = d
	}
}

// Name returns the provider name.
func (p *Passthrough) Name() provider.ProviderName { return provider.NameLastFM }

// Forward issues GET {base}/?rawQuery and returns the upstream status with a
// rewritten body. Non-JSON bodies are returned unchanged. The limiter wait
// counts against the client timeout.
func (p *Passthrough) Forward(ctx context.Context, rawQuery string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.client.Timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx, provider.NameLastFM); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	reqURL := p.baseURL + "/"
	if rawQuery != "" {
		reqURL += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Crossfade/"+version.Version)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req) //nolint:gosec // URL constructed from trusted base + forwarded query
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("reading body: %w", err),
		}
	}

	out := &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	rewritten, removed, err := p.strip(body)
	if err != nil {
		p.logger.Debug("response not rewritten", slog.String("error", err.Error()))
		return out, nil
	}
	out.Body = rewritten
	out.ContentType = "application/json"
	if removed > 0 {
		p.logger.Debug("stripped response fields", slog.Int("removed", removed))
	}
	return out, nil
}

// strip decodes body as JSON, deletes every configured key at any depth and
// re-encodes it. It reports how many keys were removed.
func (p *Passthrough) strip(body []byte) ([]byte, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, 0, fmt.Errorf("not a JSON document")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("decoding: %w", err)
	}

	removed := stripKeys(doc, p.stripFields)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, 0, fmt.Errorf("encoding: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), removed, nil
}

func stripKeys(v any, fields map[string]struct{}) int {
	removed := 0
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if _, ok := fields[k]; ok {
				delete(t, k)
				removed++
				continue
			}
			removed += stripKeys(child, fields)
		}
	case []any:
		for _, child := range t {
			removed += stripKeys(child, fields)
		}
	}
	return removed
}
