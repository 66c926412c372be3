// Package cricapi implements ingest.Fetcher against the cricket data API.
package cricapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crickstream/cricket-ingest/internal/ingest"
)

const (
	apiKeyParam  = "apikey"
	maxBodyBytes = 16 << 20
)

// Config controls the upstream HTTP client.
type Config struct {
	Endpoint  string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Fetcher issues a single GET per cycle against the current-matches
// endpoint. It holds a long-lived http.Client; retry policy belongs to the
// cycle driver, not here.
type Fetcher struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// New validates the endpoint and builds a Fetcher. The API key, when set,
// is appended as a query parameter.
func New(cfg Config) (*Fetcher, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("api.endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse api endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api endpoint must be http(s): %q", cfg.Endpoint)
	}
	if cfg.APIKey != "" {
		q := u.Query()
		q.Set(apiKeyParam, cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		endpoint:  u.String(),
		userAgent: cfg.UserAgent,
	}, nil
}

// Fetch retrieves and decodes the current match list. Failures map onto
// the fetch error taxonomy: transport problems (including timeouts) are
// network errors, non-2xx responses carry the status code, and anything
// wrong with the body shape is a decode error.
func (f *Fetcher) Fetch(ctx context.Context) (ingest.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return ingest.FetchResult{}, &ingest.FetchError{Kind: ingest.FetchErrNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return ingest.FetchResult{}, &ingest.FetchError{Kind: ingest.FetchErrNetwork, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ingest.FetchResult{}, &ingest.FetchError{
			Kind:       ingest.FetchErrStatus,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return ingest.FetchResult{}, &ingest.FetchError{Kind: ingest.FetchErrNetwork, Err: err}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ingest.FetchResult{}, &ingest.FetchError{
			Kind: ingest.FetchErrDecode,
			Err:  fmt.Errorf("invalid JSON body: %w", err),
		}
	}
	data, ok := envelope["data"]
	if !ok {
		return ingest.FetchResult{}, &ingest.FetchError{
			Kind: ingest.FetchErrDecode,
			Err:  fmt.Errorf("response missing %q key", "data"),
		}
	}
	var records []ingest.RawMatch
	if err := json.Unmarshal(data, &records); err != nil {
		return ingest.FetchResult{}, &ingest.FetchError{
			Kind: ingest.FetchErrDecode,
			Err:  fmt.Errorf("decode match list: %w", err),
		}
	}

	return ingest.FetchResult{Records: records, Body: body}, nil
}
