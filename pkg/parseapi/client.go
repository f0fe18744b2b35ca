// Package parseapi provides a client for the remote notice parsing service.
// The service's algorithm is a black box; this package only speaks its wire
// contract: notice text in, a list of structured geometry entries out.
package parseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the parse service operations.
type Client interface {
	// Parse submits notice text and returns the structured entries the
	// service extracted from it. Zero entries is a valid success.
	Parse(ctx context.Context, text string) ([]Entry, error)
}

// Entry is one structured result extracted from the notice text. RawText is
// the per-entry text the service attributed to this entry, not necessarily
// the whole submitted input.
type Entry struct {
	RawText     string   `json:"raw_text"`
	Geometry    Geometry `json:"geometry"`
	Altitude    Altitude `json:"altitude"`
	Description string   `json:"description,omitempty"`
	IDs         []string `json:"ids"`
}

// Geometry is the wire shape variant. Type is one of "polygon", "circle",
// "line", "point", or "unknown"; coordinates are [lat, lng] pairs.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
	RadiusNM    *float64    `json:"radius_nm,omitempty"`
}

// Altitude carries the free-form textual altitude bounds.
type Altitude struct {
	Lower string `json:"lower"`
	Upper string `json:"upper"`
}

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Results []Entry `json:"results"`
}

// Option configures the parse client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a parse service client.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes a POST with exponential backoff retries on transient
// failures (429, 500, 502, 503). Returns the response body and status code
// on success, or the last error after exhausting retries.
func (c *httpClient) retryDo(ctx context.Context, url string, payload []byte) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, 0, eris.Wrap(err, "parseapi: create request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "parseapi: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("parseapi: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) Parse(ctx context.Context, text string) ([]Entry, error) {
	payload, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return nil, eris.Wrap(err, "parseapi: marshal request")
	}

	url := fmt.Sprintf("%s/api/parse", c.baseURL)
	body, status, err := c.retryDo(ctx, url, payload)
	if err != nil {
		return nil, eris.Wrap(err, "parseapi: parse call")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("parseapi: status %d: %s", status, string(body))
	}

	var resp parseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "parseapi: unmarshal response")
	}

	return resp.Results, nil
}
