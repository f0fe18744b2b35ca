package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// HTTPRenderer talks to a headless render service over HTTP.
type HTTPRenderer struct {
	baseURL string
	client  *http.Client
}

// RendererOption customizes the HTTPRenderer.
type RendererOption func(*HTTPRenderer)

// WithRendererHTTPClient overrides the underlying HTTP client.
func WithRendererHTTPClient(c *http.Client) RendererOption {
	return func(r *HTTPRenderer) { r.client = c }
}

// NewHTTPRenderer creates a renderer client. A zero timeout falls back
// to 60s.
func NewHTTPRenderer(baseURL string, timeout time.Duration, opts ...RendererOption) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r := &HTTPRenderer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render posts the scene and returns the PNG bytes.
func (r *HTTPRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal render request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "export: create render request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "image/png")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "export: call render service")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, eris.Errorf("export: render service returned %d: %s", resp.StatusCode, string(msg))
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "export: read render response")
	}
	return png, nil
}
