package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Gateway resolves keys through an HTTP storage gateway. The gateway answers
// GET {base}/{prefix}{key} with {"url": "..."} and checks the Authorization
// header itself.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
}

type gatewayResponse struct {
	URL string `json:"url"`
}

// NewGateway creates a Gateway for baseURL.
func NewGateway(baseURL string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Get implements Store.
func (g *Gateway) Get(ctx context.Context, key string, opts GetOptions) (string, error) {
	if key == "" {
		return "", ErrObjectNotFound
	}

	u := g.baseURL + "/" + escapeKey(opts.Prefix+key)
	if opts.Expires > 0 {
		u += "?expires=" + strconv.Itoa(int(opts.Expires.Seconds()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrObjectNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("gateway request failed: %d - %s", resp.StatusCode, string(body))
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("gateway returned no url for %s", key)
	}
	return out.URL, nil
}

// escapeKey escapes each path segment but keeps the separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
