// Package client talks to the maze feed service.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FeedClient reads the maze feed over HTTP.
type FeedClient struct {
	baseURL string
	client  *http.Client
}

// NewFeedClient creates a FeedClient pointing at the given base URL.
func NewFeedClient(baseURL string) *FeedClient {
	return &FeedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// MazeRecord is one resolved maze as the feed serves it.
type MazeRecord struct {
	ID         string    `json:"id" yaml:"id"`
	Sequence   uint64    `json:"sequence" yaml:"sequence"`
	Raw        string    `json:"raw" yaml:"raw"`
	Processed  string    `json:"processed" yaml:"processed"`
	Skeleton   string    `json:"skeleton" yaml:"skeleton"`
	Solved     string    `json:"solved" yaml:"solved"`
	Source     MazeKeys  `json:"source" yaml:"source"`
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`
	ResolvedAt time.Time `json:"resolved_at" yaml:"resolved_at"`
}

// MazeKeys are the storage keys a record was resolved from.
type MazeKeys struct {
	Raw       string `json:"raw" yaml:"raw"`
	Processed string `json:"processed" yaml:"processed"`
	Skeleton  string `json:"skeleton" yaml:"skeleton"`
	Solved    string `json:"solved" yaml:"solved"`
}

// ListResponse is the body of GET /api/mazes.
type ListResponse struct {
	Data []MazeRecord `json:"data" yaml:"data"`
	Meta struct {
		Total int `json:"total" yaml:"total"`
	} `json:"meta" yaml:"meta"`
}

// List fetches the newest records. A zero limit returns the whole feed.
func (c *FeedClient) List(accessToken string, limit int) (*ListResponse, error) {
	u := c.baseURL + "/api/mazes"
	if limit > 0 {
		u += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("list mazes failed: %d - %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("list mazes failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
