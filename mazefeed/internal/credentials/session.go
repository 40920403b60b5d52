package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// SessionSource logs in to an auth service with a username and password and
// renews the session with the refresh token it was issued.
type SessionSource struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client

	mu           sync.Mutex
	refreshToken string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// NewSessionSource creates a SessionSource for the auth service at baseURL.
func NewSessionSource(baseURL, username, password string) *SessionSource {
	return &SessionSource{
		baseURL:  baseURL,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Token implements Source. A failed refresh falls back to a fresh login.
func (s *SessionSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken != "" {
		resp, err := s.post(ctx, "/api/v1/auth/refresh", refreshRequest{RefreshToken: s.refreshToken})
		if err == nil {
			return s.accept(resp)
		}
		s.refreshToken = ""
	}

	resp, err := s.post(ctx, "/api/v1/auth/login", loginRequest{Username: s.username, Password: s.password})
	if err != nil {
		return "", err
	}
	return s.accept(resp)
}

func (s *SessionSource) accept(resp *sessionResponse) (string, error) {
	if resp.RefreshToken != "" {
		s.refreshToken = resp.RefreshToken
	}
	if resp.IDToken != "" {
		return resp.IDToken, nil
	}
	if resp.AccessToken == "" {
		return "", ErrNoToken
	}
	return resp.AccessToken, nil
}

func (s *SessionSource) post(ctx context.Context, path string, payload any) (*sessionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("session request %s failed: %d - %s", path, resp.StatusCode, string(bodyBytes))
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	return &out, nil
}
