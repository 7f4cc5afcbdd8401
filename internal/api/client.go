package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Fyssion/zupplin/internal/proto"
)

var (
	// ErrInvalidCredentials is returned when the login endpoint rejects
	// the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when the API rejects the bearer token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client talks to the zupplin REST API. It owns no session state; callers
// pass the bearer token per request.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given API base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for an auth token via POST /login.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(proto.LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var loginResp proto.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return loginResp.Token, nil
}

// Me fetches the current user's profile and room set via GET /users/me.
func (c *Client) Me(ctx context.Context, token string) (proto.MeResponse, error) {
	var me proto.MeResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return me, fmt.Errorf("build me request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return me, fmt.Errorf("me request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return me, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return me, fmt.Errorf("me: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return me, fmt.Errorf("decode me response: %w", err)
	}
	return me, nil
}
