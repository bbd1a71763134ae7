// Package auth validates caller bearer tokens, either locally against the
// project JWT secret or remotely against the identity endpoint.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/restock-systems/stockwatch/internal/models"
)

// UserContext holds the authenticated caller.
type UserContext struct {
	UserID string
	Email  string
	Role   string
}

// Validator resolves a bearer token to a caller.
type Validator interface {
	Validate(ctx context.Context, bearerToken string) (*UserContext, error)
}

// userResponse is the identity endpoint's view of the token owner.
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Client validates tokens by calling <baseURL>/user.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a new auth client. baseURL is the identity API root,
// e.g. https://<project>.supabase.co/auth/v1.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Validate asks the identity endpoint who owns bearerToken.
func (c *Client) Validate(ctx context.Context, bearerToken string) (*UserContext, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("%w: missing bearer token", models.ErrAuth)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: identity endpoint unreachable: %v", models.ErrExternalService, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: token rejected", models.ErrAuth)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: identity endpoint returned %d", models.ErrExternalService, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: identity endpoint returned %d", models.ErrAuth, resp.StatusCode)
	}

	var ur userResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return nil, fmt.Errorf("%w: decode identity response: %v", models.ErrExternalService, err)
	}
	if ur.ID == "" {
		return nil, fmt.Errorf("%w: invalid token", models.ErrAuth)
	}

	return &UserContext{UserID: ur.ID, Email: ur.Email, Role: ur.Role}, nil
}
