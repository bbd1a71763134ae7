// Package credentials exchanges a long-lived service credential for a
// short-lived push gateway access token using the JWT bearer grant.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/restock-systems/stockwatch/internal/metrics"
	"github.com/restock-systems/stockwatch/internal/models"
)

const (
	DefaultTokenURL = "https://oauth2.googleapis.com/token"
	MessagingScope  = "https://www.googleapis.com/auth/firebase.messaging"
	JWTBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// AssertionAudience is fixed even when the token endpoint is overridden.
	AssertionAudience = "https://oauth2.googleapis.com/token"
	AssertionTTL      = time.Hour

	defaultTimeout = 10 * time.Second
)

// TokenSource yields an access token for a credential.
type TokenSource interface {
	AccessToken(ctx context.Context, cred *models.ServiceCredential) (*models.AccessToken, error)
}

// Exchanger performs the signed-assertion exchange on every call.
type Exchanger struct {
	httpClient *http.Client
	tokenURL   string
	now        func() time.Time
}

// ExchangerOption configures an Exchanger.
type ExchangerOption func(*Exchanger)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) ExchangerOption {
	return func(e *Exchanger) {
		if u != "" {
			e.tokenURL = u
		}
	}
}

// WithHTTPClient sets the client used for the exchange.
func WithHTTPClient(c *http.Client) ExchangerOption {
	return func(e *Exchanger) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ExchangerOption {
	return func(e *Exchanger) { e.now = now }
}

// NewExchanger creates an Exchanger.
func NewExchanger(opts ...ExchangerOption) *Exchanger {
	e := &Exchanger{
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokenURL:   DefaultTokenURL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SignAssertion builds the RS256 assertion for cred issued at now.
func SignAssertion(cred *models.ServiceCredential, now time.Time) (string, error) {
	if err := cred.Validate(); err != nil {
		return "", err
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("%w: private key is not a valid RSA PEM", models.ErrAuthExchange)
	}

	claims := jwt.MapClaims{
		"iss":   cred.ClientEmail,
		"scope": MessagingScope,
		"aud":   AssertionAudience,
		"iat":   now.Unix(),
		"exp":   now.Add(AssertionTTL).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign assertion: %v", models.ErrAuthExchange, err)
	}
	return signed, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// AccessToken exchanges a freshly signed assertion for an access token.
func (e *Exchanger) AccessToken(ctx context.Context, cred *models.ServiceCredential) (*models.AccessToken, error) {
	tok, err := e.exchange(ctx, cred)
	if err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TokenExchangesTotal.WithLabelValues("success").Inc()
	return tok, nil
}

func (e *Exchanger) exchange(ctx context.Context, cred *models.ServiceCredential) (*models.AccessToken, error) {
	now := e.now()
	assertion, err := SignAssertion(cred, now)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", JWTBearerGrant)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrAuthExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token endpoint unreachable: %v", models.ErrAuthExchange, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s", models.ErrAuthExchange, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", models.ErrAuthExchange, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", models.ErrAuthExchange)
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = AssertionTTL
	}
	return &models.AccessToken{Value: tr.AccessToken, Expiry: now.Add(ttl)}, nil
}
