package models

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ServiceCredential is the push gateway service account. The private key
// never leaves the process; String and LogValue redact it.
type ServiceCredential struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	ProjectID   string `json:"project_id"`
	TokenURI    string `json:"token_uri,omitempty"`
}

// ParseServiceCredential decodes a service account JSON blob.
func ParseServiceCredential(blob []byte) (*ServiceCredential, error) {
	var c ServiceCredential
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, fmt.Errorf("%w: service account is not valid JSON", ErrConfiguration)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every field needed for the token exchange is present.
func (c *ServiceCredential) Validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: service account missing", ErrConfiguration)
	case c.ClientEmail == "":
		return fmt.Errorf("%w: service account client_email missing", ErrConfiguration)
	case c.PrivateKey == "":
		return fmt.Errorf("%w: service account private_key missing", ErrConfiguration)
	case c.ProjectID == "":
		return fmt.Errorf("%w: service account project_id missing", ErrConfiguration)
	}
	return nil
}

func (c ServiceCredential) String() string {
	return fmt.Sprintf("ServiceCredential{client_email=%s project_id=%s private_key=[REDACTED]}", c.ClientEmail, c.ProjectID)
}

// LogValue keeps the private key out of structured logs.
func (c ServiceCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_email", c.ClientEmail),
		slog.String("project_id", c.ProjectID),
	)
}

// AccessToken is a short-lived bearer token for the push gateway.
type AccessToken struct {
	Value  string    `json:"value"`
	Expiry time.Time `json:"expiry"`
}

// ValidFor reports whether the token is still usable for at least margin.
func (t *AccessToken) ValidFor(now time.Time, margin time.Duration) bool {
	return t != nil && t.Value != "" && now.Add(margin).Before(t.Expiry)
}
