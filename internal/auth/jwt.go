package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/restock-systems/stockwatch/internal/models"
)

// ErrInvalidToken is wrapped into models.ErrAuth for any unusable token.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the user token claims issued by the identity service.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 user tokens locally.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Validate parses and verifies the token; the subject is the caller's ID.
func (v *JWTVerifier) Validate(_ context.Context, bearerToken string) (*UserContext, error) {
	if bearerToken == "" {
		return nil, fmt.Errorf("%w: missing bearer token", models.ErrAuth)
	}

	token, err := jwt.ParseWithClaims(bearerToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAuth, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: %v", models.ErrAuth, ErrInvalidToken)
	}

	return &UserContext{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}
