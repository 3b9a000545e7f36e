// Package identity validates bearer tokens minted by the external identity
// provider and resolves them into caller sessions.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication errors.
var (
	ErrNoSession    = errors.New("no session")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoOrgBinding = errors.New("session is not associated with an organization")
)

// Session identifies an authenticated caller. OrgAuthID is the identity
// provider's key for the caller's organization; it is matched against
// Organization.AuthProviderID by the authorization scoper, never used as a
// storage identity directly.
type Session struct {
	UserID    string
	OrgAuthID string
}

// Config contains token verification settings.
type Config struct {
	SecretKey string
}

// Claims is the token payload issued by the identity provider.
type Claims struct {
	OrgID string `json:"org_id"`
	jwt.RegisteredClaims
}

// Authenticator verifies provider-issued HS256 tokens.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates a token authenticator.
func NewAuthenticator(cfg Config) *Authenticator {
	return &Authenticator{secret: []byte(cfg.SecretKey)}
}

// Authenticate parses and verifies a bearer token. A valid token without an
// organization binding yields ErrNoOrgBinding: the caller is authenticated
// but cannot act on any tenant.
func (a *Authenticator) Authenticate(tokenString string) (Session, error) {
	if tokenString == "" {
		return Session{}, ErrNoSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	if claims.OrgID == "" {
		return Session{}, ErrNoOrgBinding
	}

	return Session{UserID: claims.Subject, OrgAuthID: claims.OrgID}, nil
}
