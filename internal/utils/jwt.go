// Package utils holds helpers for minting and checking staff tokens.
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Staff roles carried in the "role" claim.
const (
	RoleStaff   = "STAFF"
	RoleManager = "MANAGER"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid token")

// StaffClaims are the claims of a staff access token.
type StaffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
// Token holds the serialized JWT that clients send in the Authorization
// header as "Bearer <token>"; Exp is the UTC expiration time. There is no
// refresh flow: an expired token is replaced by minting a new one with
// cmd/token.
type AccessToken struct {
	Token string    `json:"access_token"` // the serialized JWT string
	Exp   time.Time `json:"expires_at"`   // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a staff member. It takes
// the signing secret, the staff ID, the role (RoleStaff or RoleManager) and
// the token lifetime. The JWT carries the standard claims subject (sub),
// issued at (iat) and expiration (exp) plus the custom role claim.
func NewAccessToken(secret, staffID, role string, ttl time.Duration) (AccessToken, error) {
	// Expiry is computed from the same instant as iat.
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := StaffClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	// Sign with the shared secret; a signing failure yields a zero token.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw and returns its claims. Only HMAC-SHA256
// signatures are accepted, the exp claim is mandatory and both subject and
// role must be present. Every failure, whatever its cause, is reported as
// ErrInvalidToken and callers answer 401.
func ParseAccessToken(secret, raw string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	// The key func always returns the shared secret; WithValidMethods
	// rejects tokens that declare any other algorithm (including "none").
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	// A well-signed token without identity is still unusable.
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
