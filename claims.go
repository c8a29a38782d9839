package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators stamped into every signed JWT.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AuthClaims is the read surface the rest of the library uses once a
// token has been parsed and verified.
type AuthClaims interface {
	Subject() string
	UserID() string
	TokenType() string
	IsAccess() bool
	IsRefresh() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid,omitempty"`
	Type string `json:"token_type,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// TokenType returns the token_type discriminator
func (c *JWTClaims) TokenType() string {
	return c.Type
}

// IsAccess reports whether this is an access token
func (c *JWTClaims) IsAccess() bool {
	return c.Type == TokenTypeAccess
}

// IsRefresh reports whether this is a refresh token
func (c *JWTClaims) IsRefresh() bool {
	return c.Type == TokenTypeRefresh
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
