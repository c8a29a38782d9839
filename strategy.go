package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenPair is the result of a successful credential exchange.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Strategy encodes and decodes the token material carried by transports.
type Strategy interface {
	// WriteToken issues an access/refresh pair for the identity.
	WriteToken(identity Identity) (TokenPair, error)
	// ReadToken verifies raw token material and enforces that its
	// token_type discriminator matches tokenType.
	ReadToken(token string, tokenType string) (AuthClaims, error)
}

// TokenDestroyer is an optional capability a Strategy may implement when
// it keeps server-side token state that logout should invalidate.
// Stateless strategies simply do not implement it.
type TokenDestroyer interface {
	DestroyToken(token string, identity Identity) error
}

// JWTStrategy signs and verifies HS256 tokens. It is stateless: logout
// cannot revoke an issued token before its expiry.
type JWTStrategy struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     Logger
	now        func() time.Time
}

// Verify interface compliance
var _ Strategy = (*JWTStrategy)(nil)

// JWTStrategyOption configures a JWTStrategy.
type JWTStrategyOption func(*JWTStrategy)

// WithStrategyClock injects a custom clock (useful for tests).
func WithStrategyClock(clock func() time.Time) JWTStrategyOption {
	return func(s *JWTStrategy) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewJWTStrategy creates a Strategy from the shared configuration. TTLs
// are taken in seconds; a zero TTL issues tokens without an expiry.
func NewJWTStrategy(cfg Config, logger Logger, opts ...JWTStrategyOption) *JWTStrategy {
	if logger == nil {
		logger = defLogger{}
	}
	s := &JWTStrategy{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		accessTTL:  time.Duration(cfg.GetAccessTokenTTL()) * time.Second,
		refreshTTL: time.Duration(cfg.GetRefreshTokenTTL()) * time.Second,
		logger:     logger,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteToken issues a fresh access/refresh pair for the identity.
func (s *JWTStrategy) WriteToken(identity Identity) (TokenPair, error) {
	access, err := s.sign(identity, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.sign(identity, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *JWTStrategy) sign(identity Identity, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   s.issuer,
			Subject:  identity.ID(),
			Audience: s.audience,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UID:  identity.ID(),
		Type: tokenType,
	}

	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// ReadToken parses and verifies raw token material. A token whose
// token_type claim does not match tokenType, or that carries no
// subject, is rejected even when the signature checks out.
func (s *JWTStrategy) ReadToken(token string, tokenType string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(s.now))
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}
	if len(s.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(s.audience...))
	}

	parsed, err := jwt.ParseWithClaims(token, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			s.logger.Error("JWTStrategy read encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrBadToken.Category, ErrBadToken.Message).
			WithTextCode(ErrBadToken.TextCode).
			WithCode(ErrBadToken.Code)
	}

	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		s.logger.Error("JWTStrategy read could not decode claims")
		return nil, ErrBadToken
	}

	if claims.UserID() == "" {
		return nil, ErrBadToken
	}

	if claims.TokenType() != tokenType {
		return nil, ErrBadToken
	}

	return claims, nil
}
