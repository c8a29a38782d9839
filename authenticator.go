package auth

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RequireOptions gates what Current accepts.
type RequireOptions struct {
	// Optional returns (nil, nil) instead of an error when no backend
	// resolves an identity.
	Optional bool
	// Active requires the account to not be disabled. Defaults on via
	// RequireActive.
	Active bool
	// Verified additionally requires a confirmed email.
	Verified bool
	// TokenType selects which discriminator the token must carry.
	// Empty means access.
	TokenType string
}

// RequireActive is the default gate: a valid access token for an
// enabled account.
func RequireActive() RequireOptions {
	return RequireOptions{Active: true, TokenType: TokenTypeAccess}
}

// RequireVerified additionally demands a confirmed email.
func RequireVerified() RequireOptions {
	return RequireOptions{Active: true, Verified: true, TokenType: TokenTypeAccess}
}

// RequireRefresh gates the token-refresh exchange.
func RequireRefresh() RequireOptions {
	return RequireOptions{Active: true, TokenType: TokenTypeRefresh}
}

// Resolution reports which backend resolved the request, with the raw
// token so logout can hand it back to the strategy.
type Resolution struct {
	User    *User
	Backend *Backend
	Claims  AuthClaims
	Token   string
}

// Authenticator resolves the requesting identity by walking registered
// backends in order. The first backend whose transport finds token
// material that verifies and loads an account wins.
type Authenticator struct {
	backends []*Backend
	users    UserLoader
	logger   Logger
}

// NewAuthenticator wires backends to the account loader. Backend names
// must be unique; a duplicate is a wiring bug, so it panics at startup
// rather than shadowing a backend silently.
func NewAuthenticator(users UserLoader, logger Logger, backends ...*Backend) *Authenticator {
	if users == nil {
		panic("auth: authenticator requires a user loader")
	}
	if len(backends) == 0 {
		panic("auth: authenticator requires at least one backend")
	}
	if logger == nil {
		logger = defLogger{}
	}

	seen := make(map[string]struct{}, len(backends))
	for _, b := range backends {
		if _, dup := seen[b.Name()]; dup {
			panic("auth: duplicate backend name: " + b.Name())
		}
		seen[b.Name()] = struct{}{}
	}

	return &Authenticator{
		backends: backends,
		users:    users,
		logger:   logger,
	}
}

// Backends returns the registered backends in resolution order.
func (a *Authenticator) Backends() []*Backend {
	return a.backends
}

// Backend returns the named backend, or nil when not registered.
func (a *Authenticator) Backend(name string) *Backend {
	for _, b := range a.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// Current resolves the requesting identity. Backends that carry no
// token material, fail verification, or point at a deleted account are
// skipped in favor of the next one; gating failures on a resolved
// account stop the walk.
func (a *Authenticator) Current(c router.Context, opts RequireOptions) (*Resolution, error) {
	tokenType := opts.TokenType
	if tokenType == "" {
		tokenType = TokenTypeAccess
	}

	for _, backend := range a.backends {
		claims, raw, err := backend.ReadRequest(c, tokenType)
		if err != nil {
			a.logger.Debug("auth backend rejected token", "backend", backend.Name(), "error", err)
			continue
		}
		if claims == nil {
			continue
		}

		userID, err := uuid.Parse(claims.UserID())
		if err != nil {
			a.logger.Debug("auth backend token carries malformed subject", "backend", backend.Name())
			continue
		}

		user, err := a.users.GetByUserID(c.Context(), userID)
		if err != nil {
			if errors.IsNotFound(err) {
				a.logger.Debug("auth backend token subject not found", "backend", backend.Name(), "user", userID)
				continue
			}
			return nil, err
		}

		if opts.Active && !user.IsActive() {
			return nil, ErrBadToken
		}
		if opts.Verified && !user.IsVerified() {
			return nil, ErrNotVerified
		}

		return &Resolution{
			User:    user,
			Backend: backend,
			Claims:  claims,
			Token:   raw,
		}, nil
	}

	if opts.Optional {
		return nil, nil
	}
	return nil, ErrBadToken
}
