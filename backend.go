package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// Backend pairs a Transport with a Strategy under a stable name. The
// authenticator walks backends in registration order, so the name is
// what shows up in logs when a given pairing resolves or rejects.
type Backend struct {
	name      string
	transport Transport
	strategy  Strategy
	logger    Logger
}

func NewBackend(name string, transport Transport, strategy Strategy, logger Logger) *Backend {
	if name == "" {
		panic("auth: backend name is required")
	}
	if transport == nil {
		panic("auth: backend transport is required")
	}
	if strategy == nil {
		panic("auth: backend strategy is required")
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &Backend{
		name:      name,
		transport: transport,
		strategy:  strategy,
		logger:    logger,
	}
}

func (b *Backend) Name() string {
	return b.name
}

func (b *Backend) Transport() Transport {
	return b.transport
}

func (b *Backend) Strategy() Strategy {
	return b.strategy
}

// Login issues a token pair for the identity and hands it to the
// transport to shape the response.
func (b *Backend) Login(c router.Context, identity Identity) (TokenPair, error) {
	pair, err := b.strategy.WriteToken(identity)
	if err != nil {
		return TokenPair{}, err
	}
	return pair, b.transport.WriteLogin(c, pair)
}

// Logout invalidates server-side token state when the strategy keeps
// any, then lets the transport shape the response. Stateless strategies
// and header transports both degrade to a bare 204.
func (b *Backend) Logout(c router.Context, token string, identity Identity) error {
	if destroyer, ok := b.strategy.(TokenDestroyer); ok {
		if err := destroyer.DestroyToken(token, identity); err != nil {
			return err
		}
	}

	if responder, ok := b.transport.(LogoutResponder); ok {
		return responder.WriteLogout(c)
	}
	return c.NoContent(fiber.StatusNoContent)
}

// ReadRequest extracts token material from the request and verifies it
// as tokenType. It returns the raw material alongside the claims so
// logout can pass it back to the strategy.
func (b *Backend) ReadRequest(c router.Context, tokenType string) (AuthClaims, string, error) {
	raw := b.transport.Extract(c)
	if raw == "" {
		return nil, "", nil
	}

	claims, err := b.strategy.ReadToken(raw, tokenType)
	if err != nil {
		return nil, raw, err
	}
	return claims, raw, nil
}
