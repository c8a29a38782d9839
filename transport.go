package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// Transport moves token material in and out of HTTP exchanges. Extract
// pulls raw material from a request; WriteLogin shapes the success
// response after a credential exchange.
type Transport interface {
	Name() string
	Extract(c router.Context) string
	WriteLogin(c router.Context, pair TokenPair) error
}

// LogoutResponder is an optional capability a Transport implements when
// logout needs a response beyond a bare status, e.g. clearing a cookie.
// Callers should type-assert and fall back to 204 when absent.
type LogoutResponder interface {
	WriteLogout(c router.Context) error
}

// BearerTransport reads tokens from the Authorization header and
// answers logins with a JSON token pair.
type BearerTransport struct{}

// Verify interface compliance
var _ Transport = (*BearerTransport)(nil)

type bearerLoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

func NewBearerTransport() *BearerTransport {
	return &BearerTransport{}
}

func (t *BearerTransport) Name() string {
	return "bearer"
}

// Extract returns the bearer token from the Authorization header, or
// "" when the header is absent or not a bearer scheme.
func (t *BearerTransport) Extract(c router.Context) string {
	header := c.Header("Authorization")
	if header == "" {
		return ""
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (t *BearerTransport) WriteLogin(c router.Context, pair TokenPair) error {
	return c.JSON(fiber.StatusOK, bearerLoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

// CookieConfig holds the attributes stamped on the session cookie. The
// same attributes are used to delete it, which browsers require for the
// removal to take.
type CookieConfig struct {
	Name     string
	MaxAge   int
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// DefaultCookieConfig matches the common single-origin deployment.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "auth_session",
		MaxAge:   3600,
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}
}

// CookieTransport reads tokens from a cookie and answers logins by
// setting it. It implements LogoutResponder to clear the cookie.
type CookieTransport struct {
	cfg CookieConfig
}

// Verify interface compliance
var (
	_ Transport       = (*CookieTransport)(nil)
	_ LogoutResponder = (*CookieTransport)(nil)
)

func NewCookieTransport(cfg CookieConfig) *CookieTransport {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieConfig().Name
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieTransport{cfg: cfg}
}

func (t *CookieTransport) Name() string {
	return "cookie"
}

func (t *CookieTransport) Extract(c router.Context) string {
	return c.Cookies(t.cfg.Name)
}

func (t *CookieTransport) WriteLogin(c router.Context, pair TokenPair) error {
	cookie := t.cookie(pair.AccessToken, t.cfg.MaxAge)
	if t.cfg.MaxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(t.cfg.MaxAge) * time.Second)
	}
	c.Cookie(cookie)
	return c.NoContent(fiber.StatusNoContent)
}

// WriteLogout removes the session cookie. Attributes must match the
// ones used at login or browsers keep the stale cookie around.
func (t *CookieTransport) WriteLogout(c router.Context) error {
	cookie := t.cookie("", -1)
	cookie.Expires = time.Now().Add(-time.Hour * (24 * 365))
	c.Cookie(cookie)
	return c.NoContent(fiber.StatusNoContent)
}

func (t *CookieTransport) cookie(value string, maxAge int) *router.Cookie {
	return &router.Cookie{
		Name:     t.cfg.Name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     t.cfg.Path,
		Domain:   t.cfg.Domain,
		Secure:   t.cfg.Secure,
		HTTPOnly: t.cfg.HTTPOnly,
		SameSite: t.cfg.SameSite,
	}
}
