package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	auth "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerTransportExtract(t *testing.T) {
	transport := auth.NewBearerTransport()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "bearer token",
			header: "Bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:   "lowercase scheme",
			header: "bearer abc.def.ghi",
			want:   "abc.def.ghi",
		},
		{
			name:   "missing header",
			header: "",
			want:   "",
		},
		{
			name:   "basic scheme",
			header: "Basic dXNlcjpwYXNz",
			want:   "",
		},
		{
			name:   "scheme without token",
			header: "Bearer",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newFakeContext()
			if tt.header != "" {
				ctx.withHeader("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, transport.Extract(ctx))
		})
	}
}

func TestBearerTransportWriteLogin(t *testing.T) {
	transport := auth.NewBearerTransport()
	ctx := newFakeContext()

	pair := auth.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"}
	require.NoError(t, transport.WriteLogin(ctx, pair))
	assert.Equal(t, 200, ctx.StatusCode)

	raw, err := json.Marshal(ctx.JSONBody)
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "access-token", body["access_token"])
	assert.Equal(t, "refresh-token", body["refresh_token"])
	assert.Equal(t, "bearer", body["token_type"])
}

func TestCookieTransportExtract(t *testing.T) {
	transport := auth.NewCookieTransport(auth.CookieConfig{Name: "session"})

	ctx := newFakeContext().withCookie("session", "the-token")
	assert.Equal(t, "the-token", transport.Extract(ctx))

	assert.Empty(t, transport.Extract(newFakeContext()))
}

func TestCookieTransportWriteLogin(t *testing.T) {
	cfg := auth.DefaultCookieConfig()
	transport := auth.NewCookieTransport(cfg)
	ctx := newFakeContext()

	pair := auth.TokenPair{AccessToken: "access-token", RefreshToken: "refresh-token"}
	require.NoError(t, transport.WriteLogin(ctx, pair))
	assert.Equal(t, 204, ctx.StatusCode)

	cookie := ctx.cookieByName(cfg.Name)
	require.NotNil(t, cookie)
	assert.Equal(t, "access-token", cookie.Value)
	assert.Equal(t, cfg.MaxAge, cookie.MaxAge)
	assert.Equal(t, cfg.Path, cookie.Path)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HTTPOnly)
	assert.Equal(t, "Lax", cookie.SameSite)
	assert.True(t, cookie.Expires.After(time.Now()))
}

func TestCookieTransportWriteLogout(t *testing.T) {
	cfg := auth.DefaultCookieConfig()
	transport := auth.NewCookieTransport(cfg)
	ctx := newFakeContext()

	require.NoError(t, transport.WriteLogout(ctx))
	assert.Equal(t, 204, ctx.StatusCode)

	cookie := ctx.cookieByName(cfg.Name)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.True(t, cookie.Expires.Before(time.Now()))

	// Deletion only takes when the attributes match the login cookie.
	assert.Equal(t, cfg.Path, cookie.Path)
	assert.Equal(t, cfg.SameSite, cookie.SameSite)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HTTPOnly)
}

func TestNewCookieTransportDefaults(t *testing.T) {
	transport := auth.NewCookieTransport(auth.CookieConfig{})
	assert.Equal(t, "cookie", transport.Name())

	ctx := newFakeContext().withCookie(auth.DefaultCookieConfig().Name, "tok")
	assert.Equal(t, "tok", transport.Extract(ctx))
}
