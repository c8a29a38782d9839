package auth

// SimpleConfig is a plain-struct Config for applications that do not
// bring their own configuration layer. Zero TTLs fall back to the
// defaults below, except the token TTLs where zero means no expiry.
type SimpleConfig struct {
	SigningKey      string   `json:"signing_key"`
	Issuer          string   `json:"issuer"`
	Audience        []string `json:"audience"`
	AccessTokenTTL  int      `json:"access_token_ttl"`
	RefreshTokenTTL int      `json:"refresh_token_ttl"`
	TokenSecret     string   `json:"token_secret"`
	TokenSalt       string   `json:"token_salt"`
	ResetTokenTTL   int      `json:"reset_token_ttl"`
	ConfirmTokenTTL int      `json:"confirm_token_ttl"`
	ChangeTokenTTL  int      `json:"change_token_ttl"`
	FrontendURL     string   `json:"frontend_url"`
}

// Verify interface compliance
var _ Config = (*SimpleConfig)(nil)

func (c *SimpleConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c *SimpleConfig) GetAudience() []string {
	return c.Audience
}

func (c *SimpleConfig) GetAccessTokenTTL() int {
	return c.AccessTokenTTL
}

func (c *SimpleConfig) GetRefreshTokenTTL() int {
	return c.RefreshTokenTTL
}

func (c *SimpleConfig) GetTokenSecret() string {
	if c.TokenSecret == "" {
		return c.SigningKey
	}
	return c.TokenSecret
}

func (c *SimpleConfig) GetTokenSalt() string {
	return c.TokenSalt
}

func (c *SimpleConfig) GetResetTokenTTL() int {
	if c.ResetTokenTTL == 0 {
		return 3600
	}
	return c.ResetTokenTTL
}

func (c *SimpleConfig) GetConfirmTokenTTL() int {
	if c.ConfirmTokenTTL == 0 {
		return 3600 * 24
	}
	return c.ConfirmTokenTTL
}

func (c *SimpleConfig) GetChangeTokenTTL() int {
	if c.ChangeTokenTTL == 0 {
		return 3600
	}
	return c.ChangeTokenTTL
}

func (c *SimpleConfig) GetFrontendURL() string {
	return c.FrontendURL
}
