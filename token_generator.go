package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/pbkdf2"
)

// TokenPurpose scopes an opaque token to a single flow. A token minted
// for one purpose never decodes under another.
type TokenPurpose string

const (
	// PurposeConfirm drives email verification links.
	PurposeConfirm TokenPurpose = "confirm"
	// PurposeReset drives forgotten-password links.
	PurposeReset TokenPurpose = "reset"
	// PurposeChange drives email-change confirmation links.
	PurposeChange TokenPurpose = "change"
)

const tokenKeyIterations = 100_000

// TokenGenerator mints and redeems the opaque, encrypted tokens carried
// in verification and reset emails.
type TokenGenerator interface {
	Generate(subject string, purpose TokenPurpose) (string, error)
	Decode(token string, purpose TokenPurpose) (string, error)
}

// OpaqueTokenGenerator derives an AES key from the configured secret and
// salt, then seals `subject:purpose:timestamp` payloads with AES-GCM.
// The wire form is three unpadded base64url parts joined by colons:
// nonce, ciphertext, and tag.
type OpaqueTokenGenerator struct {
	key  []byte
	ttls map[TokenPurpose]time.Duration
	now  func() time.Time
}

// Verify interface compliance
var _ TokenGenerator = (*OpaqueTokenGenerator)(nil)

// TokenGeneratorOption configures an OpaqueTokenGenerator.
type TokenGeneratorOption func(*OpaqueTokenGenerator)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenGeneratorOption {
	return func(g *OpaqueTokenGenerator) {
		if clock != nil {
			g.now = clock
		}
	}
}

// NewTokenGenerator builds a generator from the shared configuration.
// The salt must be stable across restarts or every outstanding token
// becomes undecodable; persist it alongside the secret.
func NewTokenGenerator(cfg Config, opts ...TokenGeneratorOption) *OpaqueTokenGenerator {
	key := pbkdf2.Key(
		[]byte(cfg.GetTokenSecret()),
		[]byte(cfg.GetTokenSalt()),
		tokenKeyIterations,
		32,
		sha256.New,
	)

	g := &OpaqueTokenGenerator{
		key: key,
		ttls: map[TokenPurpose]time.Duration{
			PurposeConfirm: time.Duration(cfg.GetConfirmTokenTTL()) * time.Second,
			PurposeReset:   time.Duration(cfg.GetResetTokenTTL()) * time.Second,
			PurposeChange:  time.Duration(cfg.GetChangeTokenTTL()) * time.Second,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateTokenSalt returns a fresh random salt for the opaque token
// key derivation. Generate once, store it in configuration, and reuse
// it on every boot.
func GenerateTokenSalt() (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "unable to generate token salt")
	}
	return base64.RawURLEncoding.EncodeToString(salt), nil
}

// Generate seals the subject and purpose, stamped with the current
// time, into an opaque token.
func (g *OpaqueTokenGenerator) Generate(subject string, purpose TokenPurpose) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty", errors.CategoryBadInput)
	}
	if strings.Contains(subject, ":") {
		return "", errors.New("token subject must not contain colons", errors.CategoryBadInput)
	}

	gcm, err := g.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "unable to generate nonce")
	}

	payload := fmt.Sprintf("%s:%s:%d", subject, purpose, g.now().Unix())
	sealed := gcm.Seal(nil, nonce, []byte(payload), nil)

	// Seal appends the tag to the ciphertext; the wire format carries
	// them as separate parts.
	tagAt := len(sealed) - gcm.Overhead()
	ciphertext, tag := sealed[:tagAt], sealed[tagAt:]

	enc := base64.RawURLEncoding
	return strings.Join([]string{
		enc.EncodeToString(nonce),
		enc.EncodeToString(ciphertext),
		enc.EncodeToString(tag),
	}, ":"), nil
}

// Decode opens the token and returns its subject. Any defect, wrong
// shape, failed decryption, purpose mismatch, or elapsed TTL, comes
// back as the same ErrInvalidToken.
func (g *OpaqueTokenGenerator) Decode(token string, purpose TokenPurpose) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}

	enc := base64.RawURLEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalidToken
	}
	ciphertext, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidToken
	}
	tag, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidToken
	}

	gcm, err := g.aead()
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() || len(tag) != gcm.Overhead() {
		return "", ErrInvalidToken
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrInvalidToken
	}

	fields := strings.Split(string(plaintext), ":")
	if len(fields) != 3 {
		return "", ErrInvalidToken
	}

	subject, kind, stamp := fields[0], fields[1], fields[2]
	if subject == "" || kind != string(purpose) {
		return "", ErrInvalidToken
	}

	issuedAt, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}

	if ttl := g.ttls[purpose]; ttl > 0 {
		if g.now().Sub(time.Unix(issuedAt, 0)) > ttl {
			return "", ErrInvalidToken
		}
	}

	return subject, nil
}

func (g *OpaqueTokenGenerator) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(g.key)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create cipher")
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create GCM")
	}
	return gcm, nil
}
