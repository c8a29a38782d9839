package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated account
type Identity interface {
	ID() string
	Email() string
	IsActive() bool
	IsVerified() bool
}

// UserLoader is the minimal lookup capability the authenticator needs
// to resolve a token subject into an account
type UserLoader interface {
	GetByUserID(ctx context.Context, id uuid.UUID) (*User, error)
}

// PasswordHasher hashes credential secrets and verifies them against
// stored hashes, migrating legacy hashes forward when possible
type PasswordHasher interface {
	// Hash returns the hash for password. Empty passwords are rejected.
	Hash(password string) (string, error)
	// VerifyAndUpgrade compares password against hash. When the match
	// succeeded under legacy parameters it also returns a replacement
	// hash the caller should persist, otherwise the second value is "".
	VerifyAndUpgrade(password, hash string) (bool, string)
	// Generate produces a random human usable secret of the given length
	Generate(length int) (string, error)
}

// PasswordValidator rejects weak credential secrets with a reason
type PasswordValidator interface {
	Validate(password string) error
}

// Mailer delivers a single email message
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// Email is the message handed to a Mailer
type Email struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// TaskScheduler enqueues work for asynchronous execution. Schedule
// returns once the task is accepted, execution is fire and forget.
type TaskScheduler interface {
	Schedule(ctx context.Context, task Task) (string, error)
}

// Task is a unit of deferred work
type Task struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	// Access/refresh lifetimes in seconds, zero means no expiry
	GetAccessTokenTTL() int
	GetRefreshTokenTTL() int
	// Secret and salt for the opaque token key derivation. The salt must
	// be held constant across processes and restarts or issued tokens
	// become unverifiable.
	GetTokenSecret() string
	GetTokenSalt() string
	// Per purpose opaque token lifetimes in seconds
	GetResetTokenTTL() int
	GetConfirmTokenTTL() int
	GetChangeTokenTTL() int
	// Base URL the confirmation links point at
	GetFrontendURL() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
