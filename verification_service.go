package auth

import (
	"context"
	"net/url"
	"strings"
)

// VerificationService drives the email-verification and password-reset
// flows: opaque token out by mail, state transition in on redemption.
type VerificationService struct {
	*identityHelper
	hasher      PasswordHasher
	tokens      TokenGenerator
	dispatcher  *Dispatcher
	frontendURL string
	logger      Logger
}

func NewVerificationService(
	users Users,
	hasher PasswordHasher,
	validators PasswordValidator,
	tokens TokenGenerator,
	dispatcher *Dispatcher,
	cfg Config,
	logger Logger,
) *VerificationService {
	if logger == nil {
		logger = defLogger{}
	}
	return &VerificationService{
		identityHelper: newIdentityHelper(users, validators),
		hasher:         hasher,
		tokens:         tokens,
		dispatcher:     dispatcher,
		frontendURL:    cfg.GetFrontendURL(),
		logger:         logger,
	}
}

// RequestVerification mails a confirmation link to the account's own
// address. Guarded: an already-verified account gets a conflict, not a
// second email.
func (s *VerificationService) RequestVerification(ctx context.Context, user *User) error {
	if user.IsVerified() {
		return ErrAlreadyVerified
	}

	token, err := s.tokens.Generate(user.ID.String(), PurposeConfirm)
	if err != nil {
		return err
	}

	return s.dispatcher.Dispatch(ctx, []string{user.EmailAddress()}, subjectEmailVerify, TemplateEmailVerify, map[string]any{
		"url": s.link(token),
	})
}

// ConfirmVerification redeems a confirm token and marks the account
// verified. Redeeming an already-verified account is a no-op success,
// which makes the operation idempotent within the token's TTL.
func (s *VerificationService) ConfirmVerification(ctx context.Context, token string) (*User, error) {
	user, err := s.redeem(ctx, token, PurposeConfirm)
	if err != nil {
		return nil, err
	}
	return s.users.MarkVerified(ctx, user.ID)
}

// RequestPasswordReset mails a reset link. Unlike login, this path does
// reveal whether the email exists; the requester already claims to own
// it.
func (s *VerificationService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.getByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return err
	}

	token, err := s.tokens.Generate(user.ID.String(), PurposeReset)
	if err != nil {
		return err
	}

	return s.dispatcher.Dispatch(ctx, []string{user.EmailAddress()}, subjectPasswordReset, TemplatePasswordReset, map[string]any{
		"url": s.link(token),
	})
}

// ResetPassword redeems a reset token and installs the new secret.
func (s *VerificationService) ResetPassword(ctx context.Context, token, newPassword string) (*User, error) {
	user, err := s.redeem(ctx, token, PurposeReset)
	if err != nil {
		return nil, err
	}

	if err := s.validatePassword(newPassword); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	return s.users.SetPasswordHash(ctx, user.ID, hash)
}

func (s *VerificationService) redeem(ctx context.Context, token string, purpose TokenPurpose) (*User, error) {
	subject, err := s.tokens.Decode(token, purpose)
	if err != nil {
		return nil, err
	}
	return s.getBySubject(ctx, subject)
}

func (s *VerificationService) link(token string) string {
	base := strings.TrimRight(s.frontendURL, "/")
	return base + "?token=" + url.QueryEscape(token)
}
