package auth

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// RegisterPayload carries a signup request into the service.
type RegisterPayload struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ProfileUpdate is a sparse update; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// AccountService orchestrates registration, login, password change,
// email change, and profile updates.
type AccountService struct {
	*identityHelper
	hasher      PasswordHasher
	tokens      TokenGenerator
	dispatcher  *Dispatcher
	frontendURL string
	logger      Logger
}

func NewAccountService(
	users Users,
	hasher PasswordHasher,
	validators PasswordValidator,
	tokens TokenGenerator,
	dispatcher *Dispatcher,
	cfg Config,
	logger Logger,
) *AccountService {
	if logger == nil {
		logger = defLogger{}
	}
	return &AccountService{
		identityHelper: newIdentityHelper(users, validators),
		hasher:         hasher,
		tokens:         tokens,
		dispatcher:     dispatcher,
		frontendURL:    cfg.GetFrontendURL(),
		logger:         logger,
	}
}

// Register creates a new, unverified, active account.
func (s *AccountService) Register(ctx context.Context, payload RegisterPayload) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(payload.Email))

	exists, err := s.users.EmailExists(ctx, email, false)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, WithErrorFields(ErrIdentityExists, "email")
	}

	password := strings.TrimSpace(payload.Password)
	if err := s.validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Email:        &email,
		PasswordHash: hash,
	}

	return s.users.Register(ctx, user)
}

// Authenticate resolves email/password credentials. Both unknown email
// and wrong password return (nil, nil); the unknown-email path still
// burns a hash comparison so the two are not separable by latency.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.getByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if IsNotFound(err) {
			s.dummyVerify(password)
			return nil, nil
		}
		return nil, err
	}

	matched, upgraded := s.hasher.VerifyAndUpgrade(password, user.PasswordHash)
	if !matched {
		return nil, nil
	}

	if upgraded != "" {
		if updated, err := s.users.SetPasswordHash(ctx, user.ID, upgraded); err != nil {
			s.logger.Error("unable to persist upgraded password hash", "user", user.ID, "error", err)
		} else {
			user = updated
		}
	}

	if err := s.users.TrackSuccessfulLogin(ctx, user); err != nil {
		s.logger.Error("unable to track login", "user", user.ID, "error", err)
	}

	return user, nil
}

// ChangePassword swaps the credential secret for an authenticated user.
func (s *AccountService) ChangePassword(ctx context.Context, user *User, oldPassword, newPassword string) (*User, error) {
	if oldPassword == newPassword {
		return nil, WithErrorFields(ErrPasswordMatchesOld, "new_password")
	}

	matched, _ := s.hasher.VerifyAndUpgrade(oldPassword, user.PasswordHash)
	if !matched {
		return nil, WithErrorFields(ErrPasswordMismatch, "old_password")
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

// RequestEmailChange mails a confirmation link to the candidate
// address. Account state is untouched until the link is followed.
func (s *AccountService) RequestEmailChange(ctx context.Context, user *User, newEmail string) error {
	newEmail = strings.TrimSpace(strings.ToLower(newEmail))

	exists, err := s.users.EmailExists(ctx, newEmail, false)
	if err != nil {
		return err
	}
	if exists {
		return WithErrorFields(ErrIdentityExists, "email")
	}

	token, err := s.tokens.Generate(user.ID.String(), PurposeChange)
	if err != nil {
		return err
	}

	link := s.confirmationURL(token, url.Values{"email": []string{newEmail}})
	return s.dispatcher.Dispatch(ctx, []string{newEmail}, subjectEmailChange, TemplateEmailChange, map[string]any{
		"url": link,
	})
}

// ConfirmEmailChange redeems a change token and commits the new
// address, marking the account verified in the same statement. A race
// losing the address to another account surfaces as a conflict.
func (s *AccountService) ConfirmEmailChange(ctx context.Context, token, newEmail string) (*User, error) {
	subject, err := s.tokens.Decode(token, PurposeChange)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return s.users.ChangeEmail(ctx, id, strings.TrimSpace(strings.ToLower(newEmail)))
}

// UpdateProfile applies a sparse update. Changing the email reclaims
// the address from any unverified holder and demotes verification; the
// dedicated change-email flow is what re-verifies on confirm.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))

		exists, err := s.users.EmailExists(ctx, email, true)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, WithErrorFields(ErrIdentityExists, "email")
		}

		if err := s.users.ClearUnverifiedEmail(ctx, email); err != nil {
			return nil, err
		}

		if _, err := s.users.ReplaceEmail(ctx, id, email); err != nil {
			return nil, err
		}
	}

	record := &User{}
	touched := false
	if update.FirstName != nil {
		record.FirstName = *update.FirstName
		touched = true
	}
	if update.LastName != nil {
		record.LastName = *update.LastName
		touched = true
	}

	if !touched {
		return s.getByID(ctx, id)
	}

	return s.users.UpdateProfile(ctx, id, record)
}

func (s *AccountService) dummyVerify(password string) {
	type dummyVerifier interface {
		DummyVerify(password string)
	}
	if dv, ok := s.hasher.(dummyVerifier); ok {
		dv.DummyVerify(password)
		return
	}
	// Fallback: a hash costs about the same as a compare.
	_, _ = s.hasher.Hash(password)
}

func (s *AccountService) confirmationURL(token string, extra url.Values) string {
	base := strings.TrimRight(s.frontendURL, "/")
	values := url.Values{}
	values.Set("token", token)
	for key, vals := range extra {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	return base + "?" + values.Encode()
}
