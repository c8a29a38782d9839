package auth

import (
	"context"

	"github.com/google/uuid"
)

// identityHelper is the lookup-and-validate kit shared by the account
// and verification services. Both hold one by composition so the rules
// live in exactly one place.
type identityHelper struct {
	users      Users
	validators PasswordValidator
}

func newIdentityHelper(users Users, validators PasswordValidator) *identityHelper {
	if validators == nil {
		validators = DefaultPasswordValidators()
	}
	return &identityHelper{
		users:      users,
		validators: validators,
	}
}

func (h *identityHelper) getByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return h.users.GetByUserID(ctx, id)
}

func (h *identityHelper) getByEmail(ctx context.Context, email string) (*User, error) {
	return h.users.GetByEmail(ctx, email)
}

// getBySubject parses the subject carried by a token and resolves it.
// A subject that is not UUID-shaped is treated as an invalid token, not
// as a missing account.
func (h *identityHelper) getBySubject(ctx context.Context, subject string) (*User, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return h.getByID(ctx, id)
}

func (h *identityHelper) validatePassword(password string) error {
	return h.validators.Validate(password)
}
