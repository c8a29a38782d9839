package auth

import (
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

func init() {
	persistence.RegisterModel((*User)(nil))
}

// User is the account record. Email is nullable on purpose: an
// unverified account whose address was reclaimed by another signup
// holds no email until its owner sets a new one.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         *string    `bun:"email,unique,nullzero" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Active        bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	Verified      bool       `bun:"is_verified,notnull,default:false" json:"is_verified"`
	LoggedInAt    *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u != nil && u.Active
}

// IsVerified reports whether the account's email was confirmed.
func (u *User) IsVerified() bool {
	return u != nil && u.Verified
}

// EmailAddress returns the email or "" when the record holds none.
func (u *User) EmailAddress() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return *u.Email
}

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// Verify interface compliance
var _ Identity = UserIdentity{}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	return u.user.EmailAddress()
}

// IsActive reports whether the account may authenticate.
func (u UserIdentity) IsActive() bool {
	return u.user.IsActive()
}

// IsVerified reports whether the account confirmed its email.
func (u UserIdentity) IsVerified() bool {
	return u.user.IsVerified()
}
