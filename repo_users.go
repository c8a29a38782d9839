package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var verifyUserSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var changeEmailSQL = `UPDATE "users" AS "usr"
SET
	"email" = ?,
	"is_verified" = TRUE
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var replaceEmailSQL = `UPDATE "users" AS "usr"
SET
	"email" = ?,
	"is_verified" = FALSE
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var setPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the account storage surface the services depend on.
type Users interface {
	repository.Repository[*User]

	GetByUserID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string, verifiedOnly bool) (bool, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) (*User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (*User, error)
	ChangeEmail(ctx context.Context, id uuid.UUID, email string) (*User, error)
	ReplaceEmail(ctx context.Context, id uuid.UUID, email string) (*User, error)
	ClearUnverifiedEmail(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, record *User) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ UserLoader                   = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByUserID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, identityNotFound(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return user, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where(`?TableAlias."email" = ?`, email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, identityNotFound(map[string]any{"email": email})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) EmailExists(ctx context.Context, email string, verifiedOnly bool) (bool, error) {
	q := a.db.NewSelect().
		Model((*User)(nil)).
		Where(`?TableAlias."email" = ?`, email)

	if verifiedOnly {
		q = q.Where(`?TableAlias."is_verified" = TRUE`)
	}

	return q.Exists(ctx)
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	record, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, translateWriteError(err, "email")
	}
	return record, nil
}

// SetPasswordHash replaces the stored credential hash. Raw SQL so the
// partial update cannot zero out unrelated columns.
func (a *users) SetPasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) (*User, error) {
	return a.returningOne(ctx, setPasswordSQL, passwordHash, id.String())
}

// MarkVerified flips the verified flag on.
func (a *users) MarkVerified(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.returningOne(ctx, verifyUserSQL, id.String())
}

// ChangeEmail sets the new address and the verified flag in a single
// statement; the unique index surfaces a concurrent claim as a conflict.
func (a *users) ChangeEmail(ctx context.Context, id uuid.UUID, email string) (*User, error) {
	user, err := a.returningOne(ctx, changeEmailSQL, email, id.String())
	if err != nil {
		return nil, translateWriteError(err, "email")
	}
	return user, nil
}

// ReplaceEmail sets the new address and demotes the verified flag; the
// profile-update path uses it so a swapped email always re-verifies.
func (a *users) ReplaceEmail(ctx context.Context, id uuid.UUID, email string) (*User, error) {
	user, err := a.returningOne(ctx, replaceEmailSQL, email, id.String())
	if err != nil {
		return nil, translateWriteError(err, "email")
	}
	return user, nil
}

// ClearUnverifiedEmail nulls the email on any unverified account
// holding it, reclaiming addresses that were never confirmed.
func (a *users) ClearUnverifiedEmail(ctx context.Context, email string) error {
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"email" = NULL,
			"is_verified" = FALSE
		WHERE
			"usr"."email" = ?
			AND "usr"."is_verified" = FALSE
			AND "usr"."deleted_at" IS NULL;
	`, email).Exec(ctx)

	return err
}

func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, record *User) (*User, error) {
	record.ID = id
	user, err := a.Repository.UpdateTx(ctx, a.db, record, repository.UpdateByID(id.String()))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, identityNotFound(map[string]any{"id": id.String()})
		}
		return nil, translateWriteError(err, "email")
	}
	return user, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	loggedInAt := time.Now()
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) returningOne(ctx context.Context, query string, args ...any) (*User, error) {
	rows, err := a.Repository.RawTx(ctx, a.db, query, args...)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrIdentityNotFound
	}
	return rows[0], nil
}

func identityNotFound(meta map[string]any) *errors.Error {
	clone := ErrIdentityNotFound.Clone()
	clone.Source = ErrIdentityNotFound
	return clone.WithMetadata(meta)
}

func prepareUserDefaults(user *User) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Active = true
}

// translateWriteError maps storage-level uniqueness violations into the
// domain conflict error, tagged with the colliding field.
func translateWriteError(err error, field string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return WithErrorFields(ErrIdentityExists, field)
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return err
	}
	return errors.Wrap(err, errors.CategoryInternal, "user write failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
