package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// BcryptHasher hashes account secrets with bcrypt. The zero value is not
// usable; build it with NewBcryptHasher so the decoy hash exists.
type BcryptHasher struct {
	cost  int
	decoy string
}

// NewBcryptHasher returns a hasher at the build-dependent default cost.
func NewBcryptHasher() *BcryptHasher {
	h := &BcryptHasher{cost: passwordHashCost()}
	h.decoy, _ = h.Hash(uuid.NewString())
	return h
}

// Hash will generate a password hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "unable to hash password")
	}
	return string(out), nil
}

// VerifyAndUpgrade validates the cleartext password against the stored
// hash. On a match it reports whether the hash was produced at a stale
// cost and, if so, returns a replacement hash the caller should persist.
func (h *BcryptHasher) VerifyAndUpgrade(password, hash string) (bool, string) {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, ""
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err == nil && cost != h.cost {
		if upgraded, err := h.Hash(password); err == nil {
			return true, upgraded
		}
	}
	return true, ""
}

// Generate returns a random password of the given length drawn from a
// letters-and-digits alphabet, suitable for provisioned accounts.
func (h *BcryptHasher) Generate(length int) (string, error) {
	if length <= 0 {
		length = 16
	}

	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "unable to generate password")
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// DummyVerify burns a bcrypt comparison against a throwaway hash so the
// login path costs the same whether or not the email resolved a record.
func (h *BcryptHasher) DummyVerify(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(h.decoy), []byte(password))
}
