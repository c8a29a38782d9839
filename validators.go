package auth

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordsRaw string

var (
	commonPasswordsOnce sync.Once
	commonPasswords     map[string]struct{}
)

func commonPasswordSet() map[string]struct{} {
	commonPasswordsOnce.Do(func() {
		lines := strings.Split(commonPasswordsRaw, "\n")
		commonPasswords = make(map[string]struct{}, len(lines))
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			commonPasswords[strings.ToLower(line)] = struct{}{}
		}
	})
	return commonPasswords
}

// MinLengthValidator rejects passwords shorter than Length runes.
type MinLengthValidator struct {
	Length int
}

func (v MinLengthValidator) Validate(password string) error {
	min := v.Length
	if min <= 0 {
		min = 8
	}
	if len([]rune(password)) < min {
		return rejectPassword(fmt.Sprintf("password must be at least %d characters", min))
	}
	return nil
}

// CommonPasswordValidator rejects passwords found on the bundled
// most-used-passwords list. The comparison is case insensitive.
type CommonPasswordValidator struct{}

func (v CommonPasswordValidator) Validate(password string) error {
	if _, found := commonPasswordSet()[strings.ToLower(password)]; found {
		return rejectPassword("password is too common")
	}
	return nil
}

// NumericOnlyValidator rejects passwords made up entirely of digits.
type NumericOnlyValidator struct{}

func (v NumericOnlyValidator) Validate(password string) error {
	if password == "" {
		return nil
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return nil
		}
	}
	return rejectPassword("password must not be entirely numeric")
}

func rejectPassword(reason string) error {
	clone := ErrInvalidPassword.Clone()
	clone.Source = ErrInvalidPassword
	return clone.WithMetadata(map[string]any{
		"reason":       reason,
		"error_fields": []string{"password"},
	})
}

// ChainValidator runs each validator in order and stops at the first
// rejection.
type ChainValidator []PasswordValidator

func (c ChainValidator) Validate(password string) error {
	for _, v := range c {
		if err := v.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPasswordValidators is the stock policy: at least 8 characters,
// not on the common list, not all digits.
func DefaultPasswordValidators() ChainValidator {
	return ChainValidator{
		MinLengthValidator{Length: 8},
		CommonPasswordValidator{},
		NumericOnlyValidator{},
	}
}
