package registration

import (
	"errors"
	"strconv"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// TextCodeEmptyPIN marks an attempt to hash an empty credential
const TextCodeEmptyPIN = "EMPTY_PIN"

// ErrEmptyPIN is returned when an empty string reaches the hasher
var ErrEmptyPIN = goerrors.New("pin must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPIN).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedPINAndHash is returned when the cleartext does not match
var ErrMismatchedPINAndHash = goerrors.New("pin does not match stored hash", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidPIN).
	WithCode(goerrors.CodeUnauthorized)

// HashPIN will generate a hash for the given PIN
func HashPIN(pin string) (string, error) {
	if pin == "" {
		return "", ErrEmptyPIN
	}

	h, err := bcrypt.GenerateFromPassword([]byte(pin), pinHashCost())
	return string(h), err
}

// formatPIN renders a numeric PIN the way the hasher expects it
func formatPIN(pin int) string {
	return strconv.Itoa(pin)
}

// ComparePINAndHash will validate the given cleartext PIN
// matches the hashed PIN
func ComparePINAndHash(pin, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedPINAndHash
		}
		return err
	}
	return nil
}
