package registration

import (
	goerrors "github.com/goliatone/go-errors"
)

// Stable text codes for the domain error taxonomy. Boundary layers translate
// these into the wire error body; they never change once published.
const (
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeUserAlreadyMigrated   = "USER_ALREADY_MIGRATED"
	TextCodeUserCreationFailed    = "USER_CREATION_FAILED"
	TextCodeUserUpdateFailed      = "USER_UPDATE_FAILED"
	TextCodeInvalidCode           = "INVALID_CODE"
	TextCodeInvalidPIN            = "INVALID_PIN"
	TextCodeNotConfirmed          = "EMAIL_OR_PHONE_NOT_CONFIRMED"
	TextCodeTermsNotAccepted      = "TERMS_NOT_ACCEPTED"
	TextCodePINUpdateFailed       = "FAILED_TO_UPDATE_PIN"
	TextCodeAgreementUpdateFailed = "FAILED_TO_UPDATE_AGREEMENT"
	TextCodeBiometricUpdateFailed = "FAILED_TO_UPDATE_BIOMETRIC_STATUS"
)

// ErrUserNotFound is returned when no account exists for the IC number
var ErrUserNotFound = goerrors.New("user ic number not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserAlreadyMigrated is returned when registration hits a migrated account
var ErrUserAlreadyMigrated = goerrors.New("user has already been migrated, log in using your PIN", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserAlreadyMigrated).
	WithCode(goerrors.CodeConflict)

// ErrUserCreationFailed is returned when the store rejects a new account row
var ErrUserCreationFailed = goerrors.New("user creation failed, process not completed", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUserCreationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrUserUpdateFailed is returned when overwriting account fields fails
var ErrUserUpdateFailed = goerrors.New("failed to update user information", goerrors.CategoryInternal).
	WithTextCode(TextCodeUserUpdateFailed).
	WithCode(goerrors.CodeInternal)

// ErrInvalidCode collapses wrong, expired, and already-used codes into one
// signal. Callers must not be able to tell the three cases apart.
var ErrInvalidCode = goerrors.New("invalid code", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidPIN is returned on a PIN hash mismatch at login
var ErrInvalidPIN = goerrors.New("invalid PIN provided", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidPIN).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailOrPhoneNotConfirmed gates PIN enrollment and login until both
// channels are verified
var ErrEmailOrPhoneNotConfirmed = goerrors.New("user email or phone number not confirmed", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotConfirmed).
	WithCode(goerrors.CodeForbidden)

// ErrTermsNotAccepted is declared for boundary completeness
var ErrTermsNotAccepted = goerrors.New("user has not accepted the terms and privacy policy", goerrors.CategoryValidation).
	WithTextCode(TextCodeTermsNotAccepted).
	WithCode(goerrors.CodeBadRequest)

// ErrFailedToUpdatePIN is returned when persisting the PIN hash fails
var ErrFailedToUpdatePIN = goerrors.New("failed to update PIN", goerrors.CategoryInternal).
	WithTextCode(TextCodePINUpdateFailed).
	WithCode(goerrors.CodeInternal)

// ErrFailedToUpdateAgreement is returned when persisting the terms flag fails
var ErrFailedToUpdateAgreement = goerrors.New("failed to update the agreement status", goerrors.CategoryInternal).
	WithTextCode(TextCodeAgreementUpdateFailed).
	WithCode(goerrors.CodeInternal)

// ErrFailedToUpdateBiometricStatus is returned when persisting the biometric
// flag fails
var ErrFailedToUpdateBiometricStatus = goerrors.New("failed to update biometric login status", goerrors.CategoryInternal).
	WithTextCode(TextCodeBiometricUpdateFailed).
	WithCode(goerrors.CodeInternal)

// AsDomainError unwraps err into a taxonomy entry. The second return is false
// for unexpected/infrastructure failures, which carry no text code and must
// surface as a generic failure at the boundary.
func AsDomainError(err error) (*goerrors.Error, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil, false
	}
	if richErr.TextCode == "" {
		return richErr, false
	}
	return richErr, true
}
