package registration

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationPurpose is the delivery channel for a verification code
type VerificationPurpose = string

const (
	// PurposeEmail delivers codes by email and confirms the email flag
	PurposeEmail VerificationPurpose = "email"
	// PurposeSMS delivers codes by SMS and confirms the phone flag
	PurposeSMS VerificationPurpose = "sms"
)

// IsValidPurpose reports whether p is one of the known delivery channels
func IsValidPurpose(p VerificationPurpose) bool {
	switch p {
	case PurposeEmail, PurposeSMS:
		return true
	default:
		return false
	}
}

// ParsePurpose normalizes raw input into a VerificationPurpose
func ParsePurpose(raw string) (VerificationPurpose, bool) {
	p := VerificationPurpose(strings.ToLower(strings.TrimSpace(raw)))
	return p, IsValidPurpose(p)
}

// User is the account model. The IC number is the externally supplied
// identity key and is immutable once the row exists.
type User struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ICNumber           string     `bun:"ic_number,notnull,unique" json:"ic_number,omitempty"`
	Email              string     `bun:"email,notnull" json:"email,omitempty"`
	FullName           string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	DisplayPhoneNumber string     `bun:"display_phone_number" json:"display_phone_number,omitempty"`
	PhoneNumber        string     `bun:"phone_number" json:"phone_number,omitempty"`
	PINHash            string     `bun:"pin_hash" json:"pin_hash,omitempty"`
	EmailConfirmed     bool       `bun:"is_email_confirmed" json:"is_email_confirmed,omitempty"`
	PhoneConfirmed     bool       `bun:"is_phone_confirmed" json:"is_phone_confirmed,omitempty"`
	HasAgreedToTerms   bool       `bun:"has_agreed_to_terms" json:"has_agreed_to_terms,omitempty"`
	BiometricEnabled   bool       `bun:"is_biometric_enabled" json:"is_biometric_enabled,omitempty"`
	IsMigrated         bool       `bun:"is_migrated" json:"is_migrated,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BothConfirmed reports whether email and phone have both been verified.
// PIN enrollment and login are gated on this predicate.
func (u *User) BothConfirmed() bool {
	return u.EmailConfirmed && u.PhoneConfirmed
}

// MarkConfirmed flips the confirmation flag matching the purpose. It returns
// false for an unknown purpose, in which case no flag changes.
func (u *User) MarkConfirmed(purpose VerificationPurpose) bool {
	switch purpose {
	case PurposeEmail:
		u.EmailConfirmed = true
		return true
	case PurposeSMS:
		u.PhoneConfirmed = true
		return true
	default:
		return false
	}
}

// AccountState is the derived lifecycle state of an account
type AccountState = string

const (
	// StateUnregistered means no row exists for the IC number
	StateUnregistered AccountState = "unregistered"
	// StateUnmigrated means the row exists but migration has not finished
	StateUnmigrated AccountState = "unmigrated"
	// StateMigrated means the account set a PIN and completed migration
	StateMigrated AccountState = "migrated"
)

// DeriveAccountState computes the lifecycle state from the persisted flags.
// No state column exists on the row; this is the only derivation.
func DeriveAccountState(u *User) AccountState {
	if u == nil {
		return StateUnregistered
	}
	if u.IsMigrated {
		return StateMigrated
	}
	return StateUnmigrated
}

// VerificationCode is a single-use, time-boxed numeric code scoped to a
// (user, purpose) pair. At most one row exists per pair; issuance overwrites
// the row in place and confirmation soft-consumes it.
type VerificationCode struct {
	bun.BaseModel `bun:"table:verification_codes,alias:vc"`
	ID            uuid.UUID           `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID           `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User               `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Code          int                 `bun:"code,notnull" json:"code,omitempty"`
	Purpose       VerificationPurpose `bun:"purpose,notnull" json:"purpose,omitempty"`
	ExpiresAt     time.Time           `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	Used          bool                `bun:"is_used" json:"is_used,omitempty"`
	CreatedAt     *time.Time          `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time          `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsActive reports whether the code can still be confirmed at the given time
func (c *VerificationCode) IsActive(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
