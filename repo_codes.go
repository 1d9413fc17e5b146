package registration

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// VerificationCodes is the code store. One row exists per (user, purpose);
// issuance goes through UpsertByPurposeTx so a second issue overwrites the
// first instead of inserting a sibling.
type VerificationCodes interface {
	repository.Repository[*VerificationCode]

	GetByPurposeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose VerificationPurpose) (*VerificationCode, error)
	GetActiveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code int, purpose VerificationPurpose, now time.Time) (*VerificationCode, error)
	UpsertByPurposeTx(ctx context.Context, tx bun.IDB, record *VerificationCode) (*VerificationCode, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, now time.Time) error
}

type verificationCodes struct {
	repository.Repository[*VerificationCode]
	db *bun.DB
}

var (
	_ VerificationCodes                        = (*verificationCodes)(nil)
	_ repository.Repository[*VerificationCode] = (*verificationCodes)(nil)
)

func NewVerificationCodesRepository(db *bun.DB) VerificationCodes {
	repo := repository.NewRepository[*VerificationCode](db, repository.ModelHandlers[*VerificationCode]{
		NewRecord: func() *VerificationCode { return &VerificationCode{} },
		GetID: func(c *VerificationCode) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *VerificationCode, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &verificationCodes{
		Repository: repo,
		db:         db,
	}
}

// GetByPurposeTx returns the row for (user, purpose) in any state. Issue uses
// it to decide between overwrite and insert.
func (r *verificationCodes) GetByPurposeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose VerificationPurpose) (*VerificationCode, error) {
	record := &VerificationCode{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.purpose = ?", purpose).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
					"purpose": purpose,
				})
		}
		return nil, err
	}

	return record, nil
}

// GetActiveTx returns the row for (user, purpose) only when it is unused,
// matches the given code, and has not expired. Confirm uses it; a miss is
// indistinguishable between wrong, stale, and consumed codes.
func (r *verificationCodes) GetActiveTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, code int, purpose VerificationPurpose, now time.Time) (*VerificationCode, error) {
	record := &VerificationCode{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.purpose = ?", purpose).
		Where("?TableAlias.code = ?", code).
		Where("?TableAlias.is_used = ?", false).
		Where("?TableAlias.expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
					"purpose": purpose,
				})
		}
		return nil, err
	}

	return record, nil
}

// UpsertByPurposeTx refreshes the row for (record.UserID, record.Purpose) in
// place, resetting the used flag, or inserts it when the pair has no row yet.
// Running inside the caller's transaction keeps concurrent issues from
// racing the exists check into duplicate rows.
func (r *verificationCodes) UpsertByPurposeTx(ctx context.Context, tx bun.IDB, record *VerificationCode) (*VerificationCode, error) {
	existing, err := r.GetByPurposeTx(ctx, tx, record.UserID, record.Purpose)
	if err != nil {
		if !repository.IsRecordNotFound(err) {
			return nil, err
		}
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		record.Used = false
		return r.Repository.CreateTx(ctx, tx, record)
	}

	record.ID = existing.ID
	record.Used = false
	return r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(existing.ID.String()))
}

// ConsumeTx flips is_used false to true for the given row. The conditional
// update serializes concurrent confirms: only one caller observes the flip,
// everyone else gets a not-found.
func (r *verificationCodes) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, now time.Time) error {
	res, err := tx.NewUpdate().
		Model((*VerificationCode)(nil)).
		Set("is_used = ?", true).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_used = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}
