package registration

import (
	"context"
	"math/rand"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const (
	// CodeMin and CodeMax bound generated codes; four digits, never a
	// leading zero.
	CodeMin = 1000
	CodeMax = 9999

	// CodeTTL is the fixed validity window for an issued code.
	CodeTTL = 5 * time.Minute
)

// CodeSource yields verification codes. Inject a deterministic source in
// tests; the default draws from math/rand, which is fine for short-lived
// one-time codes delivered out of band.
type CodeSource interface {
	Next() int
}

type randCodeSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandCodeSource returns the default time-seeded source.
func NewRandCodeSource() CodeSource {
	return &randCodeSource{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *randCodeSource) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CodeMin + s.rnd.Intn(CodeMax-CodeMin+1)
}

// issueCodeTx refreshes the (user, purpose) code row with a fresh code and
// expiry. The previous code for the pair, if any, is silently invalidated by
// the overwrite.
func issueCodeTx(ctx context.Context, tx bun.IDB, codes VerificationCodes, source CodeSource, clock func() time.Time, user *User, purpose VerificationPurpose) (*VerificationCode, error) {
	record := &VerificationCode{
		UserID:    user.ID,
		Code:      source.Next(),
		Purpose:   purpose,
		ExpiresAt: clock().Add(CodeTTL),
	}

	issued, err := codes.UpsertByPurposeTx(ctx, tx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification code")
	}

	return issued, nil
}
