// Package verification guards edits to receipts whose deductions are
// already settled. The operator must retype a freshly generated challenge
// code before such a receipt can be changed, which turns a casual mis-tap
// into a deliberate, confirmed action.
package verification

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain/transaction"
	"padihub/pkg/logger"
)

// codeAlphabet avoids visually ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 6

// Challenge is an issued verification code bound to one receipt.
type Challenge struct {
	ReceiptID id.ID
	Code      string
	IssuedAt  time.Time
}

// Gate issues and checks edit-verification challenges. Challenges live in
// memory only; a restart simply requires a fresh one.
type Gate struct {
	mu      sync.Mutex
	pending map[id.ID]*Challenge
	ttl     time.Duration
}

// NewGate creates a verification gate. ttl bounds how long an issued code
// stays valid; zero means 5 minutes.
func NewGate(ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Gate{
		pending: make(map[id.ID]*Challenge),
		ttl:     ttl,
	}
}

// IsLocked reports whether a receipt requires verification before edits.
// A receipt locks once its deduction list is non-empty: from that point the
// financials are considered settled with the farmer.
func IsLocked(txn *transaction.Transaction) bool {
	return !txn.Deductions.IsEmpty()
}

// IsFamilyLocked reports whether a split family requires verification.
// The family locks only when every member carries a non-empty deduction
// list; one unsettled fragment keeps the whole family editable.
func IsFamilyLocked(family []*transaction.Transaction) bool {
	if len(family) == 0 {
		return false
	}
	for _, member := range family {
		if !IsLocked(member) {
			return false
		}
	}
	return true
}

// NewChallenge issues a fresh code for the receipt, replacing any earlier
// unexpired one. Unlocked receipts need no challenge.
func (g *Gate) NewChallenge(ctx context.Context, txn *transaction.Transaction) (*Challenge, error) {
	if !IsLocked(txn) {
		return nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"receipt is not locked; no verification required",
		).WithDetail("receipt_id", txn.ID)
	}

	code, err := generateCode()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	challenge := &Challenge{
		ReceiptID: txn.ID,
		Code:      code,
		IssuedAt:  time.Now().UTC(),
	}

	g.mu.Lock()
	g.pending[txn.ID] = challenge
	g.mu.Unlock()

	logger.Info(ctx, "edit verification issued", "receipt_id", txn.ID, "number", txn.Number)
	return challenge, nil
}

// Submit checks the operator's input against the pending challenge. On a
// match the challenge is consumed and the edit may proceed; any mismatch,
// missing or expired challenge returns VerificationMismatch and the receipt
// stays locked.
func (g *Gate) Submit(ctx context.Context, receiptID id.ID, input string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	challenge, ok := g.pending[receiptID]
	if !ok {
		return apperror.NewVerificationMismatch().WithDetail("reason", "no pending challenge")
	}
	if time.Since(challenge.IssuedAt) > g.ttl {
		delete(g.pending, receiptID)
		return apperror.NewVerificationMismatch().WithDetail("reason", "challenge expired")
	}

	if strings.ToUpper(strings.TrimSpace(input)) != challenge.Code {
		logger.Warn(ctx, "edit verification failed", "receipt_id", receiptID)
		return apperror.NewVerificationMismatch()
	}

	delete(g.pending, receiptID)
	logger.Info(ctx, "edit verification passed", "receipt_id", receiptID)
	return nil
}

// SubmitAny checks the input against the pending challenge of any of the
// given receipts. Bulk edits issue their challenge for one member of the
// selection; whichever pending challenge matches is consumed. With no
// pending challenge among the ids, or no match, the result is
// VerificationMismatch and every surviving challenge stays pending.
func (g *Gate) SubmitAny(ctx context.Context, receiptIDs []id.ID, input string) error {
	normalized := strings.ToUpper(strings.TrimSpace(input))

	g.mu.Lock()
	defer g.mu.Unlock()

	pending := false
	for _, receiptID := range receiptIDs {
		challenge, ok := g.pending[receiptID]
		if !ok {
			continue
		}
		if time.Since(challenge.IssuedAt) > g.ttl {
			delete(g.pending, receiptID)
			continue
		}
		pending = true
		if normalized == challenge.Code {
			delete(g.pending, receiptID)
			logger.Info(ctx, "edit verification passed", "receipt_id", receiptID)
			return nil
		}
	}

	if !pending {
		return apperror.NewVerificationMismatch().WithDetail("reason", "no pending challenge")
	}
	logger.Warn(ctx, "edit verification failed", "receipts", len(receiptIDs))
	return apperror.NewVerificationMismatch()
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
