package verification

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/transaction"
)

func receipt(t *testing.T, lines deduction.List) *transaction.Transaction {
	t.Helper()

	txn := transaction.NewPurchase("ABC1234", id.New(), id.New())
	require.NoError(t, txn.SetWeights(decimal.NewFromInt(1000), decimal.Zero))
	txn.FinalPricePerKg = decimal.RequireFromString("0.85")
	require.NoError(t, txn.ApplyDeductions(lines))
	txn.Status = transaction.StatusCompleted
	return txn
}

func lockedReceipt(t *testing.T) *transaction.Transaction {
	return receipt(t, deduction.List{
		{Name: "moisture", Percent: decimal.NewFromInt(3)},
	})
}

func TestIsLocked(t *testing.T) {
	assert.False(t, IsLocked(receipt(t, nil)))
	assert.True(t, IsLocked(lockedReceipt(t)))
}

func TestIsFamilyLocked(t *testing.T) {
	locked := lockedReceipt(t)
	unlocked := receipt(t, nil)

	assert.False(t, IsFamilyLocked(nil))
	assert.True(t, IsFamilyLocked([]*transaction.Transaction{locked}))
	assert.True(t, IsFamilyLocked([]*transaction.Transaction{locked, lockedReceipt(t)}))

	// One unsettled fragment keeps the whole family editable.
	assert.False(t, IsFamilyLocked([]*transaction.Transaction{locked, unlocked}))
}

func TestGateRejectsUnlockedReceipt(t *testing.T) {
	gate := NewGate(time.Minute)

	_, err := gate.NewChallenge(context.Background(), receipt(t, nil))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestGateMatchConsumesChallenge(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(time.Minute)
	txn := lockedReceipt(t)

	challenge, err := gate.NewChallenge(ctx, txn)
	require.NoError(t, err)
	require.Len(t, challenge.Code, codeLength)

	// Input is normalized before comparison.
	require.NoError(t, gate.Submit(ctx, txn.ID, "  "+challenge.Code+" "))

	// A consumed challenge cannot be replayed.
	err = gate.Submit(ctx, txn.ID, challenge.Code)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeVerificationMismatch, appErr.Code)
}

func TestGateMismatchKeepsChallenge(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(time.Minute)
	txn := lockedReceipt(t)

	challenge, err := gate.NewChallenge(ctx, txn)
	require.NoError(t, err)

	err = gate.Submit(ctx, txn.ID, "WRONG1")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeVerificationMismatch, appErr.Code)

	// The pending challenge survives a wrong attempt.
	require.NoError(t, gate.Submit(ctx, txn.ID, challenge.Code))
}

func TestGateSubmitAny(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(time.Minute)

	first := lockedReceipt(t)
	second := lockedReceipt(t)
	third := lockedReceipt(t)
	selection := []id.ID{first.ID, second.ID, third.ID}

	// No challenge issued for any selected receipt.
	err := gate.SubmitAny(ctx, selection, "ABC234")
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeVerificationMismatch, appErr.Code)

	// The challenge may belong to any member of the selection.
	challenge, err := gate.NewChallenge(ctx, second)
	require.NoError(t, err)

	err = gate.SubmitAny(ctx, selection, "WRONG?")
	require.Error(t, err)

	// A wrong attempt leaves the challenge pending.
	require.NoError(t, gate.SubmitAny(ctx, selection, " "+challenge.Code+" "))

	// Consumed on success.
	err = gate.SubmitAny(ctx, selection, challenge.Code)
	require.Error(t, err)
}

func TestGateExpiry(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(time.Millisecond)
	txn := lockedReceipt(t)

	challenge, err := gate.NewChallenge(ctx, txn)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	err = gate.Submit(ctx, txn.ID, challenge.Code)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeVerificationMismatch, appErr.Code)
}

func TestGateReissueReplacesCode(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(time.Minute)
	txn := lockedReceipt(t)

	first, err := gate.NewChallenge(ctx, txn)
	require.NoError(t, err)
	second, err := gate.NewChallenge(ctx, txn)
	require.NoError(t, err)

	if first.Code != second.Code {
		err = gate.Submit(ctx, txn.ID, first.Code)
		require.Error(t, err)
	}
	require.NoError(t, gate.Submit(ctx, txn.ID, second.Code))
}

func TestGenerateCodeAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		for _, c := range code {
			assert.Contains(t, codeAlphabet, string(c))
		}
	}
}
