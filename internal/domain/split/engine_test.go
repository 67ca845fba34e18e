package split_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/core/numerator"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/events"
	"padihub/internal/domain/split"
	"padihub/internal/domain/transaction"
	"padihub/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type engineEnv struct {
	engine *split.Engine
	svc    *transaction.Service
	repo   *memory.TransactionRepo
}

func newEngineEnv() *engineEnv {
	repo := memory.NewTransactionRepo()
	svc := transaction.NewService(repo, &numerator.MockGenerator{}, memory.NewTxManager(), events.NewBus(), nil)
	return &engineEnv{
		engine: split.NewEngine(svc, events.NewBus()),
		svc:    svc,
		repo:   repo,
	}
}

func (e *engineEnv) completedPurchase(t *testing.T, netKg string) *transaction.Transaction {
	t.Helper()

	txn := transaction.NewPurchase("WPK5566", id.New(), id.New())
	require.NoError(t, txn.SetWeights(d(netKg), decimal.Zero))
	txn.FinalPricePerKg = d("0.85")
	require.NoError(t, txn.ApplyDeductions(deduction.List{{Name: "moisture", Percent: d("3")}}))
	txn.Status = transaction.StatusCompleted
	require.NoError(t, e.svc.Create(context.Background(), txn))
	return txn
}

func (e *engineEnv) completedSale(t *testing.T, netKg string) *transaction.Transaction {
	t.Helper()

	txn := transaction.NewSale("JHB9911", id.New(), id.New())
	require.NoError(t, txn.SetWeights(d(netKg), decimal.Zero))
	txn.FinalPricePerKg = d("1.15")
	require.NoError(t, txn.ApplyDeductions(nil))
	txn.Status = transaction.StatusCompleted
	require.NoError(t, e.svc.Create(context.Background(), txn))
	return txn
}

func (e *engineEnv) receiptCount(t *testing.T) int {
	t.Helper()
	listed, err := e.repo.List(context.Background(), transaction.ListFilter{})
	require.NoError(t, err)
	return int(listed.TotalCount)
}

func TestEngineSplit(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()
	parent := env.completedPurchase(t, "1500")

	fragments, err := env.engine.Split(ctx, parent.ID, d("1200"))
	require.NoError(t, err)

	// Weight conservation: fragments sum to the parent's net weight.
	assert.True(t, fragments.Used.NetWeightKg.Equal(d("1200")))
	assert.True(t, fragments.Remainder.NetWeightKg.Equal(d("300")))
	total := fragments.Used.NetWeightKg.Add(fragments.Remainder.NetWeightKg)
	assert.True(t, total.Equal(parent.NetWeightKg))

	assert.Equal(t, transaction.StatusSold, fragments.Used.Status)
	assert.Equal(t, transaction.StatusCompleted, fragments.Remainder.Status)

	// Fragments are gross=net/tare=0 children of the parent.
	for _, child := range []*transaction.Transaction{fragments.Used, fragments.Remainder} {
		require.NotNil(t, child.ParentID)
		assert.Equal(t, parent.ID, *child.ParentID)
		assert.True(t, child.TareWeightKg.IsZero())
		assert.True(t, child.GrossWeightKg.Equal(child.NetWeightKg))
		assert.Equal(t, parent.PaymentStatus, child.PaymentStatus)
	}

	// The parent is superseded but never deleted.
	stored, err := env.repo.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusSold, stored.Status)
}

func TestEngineSplitRecomputesFinancials(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()
	parent := env.completedPurchase(t, "1000")

	fragments, err := env.engine.Split(ctx, parent.ID, d("333"))
	require.NoError(t, err)

	// 333 * 0.97 = 323.01 -> 323; 667 * 0.97 = 646.99 -> 647.
	assert.True(t, fragments.Used.EffectiveWeightKg.Equal(d("323")))
	assert.True(t, fragments.Remainder.EffectiveWeightKg.Equal(d("647")))
	assert.True(t, fragments.Used.TotalAmount.Equal(d("274.55")))
}

func TestEngineSplitAlreadySplit(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()
	parent := env.completedPurchase(t, "1500")

	_, err := env.engine.Split(ctx, parent.ID, d("1200"))
	require.NoError(t, err)
	countAfterFirst := env.receiptCount(t)

	_, err = env.engine.Split(ctx, parent.ID, d("100"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeAlreadySplit, appErr.Code)

	// No new records from the rejected attempt.
	assert.Equal(t, countAfterFirst, env.receiptCount(t))
}

func TestEngineSplitInvalidRetain(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()
	parent := env.completedPurchase(t, "1500")

	for _, retain := range []string{"0", "-10", "1500", "1600"} {
		_, err := env.engine.Split(ctx, parent.ID, d(retain))
		require.Error(t, err, "retain %s", retain)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
	}
}

func TestEngineSplitRejectsSaleReceipt(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()
	sale := env.completedSale(t, "3000")
	countBefore := env.receiptCount(t)

	_, err := env.engine.Split(ctx, sale.ID, d("1000"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)

	// The sale is untouched and no fragments were written.
	assert.Equal(t, countBefore, env.receiptCount(t))
	stored, err := env.repo.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, stored.Status)
}

func TestEngineAssembleSaleRejectsSaleInSelection(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()

	backing := env.completedSale(t, "2000")
	sale := env.completedSale(t, "1500")

	_, err := env.engine.AssembleSale(ctx, sale, []id.ID{backing.ID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)

	stored, err := env.repo.GetByID(ctx, backing.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, stored.Status)
	assert.Nil(t, stored.SaleID)
}

func TestEngineAssembleSaleWholeAndTrim(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()

	first := env.completedPurchase(t, "2000")
	second := env.completedPurchase(t, "1500")
	sale := env.completedSale(t, "3000")

	assembly, err := env.engine.AssembleSale(ctx, sale, []id.ID{first.ID, second.ID})
	require.NoError(t, err)

	require.Len(t, assembly.Used, 2)
	assert.Equal(t, 1, assembly.SplitCount)

	covered := decimal.Zero
	for _, used := range assembly.Used {
		covered = covered.Add(used.NetWeightKg)
	}
	assert.True(t, covered.Equal(sale.NetWeightKg))

	// First receipt consumed whole.
	storedFirst, err := env.repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusSold, storedFirst.Status)
	require.NotNil(t, storedFirst.SaleID)
	assert.Equal(t, sale.ID, *storedFirst.SaleID)
	assert.Nil(t, storedFirst.ParentID)

	// Second receipt trimmed: the used fragment carries the sale link, the
	// 500kg excess re-enters the candidate pool.
	trimmed := assembly.Used[1]
	assert.True(t, trimmed.NetWeightKg.Equal(d("1000")))
	require.NotNil(t, trimmed.ParentID)
	assert.Equal(t, second.ID, *trimmed.ParentID)
	require.NotNil(t, trimmed.SaleID)
	assert.Equal(t, sale.ID, *trimmed.SaleID)

	candidates, err := env.repo.FindCandidates(ctx, transaction.CandidateFilter{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].NetWeightKg.Equal(d("500")))
}

func TestEngineAssembleSaleUndershoot(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()

	only := env.completedPurchase(t, "2000")
	sale := env.completedSale(t, "3000")

	_, err := env.engine.AssembleSale(ctx, sale, []id.ID{only.ID})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
}

func TestEngineAssembleSaleRejectsEmptySelection(t *testing.T) {
	ctx := context.Background()
	env := newEngineEnv()
	sale := env.completedSale(t, "3000")

	_, err := env.engine.AssembleSale(ctx, sale, nil)
	require.Error(t, err)
}
