package bulk_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padihub/internal/core/id"
	"padihub/internal/core/numerator"
	"padihub/internal/domain/bulk"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/events"
	"padihub/internal/domain/split"
	"padihub/internal/domain/transaction"
	"padihub/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type bulkEnv struct {
	propagator *bulk.Propagator
	engine     *split.Engine
	svc        *transaction.Service
	repo       *memory.TransactionRepo
}

func newBulkEnv() *bulkEnv {
	repo := memory.NewTransactionRepo()
	svc := transaction.NewService(repo, &numerator.MockGenerator{}, memory.NewTxManager(), events.NewBus(), nil)
	return &bulkEnv{
		propagator: bulk.NewPropagator(svc),
		engine:     split.NewEngine(svc, nil),
		svc:        svc,
		repo:       repo,
	}
}

func (e *bulkEnv) completedPurchase(t *testing.T, netKg string) *transaction.Transaction {
	t.Helper()

	txn := transaction.NewPurchase("WPK5566", id.New(), id.New())
	require.NoError(t, txn.SetWeights(d(netKg), decimal.Zero))
	txn.FinalPricePerKg = d("0.85")
	require.NoError(t, txn.ApplyDeductions(deduction.List{{Name: "moisture", Percent: d("3")}}))
	txn.Status = transaction.StatusCompleted
	require.NoError(t, e.svc.Create(context.Background(), txn))
	return txn
}

// splitFamily creates a parent with two fragments and returns all three IDs.
func (e *bulkEnv) splitFamily(t *testing.T) (parentID, usedID, remainderID id.ID) {
	t.Helper()

	parent := e.completedPurchase(t, "1500")
	fragments, err := e.engine.Split(context.Background(), parent.ID, d("500"))
	require.NoError(t, err)
	return parent.ID, fragments.Used.ID, fragments.Remainder.ID
}

var seasonClose = deduction.Preset{
	Name: "season-close",
	Deductions: deduction.List{
		{Name: "moisture", Percent: d("4")},
		{Name: "dirt", Percent: d("1")},
	},
}

func TestPropagatorExpandsFamilies(t *testing.T) {
	ctx := context.Background()
	env := newBulkEnv()
	parentID, usedID, remainderID := env.splitFamily(t)

	// Selecting the parent and one fragment reaches the same family twice;
	// each member is still processed exactly once.
	report, err := env.propagator.ApplyPreset(ctx, []id.ID{parentID, usedID}, &seasonClose, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Selected)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, 0, report.Failed)

	for _, memberID := range []id.ID{parentID, usedID, remainderID} {
		member, err := env.repo.GetByID(ctx, memberID)
		require.NoError(t, err)
		assert.True(t, member.TotalDeductionPercent.Equal(d("5")))
		require.Len(t, member.Deductions, 2)
	}
}

func TestPropagatorRerunIsDeterministic(t *testing.T) {
	ctx := context.Background()
	env := newBulkEnv()
	parentID, _, remainderID := env.splitFamily(t)

	first, err := env.propagator.ApplyPreset(ctx, []id.ID{parentID}, &seasonClose, nil)
	require.NoError(t, err)

	snapshot, err := env.repo.GetByID(ctx, remainderID)
	require.NoError(t, err)

	second, err := env.propagator.ApplyPreset(ctx, []id.ID{parentID}, &seasonClose, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Processed, second.Processed)
	assert.Equal(t, first.Updated, second.Updated)

	again, err := env.repo.GetByID(ctx, remainderID)
	require.NoError(t, err)
	assert.True(t, snapshot.EffectiveWeightKg.Equal(again.EffectiveWeightKg))
	assert.True(t, snapshot.TotalAmount.Equal(again.TotalAmount))
}

func TestPropagatorContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	env := newBulkEnv()
	healthy := env.completedPurchase(t, "1000")
	missing := id.New()

	var progressCalls int
	report, err := env.propagator.ApplyPreset(ctx, []id.ID{missing, healthy.ID}, &seasonClose,
		func(_ id.ID, _ string, _ error) {
			progressCalls++
		})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Selected)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.FailedIDs, 1)
	assert.Equal(t, missing, report.FailedIDs[0])
	assert.Equal(t, 2, progressCalls)

	updated, err := env.repo.GetByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.True(t, updated.TotalDeductionPercent.Equal(d("5")))
}

func TestPropagatorSkipsCancelled(t *testing.T) {
	ctx := context.Background()
	env := newBulkEnv()
	txn := env.completedPurchase(t, "1000")
	require.NoError(t, env.svc.Cancel(ctx, txn.ID))

	report, err := env.propagator.ApplyPreset(ctx, []id.ID{txn.ID}, &seasonClose, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Failed)

	untouched, err := env.repo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, untouched.TotalDeductionPercent.Equal(d("3")))
}
