package weighing_test

import (
	"context"
	"strings"
	"testing"
	"time"

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
	"padihub/internal/domain/weighing"
	"padihub/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type machineEnv struct {
	mgr   *weighing.Manager
	store *memory.SessionStore
	repo  *memory.TransactionRepo
	svc   *transaction.Service
}

func newMachineEnv() *machineEnv {
	store := memory.NewSessionStore()
	repo := memory.NewTransactionRepo()
	bus := events.NewBus()
	svc := transaction.NewService(repo, &numerator.MockGenerator{}, memory.NewTxManager(), bus, nil)
	engine := split.NewEngine(svc, bus)

	return &machineEnv{
		mgr:   weighing.NewManager(store, svc, engine, bus, time.Hour),
		store: store,
		repo:  repo,
		svc:   svc,
	}
}

// completedPurchase persists a completed purchase receipt with the given net
// weight, ready to back a sale.
func (e *machineEnv) completedPurchase(t *testing.T, netKg string) *transaction.Transaction {
	t.Helper()

	txn := transaction.NewPurchase("WPK5566", id.New(), id.New())
	require.NoError(t, txn.SetWeights(d(netKg), decimal.Zero))
	txn.FinalPricePerKg = d("0.85")
	require.NoError(t, txn.ApplyDeductions(nil))
	txn.Status = transaction.StatusCompleted
	require.NoError(t, e.svc.Create(context.Background(), txn))
	return txn
}

func TestMachinePurchaseFlow(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	machine, err := env.mgr.Begin(ctx, "ABC1234", transaction.TypePurchase)
	require.NoError(t, err)
	assert.Equal(t, weighing.StateAwaitingInitialWeight, machine.Session().State)

	require.NoError(t, machine.CaptureFirstWeight(ctx, d("5000")))
	require.NoError(t, machine.CaptureSecondWeight(ctx, d("2000")))
	assert.True(t, machine.Session().NetKg().Equal(d("3000")))

	require.NoError(t, machine.SelectParty(ctx, id.New()))
	require.NoError(t, machine.SelectProduct(ctx, id.New(), d("0.80"), d("0.85")))
	require.NoError(t, machine.SetDeductions(ctx, deduction.List{
		{Name: "moisture", Percent: d("3")},
	}))

	result, err := machine.Review(ctx)
	require.NoError(t, err)
	assert.True(t, result.EffectiveWeightKg.Equal(d("2910")))
	assert.True(t, result.TotalAmount.Equal(d("2473.50")))

	txn, err := machine.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(txn.Number, "PR-"))
	assert.Equal(t, transaction.StatusCompleted, txn.Status)
	assert.True(t, txn.GrossWeightKg.Equal(d("5000")))
	assert.True(t, txn.TareWeightKg.Equal(d("2000")))
	assert.True(t, txn.NetWeightKg.Equal(d("3000")))

	// The receipt is persisted and the session is gone.
	stored, err := env.repo.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.Number, stored.Number)

	_, err = env.store.Get(ctx, "ABC1234")
	assert.True(t, apperror.IsNotFound(err))
}

func TestMachineResumeAfterRestart(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	machine, err := env.mgr.Begin(ctx, "ABC1234", transaction.TypePurchase)
	require.NoError(t, err)
	require.NoError(t, machine.CaptureFirstWeight(ctx, d("5000")))

	// A new manager over the same store stands in for a process restart.
	restarted := weighing.NewManager(env.store, env.svc, nil, nil, time.Hour)

	resumed, err := restarted.Resume(ctx, "ABC1234")
	require.NoError(t, err)
	assert.Equal(t, weighing.StateAwaitingSecondWeight, resumed.Session().State)
	require.NotNil(t, resumed.Session().FirstWeightKg)
	assert.True(t, resumed.Session().FirstWeightKg.Equal(d("5000")))

	// The flow continues from where it stopped.
	require.NoError(t, resumed.CaptureSecondWeight(ctx, d("2000")))
	assert.Equal(t, weighing.StateSelectingParty, resumed.Session().State)
}

func TestMachineWeightOrderViolation(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	machine, err := env.mgr.Begin(ctx, "ABC1234", transaction.TypePurchase)
	require.NoError(t, err)
	require.NoError(t, machine.CaptureFirstWeight(ctx, d("2000")))

	// Tare above gross: rejected, session untouched.
	err = machine.CaptureSecondWeight(ctx, d("2500"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeWeightOrder, appErr.Code)

	stored, err := env.store.Get(ctx, "ABC1234")
	require.NoError(t, err)
	assert.Equal(t, weighing.StateAwaitingSecondWeight, stored.State)
	assert.Nil(t, stored.SecondWeightKg)

	// A valid reading still goes through.
	require.NoError(t, machine.CaptureSecondWeight(ctx, d("1500")))
}

func TestManagerRejectsDuplicateVehicle(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	_, err := env.mgr.Begin(ctx, "ABC1234", transaction.TypePurchase)
	require.NoError(t, err)

	_, err = env.mgr.Begin(ctx, "ABC1234", transaction.TypeSale)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestMachineBackNavigationKeepsInputs(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	machine, err := env.mgr.Begin(ctx, "ABC1234", transaction.TypePurchase)
	require.NoError(t, err)
	require.NoError(t, machine.CaptureFirstWeight(ctx, d("5000")))
	require.NoError(t, machine.CaptureSecondWeight(ctx, d("2000")))
	farmerID := id.New()
	require.NoError(t, machine.SelectParty(ctx, farmerID))
	require.NoError(t, machine.SelectProduct(ctx, id.New(), d("0.80"), d("0.85")))

	require.NoError(t, machine.Back(ctx, weighing.StateSelectingParty))

	session := machine.Session()
	assert.Equal(t, weighing.StateSelectingParty, session.State)
	require.NotNil(t, session.FirstWeightKg)
	assert.True(t, session.FirstWeightKg.Equal(d("5000")))
	require.NotNil(t, session.FarmerID)
	assert.Equal(t, farmerID, *session.FarmerID)
	assert.NotNil(t, session.ProductID)

	// Forward navigation is not a Back target.
	err = machine.Back(ctx, weighing.StateReviewing)
	require.Error(t, err)

	// Moving forward again re-runs the normal transitions.
	require.NoError(t, machine.SelectParty(ctx, farmerID))
	assert.Equal(t, weighing.StateSelectingProduct, machine.Session().State)
}

func TestMachineCancelWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	machine, err := env.mgr.Begin(ctx, "ABC1234", transaction.TypePurchase)
	require.NoError(t, err)
	require.NoError(t, machine.CaptureFirstWeight(ctx, d("5000")))
	require.NoError(t, machine.CaptureSecondWeight(ctx, d("2000")))

	require.NoError(t, machine.Cancel(ctx))

	_, err = env.store.Get(ctx, "ABC1234")
	assert.True(t, apperror.IsNotFound(err))

	listed, err := env.repo.List(ctx, transaction.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed.Items)
}

func TestMachineSaleConfirmAssembles(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	backing := env.completedPurchase(t, "3000")

	machine, err := env.mgr.Begin(ctx, "JHB9911", transaction.TypeSale)
	require.NoError(t, err)

	// Sale order: tare first, gross second.
	require.NoError(t, machine.CaptureFirstWeight(ctx, d("2000")))
	require.NoError(t, machine.CaptureSecondWeight(ctx, d("5000")))
	require.NoError(t, machine.SelectParty(ctx, id.New()))
	require.NoError(t, machine.SelectProduct(ctx, id.New(), d("1.10"), d("1.15")))
	require.NoError(t, machine.SetSelectedReceipts(ctx, []id.ID{backing.ID}))

	_, err = machine.Review(ctx)
	require.NoError(t, err)

	sale, err := machine.Confirm(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sale.Number, "SL-"))
	assert.True(t, sale.NetWeightKg.Equal(d("3000")))

	consumed, err := env.repo.GetByID(ctx, backing.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusSold, consumed.Status)
	require.NotNil(t, consumed.SaleID)
	assert.Equal(t, sale.ID, *consumed.SaleID)
}

func TestManagerRecallStale(t *testing.T) {
	ctx := context.Background()
	env := newMachineEnv()

	machine, err := env.mgr.Begin(ctx, "ABC1234", transaction.TypePurchase)
	require.NoError(t, err)

	stale, err := env.mgr.RecallStale(ctx)
	require.NoError(t, err)
	assert.Empty(t, stale)

	// Age the session past the window; stale sessions are surfaced, never
	// evicted.
	session := machine.Session()
	session.LastTouchedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, env.store.Upsert(ctx, session))

	stale, err = env.mgr.RecallStale(ctx)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "ABC1234", stale[0].VehicleNo)

	_, err = env.store.Get(ctx, "ABC1234")
	require.NoError(t, err)
}
