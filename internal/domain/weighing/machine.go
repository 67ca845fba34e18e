package weighing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/events"
	"padihub/internal/domain/split"
	"padihub/internal/domain/transaction"
	"padihub/pkg/logger"
)

// Manager creates and resumes weighing machines and owns recall lists.
type Manager struct {
	store       Store
	receipts    *transaction.Service
	splitter    *split.Engine
	bus         *events.Bus
	staleWindow time.Duration
}

// NewManager creates a weighing manager.
func NewManager(store Store, receipts *transaction.Service, splitter *split.Engine, bus *events.Bus, staleWindow time.Duration) *Manager {
	if staleWindow <= 0 {
		staleWindow = 24 * time.Hour
	}
	return &Manager{
		store:       store,
		receipts:    receipts,
		splitter:    splitter,
		bus:         bus,
		staleWindow: staleWindow,
	}
}

// Begin starts a new session for a vehicle. A vehicle can carry only one
// in-flight session; an existing one must be resumed or discarded first.
func (m *Manager) Begin(ctx context.Context, vehicleNo string, t transaction.Type) (*Machine, error) {
	if vehicleNo == "" {
		return nil, apperror.NewInvalidInput("vehicle number is required")
	}
	if t != transaction.TypePurchase && t != transaction.TypeSale {
		return nil, apperror.NewInvalidInput("unknown transaction type")
	}

	if existing, err := m.store.Get(ctx, vehicleNo); err == nil && existing != nil {
		return nil, apperror.NewConflict("a weighing session is already open for this vehicle").
			WithDetail("vehicle_no", vehicleNo).
			WithDetail("stage", existing.Stage())
	} else if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	session := NewSession(vehicleNo, t)
	if err := m.store.Upsert(ctx, session); err != nil {
		return nil, apperror.NewPersistence("session upsert", err)
	}

	logger.Info(ctx, "weighing session started", "vehicle_no", vehicleNo, "type", t)
	return m.machine(session), nil
}

// Resume reconstructs the machine for an in-flight session. The store is
// the single source of truth: state and captured weights come back exactly
// as last persisted, across process restarts.
func (m *Manager) Resume(ctx context.Context, vehicleNo string) (*Machine, error) {
	session, err := m.store.Get(ctx, vehicleNo)
	if err != nil {
		return nil, err
	}
	return m.machine(session), nil
}

// Recall lists in-flight sessions for the operator's resume screen,
// optionally narrowed to one stage.
func (m *Manager) Recall(ctx context.Context, stage *Stage) ([]*Session, error) {
	return m.store.List(ctx, stage)
}

// RecallStale lists sessions with no activity beyond the staleness window.
func (m *Manager) RecallStale(ctx context.Context) ([]*Session, error) {
	return m.store.ListStale(ctx, m.staleWindow)
}

// Abandon flags a session for cleanup without removing it.
func (m *Manager) Abandon(ctx context.Context, vehicleNo string) error {
	session, err := m.store.Get(ctx, vehicleNo)
	if err != nil {
		return err
	}
	session.Abandoned = true
	session.Touch()
	return m.store.Upsert(ctx, session)
}

// Discard removes a session on explicit operator request. No receipt is
// written.
func (m *Manager) Discard(ctx context.Context, vehicleNo string) error {
	if _, err := m.store.Get(ctx, vehicleNo); err != nil {
		return err
	}
	return m.store.Remove(ctx, vehicleNo)
}

func (m *Manager) machine(session *Session) *Machine {
	return &Machine{session: session, mgr: m}
}

// Machine drives one weighing session through its stages:
//
//	AwaitingInitialWeight -> AwaitingSecondWeight -> SelectingParty ->
//	SelectingProduct -> AdjustingDeductions -> Reviewing -> Finalized
//
// Every transition persists the session before returning; only Finalize
// touches the receipt repository. Backward navigation to any earlier stage
// keeps all captured inputs.
type Machine struct {
	session *Session
	mgr     *Manager
}

// Session exposes the current session snapshot.
func (w *Machine) Session() *Session {
	return w.session
}

func (w *Machine) requireState(states ...State) error {
	for _, st := range states {
		if w.session.State == st {
			return nil
		}
	}
	return apperror.NewBusinessRule(
		apperror.CodeBusinessRule,
		"operation not allowed in the current stage",
	).WithDetail("state", w.session.State).WithDetail("vehicle_no", w.session.VehicleNo)
}

func (w *Machine) persist(ctx context.Context) error {
	w.session.Touch()
	if err := w.mgr.store.Upsert(ctx, w.session); err != nil {
		return apperror.NewPersistence("session upsert", err)
	}
	return nil
}

// CaptureFirstWeight records the first scale reading (purchase: gross,
// sale: tare) and advances to the second reading.
func (w *Machine) CaptureFirstWeight(ctx context.Context, weightKg decimal.Decimal) error {
	if err := w.requireState(StateAwaitingInitialWeight); err != nil {
		return err
	}
	if weightKg.IsNegative() {
		return apperror.NewInvalidInput("weight must not be negative").
			WithDetail("weight_kg", weightKg.String())
	}

	weightKg = weightKg.Round(2)
	w.session.FirstWeightKg = &weightKg
	w.session.State = StateAwaitingSecondWeight
	return w.persist(ctx)
}

// CaptureSecondWeight records the second reading. The resulting net weight
// must be positive; otherwise WeightOrderError is returned and the session
// is left exactly as it was.
func (w *Machine) CaptureSecondWeight(ctx context.Context, weightKg decimal.Decimal) error {
	if err := w.requireState(StateAwaitingSecondWeight); err != nil {
		return err
	}
	if weightKg.IsNegative() {
		return apperror.NewInvalidInput("weight must not be negative").
			WithDetail("weight_kg", weightKg.String())
	}

	weightKg = weightKg.Round(2)
	first := *w.session.FirstWeightKg

	var net decimal.Decimal
	if w.session.Type == transaction.TypePurchase {
		net = first.Sub(weightKg) // gross captured first
	} else {
		net = weightKg.Sub(first) // tare captured first
	}
	if !net.IsPositive() {
		return apperror.NewWeightOrder(first.String(), weightKg.String())
	}

	w.session.SecondWeightKg = &weightKg
	w.session.State = StateSelectingParty
	return w.persist(ctx)
}

// SelectParty records the farmer (purchase) or manufacturer (sale).
func (w *Machine) SelectParty(ctx context.Context, partyID id.ID) error {
	if err := w.requireState(StateSelectingParty); err != nil {
		return err
	}
	if id.IsNil(partyID) {
		return apperror.NewInvalidInput("party is required")
	}

	if w.session.Type == transaction.TypePurchase {
		w.session.FarmerID = &partyID
	} else {
		w.session.ManufacturerID = &partyID
	}
	w.session.State = StateSelectingProduct
	return w.persist(ctx)
}

// SelectProduct records the paddy grade and its pricing.
func (w *Machine) SelectProduct(ctx context.Context, productID id.ID, basePricePerKg, finalPricePerKg decimal.Decimal) error {
	if err := w.requireState(StateSelectingProduct); err != nil {
		return err
	}
	if id.IsNil(productID) {
		return apperror.NewInvalidInput("product is required")
	}
	if basePricePerKg.IsNegative() || finalPricePerKg.IsNegative() {
		return apperror.NewInvalidInput("price must not be negative")
	}

	w.session.ProductID = &productID
	w.session.BasePricePerKg = &basePricePerKg
	w.session.FinalPricePerKg = &finalPricePerKg
	w.session.State = StateAdjustingDeductions
	return w.persist(ctx)
}

// SetDeductions replaces the working deduction list. The list is validated
// through the calculator so an invalid edit is rejected before persist.
func (w *Machine) SetDeductions(ctx context.Context, lines deduction.List) error {
	if err := w.requireState(StateAdjustingDeductions); err != nil {
		return err
	}
	if _, err := deduction.ComputeEffective(*w.session.NetKg(), lines, *w.session.FinalPricePerKg); err != nil {
		return err
	}

	w.session.Deductions = lines.Clone()
	return w.persist(ctx)
}

// SetSelectedReceipts records the purchase receipts backing a sale.
func (w *Machine) SetSelectedReceipts(ctx context.Context, receiptIDs []id.ID) error {
	if w.session.Type != transaction.TypeSale {
		return apperror.NewInvalidInput("receipt selection applies to sale sessions only")
	}
	if err := w.requireState(StateAdjustingDeductions, StateReviewing); err != nil {
		return err
	}

	w.session.SelectedReceiptIDs = append(IDList(nil), receiptIDs...)
	return w.persist(ctx)
}

// Review recomputes the financial preview and advances to the review stage.
func (w *Machine) Review(ctx context.Context) (*deduction.Result, error) {
	if err := w.requireState(StateAdjustingDeductions); err != nil {
		return nil, err
	}

	result, err := deduction.ComputeEffective(*w.session.NetKg(), w.session.Deductions, *w.session.FinalPricePerKg)
	if err != nil {
		return nil, err
	}

	w.session.State = StateReviewing
	if err := w.persist(ctx); err != nil {
		return nil, err
	}
	return &result, nil
}

// Back navigates to an earlier stage. All captured inputs are retained;
// moving forward again re-validates against them.
func (w *Machine) Back(ctx context.Context, to State) error {
	current, ok := stateOrder[w.session.State]
	target, exists := stateOrder[to]
	if !ok || !exists || to == StateFinalized {
		return apperror.NewInvalidInput("unknown stage")
	}
	if w.session.State == StateFinalized {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "finalized sessions cannot be reopened")
	}
	if target >= current {
		return apperror.NewInvalidInput("can only navigate to an earlier stage").
			WithDetail("from", w.session.State).
			WithDetail("to", to)
	}

	w.session.State = to
	return w.persist(ctx)
}

// Cancel abandons the session from any non-terminal stage. The session
// record is removed and nothing is written to the receipt repository.
func (w *Machine) Cancel(ctx context.Context) error {
	if w.session.State == StateFinalized {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "finalized sessions cannot be cancelled")
	}
	if err := w.mgr.store.Remove(ctx, w.session.VehicleNo); err != nil {
		return apperror.NewPersistence("session remove", err)
	}
	logger.Info(ctx, "weighing session cancelled", "vehicle_no", w.session.VehicleNo)
	return nil
}

// Confirm finalizes the session. This is the only transition that writes to
// the receipt repository: a purchase produces exactly one completed receipt;
// a sale produces the sale receipt and hands reconciliation to the split
// engine. On success the session record is removed.
func (w *Machine) Confirm(ctx context.Context) (*transaction.Transaction, error) {
	if err := w.requireState(StateReviewing); err != nil {
		return nil, err
	}

	txn, err := w.buildReceipt(ctx)
	if err != nil {
		return nil, err
	}

	if err := w.mgr.receipts.Create(ctx, txn); err != nil {
		return nil, err
	}

	if w.session.Type == transaction.TypeSale {
		if _, err := w.mgr.splitter.AssembleSale(ctx, txn, w.session.SelectedReceiptIDs); err != nil {
			return nil, err
		}
	}

	w.session.State = StateFinalized
	if err := w.mgr.store.Remove(ctx, w.session.VehicleNo); err != nil {
		// The receipt exists; a dangling session is an operator cleanup
		// item, not a finalization failure.
		logger.Warn(ctx, "finalized session removal failed",
			"vehicle_no", w.session.VehicleNo, "error", err)
	}

	if w.mgr.bus != nil {
		_ = w.mgr.bus.PublishTransactionCompleted(ctx, events.TransactionCompleted{
			TransactionID: txn.ID,
			Number:        txn.Number,
			Type:          string(txn.Type),
		})
	}

	logger.Info(ctx, "weighing finalized",
		"vehicle_no", w.session.VehicleNo,
		"number", txn.Number,
		"net_kg", txn.NetWeightKg)

	return txn, nil
}

func (w *Machine) buildReceipt(ctx context.Context) (*transaction.Transaction, error) {
	s := w.session

	var txn *transaction.Transaction
	if s.Type == transaction.TypePurchase {
		txn = transaction.NewPurchase(s.VehicleNo, *s.FarmerID, *s.ProductID)
	} else {
		txn = transaction.NewSale(s.VehicleNo, *s.ManufacturerID, *s.ProductID)
		if len(s.SelectedReceiptIDs) == 0 {
			return nil, apperror.NewInvalidInput("a sale needs at least one backing receipt")
		}
	}

	if err := txn.SetWeights(*s.GrossKg(), *s.TareKg()); err != nil {
		return nil, err
	}

	txn.BasePricePerKg = *s.BasePricePerKg
	txn.FinalPricePerKg = *s.FinalPricePerKg
	if err := txn.ApplyDeductions(s.Deductions); err != nil {
		return nil, err
	}

	txn.Status = transaction.StatusCompleted
	return txn, nil
}
