// Package split provides the receipt split and sale reconciliation engine.
//
// A sale's measured net weight must be backed by an exact total of purchase
// receipt weight. Receipts are discrete units, so the engine carves the last
// selected receipt into fragments when the running total would overshoot.
// Receipt selection itself is manual; the engine owns only the split.
package split

import (
	"context"

	"github.com/shopspring/decimal"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain/events"
	"padihub/internal/domain/transaction"
	"padihub/pkg/logger"
)

// Engine performs receipt splits and sale assembly.
type Engine struct {
	receipts *transaction.Service
	bus      *events.Bus
}

// NewEngine creates a split engine.
func NewEngine(receipts *transaction.Service, bus *events.Bus) *Engine {
	return &Engine{
		receipts: receipts,
		bus:      bus,
	}
}

// Fragments holds the two children produced by a split.
type Fragments struct {
	// Used is the fragment consumed by the sale (status sold).
	Used *transaction.Transaction
	// Remainder re-enters the unsold candidate pool (status completed).
	Remainder *transaction.Transaction
}

// Assembly is the outcome of backing a sale with purchase receipts.
type Assembly struct {
	Sale *transaction.Transaction
	// Used lists the receipts (or fragments) consumed, in selection order.
	Used []*transaction.Transaction
	// SplitCount is the number of splits performed (0 or 1 per assembly).
	SplitCount int
}

// Split divides one receipt into a retained fragment and a remainder.
//
// The original receipt is marked sold and kept as the audit anchor; it is
// never deleted. Splitting an already superseded receipt raises
// AlreadySplitError and produces no new records.
func (e *Engine) Split(ctx context.Context, parentID id.ID, retainKg decimal.Decimal) (*Fragments, error) {
	parent, err := e.receipts.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return e.split(ctx, parent, retainKg, nil)
}

func (e *Engine) split(ctx context.Context, parent *transaction.Transaction, retainKg decimal.Decimal, saleID *id.ID) (*Fragments, error) {
	if err := parent.CanSplit(); err != nil {
		return nil, err
	}

	if !retainKg.IsPositive() || retainKg.GreaterThanOrEqual(parent.NetWeightKg) {
		return nil, apperror.NewInvalidInput("retained weight must be between zero and the receipt net weight").
			WithDetail("retain_kg", retainKg.String()).
			WithDetail("net_kg", parent.NetWeightKg.String())
	}

	used, err := e.fragment(ctx, parent, retainKg)
	if err != nil {
		return nil, err
	}
	used.Status = transaction.StatusSold
	used.SaleID = saleID

	remainder, err := e.fragment(ctx, parent, parent.NetWeightKg.Sub(retainKg))
	if err != nil {
		return nil, err
	}
	remainder.Status = transaction.StatusCompleted

	// Child creates and the parent mark are sequential repository calls, not
	// one atomic commit. A failure after the first create leaves a status
	// inconsistency that must be surfaced, never silently retried.
	if err := e.receipts.Create(ctx, used); err != nil {
		return nil, err
	}
	if err := e.receipts.Create(ctx, remainder); err != nil {
		return nil, apperror.NewSplitInconsistent(parent.ID.String()).WithCause(err)
	}

	parent.Status = transaction.StatusSold
	if err := e.receipts.Repo().Update(ctx, parent); err != nil {
		return nil, apperror.NewSplitInconsistent(parent.ID.String()).WithCause(err)
	}

	logger.Info(ctx, "receipt split",
		"parent", parent.Number,
		"retained_kg", retainKg,
		"remainder_kg", remainder.NetWeightKg)

	return &Fragments{Used: used, Remainder: remainder}, nil
}

// fragment builds a child receipt carrying netKg of the parent's weight.
// Farmer, product, pricing and deduction configuration are copied; the
// financials are recomputed, not scaled.
func (e *Engine) fragment(ctx context.Context, parent *transaction.Transaction, netKg decimal.Decimal) (*transaction.Transaction, error) {
	child := transaction.NewPurchase(parent.VehicleNo, *parent.FarmerID, parent.ProductID)
	child.ParentID = &parent.ID
	child.Date = parent.Date
	child.BasePricePerKg = parent.BasePricePerKg
	child.FinalPricePerKg = parent.FinalPricePerKg

	if err := child.SetWeights(netKg, decimal.Zero); err != nil {
		return nil, err
	}
	if err := child.ApplyDeductions(parent.Deductions); err != nil {
		return nil, err
	}
	// Fragment payment state follows the parent, not the deduction total:
	// the physical paddy was already settled or not as a whole.
	child.PaymentStatus = parent.PaymentStatus
	return child, nil
}

// AssembleSale backs a sale with the given purchase receipts, in selection
// order. When the running total would exceed the sale's net weight the
// last added receipt is split down to the exact remainder and its excess
// returns to the pool. Trimming always targets the last receipt: earlier
// selections are already confirmed on screen when the overshoot appears.
func (e *Engine) AssembleSale(ctx context.Context, sale *transaction.Transaction, receiptIDs []id.ID) (*Assembly, error) {
	if sale.Type != transaction.TypeSale {
		return nil, apperror.NewInvalidInput("assembly target must be a sale receipt")
	}
	if len(receiptIDs) == 0 {
		return nil, apperror.NewInvalidInput("at least one receipt must be selected")
	}

	target := sale.NetWeightKg
	running := decimal.Zero
	assembly := &Assembly{Sale: sale}

	for _, receiptID := range receiptIDs {
		remaining := target.Sub(running)
		if !remaining.IsPositive() {
			return nil, apperror.NewInvalidInput("selected receipts exceed the required weight").
				WithDetail("target_kg", target.String())
		}

		receipt, err := e.receipts.GetByID(ctx, receiptID)
		if err != nil {
			return nil, err
		}
		if err := receipt.CanSplit(); err != nil {
			return nil, err
		}

		if receipt.NetWeightKg.LessThanOrEqual(remaining) {
			// Consumed whole.
			receipt.Status = transaction.StatusSold
			receipt.SaleID = &sale.ID
			if err := e.receipts.Repo().Update(ctx, receipt); err != nil {
				return nil, apperror.NewPersistence("mark sold", err)
			}
			running = running.Add(receipt.NetWeightKg)
			assembly.Used = append(assembly.Used, receipt)
			continue
		}

		// Overshoot: trim this receipt down to the exact remainder.
		fragments, err := e.split(ctx, receipt, remaining, &sale.ID)
		if err != nil {
			return nil, err
		}
		running = running.Add(fragments.Used.NetWeightKg)
		assembly.Used = append(assembly.Used, fragments.Used)
		assembly.SplitCount++
	}

	if !running.Equal(target) {
		return nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"selected receipts do not cover the required weight",
		).WithDetail("target_kg", target.String()).WithDetail("covered_kg", running.String())
	}

	if e.bus != nil {
		usedIDs := make([]id.ID, len(assembly.Used))
		for i, u := range assembly.Used {
			usedIDs[i] = u.ID
		}
		_ = e.bus.PublishSaleAssembled(ctx, events.SaleAssembled{
			SaleID:       sale.ID,
			ReceiptIDs:   usedIDs,
			SplitCreated: assembly.SplitCount,
		})
	}

	logger.Info(ctx, "sale assembled",
		"sale", sale.Number,
		"receipts", len(assembly.Used),
		"splits", assembly.SplitCount)

	return assembly, nil
}
