// Package bulk applies a deduction preset across many receipts at once,
// typically at season close when final moisture rates are settled.
package bulk

import (
	"context"

	"padihub/internal/core/id"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/transaction"
	"padihub/pkg/logger"
)

// Progress reports per-receipt outcomes during a bulk run.
// A nil callback is valid.
type Progress func(receiptID id.ID, number string, err error)

// Report summarizes a bulk propagation run.
type Report struct {
	// Selected is the size of the initial selection, before family expansion.
	Selected int
	// Processed is the number of distinct receipts recomputed (selection
	// plus discovered family members, deduplicated).
	Processed int
	Updated   int
	Failed    int
	// FailedIDs lists receipts that could not be updated; the run continues
	// past failures so one bad record never blocks the batch.
	FailedIDs []id.ID
}

// Propagator recomputes deductions across receipt families.
type Propagator struct {
	receipts *transaction.Service
}

// NewPropagator creates a bulk propagator.
func NewPropagator(receipts *transaction.Service) *Propagator {
	return &Propagator{receipts: receipts}
}

// ApplyPreset applies the preset's deduction lines to every selected receipt
// and to every member of each selected receipt's split family, so fragments
// and their parent never diverge. Each receipt is processed at most once per
// run regardless of how many selection paths reach it, which also makes a
// re-run of the same selection deterministic.
func (p *Propagator) ApplyPreset(ctx context.Context, receiptIDs []id.ID, preset *deduction.Preset, progress Progress) (*Report, error) {
	report := &Report{Selected: len(receiptIDs)}
	processed := make(map[id.ID]struct{})

	for _, receiptID := range receiptIDs {
		family, err := p.receipts.GetFamily(ctx, receiptID)
		if err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, receiptID)
			if progress != nil {
				progress(receiptID, "", err)
			}
			continue
		}

		for _, member := range family {
			if _, seen := processed[member.ID]; seen {
				continue
			}
			processed[member.ID] = struct{}{}
			report.Processed++

			if member.Status == transaction.StatusCancelled {
				continue
			}

			_, err := p.receipts.UpdateDeductions(ctx, member.ID, preset.Deductions)
			if err != nil {
				report.Failed++
				report.FailedIDs = append(report.FailedIDs, member.ID)
			} else {
				report.Updated++
			}
			if progress != nil {
				progress(member.ID, member.Number, err)
			}
		}
	}

	logger.Info(ctx, "bulk deduction run finished",
		"preset", preset.Name,
		"selected", report.Selected,
		"processed", report.Processed,
		"updated", report.Updated,
		"failed", report.Failed)

	return report, nil
}
