package deduction

import (
	"context"

	"github.com/shopspring/decimal"

	"padihub/internal/core/apperror"
)

// Result holds the outcome of a deduction calculation.
type Result struct {
	// TotalDeductionPercent is the uncapped sum of percentage points.
	// Callers may warn when it exceeds 100.
	TotalDeductionPercent decimal.Decimal

	// EffectiveWeightKg is the net weight after deduction, whole kilograms.
	EffectiveWeightKg decimal.Decimal

	// DeductedWeightKg = net - effective.
	DeductedWeightKg decimal.Decimal

	// TotalAmount = effective weight x final price, rounded to cents.
	TotalAmount decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeEffective derives effective weight and total amount from a net
// weight, an ordered deduction list and the final unit price.
//
// Effective weight is round-half-up to whole kilograms, clamped to
// [0, netWeightKg]; a total deduction of 100% or more floors it at zero.
// All arithmetic is exact decimal; repeated recomputation with identical
// inputs yields identical outputs.
//
// The only error raised is InvalidInputError, for negative weights,
// percentages or price.
func ComputeEffective(netWeightKg decimal.Decimal, deductions List, finalPricePerKg decimal.Decimal) (Result, error) {
	if netWeightKg.IsNegative() {
		return Result{}, apperror.NewInvalidInput("net weight must not be negative").
			WithDetail("net_kg", netWeightKg.String())
	}
	if finalPricePerKg.IsNegative() {
		return Result{}, apperror.NewInvalidInput("price must not be negative").
			WithDetail("price", finalPricePerKg.String())
	}
	for i, line := range deductions {
		if line.Percent.IsNegative() {
			return Result{}, apperror.NewInvalidInput("deduction percent must not be negative").
				WithDetail("line", i+1).
				WithDetail("name", line.Name)
		}
	}

	totalPercent := deductions.TotalPercent()

	var effective decimal.Decimal
	if totalPercent.GreaterThanOrEqual(hundred) {
		effective = decimal.Zero
	} else {
		retained := hundred.Sub(totalPercent).Div(hundred)
		// Round rounds half away from zero: half-up on the weight domain.
		effective = netWeightKg.Mul(retained).Round(0)
		if effective.IsNegative() {
			effective = decimal.Zero
		}
		if effective.GreaterThan(netWeightKg) {
			effective = netWeightKg
		}
	}

	return Result{
		TotalDeductionPercent: totalPercent,
		EffectiveWeightKg:     effective,
		DeductedWeightKg:      netWeightKg.Sub(effective),
		TotalAmount:           effective.Mul(finalPricePerKg).Round(2),
	}, nil
}

// PresetStore is a read-only view over the active season's named presets.
type PresetStore interface {
	// ActivePresets returns the deduction presets of the active season,
	// in their configured order.
	ActivePresets(ctx context.Context) ([]Preset, error)

	// PresetByName returns a named preset of the active season.
	// Returns NotFound if no such preset exists.
	PresetByName(ctx context.Context, name string) (Preset, error)
}
