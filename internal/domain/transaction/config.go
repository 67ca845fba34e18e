package transaction

import "padihub/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for receipts.
	// Receipts are financial documents, so numbers must be gapless.
	NumeratorStrategy = numerator.StrategyStrict
)
