// Package memory provides in-memory storage implementations for tests and
// single-process tooling. They honor the same contracts as the PostgreSQL
// implementations, including optimistic locking and NotFound semantics.
package memory

import (
	"context"

	"padihub/internal/core/tx"
)

// TxManager satisfies tx.Manager without transactional semantics: fn runs
// directly on the caller's context. Good enough for in-memory stores whose
// operations are individually atomic.
type TxManager struct{}

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// NewTxManager creates a pass-through transaction manager.
func NewTxManager() *TxManager {
	return &TxManager{}
}

// RunInTransaction executes fn directly.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ReadOnly executes fn directly.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
