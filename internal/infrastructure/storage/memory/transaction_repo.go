package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain"
	"padihub/internal/domain/transaction"
)

// TransactionRepo is an in-memory transaction.Repository.
type TransactionRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*transaction.Transaction
}

var _ transaction.Repository = (*TransactionRepo)(nil)

// NewTransactionRepo creates an empty repository.
func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{
		items: make(map[id.ID]*transaction.Transaction),
	}
}

func (r *TransactionRepo) clone(txn *transaction.Transaction) *transaction.Transaction {
	cp := *txn
	cp.Deductions = txn.Deductions.Clone()
	return &cp
}

// Create stores a new receipt.
func (r *TransactionRepo) Create(_ context.Context, txn *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[txn.ID]; exists {
		return apperror.NewConflict("receipt already exists").WithDetail("id", txn.ID.String())
	}
	r.items[txn.ID] = r.clone(txn)
	return nil
}

// GetByID retrieves a receipt.
func (r *TransactionRepo) GetByID(_ context.Context, txnID id.ID) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txn, ok := r.items[txnID]
	if !ok {
		return nil, apperror.NewNotFound("transactions", txnID.String())
	}
	return r.clone(txn), nil
}

// GetByNumber retrieves a receipt by number.
func (r *TransactionRepo) GetByNumber(_ context.Context, number string) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, txn := range r.items {
		if txn.Number == number {
			return r.clone(txn), nil
		}
	}
	return nil, apperror.NewNotFound("transactions", number)
}

// Update replaces a receipt with optimistic locking on Version.
func (r *TransactionRepo) Update(_ context.Context, txn *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[txn.ID]
	if !ok {
		return apperror.NewNotFound("transactions", txn.ID.String())
	}
	if current.Version != txn.Version {
		return apperror.NewConcurrentModification("transactions", txn.ID.String())
	}

	txn.SetVersion(txn.Version + 1)
	r.items[txn.ID] = r.clone(txn)
	return nil
}

// FindSiblingsByParent returns fragments sharing a parent, oldest first.
func (r *TransactionRepo) FindSiblingsByParent(_ context.Context, parentID id.ID) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*transaction.Transaction
	for _, txn := range r.items {
		if txn.ParentID != nil && *txn.ParentID == parentID {
			out = append(out, r.clone(txn))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// FindCandidates returns the unsold purchase pool, oldest weighing first.
func (r *TransactionRepo) FindCandidates(_ context.Context, filter transaction.CandidateFilter) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*transaction.Transaction
	for _, txn := range r.items {
		if txn.Type != transaction.TypePurchase || txn.Status != transaction.StatusCompleted {
			continue
		}
		if txn.SaleID != nil || txn.DeletionMark {
			continue
		}
		if filter.ProductID != nil && txn.ProductID != *filter.ProductID {
			continue
		}
		if filter.FarmerID != nil && (txn.FarmerID == nil || *txn.FarmerID != *filter.FarmerID) {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(txn.Number, filter.Search) &&
			!strings.Contains(txn.VehicleNo, filter.Search) {
			continue
		}
		out = append(out, r.clone(txn))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// List retrieves receipts with filtering and pagination.
func (r *TransactionRepo) List(_ context.Context, filter transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*transaction.Transaction
	for _, txn := range r.items {
		if !filter.IncludeDeleted && txn.DeletionMark {
			continue
		}
		if filter.Type != nil && txn.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && txn.Status != *filter.Status {
			continue
		}
		if filter.PaymentStatus != nil && txn.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		if filter.FarmerID != nil && (txn.FarmerID == nil || *txn.FarmerID != *filter.FarmerID) {
			continue
		}
		if filter.SaleID != nil && (txn.SaleID == nil || *txn.SaleID != *filter.SaleID) {
			continue
		}
		if filter.VehicleNo != "" && txn.VehicleNo != filter.VehicleNo {
			continue
		}
		if filter.DateFrom != nil && txn.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && !txn.Date.Before(*filter.DateTo) {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(txn.Number, filter.Search) &&
			!strings.Contains(txn.VehicleNo, filter.Search) {
			continue
		}
		matched = append(matched, r.clone(txn))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})

	result := domain.ListResult[*transaction.Transaction]{
		TotalCount: int64(len(matched)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	result.Items = matched

	return result, nil
}
