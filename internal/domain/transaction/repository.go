// Package transaction provides the receipt repository contract.
package transaction

import (
	"context"
	"time"

	"padihub/internal/core/id"
	"padihub/internal/domain"
)

// Repository defines operations for weighing receipts.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, txnID id.ID) (*Transaction, error)
	GetByNumber(ctx context.Context, number string) (*Transaction, error)
	Update(ctx context.Context, txn *Transaction) error

	// FindSiblingsByParent returns all split fragments sharing a parent,
	// ordered by creation time.
	FindSiblingsByParent(ctx context.Context, parentID id.ID) ([]*Transaction, error)

	// FindCandidates returns completed, unsold, unassigned purchase
	// receipts eligible to back a sale.
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]*Transaction, error)

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error)
}

// ListFilter for filtering receipts.
type ListFilter struct {
	domain.ListFilter

	Type          *Type
	Status        *Status
	PaymentStatus *PaymentStatus
	FarmerID      *id.ID
	SaleID        *id.ID
	VehicleNo     string
	DateFrom      *time.Time
	DateTo        *time.Time
}

// CandidateFilter narrows the unsold purchase receipt pool.
type CandidateFilter struct {
	ProductID *id.ID
	FarmerID  *id.ID
	Search    string
	Limit     int
}
