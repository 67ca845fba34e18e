package season

import (
	"context"

	"padihub/internal/core/id"
	"padihub/internal/domain"
)

// Repository persists seasons.
type Repository interface {
	Create(ctx context.Context, season *Season) error
	GetByID(ctx context.Context, seasonID id.ID) (*Season, error)

	// GetActive returns the single active season, or NotFound.
	GetActive(ctx context.Context) (*Season, error)

	// Update persists changes with optimistic locking on Version.
	Update(ctx context.Context, season *Season) error

	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Season], error)
}
