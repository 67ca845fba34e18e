package season

import (
	"context"
	"fmt"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/core/tx"
	"padihub/internal/domain"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/events"
	"padihub/pkg/logger"
)

// Service provides business operations for seasons and is the
// deduction.PresetStore backing the weighing wizard.
type Service struct {
	repo      Repository
	txManager tx.Manager
	bus       *events.Bus
}

// NewService creates a new season service.
func NewService(repo Repository, txManager tx.Manager, bus *events.Bus) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		bus:       bus,
	}
}

// Create validates and persists a new season.
func (s *Service) Create(ctx context.Context, season *Season) error {
	if err := season.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, season); err != nil {
		return apperror.NewPersistence("create season", err)
	}
	logger.Info(ctx, "season created", "id", season.ID, "name", season.Name)
	return nil
}

// GetByID retrieves a season.
func (s *Service) GetByID(ctx context.Context, seasonID id.ID) (*Season, error) {
	return s.repo.GetByID(ctx, seasonID)
}

// GetActive returns the active season.
func (s *Service) GetActive(ctx context.Context) (*Season, error) {
	return s.repo.GetActive(ctx)
}

// List retrieves seasons with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Season], error) {
	return s.repo.List(ctx, filter)
}

// Update validates and persists season changes, including its presets.
// Receipts keep the deduction copies they already carry; preset edits only
// affect future applications.
func (s *Service) Update(ctx context.Context, season *Season) error {
	if err := season.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, season); err != nil {
		return apperror.NewPersistence("update season", err)
	}
	return nil
}

// Activate switches the active season. The previously active season is
// deactivated in the same transaction so exactly one stays active.
func (s *Service) Activate(ctx context.Context, seasonID id.ID) error {
	season, err := s.repo.GetByID(ctx, seasonID)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetActive(ctx)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if current != nil && current.ID != season.ID {
			current.Active = false
			if err := s.repo.Update(ctx, current); err != nil {
				return fmt.Errorf("deactivate season %s: %w", current.ID, err)
			}
		}

		season.Active = true
		return s.repo.Update(ctx, season)
	})
	if err != nil {
		return apperror.NewPersistence("activate season", err)
	}

	if s.bus != nil {
		_ = s.bus.PublishSeasonChanged(ctx, events.SeasonChanged{
			SeasonID: season.ID,
			Name:     season.Name,
		})
	}

	logger.Info(ctx, "season activated", "id", season.ID, "name", season.Name)
	return nil
}

// --- deduction.PresetStore ---

// ActivePresets returns the active season's presets in configured order.
func (s *Service) ActivePresets(ctx context.Context) ([]deduction.Preset, error) {
	season, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return season.Presets, nil
}

// PresetByName returns a named preset of the active season.
func (s *Service) PresetByName(ctx context.Context, name string) (deduction.Preset, error) {
	season, err := s.repo.GetActive(ctx)
	if err != nil {
		return deduction.Preset{}, err
	}
	preset, ok := season.PresetByName(name)
	if !ok {
		return deduction.Preset{}, apperror.NewNotFound("preset", name)
	}
	return preset, nil
}
