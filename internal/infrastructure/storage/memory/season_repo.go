package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain"
	"padihub/internal/domain/season"
)

// SeasonRepo is an in-memory season.Repository.
type SeasonRepo struct {
	mu    sync.RWMutex
	items map[id.ID]*season.Season
}

var _ season.Repository = (*SeasonRepo)(nil)

// NewSeasonRepo creates an empty repository.
func NewSeasonRepo() *SeasonRepo {
	return &SeasonRepo{
		items: make(map[id.ID]*season.Season),
	}
}

func (r *SeasonRepo) clone(s *season.Season) *season.Season {
	cp := *s
	cp.Presets = append(season.PresetList(nil), s.Presets...)
	return &cp
}

// Create stores a new season.
func (r *SeasonRepo) Create(_ context.Context, s *season.Season) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[s.ID]; exists {
		return apperror.NewConflict("season already exists").WithDetail("id", s.ID.String())
	}
	r.items[s.ID] = r.clone(s)
	return nil
}

// GetByID retrieves a season.
func (r *SeasonRepo) GetByID(_ context.Context, seasonID id.ID) (*season.Season, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[seasonID]
	if !ok {
		return nil, apperror.NewNotFound("season", seasonID.String())
	}
	return r.clone(s), nil
}

// GetActive returns the single active season.
func (r *SeasonRepo) GetActive(_ context.Context) (*season.Season, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.items {
		if s.Active && !s.DeletionMark {
			return r.clone(s), nil
		}
	}
	return nil, apperror.NewNotFound("season", "active")
}

// Update replaces a season with optimistic locking on Version.
func (r *SeasonRepo) Update(_ context.Context, s *season.Season) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[s.ID]
	if !ok {
		return apperror.NewNotFound("season", s.ID.String())
	}
	if current.Version != s.Version {
		return apperror.NewConcurrentModification("seasons", s.ID.String())
	}

	s.SetVersion(s.Version + 1)
	r.items[s.ID] = r.clone(s)
	return nil
}

// List retrieves seasons with filtering and pagination.
func (r *SeasonRepo) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[*season.Season], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*season.Season
	for _, s := range r.items {
		if !filter.IncludeDeleted && s.DeletionMark {
			continue
		}
		if filter.Search != "" && !strings.Contains(s.Name, filter.Search) {
			continue
		}
		matched = append(matched, r.clone(s))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartDate.After(matched[j].StartDate)
	})

	result := domain.ListResult[*season.Season]{
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
