// Package season_repo provides the PostgreSQL season repository.
package season_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain"
	"padihub/internal/domain/season"
	"padihub/internal/infrastructure/storage/postgres"
)

const tableName = "seasons"

// Repo implements season.Repository on PostgreSQL.
type Repo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

// Compile-time interface check.
var _ season.Repository = (*Repo)(nil)

// New creates a season repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[season.Season](),
	}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(tableName)
}

// Create inserts a new season.
func (r *Repo) Create(ctx context.Context, s *season.Season) error {
	data := postgres.StructToMap(s)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	q := r.builder().
		Insert(tableName).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", tableName, err)
	}

	return nil
}

// GetByID retrieves a season by ID.
func (r *Repo) GetByID(ctx context.Context, seasonID id.ID) (*season.Season, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": seasonID}).
		Limit(1)

	return r.findOne(ctx, q, seasonID.String())
}

// GetActive returns the single active season.
func (r *Repo) GetActive(ctx context.Context) (*season.Season, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"active": true}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.findOne(ctx, q, "active")
}

func (r *Repo) findOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*season.Season, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s season.Season
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("season", key)
		}
		return nil, fmt.Errorf("get %s: %w", tableName, err)
	}

	return &s, nil
}

// Update persists changes with optimistic locking.
func (r *Repo) Update(ctx context.Context, s *season.Season) error {
	data := postgres.StructToMap(s)
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	delete(data, "id")
	delete(data, "version")

	q := r.builder().
		Update(tableName).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", tableName, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(tableName, s.ID.String())
	}

	s.SetVersion(version + 1)
	return nil
}

// List retrieves seasons with filtering and pagination.
func (r *Repo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*season.Season], error) {
	result := domain.ListResult[*season.Season]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	countQ := r.builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy := "start_date DESC"
	if filter.OrderBy != "" {
		field := strings.TrimPrefix(strings.TrimPrefix(filter.OrderBy, "-"), "+")
		valid := false
		for _, col := range r.selectCols {
			if col == field {
				valid = true
				break
			}
		}
		if !valid {
			return result, apperror.NewValidation("invalid orderBy").WithDetail("orderBy", filter.OrderBy)
		}
		if strings.HasPrefix(filter.OrderBy, "-") {
			orderBy = field + " DESC"
		} else {
			orderBy = field + " ASC"
		}
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	return result, nil
}
