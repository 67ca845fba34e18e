// Package transaction_repo provides the PostgreSQL receipt repository.
package transaction_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/domain"
	"padihub/internal/domain/transaction"
	"padihub/internal/infrastructure/storage/postgres"
)

const tableName = "transactions"

// Repo implements transaction.Repository on PostgreSQL.
type Repo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

// Compile-time interface check.
var _ transaction.Repository = (*Repo)(nil)

// New creates a receipt repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[transaction.Transaction](),
	}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(r.selectCols...).From(tableName)
}

// Create inserts a new receipt using its "db" tags.
func (r *Repo) Create(ctx context.Context, txn *transaction.Transaction) error {
	data := postgres.StructToMap(txn)
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
	if _, err = querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", tableName, err)
	}

	return nil
}

// GetByID retrieves a receipt by ID.
func (r *Repo) GetByID(ctx context.Context, txnID id.ID) (*transaction.Transaction, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": txnID}).
		Limit(1)

	return r.findOne(ctx, q, txnID.String())
}

// GetByNumber retrieves a receipt by its human-facing number.
func (r *Repo) GetByNumber(ctx context.Context, number string) (*transaction.Transaction, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"number": number}).
		Limit(1)

	return r.findOne(ctx, q, number)
}

func (r *Repo) findOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*transaction.Transaction, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var txn transaction.Transaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &txn, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(tableName, key)
		}
		return nil, fmt.Errorf("get %s: %w", tableName, err)
	}

	return &txn, nil
}

// Update modifies an existing receipt with optimistic locking.
func (r *Repo) Update(ctx context.Context, txn *transaction.Transaction) error {
	data := postgres.StructToMap(txn)
	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	delete(data, "id")
	delete(data, "version")
	delete(data, "created_at")

	q := r.builder().
		Update(tableName).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": txn.ID}).
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
		return apperror.NewConcurrentModification(tableName, txn.ID.String())
	}

	txn.SetVersion(version + 1)
	return nil
}

// FindSiblingsByParent returns all split fragments sharing a parent,
// ordered by creation time.
func (r *Repo) FindSiblingsByParent(ctx context.Context, parentID id.ID) ([]*transaction.Transaction, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"parent_id": parentID}).
		OrderBy("created_at ASC")

	return r.findMany(ctx, q)
}

// FindCandidates returns completed, unsold purchase receipts eligible to
// back a sale, oldest weighing first.
func (r *Repo) FindCandidates(ctx context.Context, filter transaction.CandidateFilter) ([]*transaction.Transaction, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"type": transaction.TypePurchase}).
		Where(squirrel.Eq{"status": transaction.StatusCompleted}).
		Where(squirrel.Eq{"sale_id": nil}).
		Where(squirrel.Eq{"deletion_mark": false})

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.FarmerID != nil {
		q = q.Where(squirrel.Eq{"farmer_id": *filter.FarmerID})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"vehicle_no": pattern},
		})
	}

	q = q.OrderBy("date ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	return r.findMany(ctx, q)
}

func (r *Repo) findMany(ctx context.Context, q squirrel.SelectBuilder) ([]*transaction.Transaction, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*transaction.Transaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", tableName, err)
	}

	return items, nil
}

// List retrieves receipts with filtering and pagination.
func (r *Repo) List(ctx context.Context, filter transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	result := domain.ListResult[*transaction.Transaction]{
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
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.PaymentStatus != nil {
		q = q.Where(squirrel.Eq{"payment_status": *filter.PaymentStatus})
	}
	if filter.FarmerID != nil {
		q = q.Where(squirrel.Eq{"farmer_id": *filter.FarmerID})
	}
	if filter.SaleID != nil {
		q = q.Where(squirrel.Eq{"sale_id": *filter.SaleID})
	}
	if filter.VehicleNo != "" {
		q = q.Where(squirrel.Eq{"vehicle_no": filter.VehicleNo})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.Lt{"date": *filter.DateTo})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": pattern},
			squirrel.ILike{"vehicle_no": pattern},
		})
	}

	// Count total before pagination.
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

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
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

func (r *Repo) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(r.selectCols))
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}

	if orderBy == "" {
		return "date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy).
			WithDetail("field", field)
	}

	return field + " " + direction, nil
}
