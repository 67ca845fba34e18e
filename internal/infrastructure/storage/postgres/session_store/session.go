// Package session_store provides the PostgreSQL pending-session store.
// Durability is the point: a session row is what survives a process restart
// mid-weighing.
package session_store

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"padihub/internal/core/apperror"
	"padihub/internal/domain/weighing"
	"padihub/internal/infrastructure/storage/postgres"
)

const tableName = "weigh_sessions"

// Store implements weighing.Store on PostgreSQL.
type Store struct {
	txManager  *postgres.TxManager
	selectCols []string
}

// Compile-time interface check.
var _ weighing.Store = (*Store)(nil)

// New creates a session store.
func New(txManager *postgres.TxManager) *Store {
	return &Store{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[weighing.Session](),
	}
}

func (s *Store) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (s *Store) baseSelect() squirrel.SelectBuilder {
	return s.builder().Select(s.selectCols...).From(tableName)
}

// Upsert persists the session, merging over any existing record for the
// same vehicle number.
func (s *Store) Upsert(ctx context.Context, session *weighing.Session) error {
	data := postgres.StructToMap(session)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in session")
	}

	cols := make([]string, 0, len(s.selectCols))
	vals := make([]any, 0, len(s.selectCols))
	updates := make([]string, 0, len(s.selectCols))
	for _, col := range s.selectCols {
		val, ok := data[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		vals = append(vals, val)
		if col != "vehicle_no" && col != "created_at" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}

	q := s.builder().
		Insert(tableName).
		Columns(cols...).
		Values(vals...).
		Suffix("ON CONFLICT (vehicle_no) DO UPDATE SET " + joinUpdates(updates))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	querier := s.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", tableName, err)
	}

	return nil
}

func joinUpdates(updates []string) string {
	out := ""
	for i, u := range updates {
		if i > 0 {
			out += ", "
		}
		out += u
	}
	return out
}

// Get returns the session for a vehicle number.
func (s *Store) Get(ctx context.Context, vehicleNo string) (*weighing.Session, error) {
	q := s.baseSelect().
		Where(squirrel.Eq{"vehicle_no": vehicleNo}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var session weighing.Session
	querier := s.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &session, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("weighing session", vehicleNo)
		}
		return nil, fmt.Errorf("get %s: %w", tableName, err)
	}

	return &session, nil
}

// List returns sessions ordered by last activity, most recent first.
// Stage is derived, not stored, so stage filtering happens after the scan;
// session counts per center are small.
func (s *Store) List(ctx context.Context, stage *weighing.Stage) ([]*weighing.Session, error) {
	q := s.baseSelect().OrderBy("last_touched_at DESC")

	sessions, err := s.findMany(ctx, q)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return sessions, nil
	}

	filtered := sessions[:0]
	for _, sess := range sessions {
		if sess.Stage() == *stage {
			filtered = append(filtered, sess)
		}
	}
	return filtered, nil
}

// ListStale returns non-abandoned sessions with no activity inside the window.
func (s *Store) ListStale(ctx context.Context, window time.Duration) ([]*weighing.Session, error) {
	cutoff := time.Now().UTC().Add(-window)

	q := s.baseSelect().
		Where(squirrel.Eq{"abandoned": false}).
		Where(squirrel.Lt{"last_touched_at": cutoff}).
		OrderBy("last_touched_at ASC")

	return s.findMany(ctx, q)
}

func (s *Store) findMany(ctx context.Context, q squirrel.SelectBuilder) ([]*weighing.Session, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sessions []*weighing.Session
	querier := s.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &sessions, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", tableName, err)
	}

	return sessions, nil
}

// Remove deletes the session record.
func (s *Store) Remove(ctx context.Context, vehicleNo string) error {
	q := s.builder().
		Delete(tableName).
		Where(squirrel.Eq{"vehicle_no": vehicleNo})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", tableName, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("weighing session", vehicleNo)
	}

	return nil
}
