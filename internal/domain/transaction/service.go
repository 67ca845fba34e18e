// Package transaction provides the receipt service.
package transaction

import (
	"context"
	"fmt"
	"time"

	"padihub/internal/core/apperror"
	"padihub/internal/core/id"
	"padihub/internal/core/numerator"
	"padihub/internal/core/tx"
	"padihub/internal/domain"
	"padihub/internal/domain/deduction"
	"padihub/internal/domain/events"
	"padihub/pkg/logger"
)

// AuditRecorder records receipt mutations for the audit trail.
// Recording is best-effort: a failed audit write never fails the operation.
type AuditRecorder interface {
	RecordChange(ctx context.Context, entityType string, entityID id.ID, action string, changes any) error
}

// Service provides business operations for weighing receipts.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	bus       *events.Bus
	audit     AuditRecorder // optional
}

// NewService creates a new receipt service.
func NewService(
	repo Repository,
	num numerator.Generator,
	txManager tx.Manager,
	bus *events.Bus,
	audit AuditRecorder,
) *Service {
	return &Service{
		repo:      repo,
		numerator: num,
		txManager: txManager,
		bus:       bus,
		audit:     audit,
	}
}

// Repo exposes the repository for collaborating engines (split, bulk).
func (s *Service) Repo() Repository {
	return s.repo
}

// Create validates, numbers and persists a new receipt.
// The receipt number is strictly sequential per type (PR-/SL- series).
func (s *Service) Create(ctx context.Context, txn *Transaction) error {
	if err := txn.Validate(ctx); err != nil {
		return err
	}

	if txn.Number == "" {
		cfg := numerator.DefaultConfig(txn.Type.NumeratorPrefix())
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		txn.Number = number
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, txn); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperror.NewPersistence("create", err)
	}

	s.recordAudit(ctx, txn.ID, "create", txn)

	logger.Info(ctx, "receipt created",
		"id", txn.ID,
		"number", txn.Number,
		"type", txn.Type)

	return nil
}

// GetByID retrieves a receipt.
func (s *Service) GetByID(ctx context.Context, txnID id.ID) (*Transaction, error) {
	return s.repo.GetByID(ctx, txnID)
}

// GetByNumber retrieves a receipt by its human-facing number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Transaction, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetFamily returns the full split family of a receipt: the parent plus all
// fragments sharing that parent. For an unsplit receipt the family is the
// receipt itself.
func (s *Service) GetFamily(ctx context.Context, txnID id.ID) ([]*Transaction, error) {
	txn, err := s.repo.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}

	parentID := txn.ID
	if txn.ParentID != nil {
		parentID = *txn.ParentID
	}

	parent, err := s.repo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	siblings, err := s.repo.FindSiblingsByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("find siblings: %w", err)
	}

	family := make([]*Transaction, 0, len(siblings)+1)
	family = append(family, parent)
	family = append(family, siblings...)
	return family, nil
}

// UpdateDeductions replaces a receipt's deduction configuration and
// recomputes its financials. Payment status follows the deduction total.
func (s *Service) UpdateDeductions(ctx context.Context, txnID id.ID, lines deduction.List) (*Transaction, error) {
	txn, err := s.repo.GetByID(ctx, txnID)
	if err != nil {
		return nil, err
	}

	if err := txn.ApplyDeductions(lines); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, txn); err != nil {
		return nil, apperror.NewPersistence("update", err)
	}

	s.recordAudit(ctx, txn.ID, "deductions", map[string]any{
		"deductions":     txn.Deductions,
		"total_percent":  txn.TotalDeductionPercent,
		"effective_kg":   txn.EffectiveWeightKg,
		"total_amount":   txn.TotalAmount,
		"payment_status": txn.PaymentStatus,
	})

	if s.bus != nil {
		_ = s.bus.PublishTransactionCompleted(ctx, events.TransactionCompleted{
			TransactionID: txn.ID,
			Number:        txn.Number,
			Type:          string(txn.Type),
		})
	}

	return txn, nil
}

// Cancel transitions a receipt to cancelled. Receipts are never deleted.
func (s *Service) Cancel(ctx context.Context, txnID id.ID) error {
	txn, err := s.repo.GetByID(ctx, txnID)
	if err != nil {
		return err
	}

	if err := txn.Cancel(); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, txn); err != nil {
		return apperror.NewPersistence("cancel", err)
	}

	s.recordAudit(ctx, txn.ID, "cancel", map[string]any{"status": txn.Status})

	logger.Info(ctx, "receipt cancelled", "id", txn.ID, "number", txn.Number)
	return nil
}

// List retrieves receipts with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error) {
	return s.repo.List(ctx, filter)
}

// Candidates returns the unsold purchase receipt pool for sale assembly.
func (s *Service) Candidates(ctx context.Context, filter CandidateFilter) ([]*Transaction, error) {
	return s.repo.FindCandidates(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, txnID id.ID, action string, changes any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordChange(ctx, "transaction", txnID, action, changes); err != nil {
		logger.Warn(ctx, "audit record failed", "id", txnID, "action", action, "error", err)
	}
}
