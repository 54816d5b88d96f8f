package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/actor"
	"github.com/souqline/souqline-backend/pkg/db/models"
	apperrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/logger"
	"github.com/souqline/souqline-backend/pkg/metrics"
)

// Well-known ledger reasons. Free-form reasons are allowed for manual
// adjustments.
const (
	ReasonOrderPlaced    = "order_placed"
	ReasonOrderCancelled = "order_cancelled"
	ReasonManualAdjust   = "manual_adjustment"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DebitRequest asks for quantity units of a product, or of one of its
// variants when VariantID is set.
type DebitRequest struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// AppliedDebit records one successfully applied stock decrement.
type AppliedDebit struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// Service mutates stock and keeps the append-only inventory log. Every
// mutation writes a log row in the same transaction as the stock change.
type Service interface {
	// Debit applies the requested decrements one item at a time. When some
	// items cannot be satisfied it returns the subset that was applied
	// together with a partial-application error naming the failures.
	Debit(ctx context.Context, act actor.Actor, branchID uuid.UUID, reason string, requests []DebitRequest) ([]AppliedDebit, error)
	// Credit restores previously debited stock, typically on cancellation.
	Credit(ctx context.Context, act actor.Actor, branchID uuid.UUID, reason string, applied []AppliedDebit) error
	// Adjust applies a manual stock delta with a free-form reason.
	Adjust(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID, variantID *uuid.UUID, delta int, reason string) error
	ListLogs(ctx context.Context, act actor.Actor, branchID uuid.UUID, productID *uuid.UUID, limit int) ([]models.InventoryLog, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.CoreMetrics
}

// NewService builds the inventory service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, m *metrics.CoreMetrics) (Service, error) {
	if repo == nil {
		return nil, errors.New("inventory: repository is required")
	}
	if tx == nil {
		return nil, errors.New("inventory: transaction runner is required")
	}
	if logg == nil {
		return nil, errors.New("inventory: logger is required")
	}
	return &service{repo: repo, tx: tx, logg: logg, metrics: m}, nil
}

func (s *service) Debit(ctx context.Context, act actor.Actor, branchID uuid.UUID, reason string, requests []DebitRequest) ([]AppliedDebit, error) {
	if len(requests) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "no items to debit")
	}
	for _, req := range requests {
		if req.Quantity <= 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "debit quantity must be positive")
		}
	}

	var (
		applied  []AppliedDebit
		failures error
		rejected []map[string]any
	)
	for _, req := range requests {
		err := s.debitOne(ctx, act, branchID, reason, req)
		if err == nil {
			applied = append(applied, AppliedDebit(req))
			continue
		}
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.metrics.IncStockRejections()
			failures = multierr.Append(failures, fmt.Errorf("product %s: %w", req.ProductID, err))
			rejected = append(rejected, map[string]any{
				"productId": req.ProductID.String(),
				"quantity":  req.Quantity,
			})
			continue
		}
		// Infrastructure failure: stop here, report what went through.
		failures = multierr.Append(failures, err)
		return applied, apperrors.Wrap(apperrors.CodeInternal, failures, "inventory debit aborted")
	}

	if failures != nil {
		s.metrics.IncPartialDebits()
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"applied":  len(applied),
			"rejected": len(rejected),
		}), "inventory debit partially applied")
		return applied, apperrors.Wrap(apperrors.CodePartialApplication, failures, "some items could not be debited").
			WithDetails(map[string]any{"rejected": rejected})
	}
	return applied, nil
}

// debitOne runs a single item's decrement, stock sync and log append in
// one short transaction.
func (s *service) debitOne(ctx context.Context, act actor.Actor, branchID uuid.UUID, reason string, req DebitRequest) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if req.VariantID != nil {
			ok, err := repo.DecrementVariantStock(ctx, *req.VariantID, req.Quantity)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "failed to decrement variant stock")
			}
			if !ok {
				return apperrors.New(apperrors.CodeConflict, "insufficient stock for variant")
			}
			if err := repo.SyncProductStock(ctx, req.ProductID); err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "failed to sync product stock")
			}
		} else {
			ok, err := repo.DecrementProductStock(ctx, req.ProductID, req.Quantity)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "failed to decrement product stock")
			}
			if !ok {
				return apperrors.New(apperrors.CodeConflict, "insufficient stock for product")
			}
		}

		return s.appendLog(ctx, repo, act, branchID, req.ProductID, req.VariantID, -req.Quantity, reason)
	})
}

func (s *service) Credit(ctx context.Context, act actor.Actor, branchID uuid.UUID, reason string, applied []AppliedDebit) error {
	for _, item := range applied {
		if item.Quantity <= 0 {
			return apperrors.New(apperrors.CodeValidation, "credit quantity must be positive")
		}
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if item.VariantID != nil {
				if err := repo.IncrementVariantStock(ctx, *item.VariantID, item.Quantity); err != nil {
					return err
				}
				if err := repo.SyncProductStock(ctx, item.ProductID); err != nil {
					return err
				}
			} else if err := repo.IncrementProductStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			return s.appendLog(ctx, repo, act, branchID, item.ProductID, item.VariantID, item.Quantity, reason)
		})
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "failed to credit stock")
		}
	}
	return nil
}

func (s *service) Adjust(ctx context.Context, act actor.Actor, branchID, productID uuid.UUID, variantID *uuid.UUID, delta int, reason string) error {
	if !act.CanManageBranch(branchID) {
		return apperrors.New(apperrors.CodeForbidden, "not allowed to adjust stock for this branch")
	}
	if delta == 0 {
		return apperrors.New(apperrors.CodeValidation, "adjustment delta cannot be zero")
	}
	if strings.TrimSpace(reason) == "" {
		reason = ReasonManualAdjust
	}

	if delta > 0 {
		return s.Credit(ctx, act, branchID, reason, []AppliedDebit{{
			ProductID: productID,
			VariantID: variantID,
			Quantity:  delta,
		}})
	}

	_, err := s.Debit(ctx, act, branchID, reason, []DebitRequest{{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  -delta,
	}})
	if apperrors.HasCode(err, apperrors.CodePartialApplication) {
		// A single-item debit either applies fully or not at all.
		return apperrors.New(apperrors.CodeConflict, "insufficient stock for adjustment")
	}
	return err
}

func (s *service) ListLogs(ctx context.Context, act actor.Actor, branchID uuid.UUID, productID *uuid.UUID, limit int) ([]models.InventoryLog, error) {
	if !act.CanManageBranch(branchID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to view the inventory log for this branch")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := s.repo.ListLogs(ctx, branchID, productID, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list inventory logs")
	}
	return logs, nil
}

func (s *service) appendLog(ctx context.Context, repo Repository, act actor.Actor, branchID, productID uuid.UUID, variantID *uuid.UUID, delta int, reason string) error {
	resulting, err := s.resultingStock(ctx, repo, productID, variantID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to read resulting stock")
	}
	entry := &models.InventoryLog{
		ProductID:      productID,
		VariantID:      variantID,
		BranchID:       branchID,
		Delta:          delta,
		ResultingStock: resulting,
		Reason:         reason,
		ActorID:        act.UserID,
		ActorRole:      act.Role,
	}
	if err := repo.AppendLog(ctx, entry); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to append inventory log")
	}
	return nil
}

func (s *service) resultingStock(ctx context.Context, repo Repository, productID uuid.UUID, variantID *uuid.UUID) (int, error) {
	if variantID != nil {
		variant, err := repo.FindVariant(ctx, *variantID)
		if err != nil {
			return 0, err
		}
		return variant.Stock, nil
	}
	product, err := repo.FindProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}
