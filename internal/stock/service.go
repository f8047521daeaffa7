package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// Service exposes the manual stock operations behind the inventory screens.
type Service interface {
	ManualAdjust(ctx context.Context, input AdjustInput) (*models.Product, error)
	RecordPurchase(ctx context.Context, input PurchaseInput) (*models.Product, error)
	ListMovements(ctx context.Context, query MovementQuery) (*MovementPage, error)
}

// AdjustInput is a signed correction applied outside of a sale.
type AdjustInput struct {
	ProductID int64
	Delta     decimal.Decimal
	Reason    enums.MovementReason
	Reference *string
	Notes     *string
}

// PurchaseInput records incoming supplier stock.
type PurchaseInput struct {
	ProductID int64
	Qty       decimal.Decimal
	UnitCost  *decimal.Decimal
	Reference *string
	Notes     *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs a stock service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) ManualAdjust(ctx context.Context, input AdjustInput) (*models.Product, error) {
	reason := input.Reason
	if strings.TrimSpace(string(reason)) == "" {
		reason = enums.MovementAdjustment
	}
	if reason == enums.MovementSale {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale movements are posted by checkout, not manual adjustment")
	}

	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if input.Delta.IsNegative() {
			if err := ensureCoversDrop(ctx, tx, input.ProductID, input.Delta.Neg()); err != nil {
				return err
			}
		}
		adjusted, err := Adjust(ctx, tx, input.ProductID, input.Delta, reason, AdjustOptions{
			Reference: input.Reference,
			Notes:     input.Notes,
		})
		if err != nil {
			return err
		}
		product = adjusted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) RecordPurchase(ctx context.Context, input PurchaseInput) (*models.Product, error) {
	if !input.Qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase quantity must be positive")
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
	}

	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		adjusted, err := Adjust(ctx, tx, input.ProductID, input.Qty, enums.MovementPurchase, AdjustOptions{
			Reference: input.Reference,
			Notes:     input.Notes,
			UnitCost:  input.UnitCost,
		})
		if err != nil {
			return err
		}
		product = adjusted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) ListMovements(ctx context.Context, query MovementQuery) (*MovementPage, error) {
	if query.Reason != nil && !enums.MovementReason(*query.Reason).Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown movement reason").
			WithDetails(map[string]any{"reason": *query.Reason})
	}
	page, err := s.repo.ListMovements(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stock movements")
	}
	return page, nil
}

// ensureCoversDrop rejects manual corrections that would take a tracked
// product below zero on hand. Untracked products never block.
func ensureCoversDrop(ctx context.Context, tx *gorm.DB, productID int64, qty decimal.Decimal) error {
	product, err := lockProduct(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking product")
	}
	if !product.TracksStock {
		return nil
	}
	if product.StockQty.LessThan(qty) {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", product.Name)).
			WithDetails(map[string]any{
				"product":   product.Name,
				"available": product.StockQty.String(),
			})
	}
	return nil
}
