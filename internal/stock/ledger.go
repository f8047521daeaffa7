// Package stock maintains per-product quantities and the append-only
// movement ledger behind them.
package stock

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// AdjustOptions carries the optional movement metadata.
type AdjustOptions struct {
	Reference *string
	Notes     *string
	// UnitCost overrides the product's cost price on inbound movements,
	// e.g. a purchase recorded at the supplier's actual rate.
	UnitCost *decimal.Decimal
}

// Adjust applies a signed quantity delta to the product inside the caller's
// transaction and appends one movement record. Products that do not track
// stock are left untouched and produce no movement. Availability is the
// caller's concern; the ledger never rejects a delta.
func Adjust(ctx context.Context, tx *gorm.DB, productID int64, delta decimal.Decimal, reason enums.MovementReason, opts AdjustOptions) (*models.Product, error) {
	if !reason.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown movement reason").
			WithDetails(map[string]any{"reason": string(reason)})
	}
	if delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity delta cannot be zero")
	}

	product, err := lockProduct(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking product")
	}

	if !product.TracksStock {
		return product, nil
	}

	product.StockQty = product.StockQty.Add(delta)
	if err := tx.WithContext(ctx).Save(product).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving stock quantity")
	}

	movement := models.StockMovement{
		ProductID: product.ID,
		QtyChange: delta,
		Reason:    reason,
		Reference: opts.Reference,
		Notes:     opts.Notes,
	}
	if delta.IsPositive() {
		cost := product.CostPrice
		if opts.UnitCost != nil {
			cost = *opts.UnitCost
		}
		movement.UnitCost = &cost
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording stock movement")
	}

	return product, nil
}

func lockProduct(ctx context.Context, tx *gorm.DB, productID int64) (*models.Product, error) {
	var product models.Product
	qb := tx.WithContext(ctx)
	if qb.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := qb.First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
