package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

var minItemQty = decimal.NewFromFloat(0.001)

// Service exposes invoice browsing and line item maintenance.
type Service interface {
	GetInvoice(ctx context.Context, invoiceID int64) (*models.Invoice, error)
	ListInvoices(ctx context.Context, query ListQuery) (*ListResult, error)
	UpdateItemQty(ctx context.Context, invoiceID, itemID int64, newQty decimal.Decimal) (*models.Invoice, error)
	DeleteItem(ctx context.Context, invoiceID, itemID int64) (*models.Invoice, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo *Repository
	tx   txRunner
}

// NewService constructs an invoicing service instance.
func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoicing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) GetInvoice(ctx context.Context, invoiceID int64) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
	}
	return invoice, nil
}

func (s *service) ListInvoices(ctx context.Context, query ListQuery) (*ListResult, error) {
	if query.Status != nil && !enums.PaymentStatus(*query.Status).Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
			WithDetails(map[string]any{"status": *query.Status})
	}
	result, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing invoices")
	}
	return result, nil
}

// UpdateItemQty changes a line quantity and posts the compensating sale
// movement for the difference. Increasing the quantity is availability
// checked the same way checkout is, so an edit cannot oversell stock.
func (s *service) UpdateItemQty(ctx context.Context, invoiceID, itemID int64, newQty decimal.Decimal) (*models.Invoice, error) {
	if newQty.LessThan(minItemQty) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 0.001")
	}

	var updated *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := loadInvoiceForEdit(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, invoiceID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice item")
		}

		oldQty := item.Qty
		if oldQty.Equal(newQty) {
			updated = invoice
			return nil
		}

		if item.ProductID != nil {
			delta := oldQty.Sub(newQty)
			if delta.IsNegative() {
				if err := ensureAvailable(ctx, tx, *item.ProductID, newQty.Sub(oldQty)); err != nil {
					return err
				}
			}
			ref := invoice.Number
			if _, err := stock.Adjust(ctx, tx, *item.ProductID, delta, enums.MovementSale, stock.AdjustOptions{Reference: &ref}); err != nil {
				return err
			}
		}

		item.Qty = newQty
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving invoice item")
		}

		invoice, err = Recalculate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes a line and posts one return movement restoring the full
// quantity to stock.
func (s *service) DeleteItem(ctx context.Context, invoiceID, itemID int64) (*models.Invoice, error) {
	var updated *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := loadInvoiceForEdit(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, invoiceID, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice item")
		}

		if item.ProductID != nil {
			ref := invoice.Number
			if _, err := stock.Adjust(ctx, tx, *item.ProductID, item.Qty, enums.MovementReturn, stock.AdjustOptions{Reference: &ref}); err != nil {
				return err
			}
		}

		if err := repo.DeleteItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting invoice item")
		}

		invoice, err = Recalculate(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// loadInvoiceForEdit fetches the invoice and rejects edits once it has been
// settled or cancelled.
func loadInvoiceForEdit(ctx context.Context, tx *gorm.DB, invoiceID int64) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.WithContext(ctx).First(&invoice, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
	}
	if invoice.Status != enums.PaymentPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "only pending invoices can be edited").
			WithDetails(map[string]any{"status": string(invoice.Status)})
	}
	return &invoice, nil
}

// ensureAvailable verifies the product can cover an extra outflow of qty.
// Untracked and already-deleted products never block the edit.
func ensureAvailable(ctx context.Context, tx *gorm.DB, productID int64, qty decimal.Decimal) error {
	var product models.Product
	if err := tx.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
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
