package invoicing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/money"
)

// Recalculate recomputes the invoice totals from its items inside the
// caller's transaction. Each line is rounded before summation, so the stored
// totals always equal the sum of the rounded line amounts. Call it after
// every item insert, update, or delete.
func Recalculate(ctx context.Context, tx *gorm.DB, invoiceID int64) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.WithContext(ctx).First(&invoice, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice")
	}

	var items []models.InvoiceItem
	if err := tx.WithContext(ctx).Find(&items, "invoice_id = ?", invoiceID).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoice items")
	}

	totalBase, totalTax, totalIncl := decimal.Zero, decimal.Zero, decimal.Zero
	for _, item := range items {
		line := money.ComputeLine(item.UnitPriceIncl, item.TaxRate, item.Qty)
		totalBase = totalBase.Add(line.BaseAmount)
		totalTax = totalTax.Add(line.TaxAmount)
		totalIncl = totalIncl.Add(line.TotalAmount)
	}

	invoice.TotalBase = totalBase
	invoice.TotalTax = totalTax
	invoice.TotalIncl = totalIncl
	if err := tx.WithContext(ctx).Save(&invoice).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving invoice totals")
	}

	invoice.Items = items
	return &invoice, nil
}
