// Package checkout turns a POS cart into a persisted invoice in one
// transaction: number assignment, line creation, availability checks, and
// stock movements either all land or none do.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tillpoint/tillpoint-backend/internal/invoicing"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
)

var minItemQty = decimal.NewFromFloat(0.001)

// CartItem is one line of the submitted cart. ProductID is optional; ad-hoc
// lines carry their own description and price. When a product resolves,
// description, price, and tax rate default from the catalog entry.
type CartItem struct {
	ProductID   *int64
	Description string
	Qty         decimal.Decimal
	UnitPrice   *decimal.Decimal
	TaxRate     *decimal.Decimal
}

// Input is a checkout request.
type Input struct {
	CustomerID   *int64
	CustomerName *string
	Notes        *string
	Items        []CartItem
}

// Result reports the created invoice.
type Result struct {
	InvoiceID     int64
	InvoiceNumber string
	Total         decimal.Decimal
}

// Service runs the checkout transaction.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// NewService constructs a checkout service instance.
func NewService(tx txRunner, logg *logger.Logger, m *metrics.CheckoutMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{tx: tx, logg: logg, metrics: m}, nil
}

// Checkout creates the invoice, its items, and the sale movements as one
// atomic unit. Any failure rolls everything back, including the number
// counter increment.
func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	started := time.Now()

	result, err := s.checkout(ctx, input)
	if err != nil {
		code := string(pkgerrors.CodeInternal)
		if typed := pkgerrors.As(err); typed != nil {
			code = string(typed.Code())
		}
		s.metrics.IncFailure(code)
		s.metrics.ObserveDuration("failure", time.Since(started))
		return nil, err
	}

	s.metrics.IncSuccess()
	s.metrics.ObserveDuration("success", time.Since(started))
	if s.logg != nil {
		ctx = s.logg.WithInvoiceNumber(ctx, result.InvoiceNumber)
		s.logg.Info(ctx, "checkout completed")
	}
	return result, nil
}

func (s *service) checkout(ctx context.Context, input Input) (*Result, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for i, item := range input.Items {
		if item.Qty.LessThan(minItemQty) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 0.001").
				WithDetails(map[string]any{"item": i})
		}
		if item.ProductID == nil && strings.TrimSpace(item.Description) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ad-hoc lines need a description").
				WithDetails(map[string]any{"item": i})
		}
		if item.ProductID == nil && item.UnitPrice == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ad-hoc lines need a unit price").
				WithDetails(map[string]any{"item": i})
		}
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := invoicing.NextNumber(ctx, tx)
		if err != nil {
			return err
		}

		defaultTaxRate, err := shopDefaultTaxRate(ctx, tx)
		if err != nil {
			return err
		}

		invoice := &models.Invoice{
			Number:       number,
			Date:         time.Now().UTC(),
			CustomerID:   input.CustomerID,
			CustomerName: normalizeOptional(input.CustomerName),
			Notes:        input.Notes,
			Status:       enums.PaymentPending,
			TotalBase:    decimal.Zero,
			TotalTax:     decimal.Zero,
			TotalIncl:    decimal.Zero,
			AmountPaid:   decimal.Zero,
		}
		if err := tx.WithContext(ctx).Create(invoice).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating invoice")
		}

		for _, cartItem := range input.Items {
			if err := s.addLine(ctx, tx, invoice, cartItem, defaultTaxRate); err != nil {
				return err
			}
		}

		recalced, err := invoicing.Recalculate(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}

		result = &Result{
			InvoiceID:     recalced.ID,
			InvoiceNumber: recalced.Number,
			Total:         recalced.TotalIncl,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// addLine resolves the optional product, enforces availability for tracked
// stock, creates the line, and posts the sale movement.
func (s *service) addLine(ctx context.Context, tx *gorm.DB, invoice *models.Invoice, cartItem CartItem, defaultTaxRate decimal.Decimal) error {
	var product *models.Product
	if cartItem.ProductID != nil {
		found, err := lockProduct(ctx, tx, *cartItem.ProductID)
		if err != nil {
			return err
		}
		// An unknown id degrades to an ad-hoc line rather than failing
		// the sale; the cashier already committed to the price shown.
		product = found
	}

	if product != nil && product.TracksStock && product.StockQty.LessThan(cartItem.Qty) {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %s", product.Name)).
			WithDetails(map[string]any{
				"product":   product.Name,
				"available": product.StockQty.String(),
			})
	}

	item := models.InvoiceItem{
		InvoiceID:   invoice.ID,
		Description: strings.TrimSpace(cartItem.Description),
		Qty:         cartItem.Qty,
	}
	if product != nil {
		item.ProductID = &product.ID
		if item.Description == "" {
			item.Description = product.Name
		}
	}
	if item.Description == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "line description is required")
	}

	switch {
	case cartItem.UnitPrice != nil:
		item.UnitPriceIncl = cartItem.UnitPrice.Round(2)
	case product != nil:
		item.UnitPriceIncl = product.PriceInclTax
	}
	if item.UnitPriceIncl.LessThan(decimal.NewFromFloat(0.01)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be at least 0.01")
	}

	switch {
	case cartItem.TaxRate != nil:
		if cartItem.TaxRate.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "tax rate cannot be negative")
		}
		item.TaxRate = *cartItem.TaxRate
	case product != nil:
		item.TaxRate = product.TaxRate
	default:
		item.TaxRate = defaultTaxRate
	}

	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating invoice item")
	}

	if product != nil && product.TracksStock {
		ref := invoice.Number
		if _, err := stock.Adjust(ctx, tx, product.ID, cartItem.Qty.Neg(), enums.MovementSale, stock.AdjustOptions{Reference: &ref}); err != nil {
			return err
		}
	}
	return nil
}

func lockProduct(ctx context.Context, tx *gorm.DB, productID int64) (*models.Product, error) {
	var product models.Product
	qb := tx.WithContext(ctx)
	if qb.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := qb.First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return &product, nil
}

func shopDefaultTaxRate(ctx context.Context, tx *gorm.DB) (decimal.Decimal, error) {
	var profile models.ShopProfile
	if err := tx.WithContext(ctx).First(&profile, "id = ?", models.ShopProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "shop profile not initialized")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop profile")
	}
	return profile.DefaultTaxRate, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
