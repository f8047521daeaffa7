package invoicing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:invoicing_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.ShopProfile{},
		&models.Customer{},
		&models.Product{},
		&models.StockMovement{},
		&models.Invoice{},
		&models.InvoiceItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedInvoice(t *testing.T, db *gorm.DB, number string) models.Invoice {
	t.Helper()
	invoice := models.Invoice{
		Number:     number,
		TotalBase:  decimal.Zero,
		TotalTax:   decimal.Zero,
		TotalIncl:  decimal.Zero,
		AmountPaid: decimal.Zero,
	}
	if err := db.Create(&invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func TestRecalculateTwoLineInvoice(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	invoice := seedInvoice(t, db, "INV0001")

	items := []models.InvoiceItem{
		{
			InvoiceID:     invoice.ID,
			Description:   "Tea Pack",
			Qty:           decimal.NewFromInt(2),
			UnitPriceIncl: decimal.NewFromInt(105),
			TaxRate:       decimal.NewFromInt(5),
		},
		{
			InvoiceID:     invoice.ID,
			Description:   "Gift Basket",
			Qty:           decimal.NewFromInt(1),
			UnitPriceIncl: decimal.NewFromInt(210),
			TaxRate:       decimal.NewFromInt(5),
		},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	var recalced *models.Invoice
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		recalced, err = Recalculate(ctx, tx, invoice.ID)
		return err
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}

	if !recalced.TotalIncl.Equal(decimal.NewFromInt(420)) {
		t.Fatalf("expected total 420.00, got %s", recalced.TotalIncl)
	}
	if !recalced.TotalBase.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected base 400.00, got %s", recalced.TotalBase)
	}
	if !recalced.TotalTax.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected tax 20.00, got %s", recalced.TotalTax)
	}
}

func TestRecalculateEmptyInvoiceZeroesTotals(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	invoice := seedInvoice(t, db, "INV0002")
	invoice.TotalIncl = decimal.NewFromInt(99)
	if err := db.Save(&invoice).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		updated, err := Recalculate(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		if !updated.TotalIncl.IsZero() || !updated.TotalBase.IsZero() || !updated.TotalTax.IsZero() {
			t.Fatalf("expected zeroed totals, got %+v", updated)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
}

func TestRecalculateLineRoundingSumsExactly(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	invoice := seedInvoice(t, db, "INV0003")

	// 9.99 at 5%: unit base 9.51, rounded per line before summation
	item := models.InvoiceItem{
		InvoiceID:     invoice.ID,
		Description:   "Chewing Gum",
		Qty:           decimal.NewFromInt(3),
		UnitPriceIncl: decimal.NewFromFloat(9.99),
		TaxRate:       decimal.NewFromInt(5),
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		updated, err := Recalculate(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		if !updated.TotalIncl.Equal(decimal.NewFromFloat(29.97)) {
			t.Fatalf("expected 29.97, got %s", updated.TotalIncl)
		}
		if !updated.TotalBase.Equal(decimal.NewFromFloat(28.53)) {
			t.Fatalf("expected 28.53, got %s", updated.TotalBase)
		}
		if !updated.TotalTax.Equal(decimal.NewFromFloat(1.44)) {
			t.Fatalf("expected 1.44, got %s", updated.TotalTax)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
}

func TestRecalculateMissingInvoice(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := Recalculate(context.Background(), tx, 404)
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
