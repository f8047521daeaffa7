package stock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestManualAdjustDefaultsReason(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)

	product := seedProduct(t, db, models.Product{
		Name: "Pens", SKU: "PEN-1",
		PriceInclTax: decimal.NewFromInt(10),
		TracksStock:  true,
		StockQty:     decimal.NewFromInt(100),
	})

	updated, err := svc.ManualAdjust(context.Background(), AdjustInput{
		ProductID: product.ID,
		Delta:     decimal.NewFromInt(-2),
	})
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if !updated.StockQty.Equal(decimal.NewFromInt(98)) {
		t.Fatalf("expected 98, got %s", updated.StockQty)
	}

	var movement models.StockMovement
	if err := db.First(&movement, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if movement.Reason != enums.MovementAdjustment {
		t.Fatalf("expected adjustment reason, got %s", movement.Reason)
	}
}

func TestManualAdjustRejectsSaleReason(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	product := seedProduct(t, db, models.Product{
		Name: "Tape", SKU: "TAP-1",
		PriceInclTax: decimal.NewFromInt(25),
		TracksStock:  true,
	})

	_, err := svc.ManualAdjust(context.Background(), AdjustInput{
		ProductID: product.ID,
		Delta:     decimal.NewFromInt(-1),
		Reason:    enums.MovementSale,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordPurchase(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	product := seedProduct(t, db, models.Product{
		Name: "Beans", SKU: "BEA-1",
		PriceInclTax: decimal.NewFromInt(120),
		CostPrice:    decimal.NewFromInt(95),
		TracksStock:  true,
	})

	cost := decimal.NewFromInt(92)
	ref := "PO-55"
	updated, err := svc.RecordPurchase(context.Background(), PurchaseInput{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(30),
		UnitCost:  &cost,
		Reference: &ref,
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if !updated.StockQty.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected 30 on hand, got %s", updated.StockQty)
	}

	var movement models.StockMovement
	if err := db.First(&movement, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if movement.Reason != enums.MovementPurchase {
		t.Fatalf("expected purchase reason, got %s", movement.Reason)
	}
	if movement.UnitCost == nil || !movement.UnitCost.Equal(cost) {
		t.Fatalf("expected supplier cost, got %v", movement.UnitCost)
	}

	_, err = svc.RecordPurchase(context.Background(), PurchaseInput{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(-5),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative qty, got %v", err)
	}
}

func TestListMovements(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)
	product := seedProduct(t, db, models.Product{
		Name: "Socks", SKU: "SOC-1",
		PriceInclTax: decimal.NewFromInt(99),
		TracksStock:  true,
	})

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordPurchase(context.Background(), PurchaseInput{
			ProductID: product.ID,
			Qty:       decimal.NewFromInt(int64(i + 1)),
		}); err != nil {
			t.Fatalf("seed purchase: %v", err)
		}
	}

	page, err := svc.ListMovements(context.Background(), MovementQuery{
		Pagination: pagination.Params{Limit: 2},
		ProductID:  &product.ID,
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Movements) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page.Movements))
	}
	if page.NextCursor == nil {
		t.Fatalf("expected next cursor")
	}

	page, err = svc.ListMovements(context.Background(), MovementQuery{
		Pagination: pagination.Params{Limit: 2, Cursor: *page.NextCursor},
		ProductID:  &product.ID,
	})
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if len(page.Movements) != 1 || page.NextCursor != nil {
		t.Fatalf("expected final page of 1, got %d rows", len(page.Movements))
	}

	bad := "restock"
	_, err = svc.ListMovements(context.Background(), MovementQuery{Reason: &bad})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManualAdjustCannotDropBelowZero(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)

	product := seedProduct(t, db, models.Product{
		Name: "Candles", SKU: "CAN-1",
		PriceInclTax: decimal.NewFromInt(30),
		TracksStock:  true,
		StockQty:     decimal.NewFromInt(5),
	})

	_, err := svc.ManualAdjust(context.Background(), AdjustInput{
		ProductID: product.ID,
		Delta:     decimal.NewFromInt(-100),
		Reason:    enums.MovementDamage,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if typed.Details() == nil {
		t.Fatal("expected available quantity in details")
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.StockQty.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("stock must be untouched, got %s", reloaded.StockQty)
	}

	var movements int64
	if err := db.Model(&models.StockMovement{}).Where("product_id = ?", product.ID).Count(&movements).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if movements != 0 {
		t.Fatalf("expected no movements, got %d", movements)
	}

	// dropping to exactly zero is still a valid correction
	updated, err := svc.ManualAdjust(context.Background(), AdjustInput{
		ProductID: product.ID,
		Delta:     decimal.NewFromInt(-5),
		Reason:    enums.MovementDamage,
	})
	if err != nil {
		t.Fatalf("adjust to zero failed: %v", err)
	}
	if !updated.StockQty.IsZero() {
		t.Fatalf("expected zero, got %s", updated.StockQty)
	}
}
