package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) models.Product {
	t.Helper()
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestAdjustTrackedProduct(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Name: "Sugar 1kg", SKU: "SUG-1",
		PriceInclTax: decimal.NewFromInt(45),
		CostPrice:    decimal.NewFromInt(38),
		TracksStock:  true,
		StockQty:     decimal.NewFromInt(20),
	})

	ref := "INV-0001"
	err := db.Transaction(func(tx *gorm.DB) error {
		updated, err := Adjust(ctx, tx, product.ID, decimal.NewFromInt(-3), enums.MovementSale, AdjustOptions{Reference: &ref})
		if err != nil {
			return err
		}
		if !updated.StockQty.Equal(decimal.NewFromInt(17)) {
			t.Fatalf("expected 17 on hand, got %s", updated.StockQty)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}

	var movements []models.StockMovement
	if err := db.Find(&movements, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected one movement, got %d", len(movements))
	}
	m := movements[0]
	if !m.QtyChange.Equal(decimal.NewFromInt(-3)) || m.Reason != enums.MovementSale {
		t.Fatalf("unexpected movement %+v", m)
	}
	if m.Reference == nil || *m.Reference != ref {
		t.Fatalf("expected invoice reference on movement")
	}
	if m.UnitCost != nil {
		t.Fatalf("outbound movement must not carry unit cost")
	}
}

func TestAdjustRecordsCostOnInbound(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Name: "Oil 1L", SKU: "OIL-1",
		PriceInclTax: decimal.NewFromInt(180),
		CostPrice:    decimal.NewFromInt(150),
		TracksStock:  true,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := Adjust(ctx, tx, product.ID, decimal.NewFromInt(12), enums.MovementPurchase, AdjustOptions{})
		return err
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}

	var movement models.StockMovement
	if err := db.First(&movement, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if movement.UnitCost == nil || !movement.UnitCost.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected cost price snapshot, got %v", movement.UnitCost)
	}

	override := decimal.NewFromInt(142)
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := Adjust(ctx, tx, product.ID, decimal.NewFromInt(5), enums.MovementPurchase, AdjustOptions{UnitCost: &override})
		return err
	})
	if err != nil {
		t.Fatalf("adjust with override: %v", err)
	}

	var movements []models.StockMovement
	if err := db.Order("id ASC").Find(&movements, "product_id = ?", product.ID).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected two movements, got %d", len(movements))
	}
	if movements[1].UnitCost == nil || !movements[1].UnitCost.Equal(override) {
		t.Fatalf("expected override cost, got %v", movements[1].UnitCost)
	}
}

func TestAdjustUntrackedProductIsNoOp(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Name: "Gift Wrap Service", SKU: "SRV-1",
		PriceInclTax: decimal.NewFromInt(20),
		TracksStock:  false,
		StockQty:     decimal.Zero,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		updated, err := Adjust(ctx, tx, product.ID, decimal.NewFromInt(-4), enums.MovementSale, AdjustOptions{})
		if err != nil {
			return err
		}
		if !updated.StockQty.IsZero() {
			t.Fatalf("untracked quantity must not change, got %s", updated.StockQty)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}

	var count int64
	if err := db.Model(&models.StockMovement{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("untracked adjustment must not record movements, found %d", count)
	}
}

func TestAdjustValidation(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	product := seedProduct(t, db, models.Product{
		Name: "Salt", SKU: "SAL-1",
		PriceInclTax: decimal.NewFromInt(15),
		TracksStock:  true,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := Adjust(ctx, tx, product.ID, decimal.Zero, enums.MovementAdjustment, AdjustOptions{})
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero delta, got %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := Adjust(ctx, tx, product.ID, decimal.NewFromInt(1), enums.MovementReason("restock"), AdjustOptions{})
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad reason, got %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := Adjust(ctx, tx, 9999, decimal.NewFromInt(1), enums.MovementAdjustment, AdjustOptions{})
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
