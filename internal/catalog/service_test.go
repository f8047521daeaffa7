package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubProfile struct {
	rate decimal.Decimal
}

func (s stubProfile) DefaultTaxRate(context.Context) (decimal.Decimal, error) {
	return s.rate, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, stubProfile{rate: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestCreateProductDerivesCodes(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	collection := "Summer Tees"

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:         "Green Tea 250g",
		Collection:   &collection,
		PriceInclTax: decimal.NewFromFloat(105.00),
		TracksStock:  true,
		StockQty:     decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if product.SKU == "" || !strings.HasSuffix(product.SKU, "-0001") {
		t.Fatalf("expected derived sku ending in id, got %q", product.SKU)
	}
	if !strings.HasPrefix(product.SKU, "GRE-SU") {
		t.Fatalf("expected name+collection prefix, got %q", product.SKU)
	}
	if product.Barcode == nil || *product.Barcode != "200000000001" {
		t.Fatalf("expected derived barcode, got %v", product.Barcode)
	}
	if !product.TaxRate.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected default tax rate 5, got %s", product.TaxRate)
	}
}

func TestCreateProductKeepsExplicitCodes(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	sku := "CUSTOM-1"
	barcode := "8901234567890"
	rate := decimal.NewFromFloat(12)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:         "Imported Coffee",
		SKU:          &sku,
		Barcode:      &barcode,
		PriceInclTax: decimal.NewFromFloat(450),
		TaxRate:      &rate,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.SKU != sku {
		t.Fatalf("expected explicit sku kept, got %q", product.SKU)
	}
	if product.Barcode == nil || *product.Barcode != barcode {
		t.Fatalf("expected explicit barcode kept, got %v", product.Barcode)
	}
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:         "  ",
		PriceInclTax: decimal.NewFromInt(10),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{
		Name:         "Free Sample",
		PriceInclTax: decimal.Zero,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
}

func TestLookupPrefersBarcode(t *testing.T) {
	t.Parallel()
	service, conn := newTestService(t)

	barcode := "7001"
	seed := []models.Product{
		{Name: "Milk 1L", SKU: "MIL-1", Barcode: &barcode, PriceInclTax: decimal.NewFromInt(60), TaxRate: decimal.Zero, CostPrice: decimal.Zero, StockQty: decimal.Zero},
		{Name: "Milk Chocolate", SKU: "7001-X", PriceInclTax: decimal.NewFromInt(90), TaxRate: decimal.Zero, CostPrice: decimal.Zero, StockQty: decimal.Zero},
	}
	for i := range seed {
		if err := conn.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	result, err := service.Lookup(context.Background(), "7001")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if result.Product == nil || result.Product.Name != "Milk 1L" {
		t.Fatalf("expected exact barcode match to win, got %+v", result)
	}
}

func TestLookupCandidatesAndMisses(t *testing.T) {
	t.Parallel()
	service, conn := newTestService(t)

	seed := []models.Product{
		{Name: "Rice 1kg", SKU: "RIC-1", PriceInclTax: decimal.NewFromInt(80), TaxRate: decimal.Zero, CostPrice: decimal.Zero, StockQty: decimal.Zero},
		{Name: "Rice 5kg", SKU: "RIC-5", PriceInclTax: decimal.NewFromInt(390), TaxRate: decimal.Zero, CostPrice: decimal.Zero, StockQty: decimal.Zero},
		{Name: "Wheat Flour", SKU: "WHE-1", PriceInclTax: decimal.NewFromInt(55), TaxRate: decimal.Zero, CostPrice: decimal.Zero, StockQty: decimal.Zero},
	}
	for i := range seed {
		if err := conn.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	result, err := service.Lookup(context.Background(), "rice")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if result.Product != nil || len(result.Candidates) != 2 {
		t.Fatalf("expected two candidates, got %+v", result)
	}

	result, err = service.Lookup(context.Background(), "wheat")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if result.Product == nil || result.Product.SKU != "WHE-1" {
		t.Fatalf("expected single match resolution, got %+v", result)
	}

	_, err = service.Lookup(context.Background(), "does-not-exist")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	t.Parallel()
	service, _ := newTestService(t)

	product, err := service.CreateProduct(context.Background(), CreateProductInput{
		Name:         "Notebook",
		PriceInclTax: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	newPrice := decimal.NewFromFloat(65)
	updated, err := service.UpdateProduct(context.Background(), product.ID, UpdateProductInput{
		PriceInclTax: &newPrice,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.PriceInclTax.Equal(newPrice) {
		t.Fatalf("expected price update, got %s", updated.PriceInclTax)
	}

	if err := service.DeleteProduct(context.Background(), product.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	err = service.DeleteProduct(context.Background(), product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestCreateProductPersistsUntrackedFlag(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)

	product, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:         "Service Charge",
		PriceInclTax: decimal.NewFromInt(50),
		TracksStock:  false,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// read back through gorm to confirm the stored column, not the struct
	var stored models.Product
	if err := conn.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.TracksStock {
		t.Fatal("tracks_stock must be stored as false")
	}
}
