package invoicing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

func seedProfile(t *testing.T, db *gorm.DB, prefix string, last int64) {
	t.Helper()
	profile := models.ShopProfile{
		ID:                models.ShopProfileID,
		ShopName:          "Test Shop",
		DefaultTaxRate:    decimal.NewFromInt(5),
		InvoicePrefix:     prefix,
		LastInvoiceNumber: last,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestNextNumberSequence(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	seedProfile(t, db, "INV", 0)

	var numbers []string
	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			number, err := NextNumber(ctx, tx)
			if err != nil {
				return err
			}
			numbers = append(numbers, number)
			return nil
		})
		if err != nil {
			t.Fatalf("next number: %v", err)
		}
	}

	want := []string{"INV0001", "INV0002", "INV0003"}
	for i, number := range numbers {
		if number != want[i] {
			t.Fatalf("expected %s got %s", want[i], number)
		}
	}

	var profile models.ShopProfile
	if err := db.First(&profile, "id = ?", models.ShopProfileID).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.LastInvoiceNumber != 3 {
		t.Fatalf("expected counter at 3, got %d", profile.LastInvoiceNumber)
	}
}

func TestNextNumberRollsBackWithTransaction(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	seedProfile(t, db, "INV", 7)

	abort := pkgerrors.New(pkgerrors.CodeInternal, "forced abort")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := NextNumber(ctx, tx); err != nil {
			return err
		}
		return abort
	})
	if err == nil {
		t.Fatalf("expected forced abort")
	}

	var profile models.ShopProfile
	if err := db.First(&profile, "id = ?", models.ShopProfileID).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.LastInvoiceNumber != 7 {
		t.Fatalf("aborted transaction must not advance the counter, got %d", profile.LastInvoiceNumber)
	}
}

func TestNextNumberWithoutProfile(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := NextNumber(context.Background(), tx)
		return err
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestNextNumberLongPrefixWidth(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	seedProfile(t, db, "BILL", 9999)

	err := db.Transaction(func(tx *gorm.DB) error {
		number, err := NextNumber(context.Background(), tx)
		if err != nil {
			return err
		}
		if number != "BILL10000" {
			t.Fatalf("zero padding must not truncate, got %s", number)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("next number: %v", err)
	}
}
