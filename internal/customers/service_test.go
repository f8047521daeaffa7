package customers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:customers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Customer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestCreateCustomerNormalizes(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	phone := " 98765 "
	gstin := " 27aapfu0939f1zv "
	blank := "   "
	customer, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{
		Name:  "  Asha Traders  ",
		Phone: &phone,
		GSTIN: &gstin,
		Email: &blank,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if customer.Name != "Asha Traders" {
		t.Fatalf("expected trimmed name, got %q", customer.Name)
	}
	if customer.Phone == nil || *customer.Phone != "98765" {
		t.Fatalf("expected trimmed phone, got %v", customer.Phone)
	}
	if customer.GSTIN == nil || *customer.GSTIN != "27AAPFU0939F1ZV" {
		t.Fatalf("expected uppercased gstin, got %v", customer.GSTIN)
	}
	if customer.Email != nil {
		t.Fatalf("blank email must normalize to nil, got %v", customer.Email)
	}
}

func TestCreateCustomerRequiresName(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{Name: "  "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateCustomerPartial(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	phone := "111"
	created, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{Name: "Ravi", Phone: &phone})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	newPhone := "222"
	updated, err := svc.UpdateCustomer(context.Background(), created.ID, UpdateCustomerInput{Phone: &newPhone})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Ravi" {
		t.Fatalf("untouched fields must survive, got name %q", updated.Name)
	}
	if updated.Phone == nil || *updated.Phone != "222" {
		t.Fatalf("expected phone update, got %v", updated.Phone)
	}

	blank := " "
	_, err = svc.UpdateCustomer(context.Background(), created.ID, UpdateCustomerInput{Name: &blank})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestDeleteCustomer(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	created, err := svc.CreateCustomer(context.Background(), CreateCustomerInput{Name: "One Off"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.DeleteCustomer(context.Background(), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	err = svc.DeleteCustomer(context.Background(), created.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListCustomersSearchAndPaging(t *testing.T) {
	t.Parallel()
	svc, db := newTestService(t)

	base := time.Now().Add(-time.Hour)
	seed := []models.Customer{
		{Name: "Asha Traders", CreatedAt: base.Add(1 * time.Minute)},
		{Name: "Bharat Stores", CreatedAt: base.Add(2 * time.Minute)},
		{Name: "Asha Retail", CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	search := "asha"
	result, err := svc.ListCustomers(context.Background(), ListQuery{Search: &search})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(result.Customers) != 2 {
		t.Fatalf("expected two matches, got %d", len(result.Customers))
	}

	page, err := svc.ListCustomers(context.Background(), ListQuery{
		Pagination: pagination.Params{Limit: 2},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Customers) != 2 || page.NextCursor == nil {
		t.Fatalf("expected full page with cursor, got %d rows", len(page.Customers))
	}
	if page.Customers[0].Name != "Asha Retail" {
		t.Fatalf("expected newest first, got %q", page.Customers[0].Name)
	}

	rest, err := svc.ListCustomers(context.Background(), ListQuery{
		Pagination: pagination.Params{Limit: 2, Cursor: *page.NextCursor},
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rest.Customers) != 1 || rest.NextCursor != nil {
		t.Fatalf("expected final page of one, got %d rows", len(rest.Customers))
	}
}
