package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Fatalf("nil error is not a violation")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Fatalf("unrelated error is not a violation")
	}

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_products_sku"}
	if !IsUniqueViolation(fmt.Errorf("create: %w", pgErr)) {
		t.Fatalf("expected wrapped pg unique violation to match")
	}

	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: products.sku")) {
		t.Fatalf("expected sqlite message to match")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "idx_invoices_number"`)) {
		t.Fatalf("expected postgres message to match")
	}
}
