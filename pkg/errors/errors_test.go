package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAsUnwrapsWrappedError(t *testing.T) {
	base := New(CodeNotFound, "product missing")
	wrapped := fmt.Errorf("loading product: %w", base)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "saving invoice")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
	if err.Error() != "DEPENDENCY_ERROR: saving invoice" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestInsufficientStockMetadata(t *testing.T) {
	meta := MetadataFor(CodeInsufficientStock)
	if meta.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", meta.HTTPStatus)
	}
	if !meta.DetailsAllowed {
		t.Fatal("stock details must be surfaced to the caller")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "insufficient stock for Cola").
		WithDetails(map[string]any{"product": "Cola", "available": "2.000"})
	if err.Details() == nil {
		t.Fatal("expected details")
	}
	dump := Dump(err)
	if dump.Code != CodeInsufficientStock {
		t.Fatalf("unexpected dump code: %s", dump.Code)
	}
}
