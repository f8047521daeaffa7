package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	checkoutsvc "github.com/tillpoint/tillpoint-backend/internal/checkout"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

type checkoutItemRequest struct {
	ProductID   *int64           `json:"product_id,omitempty"`
	Description string           `json:"description,omitempty"`
	Qty         decimal.Decimal  `json:"qty" validate:"required"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
}

type checkoutRequest struct {
	CustomerID   *int64                `json:"customer_id,omitempty"`
	CustomerName *string               `json:"customer_name,omitempty"`
	Notes        *string               `json:"notes,omitempty"`
	Items        []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
}

type checkoutResponse struct {
	InvoiceID     int64           `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
}

// Checkout turns the submitted cart into an invoice.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.CartItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.CartItem{
				ProductID:   item.ProductID,
				Description: item.Description,
				Qty:         item.Qty,
				UnitPrice:   item.UnitPrice,
				TaxRate:     item.TaxRate,
			})
		}

		result, err := svc.Checkout(r.Context(), checkoutsvc.Input{
			CustomerID:   payload.CustomerID,
			CustomerName: payload.CustomerName,
			Notes:        payload.Notes,
			Items:        items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			InvoiceID:     result.InvoiceID,
			InvoiceNumber: result.InvoiceNumber,
			Total:         result.Total,
		})
	}
}
