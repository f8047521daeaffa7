package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

type stockAdjustRequest struct {
	ProductID int64           `json:"product_id" validate:"required,min=1"`
	Delta     decimal.Decimal `json:"delta" validate:"required"`
	Reason    string          `json:"reason,omitempty"`
	Reference *string         `json:"reference,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
}

type stockPurchaseRequest struct {
	ProductID int64            `json:"product_id" validate:"required,min=1"`
	Qty       decimal.Decimal  `json:"qty" validate:"required"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Reference *string          `json:"reference,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
}

type movementListResponse struct {
	Movements  []models.StockMovement `json:"movements"`
	NextCursor *string                `json:"next_cursor,omitempty"`
}

// StockAdjust posts a manual signed correction to a product's on-hand level.
func StockAdjust(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload stockAdjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.ManualAdjust(r.Context(), stock.AdjustInput{
			ProductID: payload.ProductID,
			Delta:     payload.Delta,
			Reason:    enums.MovementReason(strings.TrimSpace(payload.Reason)),
			Reference: payload.Reference,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// StockPurchase records incoming supplier stock with its cost.
func StockPurchase(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload stockPurchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.RecordPurchase(r.Context(), stock.PurchaseInput{
			ProductID: payload.ProductID,
			Qty:       payload.Qty,
			UnitCost:  payload.UnitCost,
			Reference: payload.Reference,
			Notes:     payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// StockMovements returns the paginated ledger with optional filters.
func StockMovements(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := stock.MovementQuery{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("product_id")); raw != "" {
			id, err := validators.ParsePathID(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			query.ProductID = &id
		}
		if reason := strings.TrimSpace(r.URL.Query().Get("reason")); reason != "" {
			query.Reason = &reason
		}

		page, err := svc.ListMovements(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, movementListResponse{
			Movements:  page.Movements,
			NextCursor: page.NextCursor,
		})
	}
}
