package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	"github.com/tillpoint/tillpoint-backend/internal/catalog"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

type createProductRequest struct {
	Name         string           `json:"name" validate:"required"`
	SKU          *string          `json:"sku,omitempty"`
	Barcode      *string          `json:"barcode,omitempty"`
	Collection   *string          `json:"collection,omitempty"`
	PriceInclTax decimal.Decimal  `json:"price_incl_tax" validate:"required"`
	TaxRate      *decimal.Decimal `json:"tax_rate,omitempty"`
	CostPrice    decimal.Decimal  `json:"cost_price"`
	TracksStock  *bool            `json:"tracks_stock,omitempty"`
	StockQty     decimal.Decimal  `json:"stock_qty"`
	Unit         string           `json:"unit"`
	HSN          *string          `json:"hsn,omitempty"`
	Description  *string          `json:"description,omitempty"`
}

type updateProductRequest struct {
	Name         *string          `json:"name,omitempty"`
	SKU          *string          `json:"sku,omitempty"`
	Barcode      *string          `json:"barcode,omitempty"`
	Collection   *string          `json:"collection,omitempty"`
	PriceInclTax *decimal.Decimal `json:"price_incl_tax,omitempty"`
	TaxRate      *decimal.Decimal `json:"tax_rate,omitempty"`
	CostPrice    *decimal.Decimal `json:"cost_price,omitempty"`
	TracksStock  *bool            `json:"tracks_stock,omitempty"`
	Unit         *string          `json:"unit,omitempty"`
	HSN          *string          `json:"hsn,omitempty"`
	Description  *string          `json:"description,omitempty"`
}

type productListResponse struct {
	Products   []models.Product `json:"products"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}

type lookupResponse struct {
	Product    *models.Product  `json:"product,omitempty"`
	Candidates []models.Product `json:"candidates,omitempty"`
}

// ProductCreate handles catalog creation with optional code derivation.
func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tracksStock := true
		if payload.TracksStock != nil {
			tracksStock = *payload.TracksStock
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Name:         payload.Name,
			SKU:          payload.SKU,
			Barcode:      payload.Barcode,
			Collection:   payload.Collection,
			PriceInclTax: payload.PriceInclTax,
			TaxRate:      payload.TaxRate,
			CostPrice:    payload.CostPrice,
			TracksStock:  tracksStock,
			StockQty:     payload.StockQty,
			Unit:         payload.Unit,
			HSN:          payload.HSN,
			Description:  payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductGet returns one catalog entry.
func ProductGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductList returns the paginated catalog, optionally filtered by search.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := catalog.ListQuery{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		query.Search = strings.TrimSpace(r.URL.Query().Get("search"))

		result, err := svc.ListProducts(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, productListResponse{
			Products:   result.Products,
			NextCursor: result.NextCursor,
		})
	}
}

// ProductUpdate applies a partial update.
func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, catalog.UpdateProductInput{
			Name:         payload.Name,
			SKU:          payload.SKU,
			Barcode:      payload.Barcode,
			Collection:   payload.Collection,
			PriceInclTax: payload.PriceInclTax,
			TaxRate:      payload.TaxRate,
			CostPrice:    payload.CostPrice,
			TracksStock:  payload.TracksStock,
			Unit:         payload.Unit,
			HSN:          payload.HSN,
			Description:  payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductDelete removes a catalog entry.
func ProductDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ProductLookup is the POS scan-or-type resolution endpoint.
func ProductLookup(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameter q is required"))
			return
		}

		result, err := svc.Lookup(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lookupResponse{
			Product:    result.Product,
			Candidates: result.Candidates,
		})
	}
}
