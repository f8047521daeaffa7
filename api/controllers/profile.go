package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint-backend/api/responses"
	"github.com/tillpoint/tillpoint-backend/api/validators"
	"github.com/tillpoint/tillpoint-backend/internal/profile"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

type updateProfileRequest struct {
	ShopName       *string          `json:"shop_name,omitempty"`
	GSTIN          *string          `json:"gstin,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	Address        *string          `json:"address,omitempty"`
	DefaultTaxRate *decimal.Decimal `json:"default_tax_rate,omitempty"`
	InvoicePrefix  *string          `json:"invoice_prefix,omitempty"`
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required,min=4"`
}

// ProfileGet returns the shop profile.
func ProfileGet(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

// ProfileUpdate applies a partial update to the shop profile.
func ProfileUpdate(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateProfileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shop, err := svc.Update(r.Context(), profile.UpdateInput{
			ShopName:       payload.ShopName,
			GSTIN:          payload.GSTIN,
			Phone:          payload.Phone,
			Address:        payload.Address,
			DefaultTaxRate: payload.DefaultTaxRate,
			InvoicePrefix:  payload.InvoicePrefix,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

// ProfileSetPassword replaces the shared inventory password.
func ProfileSetPassword(svc profile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetInventoryPassword(r.Context(), payload.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}
