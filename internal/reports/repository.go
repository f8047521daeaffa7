package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Repository reads the invoice side of reporting. Purchase spending comes
// from the stock ledger through the movement source interface.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InvoicesBetween returns non-cancelled invoices dated inside [from, to),
// oldest first, with the customer preloaded.
func (r *Repository) InvoicesBetween(ctx context.Context, from, to time.Time) ([]models.Invoice, error) {
	var rows []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("date >= ? AND date < ? AND status <> ?", from, to, enums.PaymentCancelled).
		Order("date ASC, id ASC").
		Find(&rows).
		Error
	return rows, err
}

// RecentInvoices returns the newest invoices regardless of status.
func (r *Repository) RecentInvoices(ctx context.Context, limit int) ([]models.Invoice, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}
