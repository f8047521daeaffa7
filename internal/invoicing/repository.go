package invoicing

import (
	"context"

	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Repository persists invoices and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the invoice row.
func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// FindByID loads the invoice with its items and linked customer.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Customer").
		First(&invoice, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindItem loads one line scoped to its invoice.
func (r *Repository) FindItem(ctx context.Context, invoiceID, itemID int64) (*models.InvoiceItem, error) {
	var item models.InvoiceItem
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND invoice_id = ?", itemID, invoiceID).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts a line row.
func (r *Repository) CreateItem(ctx context.Context, item *models.InvoiceItem) (*models.InvoiceItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// SaveItem updates a line row.
func (r *Repository) SaveItem(ctx context.Context, item *models.InvoiceItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// DeleteItem removes a line row.
func (r *Repository) DeleteItem(ctx context.Context, itemID int64) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.InvoiceItem{}).Error
}

// ListQuery filters the paginated invoice listing.
type ListQuery struct {
	Pagination pagination.Params
	Status     *string
}

// ListResult is one page of invoices plus the cursor for the next page.
type ListResult struct {
	Invoices   []models.Invoice
	NextCursor *string
}

// List returns invoices newest first with cursor pagination.
func (r *Repository) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Invoice{}).Preload("Customer")
	if query.Status != nil {
		qb = qb.Where("status = ?", *query.Status)
	}
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Invoice
	if err := qb.Order("created_at DESC, id DESC").Limit(pageSize + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	result := &ListResult{Invoices: rows}
	if len(rows) > pageSize {
		result.Invoices = rows[:pageSize]
		last := result.Invoices[pageSize-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		result.NextCursor = &next
	}
	return result, nil
}
