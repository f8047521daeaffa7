package customers

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Repository persists customer records.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the customer row.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

// FindByID loads one customer.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// Save updates the full customer row.
func (r *Repository) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// Delete removes a customer row, reporting how many rows went away.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Customer{})
	return result.RowsAffected, result.Error
}

// ListQuery filters the paginated customer listing.
type ListQuery struct {
	Pagination pagination.Params
	Search     *string
}

// ListResult is one page of customers plus the cursor for the next page.
type ListResult struct {
	Customers  []models.Customer
	NextCursor *string
}

// List returns customers newest first with cursor pagination. Search matches
// name or phone, case insensitively.
func (r *Repository) List(ctx context.Context, query ListQuery) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Customer{})
	if query.Search != nil {
		needle := "%" + strings.ToLower(strings.TrimSpace(*query.Search)) + "%"
		qb = qb.Where("LOWER(name) LIKE ? OR LOWER(COALESCE(phone, '')) LIKE ?", needle, needle)
	}
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Customer
	if err := qb.Order("created_at DESC, id DESC").Limit(pageSize + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	result := &ListResult{Customers: rows}
	if len(rows) > pageSize {
		result.Customers = rows[:pageSize]
		last := result.Customers[pageSize-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		result.NextCursor = &next
	}
	return result, nil
}
