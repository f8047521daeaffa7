package stock

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

// Repository reads the movement ledger.
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

// MovementQuery filters the paginated movement listing.
type MovementQuery struct {
	Pagination pagination.Params
	ProductID  *int64
	Reason     *string
}

// MovementPage is one page of movements plus the cursor for the next page.
type MovementPage struct {
	Movements  []models.StockMovement
	NextCursor *string
}

// ListMovements returns ledger entries newest first with cursor pagination.
func (r *Repository) ListMovements(ctx context.Context, query MovementQuery) (*MovementPage, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.StockMovement{}).Preload("Product")
	if query.ProductID != nil {
		qb = qb.Where("product_id = ?", *query.ProductID)
	}
	if query.Reason != nil {
		qb = qb.Where("reason = ?", *query.Reason)
	}
	if cursor != nil {
		qb = qb.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.StockMovement
	if err := qb.Order("created_at DESC, id DESC").Limit(pageSize + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &MovementPage{Movements: rows}
	if len(rows) > pageSize {
		page.Movements = rows[:pageSize]
		last := page.Movements[pageSize-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}

// ListByReasonBetween returns movements of one reason created inside the half
// open interval [from, to), oldest first. Reporting uses this for spending
// sums.
func (r *Repository) ListByReasonBetween(ctx context.Context, reason string, from, to time.Time) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("reason = ? AND created_at >= ? AND created_at < ?", reason, from, to).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}
