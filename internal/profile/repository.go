package profile

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
)

// Repository persists the singleton shop profile row.
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

// Get loads the profile row.
func (r *Repository) Get(ctx context.Context) (*models.ShopProfile, error) {
	var profile models.ShopProfile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", models.ShopProfileID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// LockForUpdate loads the profile row under a row lock. Invoice numbering
// serializes through this lock so concurrent checkouts never share a number.
func (r *Repository) LockForUpdate(ctx context.Context) (*models.ShopProfile, error) {
	var profile models.ShopProfile
	qb := r.db.WithContext(ctx)
	if qb.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := qb.First(&profile, "id = ?", models.ShopProfileID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Save persists the profile row.
func (r *Repository) Save(ctx context.Context, profile *models.ShopProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// Ensure creates the fixed-id row when it does not exist yet and returns it.
func (r *Repository) Ensure(ctx context.Context) (*models.ShopProfile, error) {
	profile := &models.ShopProfile{ID: models.ShopProfileID}
	err := r.db.WithContext(ctx).
		Where("id = ?", models.ShopProfileID).
		FirstOrCreate(profile).
		Error
	if err != nil {
		return nil, err
	}
	return profile, nil
}
