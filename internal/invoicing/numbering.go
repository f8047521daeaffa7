package invoicing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// NextNumber increments the shop-wide invoice counter inside the caller's
// transaction and returns the formatted number. The profile row lock
// serializes concurrent callers, so numbers are unique and issued in order.
func NextNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	var profile models.ShopProfile
	qb := tx.WithContext(ctx)
	if qb.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := qb.First(&profile, "id = ?", models.ShopProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeInternal, "shop profile not initialized")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking shop profile")
	}

	profile.LastInvoiceNumber++
	if err := tx.WithContext(ctx).Save(&profile).Error; err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advancing invoice counter")
	}

	return fmt.Sprintf("%s%04d", profile.InvoicePrefix, profile.LastInvoiceNumber), nil
}
