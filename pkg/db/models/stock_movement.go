package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// StockMovement is the immutable audit record of a quantity change.
// Rows are append-only; nothing in the codebase updates or deletes them
// except the cascade when the owning product is removed.
type StockMovement struct {
	ID        int64                `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64                `gorm:"column:product_id;not null;index"`
	Product   *Product             `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	QtyChange decimal.Decimal      `gorm:"column:qty_change;type:numeric(10,3);not null"`
	Reason    enums.MovementReason `gorm:"column:reason;not null;default:'adjustment'"`
	UnitCost  *decimal.Decimal     `gorm:"column:unit_cost;type:numeric(10,2)"`
	Reference *string              `gorm:"column:reference"`
	Notes     *string              `gorm:"column:notes"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime;index"`
}

// TotalCost returns qty x unit cost for inbound movements, nil otherwise.
func (m StockMovement) TotalCost() *decimal.Decimal {
	if m.UnitCost == nil || !m.QtyChange.IsPositive() {
		return nil
	}
	total := m.QtyChange.Mul(*m.UnitCost).Round(2)
	return &total
}
