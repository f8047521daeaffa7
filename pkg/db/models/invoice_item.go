package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceItem is a single line on an invoice. The product reference is
// nullable so ad-hoc lines survive product deletion.
type InvoiceItem struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	InvoiceID     int64           `gorm:"column:invoice_id;not null;index"`
	ProductID     *int64          `gorm:"column:product_id"`
	Product       *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	Description   string          `gorm:"column:description;not null"`
	Qty           decimal.Decimal `gorm:"column:qty;type:numeric(10,3);not null"`
	UnitPriceIncl decimal.Decimal `gorm:"column:unit_price_incl;type:numeric(10,2);not null"`
	TaxRate       decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
