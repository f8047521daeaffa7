package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry sold through the POS.
type Product struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string          `gorm:"column:name;not null"`
	SKU          string          `gorm:"column:sku;uniqueIndex;not null"`
	Barcode      *string         `gorm:"column:barcode;uniqueIndex"`
	Collection   *string         `gorm:"column:collection"`
	PriceInclTax decimal.Decimal `gorm:"column:price_incl_tax;type:numeric(10,2);not null"`
	TaxRate      decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	CostPrice    decimal.Decimal `gorm:"column:cost_price;type:numeric(10,2);not null"`
	TracksStock  bool            `gorm:"column:tracks_stock;not null"`
	StockQty     decimal.Decimal `gorm:"column:stock_qty;type:numeric(10,3);not null"`
	Unit         string          `gorm:"column:unit;not null"`
	HSN          *string         `gorm:"column:hsn"`
	Description  *string         `gorm:"column:description"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
