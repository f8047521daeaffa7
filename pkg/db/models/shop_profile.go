package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShopProfileID is the fixed primary key of the single profile row.
const ShopProfileID int64 = 1

// ShopProfile holds shop identity, invoicing defaults, and the invoice
// number sequence. Exactly one row exists; callers obtain it through
// profile.Service.Ensure rather than assuming it is present.
type ShopProfile struct {
	ID                    int64           `gorm:"column:id;primaryKey"`
	ShopName              string          `gorm:"column:shop_name;not null;default:'My Shop'"`
	GSTIN                 *string         `gorm:"column:gstin"`
	Phone                 *string         `gorm:"column:phone"`
	Address               *string         `gorm:"column:address"`
	DefaultTaxRate        decimal.Decimal `gorm:"column:default_tax_rate;type:numeric(5,2);not null"`
	InvoicePrefix         string          `gorm:"column:invoice_prefix;not null;default:'INV'"`
	LastInvoiceNumber     int64           `gorm:"column:last_invoice_number;not null;default:0"`
	InventoryPasswordHash *string         `gorm:"column:inventory_password_hash"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
