package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Invoice heads a sale. Totals are derived from the child items and written
// back by the aggregator after every item change.
type Invoice struct {
	ID           int64               `gorm:"column:id;primaryKey;autoIncrement"`
	Number       string              `gorm:"column:number;uniqueIndex;not null"`
	Date         time.Time           `gorm:"column:date;not null"`
	CustomerID   *int64              `gorm:"column:customer_id"`
	Customer     *Customer           `gorm:"foreignKey:CustomerID;constraint:OnDelete:SET NULL"`
	CustomerName *string             `gorm:"column:customer_name"`
	TotalBase    decimal.Decimal     `gorm:"column:total_base;type:numeric(12,2);not null"`
	TotalTax     decimal.Decimal     `gorm:"column:total_tax;type:numeric(12,2);not null"`
	TotalIncl    decimal.Decimal     `gorm:"column:total_incl;type:numeric(12,2);not null"`
	Status       enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	AmountPaid   decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	Notes        *string             `gorm:"column:notes"`
	Items        []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName resolves the customer name shown on the invoice.
func (i Invoice) DisplayName() string {
	if i.Customer != nil {
		return i.Customer.Name
	}
	if i.CustomerName != nil && *i.CustomerName != "" {
		return *i.CustomerName
	}
	return "Walk-in Customer"
}

// BalanceDue is the inclusive total minus what has been paid.
func (i Invoice) BalanceDue() decimal.Decimal {
	return i.TotalIncl.Sub(i.AmountPaid)
}
