// Package reports derives the dashboard and sales figures from invoices and
// the purchase side of the stock ledger. Earnings are summed from invoice
// totals; spending is the cost of inbound purchase movements.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

const recentInvoiceCount = 5

// Dashboard is the month-to-date snapshot shown on the home screen.
type Dashboard struct {
	MonthStart     time.Time
	Earnings       decimal.Decimal
	Spending       decimal.Decimal
	Profit         decimal.Decimal
	SalesCount     int
	RecentInvoices []models.Invoice
}

// MonthSummary aggregates one calendar month.
type MonthSummary struct {
	Year       int
	Month      time.Month
	Earnings   decimal.Decimal
	Spending   decimal.Decimal
	Profit     decimal.Decimal
	SalesCount int
}

// SalesReport is the date-filtered invoice listing with its totals.
type SalesReport struct {
	From       time.Time
	To         time.Time
	Invoices   []models.Invoice
	TotalBase  decimal.Decimal
	TotalTax   decimal.Decimal
	TotalIncl  decimal.Decimal
	SalesCount int
}

// Service exposes the reporting queries.
type Service interface {
	Dashboard(ctx context.Context, now time.Time) (*Dashboard, error)
	MonthlySummary(ctx context.Context, year int) ([]MonthSummary, error)
	SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error)
	ExportSales(ctx context.Context, from, to time.Time) ([]byte, error)
}

type movementSource interface {
	ListByReasonBetween(ctx context.Context, reason string, from, to time.Time) ([]models.StockMovement, error)
}

type service struct {
	repo      *Repository
	movements movementSource
}

// NewService constructs a reporting service instance.
func NewService(repo *Repository, movements movementSource) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if movements == nil {
		return nil, fmt.Errorf("movement source required")
	}
	return &service{repo: repo, movements: movements}, nil
}

func (s *service) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	invoices, err := s.repo.InvoicesBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoices")
	}
	spending, err := s.spendingBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentInvoices(ctx, recentInvoiceCount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading recent invoices")
	}

	earnings := decimal.Zero
	for _, invoice := range invoices {
		earnings = earnings.Add(invoice.TotalIncl)
	}

	return &Dashboard{
		MonthStart:     monthStart,
		Earnings:       earnings,
		Spending:       spending,
		Profit:         earnings.Sub(spending),
		SalesCount:     len(invoices),
		RecentInvoices: recent,
	}, nil
}

// MonthlySummary returns one row per calendar month of the given year.
// Months with no activity still appear with zero figures.
func (s *service) MonthlySummary(ctx context.Context, year int) ([]MonthSummary, error) {
	if year < 2000 || year > 2200 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	invoices, err := s.repo.InvoicesBetween(ctx, yearStart, yearEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoices")
	}
	purchases, err := s.movements.ListByReasonBetween(ctx, string(enums.MovementPurchase), yearStart, yearEnd)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading purchases")
	}

	summaries := make([]MonthSummary, 12)
	for i := range summaries {
		summaries[i] = MonthSummary{
			Year:     year,
			Month:    time.Month(i + 1),
			Earnings: decimal.Zero,
			Spending: decimal.Zero,
			Profit:   decimal.Zero,
		}
	}

	for _, invoice := range invoices {
		idx := int(invoice.Date.UTC().Month()) - 1
		summaries[idx].Earnings = summaries[idx].Earnings.Add(invoice.TotalIncl)
		summaries[idx].SalesCount++
	}
	for _, movement := range purchases {
		if cost := movement.TotalCost(); cost != nil {
			idx := int(movement.CreatedAt.UTC().Month()) - 1
			summaries[idx].Spending = summaries[idx].Spending.Add(*cost)
		}
	}
	for i := range summaries {
		summaries[i].Profit = summaries[i].Earnings.Sub(summaries[i].Spending)
	}
	return summaries, nil
}

func (s *service) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	from, to, err := normalizeRange(from, to)
	if err != nil {
		return nil, err
	}

	invoices, err := s.repo.InvoicesBetween(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading invoices")
	}

	report := &SalesReport{
		From:       from,
		To:         to,
		Invoices:   invoices,
		TotalBase:  decimal.Zero,
		TotalTax:   decimal.Zero,
		TotalIncl:  decimal.Zero,
		SalesCount: len(invoices),
	}
	for _, invoice := range invoices {
		report.TotalBase = report.TotalBase.Add(invoice.TotalBase)
		report.TotalTax = report.TotalTax.Add(invoice.TotalTax)
		report.TotalIncl = report.TotalIncl.Add(invoice.TotalIncl)
	}
	return report, nil
}

func (s *service) ExportSales(ctx context.Context, from, to time.Time) ([]byte, error) {
	report, err := s.SalesReport(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return writeSalesWorkbook(report)
}

func (s *service) spendingBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	purchases, err := s.movements.ListByReasonBetween(ctx, string(enums.MovementPurchase), from, to)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading purchases")
	}
	total := decimal.Zero
	for _, movement := range purchases {
		if cost := movement.TotalCost(); cost != nil {
			total = total.Add(*cost)
		}
	}
	return total, nil
}

// normalizeRange widens the interval to whole days and makes the upper bound
// exclusive, so a report "to 2026-03-15" includes all of that day.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "both dates are required")
	}
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	if !from.Before(to) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from date must not be after to date")
	}
	return from, to, nil
}
