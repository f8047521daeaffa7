package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

const salesSheet = "Sales"

// writeSalesWorkbook renders the report as a single-sheet xlsx file with one
// row per invoice and a totals row at the bottom.
func writeSalesWorkbook(report *SalesReport) ([]byte, error) {
	workbook := excelize.NewFile()
	defer workbook.Close()

	index, err := workbook.NewSheet(salesSheet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating sheet")
	}
	workbook.SetActiveSheet(index)
	if err := workbook.DeleteSheet("Sheet1"); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing default sheet")
	}

	header := []any{"Invoice", "Date", "Customer", "Status", "Base", "Tax", "Total"}
	if err := workbook.SetSheetRow(salesSheet, "A1", &header); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing header")
	}

	row := 2
	for _, invoice := range report.Invoices {
		base, _ := invoice.TotalBase.Float64()
		tax, _ := invoice.TotalTax.Float64()
		total, _ := invoice.TotalIncl.Float64()
		cells := []any{
			invoice.Number,
			invoice.Date.UTC().Format("2006-01-02"),
			invoice.DisplayName(),
			string(invoice.Status),
			base,
			tax,
			total,
		}
		if err := workbook.SetSheetRow(salesSheet, fmt.Sprintf("A%d", row), &cells); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing invoice row")
		}
		row++
	}

	totalBase, _ := report.TotalBase.Float64()
	totalTax, _ := report.TotalTax.Float64()
	totalIncl, _ := report.TotalIncl.Float64()
	totals := []any{"Total", "", "", "", totalBase, totalTax, totalIncl}
	if err := workbook.SetSheetRow(salesSheet, fmt.Sprintf("A%d", row), &totals); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing totals row")
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding workbook")
	}
	return buf.Bytes(), nil
}
