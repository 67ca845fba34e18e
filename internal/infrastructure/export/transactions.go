// Package export renders receipt listings as XLSX workbooks for the
// center's bookkeeping.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"padihub/internal/domain/transaction"
)

// BuildTransactionsXLSX renders receipts into a workbook, one row per receipt.
func BuildTransactionsXLSX(items []*transaction.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "receipts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Number", "Date", "Type", "Status", "Payment", "Vehicle",
		"Gross (kg)", "Tare (kg)", "Net (kg)", "Deduction (%)",
		"Effective (kg)", "Price/kg", "Total Amount",
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, txn := range items {
		row := i + 2
		values := []any{
			txn.Number,
			txn.Date.Format("2006-01-02 15:04"),
			string(txn.Type),
			string(txn.Status),
			string(txn.PaymentStatus),
			txn.VehicleNo,
			txn.GrossWeightKg.InexactFloat64(),
			txn.TareWeightKg.InexactFloat64(),
			txn.NetWeightKg.InexactFloat64(),
			txn.TotalDeductionPercent.InexactFloat64(),
			txn.EffectiveWeightKg.InexactFloat64(),
			txn.FinalPricePerKg.InexactFloat64(),
			txn.TotalAmount.InexactFloat64(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.SetColWidth(sheet, "A", "M", 14); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
