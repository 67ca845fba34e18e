// Package printing renders weighing receipts as PDF slips for the thermal
// printer at the weighbridge.
package printing

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"padihub/internal/domain/transaction"
)

// BuildReceiptPDF renders a printable slip for one receipt.
func BuildReceiptPDF(txn *transaction.Transaction) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	title := "Paddy Purchase Receipt"
	if txn.Type == transaction.TypeSale {
		title = "Paddy Sale Receipt"
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, title)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Receipt No: %s", txn.Number))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", txn.Date.Format("2006-01-02 15:04")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Vehicle: %s", txn.VehicleNo))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", txn.Status))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)

	rows := [][2]string{
		{"Gross Weight (kg)", txn.GrossWeightKg.StringFixed(2)},
		{"Tare Weight (kg)", txn.TareWeightKg.StringFixed(2)},
		{"Net Weight (kg)", txn.NetWeightKg.StringFixed(2)},
		{"Total Deduction (%)", txn.TotalDeductionPercent.StringFixed(2)},
		{"Effective Weight (kg)", txn.EffectiveWeightKg.StringFixed(0)},
		{"Price / kg", txn.FinalPricePerKg.StringFixed(2)},
		{"Total Amount", txn.TotalAmount.StringFixed(2)},
	}
	for _, row := range rows {
		pdf.CellFormat(60, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, row[1], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(txn.Deductions) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Deductions")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, line := range txn.Deductions {
			pdf.CellFormat(60, 6, line.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 6, line.Percent.StringFixed(2)+" %", "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	if txn.IsSplitFragment() {
		pdf.Ln(4)
		pdf.Cell(0, 6, fmt.Sprintf("Split from receipt %s", txn.ParentID.String()))
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
