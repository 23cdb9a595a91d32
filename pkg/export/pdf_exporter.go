package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Receipt carries the fields printed on a payment receipt.
type Receipt struct {
	SchoolName      string
	ReceiptNumber   string
	StudentName     string
	ClassName       string
	PeriodLabel     string
	PaymentDate     string
	PaymentMode     string
	ReferenceNumber string
	AmountPaid      float64
	ReceivedBy      string
	Verified        bool
}

// PDFExporter renders payment receipts as PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderReceipt produces a single-page payment receipt document.
func (e *PDFExporter) RenderReceipt(r Receipt) ([]byte, error) {
	if r.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt number required")
	}
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, strings.ToUpper(r.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "Payment Receipt", "B", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Receipt No.", r.ReceiptNumber},
		{"Student", r.StudentName},
		{"Class", r.ClassName},
		{"Fee Period", r.PeriodLabel},
		{"Payment Date", r.PaymentDate},
		{"Payment Mode", r.PaymentMode},
	}
	if r.ReferenceNumber != "" {
		rows = append(rows, [2]string{"Reference No.", r.ReferenceNumber})
	}
	rows = append(rows, [2]string{"Received By", r.ReceivedBy})

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(40, 7, row[0], "", 0, "", false, 0, "")
		pdf.CellFormat(0, 7, row[1], "", 1, "", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(40, 9, "Amount Paid", "T", 0, "", false, 0, "")
	pdf.CellFormat(0, 9, fmt.Sprintf("%.2f", r.AmountPaid), "T", 1, "", false, 0, "")

	status := "PENDING VERIFICATION"
	if r.Verified {
		status = "VERIFIED"
	}
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 7, status, "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
