package docs

import (
	"bytes"
	"fmt"
	"strings"

	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/phpdave11/gofpdf"
)

const dateLayout = "2006-01-02"

// InvoicePDF renders an itemized invoice for a booking and returns the PDF
// bytes with a suggested filename.
func InvoicePDF(b *models.Booking, inv pricing.Invoice, currency string) ([]byte, string, error) {
	return buildInvoicePDF(b, inv, currency, true)
}

func buildInvoicePDF(b *models.Booking, inv pricing.Invoice, currency string, compress bool) ([]byte, string, error) {
	if b == nil {
		return nil, "", fmt.Errorf("booking is nil")
	}
	money := func(v int64) string { return currency + " " + FormatMoney(v) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(fmt.Sprintf("Invoice %d", b.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "INVOICE")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	header := []string{
		fmt.Sprintf("Invoice No : VS-%06d", b.ID),
		"Room       : " + b.RoomName,
		fmt.Sprintf("Stay       : %s to %s (%d nights)", b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout), inv.Nights),
		"Guest      : " + b.GuestName,
		"Email      : " + b.GuestEmail,
	}
	if b.GuestPhone != "" {
		header = append(header, "Phone      : "+b.GuestPhone)
	}
	for _, line := range header {
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	widths := []float64{80, 35, 25, 40}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(221, 235, 247)
	for i, h := range []string{"Item", "Unit price", "Qty", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range inv.Lines() {
		pdf.CellFormat(widths[0], 7, item.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, money(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(item.LineTotal), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	labelWidth := widths[0] + widths[1] + widths[2]
	totals := []struct {
		label string
		value int64
		bold  bool
	}{
		{"Subtotal", inv.Totals.SubTotal, false},
		{fmt.Sprintf("Tax (%s%%)", inv.TaxRatePercent.String()), inv.Totals.Tax, false},
		{"Grand Total", inv.Totals.GrandTotal, true},
	}
	for _, row := range totals {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(labelWidth, 7, row.label, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(row.value), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	payment := "Payment    : not received"
	if b.PaymentID != "" {
		payment = fmt.Sprintf("Payment    : %s via %s", b.PaymentID, orDash(b.PaymentProvider))
	}
	pdf.Cell(0, 6, payment)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status     : "+strings.ToUpper(b.Status))
	pdf.Ln(6)

	if b.IsCancelled() {
		pdf.Cell(0, 6, fmt.Sprintf("Refund     : %d%% = %s, fee %s",
			b.RefundPercent, money(b.RefundAmount), money(b.CancellationFee)))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render invoice pdf: %w", err)
	}

	filename := fmt.Sprintf("INVOICE_%d_%s.pdf", b.ID, safeFilenamePart(b.GuestName))
	return buf.Bytes(), filename, nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
