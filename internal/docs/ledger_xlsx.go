package docs

import (
	"fmt"
	"io"
	"time"

	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Bookings"

var ledgerHeaders = []string{
	"ID", "Room", "Guest", "Email", "Phone", "Check-in", "Check-out", "Nights",
	"Veg", "Non-Veg", "Combo", "Room Total", "Meal Total", "Amount",
	"Status", "Payment ID", "Provider",
	"Refund %", "Refund Amount", "Cancellation Fee", "Cancelled At",
}

// BookingsWorkbook builds the admin ledger for bookings that overlap the
// range. The caller owns the returned file and must Close it.
func BookingsWorkbook(bookings []*models.Booking, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(ledgerSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(ledgerSheet, "A1", fmt.Sprintf("Period: %s - %s", from.Format(dateLayout), to.Format(dateLayout)))
	lastCol, _ := excelize.ColumnNumberToName(len(ledgerHeaders))
	_ = f.MergeCell(ledgerSheet, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(ledgerSheet, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range ledgerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(ledgerSheet, cell, h)
	}
	_ = f.SetCellStyle(ledgerSheet, "A2", lastCol+"2", headerStyle)

	cancelledStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FCE4D6"}, Pattern: 1},
	})

	row := 3
	var totalAmount, totalRefund, totalFee int64
	for _, b := range bookings {
		nights, _ := pricing.NightsBetween(b.StartDate, b.EndDate)
		cancelledAt := ""
		if b.CancelledAt != nil {
			cancelledAt = b.CancelledAt.Format("2006-01-02 15:04")
		}

		values := []interface{}{
			b.ID, b.RoomName, b.GuestName, b.GuestEmail, b.GuestPhone,
			b.StartDate.Format(dateLayout), b.EndDate.Format(dateLayout), nights,
			b.VegGuests, b.NonVegGuests, b.ComboGuests,
			b.RoomTotal, b.MealTotal, b.Amount,
			b.Status, b.PaymentID, b.PaymentProvider,
			b.RefundPercent, b.RefundAmount, b.CancellationFee, cancelledAt,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write booking %d: %w", b.ID, err)
		}
		if b.IsCancelled() {
			end, _ := excelize.CoordinatesToCellName(len(ledgerHeaders), row)
			_ = f.SetCellStyle(ledgerSheet, cell, end, cancelledStyle)
		}

		totalAmount += b.Amount
		totalRefund += b.RefundAmount
		totalFee += b.CancellationFee
		row++
	}

	totalsRow := []interface{}{"Total"}
	for i := 1; i < len(ledgerHeaders); i++ {
		totalsRow = append(totalsRow, nil)
	}
	totalsRow[13] = totalAmount
	totalsRow[18] = totalRefund
	totalsRow[19] = totalFee
	cell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetSheetRow(ledgerSheet, cell, &totalsRow)
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	end, _ := excelize.CoordinatesToCellName(len(ledgerHeaders), row)
	_ = f.SetCellStyle(ledgerSheet, cell, end, boldStyle)

	_ = f.SetColWidth(ledgerSheet, "A", "A", 8)
	_ = f.SetColWidth(ledgerSheet, "B", "E", 22)
	_ = f.SetColWidth(ledgerSheet, "F", lastCol, 14)
	_ = f.SetPanes(ledgerSheet, &excelize.Panes{Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft"})

	return f, nil
}

// WriteBookingsXLSX streams the ledger workbook to w.
func WriteBookingsXLSX(w io.Writer, bookings []*models.Booking, from, to time.Time) error {
	f, err := BookingsWorkbook(bookings, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// LedgerFilename names an export for the given range.
func LedgerFilename(from, to time.Time) string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", from.Format(dateLayout), to.Format(dateLayout))
}
