// Package google mirrors bookings into a Google spreadsheet for the owners.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"villastay/internal/events"
	"villastay/internal/notify"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const lastColumn = "N"

var sheetHeaders = []interface{}{
	"ID", "Room", "Guest", "Email", "Check-in", "Check-out", "Status", "Amount",
	"Payment ID", "Refund %", "Refund", "Cancellation Fee", "Changed By", "Updated At",
}

var errRowNotFound = errors.New("booking row not found")

// BookingSheet keeps one row per booking, keyed by the id in column A.
type BookingSheet struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	rowCache      map[int64]int
	cacheMu       sync.RWMutex
}

func NewBookingSheet(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*BookingSheet, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newBookingSheet(srv, spreadsheetID, sheetName), nil
}

func newBookingSheet(srv *sheets.Service, spreadsheetID, sheetName string) *BookingSheet {
	if sheetName == "" {
		sheetName = "Bookings"
	}
	return &BookingSheet{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rowCache:      make(map[int64]int),
	}
}

func (s *BookingSheet) rangeOf(cells string) string {
	return s.sheetName + "!" + cells
}

// Prepare writes the header row if the sheet is empty and loads the row index.
func (s *BookingSheet) Prepare(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read booking ids: %w", err)
	}

	if len(resp.Values) == 0 {
		_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1:"+lastColumn+"1"), &sheets.ValueRange{
			Values: [][]interface{}{sheetHeaders},
		}).ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = indexRows(resp.Values)
	return nil
}

func indexRows(values [][]interface{}) map[int64]int {
	idx := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			idx[id] = i + 1
		}
	}
	return idx
}

func cellID(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		id, _ := strconv.ParseInt(t, 10, 64)
		return id
	}
	return 0
}

// Send applies one booking event from the outbox. It lets BookingSheet
// stand in as the notifier for the sheets channel.
func (s *BookingSheet) Send(ctx context.Context, msg notify.Message) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		return fmt.Errorf("decode booking event: %w", err)
	}
	return s.UpsertBooking(ctx, payload)
}

// UpsertBooking updates the booking's row or appends one.
func (s *BookingSheet) UpsertBooking(ctx context.Context, b events.BookingEventPayload) error {
	if b.BookingID == 0 {
		return fmt.Errorf("booking id is required")
	}

	row, err := s.FindBookingRow(ctx, b.BookingID)
	if errors.Is(err, errRowNotFound) {
		return s.appendBooking(ctx, b)
	}
	if err != nil {
		return err
	}

	cells := fmt.Sprintf("A%d:%s%d", row, lastColumn, row)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf(cells), &sheets.ValueRange{
		Values: [][]interface{}{rowValues(b)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.BookingID, err)
	}
	return nil
}

func (s *BookingSheet) appendBooking(ctx context.Context, b events.BookingEventPayload) error {
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:A"), &sheets.ValueRange{
		Values: [][]interface{}{rowValues(b)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking %d: %w", b.BookingID, err)
	}
	return nil
}

// FindBookingRow returns the 1-based row holding bookingID.
func (s *BookingSheet) FindBookingRow(ctx context.Context, bookingID int64) (int, error) {
	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read booking ids: %w", err)
	}

	idx := indexRows(resp.Values)
	s.cacheMu.Lock()
	s.rowCache = idx
	s.cacheMu.Unlock()

	row, ok := idx[bookingID]
	if !ok {
		return 0, errRowNotFound
	}
	return row, nil
}

func (s *BookingSheet) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func rowValues(b events.BookingEventPayload) []interface{} {
	return []interface{}{
		b.BookingID,
		b.RoomName,
		b.GuestName,
		b.GuestEmail,
		b.StartDate,
		b.EndDate,
		b.Status,
		b.Amount,
		b.PaymentID,
		b.RefundPercent,
		b.RefundAmount,
		b.CancellationFee,
		b.ChangedBy,
		b.OccurredAt.Format(time.DateTime),
	}
}
