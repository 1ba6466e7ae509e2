package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"villastay/internal/events"
	"villastay/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const testSheetID = "ledger_tid"

func setupMockServer(t *testing.T) (*http.ServeMux, *BookingSheet) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return mux, newBookingSheet(srv, testSheetID, "")
}

func idColumn(values ...interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows := make([][]interface{}, 0, len(values))
		for _, v := range values {
			rows = append(rows, []interface{}{v})
		}
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: rows})
	}
}

func decodeRows(t *testing.T, r *http.Request) [][]interface{} {
	t.Helper()
	var vr sheets.ValueRange
	require.NoError(t, json.NewDecoder(r.Body).Decode(&vr))
	return vr.Values
}

func samplePayload() events.BookingEventPayload {
	return events.BookingEventPayload{
		BookingID:     123,
		RoomName:      "Garden Villa",
		GuestName:     "Asha",
		StartDate:     "2024-06-10",
		EndDate:       "2024-06-12",
		Status:        "cancelled",
		Amount:        12000,
		RefundPercent: 50,
		RefundAmount:  6000,
		ChangedBy:     "manager",
		OccurredAt:    time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestBookingSheet_PrepareWritesHeader(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A", idColumn())

	var header [][]interface{}
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A1:N1", func(w http.ResponseWriter, r *http.Request) {
		header = decodeRows(t, r)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.Prepare(context.Background()))
	require.Len(t, header, 1)
	assert.Len(t, header[0], len(sheetHeaders))
	assert.Equal(t, "ID", header[0][0])
}

func TestBookingSheet_PrepareIndexesRows(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A", idColumn("ID", "123", "456"))

	require.NoError(t, s.Prepare(context.Background()))
	row, ok := s.getCachedRow(456)
	assert.True(t, ok)
	assert.Equal(t, 3, row)
}

func TestBookingSheet_UpsertAppendsNewBooking(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A", idColumn("ID", "456"))

	var appended [][]interface{}
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "INSERT_ROWS", r.URL.Query().Get("insertDataOption"))
		appended = decodeRows(t, r)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{})
	})

	require.NoError(t, s.UpsertBooking(context.Background(), samplePayload()))
	require.Len(t, appended, 1)
	assert.EqualValues(t, 123, appended[0][0])
	assert.Equal(t, "Garden Villa", appended[0][1])
	assert.Equal(t, "2024-06-01 10:00:00", appended[0][13])
}

func TestBookingSheet_UpsertUpdatesExistingRow(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A", idColumn("ID", "456", "123"))

	var updated [][]interface{}
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A3:N3", func(w http.ResponseWriter, r *http.Request) {
		updated = decodeRows(t, r)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.UpsertBooking(context.Background(), samplePayload()))
	require.Len(t, updated, 1)
	assert.Equal(t, "cancelled", updated[0][6])
	assert.EqualValues(t, 6000, updated[0][10])
}

func TestBookingSheet_Send(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A", idColumn("ID"))

	appends := 0
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		appends++
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{})
	})

	body, err := json.Marshal(samplePayload())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Send(ctx, notify.Message{Recipient: testSheetID, Body: string(body)}))
	assert.Equal(t, 1, appends)

	assert.Error(t, s.Send(ctx, notify.Message{Body: "not json"}))
	assert.Error(t, s.Send(ctx, notify.Message{Body: `{"booking_id":0}`}))
}

func TestBookingSheet_ReadError(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/"+testSheetID+"/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	})

	_, err := s.FindBookingRow(context.Background(), 123)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errRowNotFound)
}
