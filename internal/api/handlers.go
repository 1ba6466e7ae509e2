package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"villastay/internal/docs"
	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/go-playground/validator/v10"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20

	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type paymentRequest struct {
	Version         int64  `json:"version" validate:"required,gt=0"`
	PaymentID       string `json:"payment_id" validate:"required,max=128"`
	PaymentProvider string `json:"payment_provider" validate:"omitempty,max=64"`
}

type invoiceResponse struct {
	BookingID       int64           `json:"booking_id"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	Invoice         pricing.Invoice `json:"invoice"`
	PaymentID       string          `json:"payment_id,omitempty"`
	PaymentProvider string          `json:"payment_provider,omitempty"`
	Refund          *refundSummary  `json:"refund,omitempty"`
}

type refundSummary struct {
	Percent         int   `json:"percent"`
	RefundAmount    int64 `json:"refund_amount"`
	CancellationFee int64 `json:"cancellation_fee"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.svc.Rooms.GetActiveRooms(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleRefundPolicy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]pricing.Tier{"tiers": s.svc.Cancellations.Policy().Tiers()})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	booking, err := s.svc.Bookings.CreateBooking(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	booking, err := s.svc.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	booking, err := s.svc.Bookings.ConfirmPayment(r.Context(), id, req.Version, req.PaymentID, req.PaymentProvider)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	booking, inv, err := s.svc.Bookings.GetInvoice(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := invoiceResponse{
		BookingID:       booking.ID,
		Status:          booking.Status,
		Currency:        s.currency,
		Invoice:         *inv,
		PaymentID:       booking.PaymentID,
		PaymentProvider: booking.PaymentProvider,
	}
	if booking.IsCancelled() {
		resp.Refund = &refundSummary{
			Percent:         booking.RefundPercent,
			RefundAmount:    booking.RefundAmount,
			CancellationFee: booking.CancellationFee,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	booking, inv, err := s.svc.Bookings.GetInvoice(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	data, filename, err := docs.InvoicePDF(booking, *inv, s.currency)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypePDF)
	w.Header().Set("Content-Disposition", attachment(filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *HTTPServer) handleQuoteCancellation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	quote, err := s.svc.Cancellations.QuoteCancellation(r.Context(), id, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *HTTPServer) handleConfirmCancellation(w http.ResponseWriter, r *http.Request) {
	quoteID := strings.TrimSpace(r.PathValue("quote_id"))
	if quoteID == "" {
		writeError(w, http.StatusBadRequest, "quote_id is required")
		return
	}

	booking, err := s.svc.Cancellations.ConfirmCancellation(r.Context(), quoteID, ActorFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.exportRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.svc.Bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := docs.WriteBookingsXLSX(&buf, bookings, from, to); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeXLSX)
	w.Header().Set("Content-Disposition", attachment(docs.LedgerFilename(from, to)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// exportRange reads from/to, defaulting to the trailing window ending today.
func (s *HTTPServer) exportRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	now := s.now().In(s.loc)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	from := to.AddDate(0, 0, -models.DefaultExportRangeDays)

	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date; expected YYYY-MM-DD")
		}
		from = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date; expected YYYY-MM-DD")
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to is before from")
	}
	return from, to, nil
}

func (s *HTTPServer) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return 0, false
	}
	return id, true
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
