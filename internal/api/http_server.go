package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"villastay/internal/config"
	"villastay/internal/domain"
	"villastay/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Services are the use cases the HTTP API exposes.
type Services struct {
	Rooms         domain.RoomService
	Bookings      domain.BookingService
	Cancellations domain.CancellationService
}

// HTTPServer exposes the booking API over JSON.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      Services
	currency string
	loc      *time.Location
	now      func() time.Time
	validate *validator.Validate
	auth     *HTTPAuth
	logger   zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(cfg config.APIConfig, svc Services, currency string, loc *time.Location, logger *zerolog.Logger) *HTTPServer {
	if loc == nil {
		loc = time.UTC
	}
	srv := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		currency: currency,
		loc:      loc,
		now:      time.Now,
		validate: newValidator(),
		auth:     NewHTTPAuth(cfg),
		logger:   zerolog.Nop(),
	}
	if logger != nil {
		srv.logger = logger.With().Str("component", "http").Logger()
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	s.handle(mux, "GET /healthz", "", s.handleHealth, false)
	s.handle(mux, "GET /api/v1/rooms", PermReadBookings, s.handleRooms, true)
	s.handle(mux, "GET /api/v1/refund-policy", PermReadBookings, s.handleRefundPolicy, true)

	s.handle(mux, "POST /api/v1/bookings", PermWriteBookings, s.handleCreateBooking, true)
	s.handle(mux, "GET /api/v1/bookings/{id}", PermReadBookings, s.handleGetBooking, true)
	s.handle(mux, "POST /api/v1/bookings/{id}/payment", PermWriteBookings, s.handleConfirmPayment, true)
	s.handle(mux, "GET /api/v1/bookings/{id}/invoice", PermReadBookings, s.handleInvoice, true)
	s.handle(mux, "GET /api/v1/bookings/{id}/invoice.pdf", PermReadBookings, s.handleInvoicePDF, true)

	s.handle(mux, "POST /api/v1/bookings/{id}/cancellation/quote", PermCancelBookings, s.handleQuoteCancellation, true)
	s.handle(mux, "POST /api/v1/cancellations/{quote_id}/confirm", PermCancelBookings, s.handleConfirmCancellation, true)

	s.handle(mux, "GET /api/v1/exports/bookings", PermExportBookings, s.handleExportBookings, true)
}

func (s *HTTPServer) handle(mux *http.ServeMux, pattern, permission string, h http.HandlerFunc, guarded bool) {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(pattern)
		h(w, r)
	})
	if guarded {
		handler = s.auth.Require(permission, handler)
	}
	mux.Handle(pattern, handler)
}

// Handler returns the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		event := s.logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
