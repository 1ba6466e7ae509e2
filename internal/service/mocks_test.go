package service

import (
	"context"
	"io"
	"sync"
	"time"

	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *mockStore) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Room), args.Error(1)
}

func (m *mockStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) GetBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockStore) ConfirmPaymentWithVersion(ctx context.Context, id, version int64, paymentID, provider string) error {
	return m.Called(ctx, id, version, paymentID, provider).Error(0)
}

func (m *mockStore) CancelBookingWithVersion(ctx context.Context, id, version int64, quote pricing.RefundQuote, at time.Time) error {
	return m.Called(ctx, id, version, quote, at).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (q *fakeQueue) Enqueue(_ context.Context, n *models.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, n)
	return nil
}

func (q *fakeQueue) byChannel(channel string) []*models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*models.Notification
	for _, n := range q.sent {
		if n.Channel == channel {
			out = append(out, n)
		}
	}
	return out
}

func i64(v int64) *int64 { return &v }

func nopLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testSettings() Settings {
	return Settings{
		TaxRatePercent: decimal.NewFromInt(12),
		Currency:       "INR",
		Location:       time.UTC,
		Policy:         pricing.DefaultPolicy(),
		QuoteTTL:       15 * time.Minute,
		ManagerChatIDs: []int64{42},
	}
}

func gardenVilla() *models.Room {
	return &models.Room{
		ID:            1,
		Name:          "Garden Villa",
		PricePerNight: 5000,
		MealPriceVeg:  i64(500),
		MaxGuests:     6,
		IsActive:      true,
	}
}

// fixedNow is 2024-06-01 10:00 UTC.
var fixedNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func date(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeQuoteStore keeps quotes without expiry so tests can run on a fixed clock.
type fakeQuoteStore struct {
	mu     sync.Mutex
	quotes map[string]models.CancellationQuote
	hits   map[string]int
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{quotes: map[string]models.CancellationQuote{}, hits: map[string]int{}}
}

func (f *fakeQuoteStore) SaveQuote(_ context.Context, q *models.CancellationQuote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[q.ID] = *q
	return nil
}

func (f *fakeQuoteStore) GetQuote(_ context.Context, id string) (*models.CancellationQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (f *fakeQuoteStore) DeleteQuote(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.quotes, id)
	return nil
}

func (f *fakeQuoteStore) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[key]++
	return f.hits[key] <= limit, nil
}
