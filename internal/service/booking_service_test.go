package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"villastay/internal/database"
	"villastay/internal/domain"
	"villastay/internal/events"
	"villastay/internal/models"
	"villastay/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBookingService(store *mockStore, bus domain.EventPublisher, queue domain.NotificationQueue) *BookingService {
	s := NewBookingService(store, bus, queue, testSettings(), nopLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func validRequest() *models.BookingRequest {
	return &models.BookingRequest{
		RoomID:     1,
		GuestName:  " Asha Rao ",
		GuestEmail: "asha@example.com",
		StartDate:  "2024-06-10",
		EndDate:    "2024-06-12",
		VegGuests:  2,
	}
}

func TestBookingService_CreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("pending booking is priced and announced", func(t *testing.T) {
		store, bus, queue := new(mockStore), new(mockEventBus), &fakeQueue{}
		s := newBookingService(store, bus, queue)

		store.On("GetRoom", ctx, int64(1)).Return(gardenVilla(), nil).Once()
		store.On("CreateBooking", ctx, mock.MatchedBy(func(b *models.Booking) bool {
			return b.RoomTotal == 10000 && b.MealTotal == 2000 && b.Amount == 12000 &&
				b.Status == models.StatusPending && b.GuestName == "Asha Rao" &&
				b.StartDate.Equal(date(6, 10)) && b.EndDate.Equal(date(6, 12))
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Booking).ID = 7
		}).Return(nil).Once()
		bus.On("PublishJSON", events.EventBookingCreated, mock.Anything).Return(nil).Once()

		b, err := s.CreateBooking(ctx, validRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(7), b.ID)
		assert.Equal(t, "Garden Villa", b.RoomName)
		assert.Equal(t, int64(5000), b.PricePerNight)

		emails := queue.byChannel(models.ChannelEmail)
		require.Len(t, emails, 1)
		assert.Equal(t, "asha@example.com", emails[0].Recipient)
		assert.Contains(t, emails[0].Body, "INR 12,000")
		assert.Contains(t, emails[0].Body, "held until payment")

		alerts := queue.byChannel(models.ChannelTelegram)
		require.Len(t, alerts, 1)
		assert.Equal(t, "42", alerts[0].Recipient)

		store.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("payment id confirms immediately", func(t *testing.T) {
		store, bus, queue := new(mockStore), new(mockEventBus), &fakeQueue{}
		s := newBookingService(store, bus, queue)

		store.On("GetRoom", ctx, int64(1)).Return(gardenVilla(), nil).Once()
		store.On("CreateBooking", ctx, mock.Anything).Return(nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

		req := validRequest()
		req.PaymentID = "pay_1"
		req.PaymentProvider = "razorpay"
		b, err := s.CreateBooking(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, b.Status)
		assert.Equal(t, "pay_1", b.PaymentID)
		assert.Equal(t, "razorpay", b.PaymentProvider)
	})

	failures := []struct {
		name    string
		mutate  func(r *models.BookingRequest)
		room    *models.Room
		roomErr error
		want    error
	}{
		{"bad start date", func(r *models.BookingRequest) { r.StartDate = "10/06/2024" }, nil, nil, ErrInvalidRequest},
		{"bad end date", func(r *models.BookingRequest) { r.EndDate = "" }, nil, nil, ErrInvalidRequest},
		{"check-in in the past", func(r *models.BookingRequest) { r.StartDate = "2024-05-31" }, nil, nil, ErrInvalidRequest},
		{"unknown room", func(r *models.BookingRequest) {}, nil, database.ErrNotFound, ErrRoomNotFound},
		{"inactive room", func(r *models.BookingRequest) {}, &models.Room{ID: 1, PricePerNight: 100}, nil, ErrRoomNotFound},
		{"too many guests", func(r *models.BookingRequest) { r.VegGuests = 7 }, gardenVilla(), nil, ErrInvalidRequest},
		{"meal without price", func(r *models.BookingRequest) { r.ComboGuests = 1 }, gardenVilla(), nil, pricing.ErrMissingPriceConfiguration},
		{"end before start", func(r *models.BookingRequest) { r.EndDate = "2024-06-09" }, gardenVilla(), nil, pricing.ErrInvalidDateRange},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			store, bus, queue := new(mockStore), new(mockEventBus), &fakeQueue{}
			s := newBookingService(store, bus, queue)
			if tt.room != nil || tt.roomErr != nil {
				store.On("GetRoom", ctx, int64(1)).Return(tt.room, tt.roomErr).Once()
			}

			req := validRequest()
			tt.mutate(req)
			_, err := s.CreateBooking(ctx, req)
			assert.ErrorIs(t, err, tt.want)

			store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
			bus.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
			assert.Empty(t, queue.sent)
		})
	}

	t.Run("overlap is reported by the store", func(t *testing.T) {
		store, bus, queue := new(mockStore), new(mockEventBus), &fakeQueue{}
		s := newBookingService(store, bus, queue)
		store.On("GetRoom", ctx, int64(1)).Return(gardenVilla(), nil).Once()
		store.On("CreateBooking", ctx, mock.Anything).Return(database.ErrNotAvailable).Once()

		_, err := s.CreateBooking(ctx, validRequest())
		assert.ErrorIs(t, err, database.ErrNotAvailable)
		assert.Empty(t, queue.sent)
	})
}

func TestBookingService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store, bus, queue := new(mockStore), new(mockEventBus), &fakeQueue{}
		s := newBookingService(store, bus, queue)

		confirmed := &models.Booking{ID: 3, GuestEmail: "a@example.com", Status: models.StatusConfirmed, PaymentID: "pay_9", Amount: 12000, Version: 2}
		store.On("ConfirmPaymentWithVersion", ctx, int64(3), int64(1), "pay_9", "stripe").Return(nil).Once()
		store.On("GetBooking", ctx, int64(3)).Return(confirmed, nil).Once()
		bus.On("PublishJSON", events.EventBookingConfirmed, mock.Anything).Return(nil).Once()

		b, err := s.ConfirmPayment(ctx, 3, 1, " pay_9 ", "stripe")
		require.NoError(t, err)
		assert.Equal(t, confirmed, b)
		require.Len(t, queue.sent, 1)
		assert.Contains(t, queue.sent[0].Body, "pay_9")
		bus.AssertExpectations(t)
	})

	t.Run("missing payment id", func(t *testing.T) {
		s := newBookingService(new(mockStore), new(mockEventBus), &fakeQueue{})
		_, err := s.ConfirmPayment(ctx, 3, 1, "  ", "stripe")
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("version conflict", func(t *testing.T) {
		store := new(mockStore)
		s := newBookingService(store, new(mockEventBus), &fakeQueue{})
		store.On("ConfirmPaymentWithVersion", ctx, int64(3), int64(1), "pay_9", "").Return(database.ErrConcurrentModification).Once()

		_, err := s.ConfirmPayment(ctx, 3, 1, "pay_9", "")
		assert.ErrorIs(t, err, database.ErrConcurrentModification)
	})

	t.Run("event bus failure is not fatal", func(t *testing.T) {
		store, bus := new(mockStore), new(mockEventBus)
		s := newBookingService(store, bus, &fakeQueue{})
		store.On("ConfirmPaymentWithVersion", ctx, int64(4), int64(1), "p", "").Return(nil).Once()
		store.On("GetBooking", ctx, int64(4)).Return(&models.Booking{ID: 4}, nil).Once()
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("handler failed")).Once()

		_, err := s.ConfirmPayment(ctx, 4, 1, "p", "")
		assert.NoError(t, err)
	})
}

func storedBooking() *models.Booking {
	return &models.Booking{
		ID:            5,
		RoomID:        1,
		StartDate:     date(6, 10),
		EndDate:       date(6, 12),
		VegGuests:     2,
		PricePerNight: 5000,
		RoomTotal:     10000,
		MealTotal:     2000,
		Amount:        12000,
		Status:        models.StatusConfirmed,
		Version:       2,
	}
}

func TestBookingService_GetInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("itemized with tax", func(t *testing.T) {
		store := new(mockStore)
		s := newBookingService(store, nil, nil)
		store.On("GetBooking", ctx, int64(5)).Return(storedBooking(), nil).Once()
		store.On("GetRoom", ctx, int64(1)).Return(gardenVilla(), nil).Once()

		b, inv, err := s.GetInvoice(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), b.ID)
		assert.Equal(t, 2, inv.Nights)
		assert.Equal(t, pricing.LineItem{Label: pricing.LabelRoom, UnitPrice: 5000, Quantity: 2, LineTotal: 10000}, inv.Room)
		require.Len(t, inv.Meals, 1)
		assert.Equal(t, int64(2000), inv.Meals[0].LineTotal)
		assert.Equal(t, pricing.Totals{SubTotal: 12000, Tax: 1440, GrandTotal: 13440}, inv.Totals)
	})

	t.Run("stored totals disagree", func(t *testing.T) {
		store := new(mockStore)
		s := newBookingService(store, nil, nil)
		bad := storedBooking()
		bad.Amount = 11000
		store.On("GetBooking", ctx, int64(5)).Return(bad, nil).Once()

		_, _, err := s.GetInvoice(ctx, 5)
		assert.ErrorIs(t, err, pricing.ErrTotalsMismatch)
		store.AssertNotCalled(t, "GetRoom", mock.Anything, mock.Anything)
	})

	t.Run("meal price changed since booking", func(t *testing.T) {
		store := new(mockStore)
		s := newBookingService(store, nil, nil)
		room := gardenVilla()
		room.MealPriceVeg = i64(600)
		store.On("GetBooking", ctx, int64(5)).Return(storedBooking(), nil).Once()
		store.On("GetRoom", ctx, int64(1)).Return(room, nil).Once()

		_, _, err := s.GetInvoice(ctx, 5)
		assert.ErrorIs(t, err, pricing.ErrTotalsMismatch)
	})

	t.Run("not found", func(t *testing.T) {
		store := new(mockStore)
		s := newBookingService(store, nil, nil)
		store.On("GetBooking", ctx, int64(9)).Return(nil, database.ErrNotFound).Once()

		_, _, err := s.GetInvoice(ctx, 9)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})
}

func TestBookingService_ListBookings(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	s := newBookingService(store, nil, nil)

	_, err := s.ListBookings(ctx, date(6, 10), date(6, 1))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	want := []*models.Booking{storedBooking()}
	store.On("GetBookingsByDateRange", ctx, date(6, 1), date(6, 30)).Return(want, nil).Once()
	got, err := s.ListBookings(ctx, date(6, 1), date(6, 30))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRoomService(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	s := NewRoomService(store, nopLogger())

	rooms := []*models.Room{gardenVilla()}
	store.On("GetActiveRooms", ctx).Return(rooms, nil).Once()
	got, err := s.GetActiveRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, rooms, got)

	store.On("GetRoom", ctx, int64(1)).Return(gardenVilla(), nil).Once()
	room, err := s.GetRoom(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Garden Villa", room.Name)

	store.On("GetRoom", ctx, int64(2)).Return(nil, database.ErrNotFound).Once()
	_, err = s.GetRoom(ctx, 2)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	store.On("GetRoom", ctx, int64(3)).Return(nil, errors.New("disk I/O error")).Once()
	_, err = s.GetRoom(ctx, 3)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
}
