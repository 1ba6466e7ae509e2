package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"villastay/internal/models"
	"villastay/internal/pricing"
)

const bookingColumns = `id, room_id, room_name, guest_name, guest_email, guest_phone,
                        start_date, end_date, veg_guests, non_veg_guests, combo_guests,
                        price_per_night, room_total, meal_total, amount,
                        status, payment_id, payment_provider,
                        refund_percent, refund_amount, cancellation_fee, cancelled_at,
                        created_at, updated_at, version`

// occupiedUntil is the exclusive end of the nights a stored booking holds. A
// same-day stay still holds one night.
const occupiedUntil = `MAX(end_date, date(start_date, '+1 day'))`

// CreateBooking inserts the booking after checking, in the same transaction,
// that no live booking of the room overlaps its nights.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	start := b.StartDate.Format(dateLayout)
	end := b.EndDate.Format(dateLayout)
	until := end
	if until <= start {
		until = b.StartDate.AddDate(0, 0, 1).Format(dateLayout)
	}

	var overlapping int
	queryCount := `SELECT COUNT(*) FROM bookings
                   WHERE room_id = ? AND status != ? AND start_date < ? AND ` + occupiedUntil + ` > ?`
	err = tx.QueryRowContext(ctx, queryCount, b.RoomID, models.StatusCancelled, until, start).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if overlapping > 0 {
		return ErrNotAvailable
	}

	queryInsert := `INSERT INTO bookings (
                room_id, room_name, guest_name, guest_email, guest_phone,
                start_date, end_date, veg_guests, non_veg_guests, combo_guests,
                price_per_night, room_total, meal_total, amount,
                status, payment_id, payment_provider, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		b.RoomID, b.RoomName, b.GuestName, b.GuestEmail, b.GuestPhone,
		start, end, b.VegGuests, b.NonVegGuests, b.ComboGuests,
		b.PricePerNight, b.RoomTotal, b.MealTotal, b.Amount,
		b.Status, b.PaymentID, b.PaymentProvider, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := db.scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// GetBookingsByDateRange returns every booking whose stay touches [from, to],
// cancelled ones included.
func (db *DB) GetBookingsByDateRange(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_date <= ? AND end_date >= ?
              ORDER BY start_date, id`
	rows, err := db.QueryContext(ctx, query, to.Format(dateLayout), from.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// ConfirmPaymentWithVersion moves a pending booking to confirmed.
func (db *DB) ConfirmPaymentWithVersion(ctx context.Context, id, version int64, paymentID, provider string) error {
	query := `UPDATE bookings
              SET status = ?, payment_id = ?, payment_provider = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`
	result, err := db.ExecContext(ctx, query,
		models.StatusConfirmed, paymentID, provider, time.Now(),
		id, version, models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}
	if rows == 0 {
		return db.explainMiss(ctx, id, version)
	}
	return nil
}

// CancelBookingWithVersion applies a refund quote and marks the booking
// cancelled in one statement. Of two concurrent callers holding the same
// version only one can match the row.
func (db *DB) CancelBookingWithVersion(ctx context.Context, id, version int64, quote pricing.RefundQuote, at time.Time) error {
	query := `UPDATE bookings
              SET status = ?, refund_percent = ?, refund_amount = ?, cancellation_fee = ?,
                  cancelled_at = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status != ?`
	result, err := db.ExecContext(ctx, query,
		models.StatusCancelled, quote.RefundPercent, quote.RefundAmount, quote.CancellationFee,
		at, time.Now(),
		id, version, models.StatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if rows == 0 {
		return db.explainMiss(ctx, id, version)
	}
	return nil
}

// explainMiss turns a guarded update that matched no row into the reason.
func (db *DB) explainMiss(ctx context.Context, id, version int64) error {
	var status string
	var current int64
	err := db.QueryRowContext(ctx, `SELECT status, version FROM bookings WHERE id = ?`, id).Scan(&status, &current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("booking %d: %w", id, ErrNotFound)
	case err != nil:
		return fmt.Errorf("failed to read booking state: %w", err)
	case status == models.StatusCancelled:
		return ErrAlreadyCancelled
	case current != version:
		return ErrConcurrentModification
	default:
		return fmt.Errorf("%w: booking %d is %s", ErrInvalidTransition, id, status)
	}
}

func (db *DB) scanBooking(s scanner) (*models.Booking, error) {
	var b models.Booking
	var start, end string
	var cancelledAt sql.NullTime
	err := s.Scan(
		&b.ID, &b.RoomID, &b.RoomName, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&start, &end, &b.VegGuests, &b.NonVegGuests, &b.ComboGuests,
		&b.PricePerNight, &b.RoomTotal, &b.MealTotal, &b.Amount,
		&b.Status, &b.PaymentID, &b.PaymentProvider,
		&b.RefundPercent, &b.RefundAmount, &b.CancellationFee, &cancelledAt,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	if b.StartDate, err = time.ParseInLocation(dateLayout, start, db.loc); err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", start, err)
	}
	if b.EndDate, err = time.ParseInLocation(dateLayout, end, db.loc); err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", end, err)
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}
