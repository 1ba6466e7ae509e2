package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"villastay/internal/models"
)

const roomColumns = `id, name, description, price_per_night, meal_price_veg, meal_price_non_veg,
                     meal_price_combo, max_guests, is_active, sort_order`

// SyncRooms makes the rooms table match the configured catalogue. Rooms that
// are no longer configured are deactivated, not deleted, because bookings
// still reference them.
func (db *DB) SyncRooms(ctx context.Context, rooms []models.Room) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	upsert := `INSERT INTO rooms (` + roomColumns + `, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
               ON CONFLICT(id) DO UPDATE SET
                   name = excluded.name,
                   description = excluded.description,
                   price_per_night = excluded.price_per_night,
                   meal_price_veg = excluded.meal_price_veg,
                   meal_price_non_veg = excluded.meal_price_non_veg,
                   meal_price_combo = excluded.meal_price_combo,
                   max_guests = excluded.max_guests,
                   is_active = 1,
                   sort_order = excluded.sort_order,
                   updated_at = excluded.updated_at`

	now := time.Now()
	ids := make([]interface{}, 0, len(rooms))
	for _, r := range rooms {
		_, err := tx.ExecContext(ctx, upsert,
			r.ID, r.Name, r.Description, r.PricePerNight,
			nullInt64(r.MealPriceVeg), nullInt64(r.MealPriceNonVeg), nullInt64(r.MealPriceCombo),
			r.MaxGuests, r.SortOrder, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert room %d: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
	}

	deactivate := `UPDATE rooms SET is_active = 0, updated_at = ? WHERE is_active = 1`
	args := []interface{}{now}
	if len(ids) > 0 {
		deactivate += ` AND id NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)`
		args = append(args, ids...)
	}
	if _, err := tx.ExecContext(ctx, deactivate, args...); err != nil {
		return fmt.Errorf("failed to deactivate rooms: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit room sync: %w", err)
	}

	db.logger.Info().Int("rooms", len(rooms)).Msg("Rooms synced")
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (db *DB) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE is_active = 1 ORDER BY sort_order, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRoom(s scanner) (*models.Room, error) {
	var r models.Room
	var veg, nonVeg, combo sql.NullInt64
	err := s.Scan(&r.ID, &r.Name, &r.Description, &r.PricePerNight, &veg, &nonVeg, &combo,
		&r.MaxGuests, &r.IsActive, &r.SortOrder)
	if err != nil {
		return nil, err
	}
	r.MealPriceVeg = int64Ptr(veg)
	r.MealPriceNonVeg = int64Ptr(nonVeg)
	r.MealPriceCombo = int64Ptr(combo)
	return &r, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
