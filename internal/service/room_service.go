package service

import (
	"context"
	"errors"
	"fmt"

	"villastay/internal/database"
	"villastay/internal/domain"
	"villastay/internal/models"

	"github.com/rs/zerolog"
)

type RoomService struct {
	store  domain.BookingStore
	logger *zerolog.Logger
}

func NewRoomService(store domain.BookingStore, logger *zerolog.Logger) *RoomService {
	return &RoomService{store: store, logger: logger}
}

func (s *RoomService) GetActiveRooms(ctx context.Context) ([]*models.Room, error) {
	return s.store.GetActiveRooms(ctx)
}

// GetRoom returns ErrRoomNotFound for unknown and deactivated rooms.
func (s *RoomService) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	return activeRoom(ctx, s.store, id)
}

func activeRoom(ctx context.Context, store domain.BookingStore, id int64) (*models.Room, error) {
	room, err := store.GetRoom(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, fmt.Errorf("%w: %d is not offered", ErrRoomNotFound, id)
	}
	return room, nil
}
