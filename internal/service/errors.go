package service

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRoomNotFound   = errors.New("room not found")
	ErrQuoteNotFound  = errors.New("cancellation quote not found or expired")
	ErrQuoteStale     = errors.New("booking changed after the quote was issued")
	ErrRateLimited    = errors.New("too many cancellation quotes for this booking")
)
