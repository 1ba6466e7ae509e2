package repository

import (
	"context"
	"sync/atomic"
	"time"

	"villastay/internal/domain"
	"villastay/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverQuoteStore writes to the primary until it errors, then serves from
// the fallback and probes the primary again once a minute.
type FailoverQuoteStore struct {
	primary   domain.QuoteStore
	fallback  domain.QuoteStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverQuoteStore(primary, fallback domain.QuoteStore, logger *zerolog.Logger) *FailoverQuoteStore {
	return &FailoverQuoteStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverQuoteStore) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary quote store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary reports whether the call should go to the primary store.
func (r *FailoverQuoteStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

func (r *FailoverQuoteStore) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary quote store recovered")
	}
}

func (r *FailoverQuoteStore) SaveQuote(ctx context.Context, quote *models.CancellationQuote) error {
	if r.usePrimary() {
		err := r.primary.SaveQuote(ctx, quote)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SaveQuote(ctx, quote)
}

// GetQuote checks the fallback after a primary miss so quotes written during
// an outage stay confirmable after recovery.
func (r *FailoverQuoteStore) GetQuote(ctx context.Context, id string) (*models.CancellationQuote, error) {
	if r.usePrimary() {
		quote, err := r.primary.GetQuote(ctx, id)
		if err == nil {
			r.recovered()
			if quote != nil {
				return quote, nil
			}
			return r.fallback.GetQuote(ctx, id)
		}
		r.markDown(err)
	}
	return r.fallback.GetQuote(ctx, id)
}

func (r *FailoverQuoteStore) DeleteQuote(ctx context.Context, id string) error {
	if err := r.fallback.DeleteQuote(ctx, id); err != nil {
		return err
	}
	if r.usePrimary() {
		if err := r.primary.DeleteQuote(ctx, id); err != nil {
			r.markDown(err)
			return err
		}
		r.recovered()
	}
	return nil
}

func (r *FailoverQuoteStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
