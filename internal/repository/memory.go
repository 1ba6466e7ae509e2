package repository

import (
	"context"
	"sync"
	"time"

	"villastay/internal/models"
)

type MemoryQuoteStore struct {
	quotes     sync.Map
	rateMu     sync.Mutex
	rateLimits map[string]*rateLimitEntry
	now        func() time.Time
}

func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{
		rateLimits: make(map[string]*rateLimitEntry),
		now:        time.Now,
	}
}

func (r *MemoryQuoteStore) SaveQuote(ctx context.Context, quote *models.CancellationQuote) error {
	stored := *quote
	r.quotes.Store(quote.ID, &stored)
	return nil
}

func (r *MemoryQuoteStore) GetQuote(ctx context.Context, id string) (*models.CancellationQuote, error) {
	val, ok := r.quotes.Load(id)
	if !ok {
		return nil, nil
	}
	quote := val.(*models.CancellationQuote)
	if quote.Expired(r.now()) {
		r.quotes.Delete(id)
		return nil, nil
	}
	out := *quote
	return &out, nil
}

func (r *MemoryQuoteStore) DeleteQuote(ctx context.Context, id string) error {
	r.quotes.Delete(id)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryQuoteStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
