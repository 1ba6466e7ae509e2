package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"villastay/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveQuote(ctx context.Context, quote *models.CancellationQuote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

func (m *mockStore) GetQuote(ctx context.Context, id string) (*models.CancellationQuote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationQuote), args.Error(1)
}

func (m *mockStore) DeleteQuote(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func newFailover() (*FailoverQuoteStore, *mockStore, *mockStore) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	return NewFailoverQuoteStore(primary, fallback, &logger), primary, fallback
}

func TestFailoverQuoteStore(t *testing.T) {
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		repo, primary, fallback := newFailover()
		q := newQuote("f-1", time.Hour)
		primary.On("GetQuote", ctx, "f-1").Return(q, nil).Once()

		got, err := repo.GetQuote(ctx, "f-1")
		assert.NoError(t, err)
		assert.Equal(t, q, got)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "GetQuote", mock.Anything, mock.Anything)
	})

	t.Run("PrimaryMissChecksFallback", func(t *testing.T) {
		repo, primary, fallback := newFailover()
		q := newQuote("f-2", time.Hour)
		primary.On("GetQuote", ctx, "f-2").Return(nil, nil).Once()
		fallback.On("GetQuote", ctx, "f-2").Return(q, nil).Once()

		got, err := repo.GetQuote(ctx, "f-2")
		assert.NoError(t, err)
		assert.Equal(t, q, got)
		assert.False(t, repo.isDown.Load())
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		repo, primary, fallback := newFailover()
		q := newQuote("f-3", time.Hour)
		primary.On("SaveQuote", ctx, q).Return(errors.New("connection refused")).Once()
		fallback.On("SaveQuote", ctx, q).Return(nil).Once()

		assert.NoError(t, repo.SaveQuote(ctx, q))
		assert.True(t, repo.isDown.Load())

		fallback.On("GetQuote", ctx, "f-3").Return(q, nil).Once()
		got, err := repo.GetQuote(ctx, "f-3")
		assert.NoError(t, err)
		assert.Equal(t, q, got)

		primary.AssertNumberOfCalls(t, "GetQuote", 0)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo, primary, _ := newFailover()
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.False(t, repo.isDown.Load())
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo, primary, fallback := newFailover()
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(false, errors.New("still down")).Once()
		fallback.On("CheckRateLimit", ctx, "k", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "k", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, repo.isDown.Load())
		assert.WithinDuration(t, time.Now(), time.Unix(0, repo.lastCheck.Load()), time.Second)
	})

	t.Run("DeleteRemovesFromBoth", func(t *testing.T) {
		repo, primary, fallback := newFailover()
		fallback.On("DeleteQuote", ctx, "f-4").Return(nil).Once()
		primary.On("DeleteQuote", ctx, "f-4").Return(nil).Once()

		assert.NoError(t, repo.DeleteQuote(ctx, "f-4"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DeleteWhileDownSkipsPrimary", func(t *testing.T) {
		repo, primary, fallback := newFailover()
		repo.markDown(errors.New("down"))
		fallback.On("DeleteQuote", ctx, "f-5").Return(nil).Once()

		assert.NoError(t, repo.DeleteQuote(ctx, "f-5"))
		primary.AssertNotCalled(t, "DeleteQuote", mock.Anything, mock.Anything)
	})

	t.Run("DeletePrimaryError", func(t *testing.T) {
		repo, primary, fallback := newFailover()
		fallback.On("DeleteQuote", ctx, "f-6").Return(nil).Once()
		primary.On("DeleteQuote", ctx, "f-6").Return(errors.New("timeout")).Once()

		assert.Error(t, repo.DeleteQuote(ctx, "f-6"))
		assert.True(t, repo.isDown.Load())
	})
}

func TestFailoverQuoteStore_WithRealStores(t *testing.T) {
	ctx := context.Background()
	primary := new(mockStore)
	primary.On("SaveQuote", mock.Anything, mock.Anything).Return(errors.New("down"))
	logger := zerolog.New(io.Discard)
	repo := NewFailoverQuoteStore(primary, NewMemoryQuoteStore(), &logger)

	q := newQuote("r-1", time.Hour)
	assert.NoError(t, repo.SaveQuote(ctx, q))

	got, err := repo.GetQuote(ctx, "r-1")
	assert.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)

	assert.NoError(t, repo.DeleteQuote(ctx, "r-1"))
	got, err = repo.GetQuote(ctx, "r-1")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
