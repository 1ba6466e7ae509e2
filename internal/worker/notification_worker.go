package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"villastay/internal/config"
	"villastay/internal/domain"
	"villastay/internal/metrics"
	"villastay/internal/models"
	"villastay/internal/notify"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisQueueKey = "notifications:queue"
	deadLetterKey = "notifications:deadletter"
	batchSize     = 20
)

// NotificationWorker drains the notifications outbox. Tasks arrive through
// an in-memory channel, a redis list, or by polling the database.
type NotificationWorker struct {
	store        domain.NotificationStore
	notifiers    map[string]notify.Notifier
	redis        *redis.Client
	retryPolicy  RetryPolicy
	queue        chan *models.Notification
	pollInterval time.Duration
	logger       *zerolog.Logger
}

func NewNotificationWorker(
	store domain.NotificationStore,
	notifiers map[string]notify.Notifier,
	redisClient *redis.Client,
	cfg config.WorkerConfig,
	logger *zerolog.Logger,
) *NotificationWorker {
	retry := RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  cfg.BaseDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: 2,
	}
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &NotificationWorker{
		store:        store,
		notifiers:    notifiers,
		redis:        redisClient,
		retryPolicy:  retry,
		queue:        make(chan *models.Notification, models.WorkerQueueSize),
		pollInterval: poll,
		logger:       logger,
	}
}

// Enqueue persists n to the outbox and schedules it for delivery.
func (w *NotificationWorker) Enqueue(ctx context.Context, n *models.Notification) error {
	if n.Channel == "" {
		return errors.New("notification channel is required")
	}
	if n.Recipient == "" {
		return errors.New("notification recipient is required")
	}

	if err := w.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if w.redis != nil {
		err := w.pushRedis(ctx, redisQueueKey, n)
		if err == nil {
			return nil
		}
		w.logger.Warn().Err(err).Int64("notification_id", n.ID).Msg("redis push failed, using memory queue")
	}

	select {
	case w.queue <- n:
	default:
		w.logger.Warn().Int64("notification_id", n.ID).Msg("memory queue full, left for polling")
	}
	return nil
}

// Start runs until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("notification worker started")
	defer w.logger.Info().Msg("notification worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if n, ok := w.tryLocalQueue(); ok {
			w.process(ctx, n)
			continue
		}

		if n, ok := w.tryRedis(ctx); ok {
			w.process(ctx, n)
			continue
		}

		pending, err := w.store.GetPendingNotifications(ctx, batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending notifications")
		}
		if err != nil || len(pending) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}
			continue
		}

		for _, n := range pending {
			w.deliver(ctx, n)
		}
	}
}

func (w *NotificationWorker) tryLocalQueue() (*models.Notification, bool) {
	select {
	case n := <-w.queue:
		return n, true
	default:
		return nil, false
	}
}

func (w *NotificationWorker) tryRedis(ctx context.Context) (*models.Notification, bool) {
	if w.redis == nil {
		return nil, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("redis BRPOP")
		}
		return nil, false
	}
	if len(res) != 2 {
		return nil, false
	}
	var n models.Notification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		w.logger.Error().Err(err).Msg("decode redis notification")
		return nil, false
	}
	return &n, true
}

// process reloads a queued notification so one that was already handled by
// the poller is not sent twice.
func (w *NotificationWorker) process(ctx context.Context, queued *models.Notification) {
	n, err := w.store.GetNotification(ctx, queued.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("notification_id", queued.ID).Msg("reload notification")
		return
	}
	if n.Status == models.NotificationSent || n.Status == models.NotificationFailed {
		return
	}
	w.deliver(ctx, n)
}

func (w *NotificationWorker) deliver(ctx context.Context, n *models.Notification) {
	notifier, ok := w.notifiers[n.Channel]
	if !ok {
		w.fail(ctx, n, fmt.Errorf("no notifier for channel %q", n.Channel))
		return
	}

	if err := notifier.Send(ctx, notify.FromNotification(n)); err != nil {
		w.retryOrFail(ctx, n, err)
		return
	}

	metrics.IncNotification(n.Channel, "sent")
	if err := w.store.UpdateNotificationStatus(ctx, n.ID, models.NotificationSent, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("mark sent")
	}
}

func (w *NotificationWorker) retryOrFail(ctx context.Context, n *models.Notification, cause error) {
	attempt := n.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.fail(ctx, n, cause)
		return
	}

	metrics.IncNotification(n.Channel, "retry")
	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	w.logger.Warn().Err(cause).
		Int64("notification_id", n.ID).
		Int("attempt", attempt).
		Time("next_retry_at", next).
		Msg("notification delivery failed, will retry")
	if err := w.store.UpdateNotificationStatus(ctx, n.ID, models.NotificationRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("mark retry")
	}
}

func (w *NotificationWorker) fail(ctx context.Context, n *models.Notification, cause error) {
	metrics.IncNotification(n.Channel, "failed")
	w.logger.Error().Err(cause).Int64("notification_id", n.ID).Str("channel", n.Channel).Msg("notification failed")
	if err := w.store.UpdateNotificationStatus(ctx, n.ID, models.NotificationFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("mark failed")
	}
	if w.redis != nil {
		if err := w.pushRedis(ctx, deadLetterKey, n); err != nil {
			w.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("dead letter push")
		}
	}
}

func (w *NotificationWorker) pushRedis(ctx context.Context, key string, n *models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
