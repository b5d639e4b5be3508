package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rezerv/internal/models"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// SenderConfig holds configuration for the sender.
type SenderConfig struct {
	RatePerSecond float64
	Burst         int
	Retry         RetryConfig
}

// DefaultSenderConfig returns the default configuration.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		RatePerSecond: 20,
		Burst:         30,
		Retry:         DefaultRetryConfig(),
	}
}

// Sender delivers reminders with rate limiting and retries.
type Sender struct {
	notifier Notifier
	source   ReservationSource
	limiter  *rate.Limiter
	retry    RetryConfig
	metrics  *Metrics
	logger   zerolog.Logger
}

// NewSender creates a sender. metrics may be nil.
func NewSender(notifier Notifier, source ReservationSource, cfg SenderConfig, metrics *Metrics, logger *zerolog.Logger) *Sender {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultSenderConfig().RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultSenderConfig().Burst
	}
	return &Sender{
		notifier: notifier,
		source:   source,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		retry:    cfg.Retry,
		metrics:  metrics,
		logger:   logger.With().Str("component", "notify").Logger(),
	}
}

// SendWithRetry sends one reminder, honoring the rate limit, and marks the
// reservation as reminded on success.
func (s *Sender) SendWithRetry(ctx context.Context, r models.Reservation) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if s.metrics != nil {
				s.metrics.ReminderRetries.Inc()
			}
			delay := s.retry.RetryDelays[min(attempt-1, len(s.retry.RetryDelays)-1)]
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = s.notifier.SendReservationReminder(ctx, r)
		if lastErr == nil {
			break
		}
	}
	if s.metrics != nil {
		s.metrics.ReminderSendDuration.Observe(time.Since(start).Seconds())
	}

	if lastErr != nil {
		if s.metrics != nil {
			s.metrics.RemindersSentTotal.WithLabelValues("failed").Inc()
		}
		return fmt.Errorf("send reminder for %s: %w", r.ID, lastErr)
	}

	if err := s.source.MarkReminderSent(ctx, r.ID); err != nil {
		s.logger.Error().Err(err).Str("reservation", r.ID).Msg("mark reminder sent")
	}
	if s.metrics != nil {
		s.metrics.RemindersSentTotal.WithLabelValues("sent").Inc()
	}
	return nil
}
