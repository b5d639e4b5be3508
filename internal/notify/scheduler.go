package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SchedulerConfig holds configuration for the reminder scheduler.
type SchedulerConfig struct {
	// Timezone for scheduling (e.g. "Asia/Seoul").
	Timezone string
	// DailyHour is the hour (0-23) when the daily reminder pass runs.
	DailyHour int
	// CheckInterval is how often to check whether it is time to run.
	CheckInterval time.Duration
	// Window is how far ahead to look for upcoming reservations.
	Window time.Duration
}

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Timezone:      "Asia/Seoul",
		DailyHour:     9,
		CheckInterval: 1 * time.Minute,
		Window:        24 * time.Hour,
	}
}

// Scheduler runs a daily pass that reminds requesters about their upcoming
// accepted reservations.
type Scheduler struct {
	config   SchedulerConfig
	source   ReservationSource
	sender   *Sender
	location *time.Location
	logger   zerolog.Logger

	mu          sync.Mutex
	lastRunDate string // YYYY-MM-DD of last run
	running     bool
	stopCh      chan struct{}
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(config SchedulerConfig, source ReservationSource, sender *Sender, logger *zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, err
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.Window <= 0 {
		config.Window = 24 * time.Hour
	}
	return &Scheduler{
		config:   config,
		source:   source,
		sender:   sender,
		location: loc,
		logger:   logger.With().Str("component", "notify_scheduler").Logger(),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins the scheduler loop. Blocks until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Str("timezone", s.config.Timezone).
		Int("daily_hour", s.config.DailyHour).
		Msg("reminder scheduler started")

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder scheduler stopped by context")
			return
		case <-s.stopCh:
			s.logger.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

// checkAndRun runs the daily pass once per day after the configured hour.
func (s *Scheduler) checkAndRun(ctx context.Context) {
	now := time.Now().In(s.location)
	today := now.Format("2006-01-02")

	s.mu.Lock()
	alreadyRan := s.lastRunDate == today
	s.mu.Unlock()

	if alreadyRan || now.Hour() < s.config.DailyHour {
		return
	}

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("reminder pass failed")
		return
	}

	s.mu.Lock()
	s.lastRunDate = today
	s.mu.Unlock()
}

// RunOnce sends reminders for every upcoming reservation in the window.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	upcoming, err := s.source.GetUpcomingAccepted(ctx, s.config.Window)
	if err != nil {
		return err
	}

	sent := 0
	for _, r := range upcoming {
		if err := s.sender.SendWithRetry(ctx, r); err != nil {
			s.logger.Error().Err(err).Str("reservation", r.ID).Msg("send reminder")
			continue
		}
		sent++
	}

	s.logger.Info().Int("upcoming", len(upcoming)).Int("sent", sent).Msg("reminder pass complete")
	return nil
}
