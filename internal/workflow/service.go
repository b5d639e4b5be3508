package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rezerv/internal/admission"
	"rezerv/internal/metrics"
	"rezerv/internal/models"
)

// ReservationStore is the persistence collaborator for status transitions.
// WithTx must serialize acceptance decisions touching the same resources,
// for the same reason admission requires it: several pending requests may
// target the same slot.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	FindByResourceAndDateWindow(ctx context.Context, resourceID string, date time.Time) ([]models.Reservation, error)
	UpdateStatusWithVersion(ctx context.Context, id string, version int64, status models.Status, comment string) error
}

// EventPublisher receives domain events after a successful transition.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Service applies status transitions, re-validating overlap at acceptance
// time: pending requests are created without mutual exclusion, so a slot
// that was free at admission may be taken by the time staff accepts.
type Service struct {
	store  ReservationStore
	fsm    *FSM
	events EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a workflow service. events may be nil.
func NewService(store ReservationStore, events EventPublisher, logger *zerolog.Logger) *Service {
	return &Service{
		store:  store,
		fsm:    NewFSM(),
		events: events,
		logger: logger.With().Str("component", "workflow").Logger(),
		now:    time.Now,
	}
}

// Transition moves the reservation to the target status. Accepting re-runs
// the overlap check against every other accepted reservation on the bundle's
// resources; on conflict the reservation stays pending and
// admission.ErrOverlapConflict is returned. Transitions out of rejected or
// cancelled always fail with ErrInvalidStateTransition.
func (s *Service) Transition(ctx context.Context, id string, target models.Status, staffComment string) (*models.Reservation, error) {
	var updated *models.Reservation

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		reservation, err := s.store.GetReservation(txCtx, id)
		if err != nil {
			return fmt.Errorf("get reservation %s: %w", id, err)
		}
		if reservation == nil {
			return fmt.Errorf("%w: %s", ErrReservationNotFound, id)
		}

		if !s.fsm.CanTransition(reservation.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, reservation.Status, target)
		}

		if target == models.StatusAccepted {
			if err := s.revalidateOverlap(txCtx, reservation); err != nil {
				return err
			}
		}

		if err := s.store.UpdateStatusWithVersion(txCtx, id, reservation.Version, target, staffComment); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		reservation.Status = target
		reservation.StaffComment = staffComment
		reservation.Version++
		reservation.UpdatedAt = s.now()
		updated = reservation
		return nil
	})
	if err != nil {
		s.logger.Info().Err(err).Str("reservation", id).Str("target", string(target)).Msg("transition failed")
		return nil, err
	}

	metrics.IncTransition(string(target))
	s.logger.Info().Str("reservation", id).Str("status", string(target)).Msg("reservation transitioned")
	if s.events != nil {
		_ = s.events.PublishJSON("reservation."+string(target), updated)
	}
	return updated, nil
}

// revalidateOverlap checks every resource in the bundle against the other
// accepted reservations; acceptance is all-or-nothing across the bundle.
func (s *Service) revalidateOverlap(ctx context.Context, reservation *models.Reservation) error {
	for _, resourceID := range reservation.ResourceIDs {
		window, err := s.store.FindByResourceAndDateWindow(ctx, resourceID, reservation.Range.Date)
		if err != nil {
			return fmt.Errorf("find reservations for %s: %w", resourceID, err)
		}

		var blocking []models.TimeRange
		for _, other := range window {
			if other.ID == reservation.ID || !other.Blocks() {
				continue
			}
			blocking = append(blocking, other.Range)
		}
		if models.HasConflict(reservation.Range, blocking) {
			return fmt.Errorf("%w: resource %s", admission.ErrOverlapConflict, resourceID)
		}
	}
	return nil
}
