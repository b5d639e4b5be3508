// Package notify delivers upcoming-reservation reminders. The admission and
// workflow core never depends on this package; it only observes the store.
package notify

import (
	"context"
	"time"

	"rezerv/internal/models"
)

// Notifier sends a reminder about an upcoming reservation.
type Notifier interface {
	SendReservationReminder(ctx context.Context, r models.Reservation) error
}

// ReservationSource provides the reservations that may need a reminder.
type ReservationSource interface {
	// GetUpcomingAccepted returns accepted, not-yet-reminded reservations
	// starting within the given duration.
	GetUpcomingAccepted(ctx context.Context, within time.Duration) ([]models.Reservation, error)

	// MarkReminderSent flags a reservation as reminded.
	MarkReminderSent(ctx context.Context, id string) error
}
