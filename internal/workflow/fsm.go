// Package workflow governs the reservation status lifecycle.
package workflow

import (
	"errors"

	"rezerv/internal/models"
)

// ErrInvalidStateTransition reports a transition attempt the state machine
// does not allow, including any attempt out of a terminal state.
var ErrInvalidStateTransition = errors.New("invalid status transition")

// ErrReservationNotFound reports an unknown reservation id.
var ErrReservationNotFound = errors.New("reservation not found")

// FSM holds the allowed status transitions.
type FSM struct {
	transitions map[models.Status][]models.Status
}

// NewFSM creates the reservation state machine. Rejected and cancelled are
// terminal; cancelling an accepted reservation is the only transition out of
// accepted.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[models.Status][]models.Status{
			models.StatusPending:  {models.StatusAccepted, models.StatusRejected, models.StatusCancelled},
			models.StatusAccepted: {models.StatusCancelled},
		},
	}
}

// CanTransition checks if the transition is allowed.
func (f *FSM) CanTransition(from, to models.Status) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
