package admission

import (
	"fmt"

	"rezerv/internal/models"
)

// CheckBudget enforces the resource's usage limits against a candidate range.
// The per-request cap is checked before the cumulative cap so that a request
// violating both reports the duration cap. existing is the requester's
// pending and accepted reservations on the same resource; reservations in
// other states never count against the budget.
func CheckBudget(policy models.UsagePolicy, candidate models.TimeRange, existing []models.Reservation) error {
	duration, err := candidate.DurationMinutes()
	if err != nil {
		return err
	}

	if policy.MaxMinutesPerRequest > 0 && duration > policy.MaxMinutesPerRequest {
		return fmt.Errorf("%w: %d > %d minutes", ErrExceedsMaxDuration, duration, policy.MaxMinutesPerRequest)
	}

	if policy.CumulativeBudgetMinutes > 0 {
		total := duration
		for _, r := range existing {
			if r.Status != models.StatusPending && r.Status != models.StatusAccepted {
				continue
			}
			d, err := r.Range.DurationMinutes()
			if err != nil {
				return fmt.Errorf("reservation %s: %w", r.ID, err)
			}
			total += d
		}
		if total > policy.CumulativeBudgetMinutes {
			return fmt.Errorf("%w: %d > %d minutes", ErrExceedsCumulativeBudget, total, policy.CumulativeBudgetMinutes)
		}
	}

	return nil
}
