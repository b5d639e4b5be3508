// Package admission decides whether a reservation request may be granted.
package admission

import "errors"

// Typed rejection reasons surfaced by Admit. All are expected,
// caller-recoverable conditions; match with errors.Is.
var (
	ErrResourceNotFound        = errors.New("resource not found")
	ErrExceedsMaxDuration      = errors.New("booking exceeds per-request duration cap")
	ErrExceedsCumulativeBudget = errors.New("cumulative usage budget exceeded")
	ErrOverlapConflict         = errors.New("time range conflicts with an accepted reservation")
	ErrRegionRestricted        = errors.New("requester not eligible for restricted resource")
)
