package models

import "time"

// Status is the lifecycle state of a reservation request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// Reservation represents a reservation request over one or more resources.
// A request spanning several equipment items (a bundle) is a single
// reservation; admission and acceptance are all-or-nothing across ResourceIDs.
type Reservation struct {
	ID             string    `json:"id"`
	RequesterID    string    `json:"requester_id"`
	RequesterType  string    `json:"requester_type"`
	RequesterName  string    `json:"requester_name"`
	RequesterPhone string    `json:"requester_phone"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	ResourceIDs    []string  `json:"resource_ids"`
	Range          TimeRange `json:"range"`
	Status         Status    `json:"status"`
	StaffComment   string    `json:"staff_comment,omitempty"`
	ReminderSent   bool      `json:"reminder_sent"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Blocks reports whether the reservation constrains other reservations'
// admission. Only accepted reservations block; pending ones may coexist in
// the same slot until one of them is accepted.
func (r *Reservation) Blocks() bool {
	return r.Status == StatusAccepted
}

// ResourceKind distinguishes bookable places from equipment items.
type ResourceKind string

const (
	KindPlace     ResourceKind = "place"
	KindEquipment ResourceKind = "equipment"
)

// UsagePolicy is attached to a resource and read by the admission engine.
type UsagePolicy struct {
	// MaxMinutesPerRequest caps a single booking's duration. 0 means no cap.
	MaxMinutesPerRequest int `json:"max_minutes_per_request"`
	// CumulativeBudgetMinutes caps a requester's total pending+accepted
	// minutes on the resource. 0 means no cumulative budget.
	CumulativeBudgetMinutes int `json:"cumulative_budget_minutes"`
	// MaxConcurrent is how many accepted reservations may share a slot.
	// Observed as 1 everywhere; kept configurable.
	MaxConcurrent int `json:"max_concurrent"`
	// AutoAccept grants non-conflicting requests immediately without staff review.
	AutoAccept bool `json:"auto_accept"`
	// RestrictedTo lists requester types allowed to book the resource.
	// Empty means open to everyone.
	RestrictedTo []string `json:"restricted_to,omitempty"`
}

// Restricted reports whether the resource limits who may book it.
func (p UsagePolicy) Restricted() bool {
	return len(p.RestrictedTo) > 0
}

// Resource is a bookable place or equipment item.
type Resource struct {
	ID          string       `json:"id"`
	Kind        ResourceKind `json:"kind"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Active      bool         `json:"active"`
	Policy      UsagePolicy  `json:"policy"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
