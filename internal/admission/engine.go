package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rezerv/internal/metrics"
	"rezerv/internal/models"
)

// ReservationStore is the persistence collaborator. WithTx must serialize
// concurrent admission decisions touching the same resources; without that,
// two concurrent Admit calls could both observe "no conflict" and both
// succeed under auto-accept.
type ReservationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// FindByResourceAndDateWindow returns the resource's reservations on the
	// given date and both adjacent dates, so midnight-crossing ranges are
	// visible to the overlap check.
	FindByResourceAndDateWindow(ctx context.Context, resourceID string, date time.Time) ([]models.Reservation, error)

	// ListByRequesterAndResource returns the requester's reservations on the
	// resource, any date.
	ListByRequesterAndResource(ctx context.Context, requesterID, resourceID string) ([]models.Reservation, error)

	CreateReservation(ctx context.Context, r *models.Reservation) error
}

// ResourceProvider resolves resource ids to resources with their policies.
// A nil resource with nil error means the id is unknown.
type ResourceProvider interface {
	GetResource(ctx context.Context, id string) (*models.Resource, error)
}

// EligibilityChecker decides whether a requester type may book a restricted
// resource.
type EligibilityChecker interface {
	Eligible(ctx context.Context, requesterType string, resource *models.Resource) (bool, error)
}

// EventPublisher receives domain events after successful admission.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Draft is an incoming reservation request before admission.
type Draft struct {
	RequesterID    string
	RequesterType  string
	RequesterName  string
	RequesterPhone string
	Title          string
	Description    string
	ResourceIDs    []string
	Range          models.TimeRange
}

// Engine runs overlap and budget checks across every resource a request
// references and decides the initial status.
type Engine struct {
	store       ReservationStore
	resources   ResourceProvider
	eligibility EligibilityChecker
	events      EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEngine creates an admission engine. events may be nil.
func NewEngine(store ReservationStore, resources ResourceProvider, eligibility EligibilityChecker, events EventPublisher, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:       store,
		resources:   resources,
		eligibility: eligibility,
		events:      events,
		logger:      logger.With().Str("component", "admission").Logger(),
		now:         time.Now,
	}
}

// Admit validates the draft against every referenced resource and persists
// the reservation with its resulting status. The first failing check rejects
// the whole request; a bundle is admitted all-or-nothing.
func (e *Engine) Admit(ctx context.Context, draft Draft) (*models.Reservation, error) {
	if len(draft.ResourceIDs) == 0 {
		return nil, fmt.Errorf("%w: no resources referenced", ErrResourceNotFound)
	}
	if _, err := draft.Range.DurationMinutes(); err != nil {
		return nil, err
	}

	var created *models.Reservation
	err := e.store.WithTx(ctx, func(txCtx context.Context) error {
		autoAccept := true
		for _, resourceID := range draft.ResourceIDs {
			resource, err := e.checkResource(txCtx, resourceID, draft)
			if err != nil {
				return err
			}
			if !resource.Policy.AutoAccept {
				autoAccept = false
			}
		}

		status := models.StatusPending
		if autoAccept {
			status = models.StatusAccepted
		}

		now := e.now()
		created = &models.Reservation{
			ID:             uuid.NewString(),
			RequesterID:    draft.RequesterID,
			RequesterType:  draft.RequesterType,
			RequesterName:  draft.RequesterName,
			RequesterPhone: draft.RequesterPhone,
			Title:          draft.Title,
			Description:    draft.Description,
			ResourceIDs:    draft.ResourceIDs,
			Range:          draft.Range,
			Status:         status,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return e.store.CreateReservation(txCtx, created)
	})
	if err != nil {
		metrics.IncAdmission("rejected")
		e.logger.Info().Err(err).
			Strs("resources", draft.ResourceIDs).
			Str("requester", draft.RequesterID).
			Msg("admission rejected")
		return nil, err
	}

	metrics.IncAdmission(string(created.Status))
	e.logger.Info().
		Str("reservation", created.ID).
		Str("status", string(created.Status)).
		Strs("resources", created.ResourceIDs).
		Msg("reservation admitted")

	if e.events != nil {
		_ = e.events.PublishJSON("reservation.created", created)
	}
	return created, nil
}

// checkResource resolves one resource and runs eligibility, budget and
// overlap checks for it.
func (e *Engine) checkResource(ctx context.Context, resourceID string, draft Draft) (*models.Resource, error) {
	resource, err := e.resources.GetResource(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("resolve resource %s: %w", resourceID, err)
	}
	if resource == nil || !resource.Active {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resourceID)
	}

	if resource.Policy.Restricted() && e.eligibility != nil {
		ok, err := e.eligibility.Eligible(ctx, draft.RequesterType, resource)
		if err != nil {
			return nil, fmt.Errorf("eligibility check for %s: %w", resourceID, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRegionRestricted, resource.Name)
		}
	}

	requesterHistory, err := e.store.ListByRequesterAndResource(ctx, draft.RequesterID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list requester reservations for %s: %w", resourceID, err)
	}
	if err := CheckBudget(resource.Policy, draft.Range, requesterHistory); err != nil {
		return nil, err
	}

	window, err := e.store.FindByResourceAndDateWindow(ctx, resourceID, draft.Range.Date)
	if err != nil {
		return nil, fmt.Errorf("find reservations for %s: %w", resourceID, err)
	}
	var blocking []models.TimeRange
	for _, r := range window {
		if r.Blocks() {
			blocking = append(blocking, r.Range)
		}
	}
	if models.HasConflict(draft.Range, blocking) {
		return nil, fmt.Errorf("%w: resource %s", ErrOverlapConflict, resource.Name)
	}

	return resource, nil
}
