package admission

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rezerv/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockStore) FindByResourceAndDateWindow(ctx context.Context, resourceID string, date time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, resourceID, date)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockStore) ListByRequesterAndResource(ctx context.Context, requesterID, resourceID string) ([]models.Reservation, error) {
	args := m.Called(ctx, requesterID, resourceID)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

type mockResources struct {
	mock.Mock
}

func (m *mockResources) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Resource), args.Error(1)
}

type mockEligibility struct {
	mock.Mock
}

func (m *mockEligibility) Eligible(ctx context.Context, requesterType string, resource *models.Resource) (bool, error) {
	args := m.Called(ctx, requesterType, resource)
	return args.Bool(0), args.Error(1)
}

func newTestEngine(store *mockStore, resources *mockResources, eligibility EligibilityChecker) *Engine {
	logger := zerolog.New(io.Discard)
	e := NewEngine(store, resources, eligibility, nil, &logger)
	e.now = func() time.Time { return time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC) }
	return e
}

func activeResource(id string, policy models.UsagePolicy) *models.Resource {
	return &models.Resource{
		ID:     id,
		Kind:   models.KindPlace,
		Name:   id,
		Active: true,
		Policy: policy,
	}
}

func testDraft(t *testing.T, resourceIDs []string, start, end string) Draft {
	t.Helper()
	return Draft{
		RequesterID:   "student-1",
		RequesterType: "student",
		Title:         "study session",
		ResourceIDs:   resourceIDs,
		Range:         testRange(t, start, end),
	}
}

func TestAdmit_AutoAccept(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "room-a").
		Return(activeResource("room-a", models.UsagePolicy{AutoAccept: true}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "room-a").
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "room-a", mock.Anything).
		Return([]models.Reservation{}, nil)
	store.On("CreateReservation", mock.Anything, mock.Anything).Return(nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"room-a"}, "1000", "1100"))
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, created.Status)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)
	store.AssertExpectations(t)
}

func TestAdmit_ManualReviewStaysPending(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "hall").
		Return(activeResource("hall", models.UsagePolicy{AutoAccept: false}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "hall").
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "hall", mock.Anything).
		Return([]models.Reservation{}, nil)
	store.On("CreateReservation", mock.Anything, mock.Anything).Return(nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"hall"}, "1000", "1100"))
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
}

func TestAdmit_OverlapWithAccepted(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "room-a").
		Return(activeResource("room-a", models.UsagePolicy{AutoAccept: true}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "room-a").
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "room-a", mock.Anything).
		Return([]models.Reservation{
			{ID: "other", Status: models.StatusAccepted, Range: testRange(t, "1030", "1130")},
		}, nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"room-a"}, "1000", "1100"))
	assert.ErrorIs(t, err, ErrOverlapConflict)
	assert.Nil(t, created)
	store.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestAdmit_PendingReservationsDoNotBlock(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "hall").
		Return(activeResource("hall", models.UsagePolicy{AutoAccept: false}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "hall").
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "hall", mock.Anything).
		Return([]models.Reservation{
			{ID: "other", RequesterID: "student-2", Status: models.StatusPending, Range: testRange(t, "1000", "1100")},
		}, nil)
	store.On("CreateReservation", mock.Anything, mock.Anything).Return(nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"hall"}, "1000", "1100"))
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
}

func TestAdmit_TouchingRangesAdmitted(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "room-a").
		Return(activeResource("room-a", models.UsagePolicy{AutoAccept: true}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "room-a").
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "room-a", mock.Anything).
		Return([]models.Reservation{
			{ID: "other", Status: models.StatusAccepted, Range: testRange(t, "0900", "1000")},
		}, nil)
	store.On("CreateReservation", mock.Anything, mock.Anything).Return(nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"room-a"}, "1000", "1100"))
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, created.Status)
}

func TestAdmit_UnknownResource(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "missing").Return(nil, nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"missing"}, "1000", "1100"))
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.Nil(t, created)
}

func TestAdmit_InactiveResource(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	inactive := activeResource("room-a", models.UsagePolicy{})
	inactive.Active = false
	resources.On("GetResource", mock.Anything, "room-a").Return(inactive, nil)

	_, err := engine.Admit(context.Background(), testDraft(t, []string{"room-a"}, "1000", "1100"))
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestAdmit_EmptyResourceList(t *testing.T) {
	engine := newTestEngine(new(mockStore), new(mockResources), nil)

	_, err := engine.Admit(context.Background(), testDraft(t, nil, "1000", "1100"))
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestAdmit_RestrictedResource(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	eligibility := new(mockEligibility)
	engine := newTestEngine(store, resources, eligibility)

	restricted := activeResource("college-lounge", models.UsagePolicy{
		AutoAccept:   true,
		RestrictedTo: []string{"college-resident"},
	})
	resources.On("GetResource", mock.Anything, "college-lounge").Return(restricted, nil)
	eligibility.On("Eligible", mock.Anything, "student", restricted).Return(false, nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"college-lounge"}, "1000", "1100"))
	assert.ErrorIs(t, err, ErrRegionRestricted)
	assert.Nil(t, created)
	store.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestAdmit_BudgetExceeded(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "room-a").
		Return(activeResource("room-a", models.UsagePolicy{AutoAccept: true, CumulativeBudgetMinutes: 90}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "room-a").
		Return([]models.Reservation{
			{ID: "prev", Status: models.StatusAccepted, Range: testRange(t, "0800", "0900")},
		}, nil)

	_, err := engine.Admit(context.Background(), testDraft(t, []string{"room-a"}, "1000", "1100"))
	assert.ErrorIs(t, err, ErrExceedsCumulativeBudget)
	store.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestAdmit_BundleAllOrNothing(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "cam-1").
		Return(activeResource("cam-1", models.UsagePolicy{AutoAccept: true}), nil)
	resources.On("GetResource", mock.Anything, "tripod-1").
		Return(activeResource("tripod-1", models.UsagePolicy{AutoAccept: true}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "cam-1").
		Return([]models.Reservation{}, nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", "tripod-1").
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "cam-1", mock.Anything).
		Return([]models.Reservation{}, nil)
	// The second item is already taken; the whole bundle must be rejected.
	store.On("FindByResourceAndDateWindow", mock.Anything, "tripod-1", mock.Anything).
		Return([]models.Reservation{
			{ID: "other", Status: models.StatusAccepted, Range: testRange(t, "1000", "1200")},
		}, nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"cam-1", "tripod-1"}, "1000", "1100"))
	assert.ErrorIs(t, err, ErrOverlapConflict)
	assert.Nil(t, created)
	store.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestAdmit_MixedBundleStaysPending(t *testing.T) {
	store := new(mockStore)
	resources := new(mockResources)
	engine := newTestEngine(store, resources, nil)

	resources.On("GetResource", mock.Anything, "cam-1").
		Return(activeResource("cam-1", models.UsagePolicy{AutoAccept: true}), nil)
	resources.On("GetResource", mock.Anything, "studio").
		Return(activeResource("studio", models.UsagePolicy{AutoAccept: false}), nil)
	store.On("ListByRequesterAndResource", mock.Anything, "student-1", mock.Anything).
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.Reservation{}, nil)
	store.On("CreateReservation", mock.Anything, mock.Anything).Return(nil)

	created, err := engine.Admit(context.Background(), testDraft(t, []string{"cam-1", "studio"}, "1000", "1100"))
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, created.Status)
}

func TestAdmit_InvalidRange(t *testing.T) {
	engine := newTestEngine(new(mockStore), new(mockResources), nil)

	draft := testDraft(t, []string{"room-a"}, "1000", "1100")
	draft.Range.EndMinute = draft.Range.StartMinute

	_, err := engine.Admit(context.Background(), draft)
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}
