package workflow

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"rezerv/internal/admission"
	"rezerv/internal/models"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *mockStore) FindByResourceAndDateWindow(ctx context.Context, resourceID string, date time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, resourceID, date)
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockStore) UpdateStatusWithVersion(ctx context.Context, id string, version int64, status models.Status, comment string) error {
	return m.Called(ctx, id, version, status, comment).Error(0)
}

func newTestService(store *mockStore) *Service {
	logger := zerolog.New(io.Discard)
	s := NewService(store, nil, &logger)
	s.now = func() time.Time { return time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC) }
	return s
}

func testRange(t *testing.T, start, end string) models.TimeRange {
	t.Helper()
	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	r, err := models.NewTimeRange(day, start, end)
	assert.NoError(t, err)
	return r
}

func pendingReservation(t *testing.T, id string, start, end string) *models.Reservation {
	t.Helper()
	return &models.Reservation{
		ID:          id,
		RequesterID: "student-1",
		Title:       "study session",
		ResourceIDs: []string{"room-a"},
		Range:       testRange(t, start, end),
		Status:      models.StatusPending,
		Version:     1,
	}
}

func TestTransition_AcceptPending(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	store.On("GetReservation", mock.Anything, "res-1").
		Return(pendingReservation(t, "res-1", "1000", "1100"), nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "room-a", mock.Anything).
		Return([]models.Reservation{}, nil)
	store.On("UpdateStatusWithVersion", mock.Anything, "res-1", int64(1), models.StatusAccepted, "").
		Return(nil)

	updated, err := service.Transition(context.Background(), "res-1", models.StatusAccepted, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.Status)
	assert.Equal(t, int64(2), updated.Version)
	store.AssertExpectations(t)
}

func TestTransition_AcceptConflictsWithOtherAccepted(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	store.On("GetReservation", mock.Anything, "res-1").
		Return(pendingReservation(t, "res-1", "1000", "1100"), nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "room-a", mock.Anything).
		Return([]models.Reservation{
			{ID: "res-2", Status: models.StatusAccepted, Range: testRange(t, "1030", "1130")},
		}, nil)

	updated, err := service.Transition(context.Background(), "res-1", models.StatusAccepted, "")
	assert.ErrorIs(t, err, admission.ErrOverlapConflict)
	assert.Nil(t, updated)
	store.AssertNotCalled(t, "UpdateStatusWithVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_AcceptExcludesSelf(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	// The window query returns the reservation being accepted; it must not
	// conflict with itself.
	self := pendingReservation(t, "res-1", "1000", "1100")
	store.On("GetReservation", mock.Anything, "res-1").Return(self, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "room-a", mock.Anything).
		Return([]models.Reservation{*self}, nil)
	store.On("UpdateStatusWithVersion", mock.Anything, "res-1", int64(1), models.StatusAccepted, "").
		Return(nil)

	updated, err := service.Transition(context.Background(), "res-1", models.StatusAccepted, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.Status)
}

func TestTransition_AcceptIgnoresOtherPending(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	store.On("GetReservation", mock.Anything, "res-1").
		Return(pendingReservation(t, "res-1", "1000", "1100"), nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "room-a", mock.Anything).
		Return([]models.Reservation{
			{ID: "res-2", Status: models.StatusPending, Range: testRange(t, "1000", "1100")},
		}, nil)
	store.On("UpdateStatusWithVersion", mock.Anything, "res-1", int64(1), models.StatusAccepted, "").
		Return(nil)

	updated, err := service.Transition(context.Background(), "res-1", models.StatusAccepted, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.Status)
}

func TestTransition_RejectWithComment(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	store.On("GetReservation", mock.Anything, "res-1").
		Return(pendingReservation(t, "res-1", "1000", "1100"), nil)
	store.On("UpdateStatusWithVersion", mock.Anything, "res-1", int64(1), models.StatusRejected, "slot needed for maintenance").
		Return(nil)

	updated, err := service.Transition(context.Background(), "res-1", models.StatusRejected, "slot needed for maintenance")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Equal(t, "slot needed for maintenance", updated.StaffComment)
	store.AssertNotCalled(t, "FindByResourceAndDateWindow", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []models.Status{models.StatusRejected, models.StatusCancelled} {
		t.Run(string(from), func(t *testing.T) {
			store := new(mockStore)
			service := newTestService(store)

			r := pendingReservation(t, "res-1", "1000", "1100")
			r.Status = from
			store.On("GetReservation", mock.Anything, "res-1").Return(r, nil)

			for _, target := range []models.Status{models.StatusAccepted, models.StatusRejected, models.StatusCancelled} {
				_, err := service.Transition(context.Background(), "res-1", target, "")
				assert.ErrorIs(t, err, ErrInvalidStateTransition)
			}
			store.AssertNotCalled(t, "UpdateStatusWithVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTransition_CancelAccepted(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	r := pendingReservation(t, "res-1", "1000", "1100")
	r.Status = models.StatusAccepted
	store.On("GetReservation", mock.Anything, "res-1").Return(r, nil)
	store.On("UpdateStatusWithVersion", mock.Anything, "res-1", int64(1), models.StatusCancelled, "").
		Return(nil)

	updated, err := service.Transition(context.Background(), "res-1", models.StatusCancelled, "")
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)
}

func TestTransition_AcceptedCannotBeRejected(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	r := pendingReservation(t, "res-1", "1000", "1100")
	r.Status = models.StatusAccepted
	store.On("GetReservation", mock.Anything, "res-1").Return(r, nil)

	_, err := service.Transition(context.Background(), "res-1", models.StatusRejected, "")
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestTransition_NotFound(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	store.On("GetReservation", mock.Anything, "missing").Return(nil, nil)

	_, err := service.Transition(context.Background(), "missing", models.StatusAccepted, "")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestTransition_BundleRevalidatesEveryResource(t *testing.T) {
	store := new(mockStore)
	service := newTestService(store)

	r := pendingReservation(t, "res-1", "1000", "1100")
	r.ResourceIDs = []string{"cam-1", "tripod-1"}
	store.On("GetReservation", mock.Anything, "res-1").Return(r, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "cam-1", mock.Anything).
		Return([]models.Reservation{}, nil)
	store.On("FindByResourceAndDateWindow", mock.Anything, "tripod-1", mock.Anything).
		Return([]models.Reservation{
			{ID: "res-2", Status: models.StatusAccepted, Range: testRange(t, "1030", "1130")},
		}, nil)

	_, err := service.Transition(context.Background(), "res-1", models.StatusAccepted, "")
	assert.ErrorIs(t, err, admission.ErrOverlapConflict)
	store.AssertNotCalled(t, "UpdateStatusWithVersion", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
