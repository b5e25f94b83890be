package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"
	"dispatchboard-service/pkg/logger"
	"dispatchboard-service/pkg/metrics"
	"dispatchboard-service/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Prometheus collectors register globally, so the test metrics are shared.
var testMetrics = metrics.NewMetrics("rostertest")

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *entity.Flight) (*entity.Flight, error) {
	args := m.Called(ctx, flight)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Flight), args.Error(1)
}

func (m *MockFlightRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightRepository) Watch(ctx context.Context) (<-chan []*entity.Flight, <-chan error, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(chan []*entity.Flight), args.Get(1).(chan error), args.Error(2)
}

type MockLookupRepository struct {
	mock.Mock
}

func (m *MockLookupRepository) Status(ctx context.Context, carrierCode, flightNumber string) (*entity.LookupResult, error) {
	args := m.Called(ctx, carrierCode, flightNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LookupResult), args.Error(1)
}

func intPtr(v int) *int { return &v }

func newTestStore(flightRepo *MockFlightRepository, lookupRepo *MockLookupRepository) *RosterStore {
	fleet := []entity.Car{
		{Plate: "AB-123", Model: "Octavia"},
		{Plate: "CD-456", Model: "Passat"},
	}
	return NewRosterStore(flightRepo, lookupRepo, fleet, 4, logger.NewNop(), testMetrics)
}

// seed installs flights through the snapshot path and waits until they are
// visible.
func seed(t *testing.T, store *RosterStore, flightRepo *MockFlightRepository, flights ...*entity.Flight) func() {
	t.Helper()

	snapshots := make(chan []*entity.Flight, 1)
	errs := make(chan error, 1)
	flightRepo.On("Watch", mock.Anything).Return(snapshots, errs, nil).Once()

	require.NoError(t, store.Subscribe(context.Background()))
	snapshots <- flights

	require.Eventually(t, func() bool {
		return len(store.Flights()) == len(flights)
	}, time.Second, 5*time.Millisecond)

	return func() {
		close(errs)
		close(snapshots)
	}
}

func TestAddFlightCreatesAtTail(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	arriving := time.Date(2026, 8, 31, 14, 5, 0, 0, time.UTC)
	lookupRepo.On("Status", mock.Anything, "WMT", "123").
		Return(&entity.LookupResult{Arriving: arriving, Status: entity.StatusScheduled}, nil).Once()

	created := &entity.Flight{
		ID:           "f1",
		CarrierCode:  "WMT",
		FlightNumber: "123",
		Arriving:     arriving,
		Status:       entity.StatusScheduled,
		Order:        intPtr(0),
		Date:         time.Now().UTC(),
	}
	flightRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *entity.Flight) bool {
		return f.CarrierCode == "WMT" && f.FlightNumber == "123" &&
			f.Order != nil && *f.Order == 0
	})).Return(created, nil).Once()

	got, err := store.AddFlight(context.Background(), "W4123")

	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)

	roster := store.Flights()
	require.Len(t, roster, 1)
	assert.Equal(t, "f1", roster[0].ID)
	assert.Equal(t, entity.StatusScheduled, roster[0].Status)

	flightRepo.AssertExpectations(t)
	lookupRepo.AssertExpectations(t)
}

func TestAddFlightInvalidFormatNeverReachesNetwork(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	_, err := store.AddFlight(context.Background(), "not a flight")

	assert.ErrorIs(t, err, utils.ErrInvalidFormat)
	lookupRepo.AssertNotCalled(t, "Status", mock.Anything, mock.Anything, mock.Anything)
	flightRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAddFlightLookupNotFound(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	lookupRepo.On("Status", mock.Anything, "WMT", "999").
		Return(nil, repository.ErrFlightNotFound).Once()

	_, err := store.AddFlight(context.Background(), "W4999")

	assert.ErrorIs(t, err, repository.ErrFlightNotFound)
	assert.Empty(t, store.Flights())
	flightRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAddFlightCreateFailureLeavesRosterUntouched(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	lookupRepo.On("Status", mock.Anything, "RYR", "1234").
		Return(&entity.LookupResult{Status: entity.StatusScheduled}, nil).Once()
	flightRepo.On("Create", mock.Anything, mock.Anything).
		Return(nil, errors.New("store unavailable")).Once()

	before := store.Flights()
	_, err := store.AddFlight(context.Background(), "FR1234")

	assert.Error(t, err)
	assert.Equal(t, before, store.Flights())
}

func TestAddManualFlight(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	car, ok := store.CarByPlate("AB-123")
	require.True(t, ok)

	created := &entity.Flight{
		ID:           "m1",
		CarrierCode:  "EZY",
		FlightNumber: "201",
		Arriving:     "14:05",
		Status:       entity.StatusManual,
		ClientName:   "Nagy",
		Car:          car,
		Order:        intPtr(0),
	}
	flightRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *entity.Flight) bool {
		return f.Status == entity.StatusManual && f.Arriving == "14:05" &&
			f.Car != nil && f.Car.Plate == "AB-123"
	})).Return(created, nil).Once()

	got, err := store.AddManualFlight(context.Background(), ManualEntry{
		Code:        "U2201",
		ArrivalTime: "14:05",
		ClientName:  "Nagy",
		Car:         car,
	})

	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)
	lookupRepo.AssertNotCalled(t, "Status", mock.Anything, mock.Anything, mock.Anything)
}

func TestNextOrderSkipsReusedPositions(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	// One flight left with order 5 after earlier deletions; roster length 1
	// must not hand out an already-taken position.
	stop := seed(t, store, flightRepo, &entity.Flight{ID: "f5", Order: intPtr(5)})
	defer stop()

	flightRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *entity.Flight) bool {
		return f.Order != nil && *f.Order == 6
	})).Return(&entity.Flight{ID: "f6", Order: intPtr(6), Status: entity.StatusManual}, nil).Once()

	_, err := store.AddManualFlight(context.Background(), ManualEntry{Code: "W4123"})

	require.NoError(t, err)
	flightRepo.AssertExpectations(t)
}

func TestDeleteFlightGatedOnLocalPresence(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	err := store.DeleteFlight(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrNotFoundLocal)
	flightRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteFlightRemovesAfterConfirmation(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	stop := seed(t, store, flightRepo, &entity.Flight{ID: "f1"})
	defer stop()

	flightRepo.On("Delete", mock.Anything, "f1").Return(nil).Once()

	require.NoError(t, store.DeleteFlight(context.Background(), "f1"))
	assert.Empty(t, store.Flights())

	// A second delete of the same id fails cleanly.
	err := store.DeleteFlight(context.Background(), "f1")
	assert.ErrorIs(t, err, ErrNotFoundLocal)
	flightRepo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestDeleteFlightFailureKeepsEntry(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	stop := seed(t, store, flightRepo, &entity.Flight{ID: "f1"})
	defer stop()

	flightRepo.On("Delete", mock.Anything, "f1").Return(errors.New("store unavailable")).Once()

	err := store.DeleteFlight(context.Background(), "f1")

	assert.Error(t, err)
	require.Len(t, store.Flights(), 1)
	assert.Equal(t, "f1", store.Flights()[0].ID)
}

func TestEditFlightCarMergesOnlyCarField(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	stop := seed(t, store, flightRepo, &entity.Flight{
		ID:           "f1",
		CarrierCode:  "WMT",
		FlightNumber: "123",
		Status:       entity.StatusScheduled,
		ClientName:   "Kovacs",
		Car:          &entity.Car{Plate: "AB-123", Model: "Octavia"},
	})
	defer stop()

	newCar, ok := store.CarByPlate("CD-456")
	require.True(t, ok)

	flightRepo.On("Update", mock.Anything, "f1", mock.MatchedBy(func(fields map[string]interface{}) bool {
		car, present := fields["car"]
		return len(fields) == 1 && present && car.(*entity.Car).Plate == "CD-456"
	})).Return(nil).Once()

	require.NoError(t, store.EditFlightCar(context.Background(), "f1", newCar))

	got := store.Flights()[0]
	assert.Equal(t, "CD-456", got.Car.Plate)
	assert.Equal(t, entity.StatusScheduled, got.Status)
	assert.Equal(t, "Kovacs", got.ClientName)
	flightRepo.AssertExpectations(t)
}

func TestEditFlightCarClear(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	stop := seed(t, store, flightRepo, &entity.Flight{
		ID:  "f1",
		Car: &entity.Car{Plate: "AB-123", Model: "Octavia"},
	})
	defer stop()

	flightRepo.On("Update", mock.Anything, "f1", mock.MatchedBy(func(fields map[string]interface{}) bool {
		car, present := fields["car"]
		return present && car == (*entity.Car)(nil)
	})).Return(nil).Once()

	require.NoError(t, store.EditFlightCar(context.Background(), "f1", nil))
	assert.Nil(t, store.Flights()[0].Car)
}

func TestEditFlightCarFailureLeavesEntry(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	original := &entity.Car{Plate: "AB-123", Model: "Octavia"}
	stop := seed(t, store, flightRepo, &entity.Flight{ID: "f1", Car: original})
	defer stop()

	flightRepo.On("Update", mock.Anything, "f1", mock.Anything).
		Return(errors.New("store unavailable")).Once()

	newCar, _ := store.CarByPlate("CD-456")
	err := store.EditFlightCar(context.Background(), "f1", newCar)

	assert.Error(t, err)
	assert.Equal(t, "AB-123", store.Flights()[0].Car.Plate)
}

func TestSnapshotReplacesOptimisticState(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	snapshots := make(chan []*entity.Flight, 1)
	errs := make(chan error, 1)
	flightRepo.On("Watch", mock.Anything).Return(snapshots, errs, nil).Once()
	require.NoError(t, store.Subscribe(context.Background()))

	snapshots <- []*entity.Flight{
		{ID: "a", Order: intPtr(0)},
		{ID: "b", Order: intPtr(1)},
	}
	require.Eventually(t, func() bool { return len(store.Flights()) == 2 }, time.Second, 5*time.Millisecond)

	state, err := store.State()
	assert.Equal(t, StateActive, state)
	assert.NoError(t, err)

	// The next snapshot drops "b" and brings "c"; local state follows it
	// wholesale, re-sorted by the ordering policy.
	snapshots <- []*entity.Flight{
		{ID: "c", Order: intPtr(2)},
		{ID: "a", Order: intPtr(0)},
	}
	require.Eventually(t, func() bool {
		roster := store.Flights()
		return len(roster) == 2 && roster[0].ID == "a" && roster[1].ID == "c"
	}, time.Second, 5*time.Millisecond)

	close(snapshots)
	close(errs)
}

func TestSubscribeStreamFailure(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	snapshots := make(chan []*entity.Flight, 1)
	errs := make(chan error, 1)
	flightRepo.On("Watch", mock.Anything).Return(snapshots, errs, nil).Once()
	require.NoError(t, store.Subscribe(context.Background()))

	streamErr := errors.New("change stream torn down")
	errs <- streamErr
	close(errs)
	close(snapshots)

	require.Eventually(t, func() bool {
		state, _ := store.State()
		return state == StateError
	}, time.Second, 5*time.Millisecond)

	_, lastErr := store.State()
	assert.Equal(t, streamErr, lastErr)
}

func TestUnsubscribeStopsStream(t *testing.T) {
	flightRepo := &MockFlightRepository{}
	lookupRepo := &MockLookupRepository{}
	store := newTestStore(flightRepo, lookupRepo)

	snapshots := make(chan []*entity.Flight, 1)
	errs := make(chan error, 1)
	var watchCtx context.Context
	flightRepo.On("Watch", mock.Anything).Run(func(args mock.Arguments) {
		watchCtx = args.Get(0).(context.Context)
	}).Return(snapshots, errs, nil).Once()

	require.NoError(t, store.Subscribe(context.Background()))

	// The repository closes its channels when its context is cancelled.
	go func() {
		<-watchCtx.Done()
		close(snapshots)
		close(errs)
	}()

	store.Unsubscribe()

	state, _ := store.State()
	assert.Equal(t, StateUnsubscribed, state)
}
