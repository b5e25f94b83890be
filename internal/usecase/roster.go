package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"
	"dispatchboard-service/pkg/logger"
	"dispatchboard-service/pkg/metrics"
	"dispatchboard-service/pkg/utils"
)

// ErrNotFoundLocal is returned when an operation references a flight id that
// is no longer in the roster. No remote call is made in that case.
var ErrNotFoundLocal = errors.New("flight not in roster")

// SubscriptionState is the lifecycle state of the realtime subscription.
type SubscriptionState string

const (
	StateUnsubscribed SubscriptionState = "unsubscribed"
	StateSubscribing  SubscriptionState = "subscribing"
	StateActive       SubscriptionState = "active"
	StateError        SubscriptionState = "error"
)

// ManualEntry is a flight added by hand from the dispatch board, without a
// status lookup.
type ManualEntry struct {
	Code        string
	ArrivalTime string // "HH:MM", local time
	ClientName  string
	Car         *entity.Car
}

// RosterStore owns the local flight roster and reconciles it with the remote
// store. All mutation paths (snapshot replace, optimistic merge, refresh
// merge) go through its mutex, and merges are per field so concurrent
// operations on the same flight never clobber each other.
type RosterStore struct {
	flightRepo repository.FlightRepository
	lookupRepo repository.LookupRepository
	logger     logger.Logger
	metrics    *metrics.Metrics

	refreshLimit int

	mu      sync.Mutex
	flights map[string]*entity.Flight
	fleet   []entity.Car
	state   SubscriptionState
	lastErr error

	subCancel context.CancelFunc
	subDone   chan struct{}
}

// NewRosterStore creates a new roster store. The fleet list is fixed for the
// lifetime of the store.
func NewRosterStore(
	flightRepo repository.FlightRepository,
	lookupRepo repository.LookupRepository,
	fleet []entity.Car,
	refreshLimit int,
	logger logger.Logger,
	m *metrics.Metrics,
) *RosterStore {
	if refreshLimit < 1 {
		refreshLimit = 1
	}
	return &RosterStore{
		flightRepo:   flightRepo,
		lookupRepo:   lookupRepo,
		fleet:        fleet,
		refreshLimit: refreshLimit,
		logger:       logger,
		metrics:      m,
		flights:      make(map[string]*entity.Flight),
		state:        StateUnsubscribed,
	}
}

// Flights returns the roster sorted by the ordering policy. The returned
// flights are copies.
func (s *RosterStore) Flights() []*entity.Flight {
	s.mu.Lock()
	flights := make([]*entity.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		flights = append(flights, f.Clone())
	}
	s.mu.Unlock()

	entity.SortRoster(flights)
	return flights
}

// Cars returns the fleet reference list.
func (s *RosterStore) Cars() []entity.Car {
	cars := make([]entity.Car, len(s.fleet))
	copy(cars, s.fleet)
	return cars
}

// CarByPlate resolves a plate against the fleet list.
func (s *RosterStore) CarByPlate(plate string) (*entity.Car, bool) {
	for _, car := range s.fleet {
		if car.Plate == plate {
			c := car
			return &c, true
		}
	}
	return nil, false
}

// State returns the subscription state and the last stream error, if any.
func (s *RosterStore) State() (SubscriptionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastErr
}

// AddFlight parses raw input, looks up the current status and creates the
// flight in the remote store. Local state changes only after the create
// succeeds.
func (s *RosterStore) AddFlight(ctx context.Context, raw string) (*entity.Flight, error) {
	designator, err := utils.ParseFlightCode(raw)
	if err != nil {
		return nil, err
	}

	result, err := s.lookupRepo.Status(ctx, designator.CarrierCode, designator.FlightNumber)
	if err != nil {
		s.metrics.ErrorsCount.WithLabelValues("lookup").Inc()
		if errors.Is(err, repository.ErrFlightNotFound) {
			return nil, fmt.Errorf("flight %s%s: %w", designator.CarrierCode, designator.FlightNumber, repository.ErrFlightNotFound)
		}
		return nil, fmt.Errorf("lookup %s%s: %w", designator.CarrierCode, designator.FlightNumber, err)
	}

	flight := &entity.Flight{
		CarrierCode:  designator.CarrierCode,
		FlightNumber: designator.FlightNumber,
		Status:       result.Status,
	}
	if !result.Arriving.IsZero() {
		flight.Arriving = result.Arriving
	}

	return s.create(ctx, flight)
}

// AddManualFlight creates a flight from a manual entry, skipping the lookup.
func (s *RosterStore) AddManualFlight(ctx context.Context, entry ManualEntry) (*entity.Flight, error) {
	designator, err := utils.ParseFlightCode(entry.Code)
	if err != nil {
		return nil, err
	}

	flight := &entity.Flight{
		CarrierCode:  designator.CarrierCode,
		FlightNumber: designator.FlightNumber,
		Status:       entity.StatusManual,
		ClientName:   entry.ClientName,
	}
	if entry.ArrivalTime != "" {
		flight.Arriving = entry.ArrivalTime
	}
	if entry.Car != nil {
		car := *entry.Car
		flight.Car = &car
	}

	return s.create(ctx, flight)
}

// create assigns the next order position, issues the remote create and merges
// the stored flight into local state on success.
func (s *RosterStore) create(ctx context.Context, flight *entity.Flight) (*entity.Flight, error) {
	order := s.nextOrder()
	flight.Order = &order

	created, err := s.flightRepo.Create(ctx, flight)
	if err != nil {
		s.metrics.ErrorsCount.WithLabelValues("create").Inc()
		return nil, fmt.Errorf("create flight: %w", err)
	}

	s.mu.Lock()
	s.flights[created.ID] = created.Clone()
	s.mu.Unlock()

	s.metrics.FlightsCreated.Inc()
	s.logger.Info("Flight added",
		"id", created.ID,
		"flight", created.CarrierCode+created.FlightNumber,
		"order", order)
	return created.Clone(), nil
}

// nextOrder returns the append position for a new flight. Orders are never
// reassigned and never reused, so after deletions the next value may exceed
// the roster length and gaps accumulate.
func (s *RosterStore) nextOrder() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := len(s.flights)
	for _, f := range s.flights {
		if f.Order != nil && *f.Order >= next {
			next = *f.Order + 1
		}
	}
	return next
}

// DeleteFlight removes a flight. The local entry is removed only after the
// remote delete is confirmed.
func (s *RosterStore) DeleteFlight(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.flights[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFoundLocal
	}

	if err := s.flightRepo.Delete(ctx, id); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("delete").Inc()
		return fmt.Errorf("delete flight %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.flights, id)
	s.mu.Unlock()

	s.metrics.FlightsDeleted.Inc()
	s.logger.Info("Flight deleted", "id", id)
	return nil
}

// EditFlightCar reassigns the car on a flight. A nil car clears the
// assignment. Only the car field is sent to the store and only the car field
// is merged locally.
func (s *RosterStore) EditFlightCar(ctx context.Context, id string, car *entity.Car) error {
	s.mu.Lock()
	_, ok := s.flights[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFoundLocal
	}

	var stored *entity.Car
	if car != nil {
		c := *car
		stored = &c
	}

	if err := s.flightRepo.Update(ctx, id, map[string]interface{}{"car": stored}); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("edit").Inc()
		return fmt.Errorf("edit flight %s: %w", id, err)
	}

	s.mu.Lock()
	if f, ok := s.flights[id]; ok {
		f.Car = stored
	}
	s.mu.Unlock()

	s.logger.Info("Flight car updated", "id", id, "car", plateOrNone(stored))
	return nil
}

func plateOrNone(car *entity.Car) string {
	if car == nil {
		return "none"
	}
	return car.Plate
}

// Subscribe opens the realtime subscription to the remote store. An active
// subscription is cancelled first so exactly one stream is ever open.
func (s *RosterStore) Subscribe(ctx context.Context) error {
	s.Unsubscribe()

	s.mu.Lock()
	s.state = StateSubscribing
	s.lastErr = nil
	s.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	snapshots, errs, err := s.flightRepo.Watch(subCtx)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.state = StateError
		s.lastErr = err
		s.mu.Unlock()
		return fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.subCancel = cancel
	s.subDone = done
	s.mu.Unlock()

	go s.consume(subCtx, snapshots, errs, done)

	s.logger.Info("Roster subscription started")
	return nil
}

// Unsubscribe cancels the active subscription, if any, and waits for the
// stream to be released.
func (s *RosterStore) Unsubscribe() {
	s.mu.Lock()
	cancel := s.subCancel
	done := s.subDone
	s.subCancel = nil
	s.subDone = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Roster subscription stopped")
}

// consume applies snapshots until the stream ends. On explicit cancellation
// the state returns to unsubscribed; on stream failure it moves to error and
// stays there until the caller re-subscribes.
func (s *RosterStore) consume(ctx context.Context, snapshots <-chan []*entity.Flight, errs <-chan error, done chan struct{}) {
	defer close(done)

	for snapshot := range snapshots {
		s.replace(snapshot)
	}

	streamErr := <-errs
	if streamErr != nil && ctx.Err() == nil {
		s.mu.Lock()
		s.state = StateError
		s.lastErr = streamErr
		s.mu.Unlock()
		s.metrics.ErrorsCount.WithLabelValues("subscription").Inc()
		s.logger.Error("Roster subscription failed", "error", streamErr)
		return
	}

	s.mu.Lock()
	s.state = StateUnsubscribed
	s.mu.Unlock()
}

// replace discards local state and installs the authoritative snapshot.
// Optimistic entries not present in the snapshot disappear until the store
// confirms them; that window is accepted.
func (s *RosterStore) replace(snapshot []*entity.Flight) {
	next := make(map[string]*entity.Flight, len(snapshot))
	for _, f := range snapshot {
		next[f.ID] = f.Clone()
	}

	s.mu.Lock()
	s.flights = next
	s.state = StateActive
	s.mu.Unlock()

	s.metrics.SnapshotsApplied.Inc()
	s.logger.Debug("Snapshot applied", "flights", len(snapshot))
}

// refreshFields builds the partial update for a refreshed flight. The
// arrival is omitted when the provider did not report one so a known value
// is never overwritten with nothing.
func refreshFields(result *entity.LookupResult) map[string]interface{} {
	fields := map[string]interface{}{"status": result.Status}
	if !result.Arriving.IsZero() {
		fields["arriving"] = result.Arriving
	}
	return fields
}

// mergeRefresh applies a successful refresh to the local entry, touching only
// the refreshed fields.
func (s *RosterStore) mergeRefresh(id string, result *entity.LookupResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[id]
	if !ok {
		// Deleted while the refresh was in flight; nothing to merge.
		return
	}
	f.Status = result.Status
	if !result.Arriving.IsZero() {
		f.Arriving = result.Arriving
	}
}
