package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dispatchboard-service/internal/domain/entity"
	"dispatchboard-service/internal/domain/repository"

	"github.com/google/uuid"
)

// RefreshReport is the aggregate outcome of a bulk refresh.
type RefreshReport struct {
	BatchID string   `json:"batchId"`
	Total   int      `json:"total"`
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// Summary renders the outcome for the presentation layer.
func (r RefreshReport) Summary() string {
	if len(r.Failed) == 0 {
		return fmt.Sprintf("refreshed %d flights", r.Updated)
	}
	return fmt.Sprintf("%d flights failed to refresh", len(r.Failed))
}

type refreshOutcome struct {
	id     string
	result *entity.LookupResult
	err    error
}

// RefreshFlight refreshes the arrival and status of one flight against the
// lookup provider. A lookup miss surfaces as ErrFlightNotFound, distinct from
// transient failures; either way local state is untouched on failure.
func (s *RosterStore) RefreshFlight(ctx context.Context, id string) error {
	s.mu.Lock()
	f, ok := s.flights[id]
	var carrier, number string
	if ok {
		carrier, number = f.CarrierCode, f.FlightNumber
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFoundLocal
	}

	s.metrics.RefreshesTotal.Inc()

	result, err := s.lookupRepo.Status(ctx, carrier, number)
	if err != nil {
		s.metrics.ErrorsCount.WithLabelValues("refresh").Inc()
		if errors.Is(err, repository.ErrFlightNotFound) {
			return fmt.Errorf("flight %s%s: %w", carrier, number, repository.ErrFlightNotFound)
		}
		return fmt.Errorf("refresh %s%s: %w", carrier, number, err)
	}

	if err := s.flightRepo.Update(ctx, id, refreshFields(result)); err != nil {
		s.metrics.ErrorsCount.WithLabelValues("refresh").Inc()
		return fmt.Errorf("refresh %s%s: %w", carrier, number, err)
	}

	s.mergeRefresh(id, result)
	return nil
}

// RefreshAll refreshes every flight in the roster. The roster is snapshotted
// once up front; lookups fan out concurrently up to the configured limit, a
// remote update is issued for each successful lookup, and after everything
// settles the successes are merged into local state in one batch. Failed
// flights are left exactly as they were.
func (s *RosterStore) RefreshAll(ctx context.Context) RefreshReport {
	s.mu.Lock()
	targets := make([]*entity.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		targets = append(targets, f.Clone())
	}
	s.mu.Unlock()

	report := RefreshReport{
		BatchID: uuid.NewString(),
		Total:   len(targets),
	}
	if len(targets) == 0 {
		return report
	}

	log := s.logger.With("batch", report.BatchID)
	log.Info("Bulk refresh started", "flights", len(targets))

	outcomes := make([]refreshOutcome, len(targets))
	sem := make(chan struct{}, s.refreshLimit)
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, flight *entity.Flight) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s.metrics.RefreshesTotal.Inc()
			outcomes[i] = s.refreshOne(ctx, flight)
		}(i, target)
	}
	wg.Wait()

	// All requests have settled; merge the successes in one batch.
	s.mu.Lock()
	for _, outcome := range outcomes {
		if outcome.err != nil {
			continue
		}
		f, ok := s.flights[outcome.id]
		if !ok {
			continue
		}
		f.Status = outcome.result.Status
		if !outcome.result.Arriving.IsZero() {
			f.Arriving = outcome.result.Arriving
		}
		report.Updated++
	}
	s.mu.Unlock()

	for _, outcome := range outcomes {
		if outcome.err != nil {
			report.Failed = append(report.Failed, outcome.id)
			s.metrics.ErrorsCount.WithLabelValues("refresh").Inc()
			log.Warn("Flight refresh failed", "id", outcome.id, "error", outcome.err)
		}
	}

	log.Info("Bulk refresh finished", "updated", report.Updated, "failed", len(report.Failed))
	return report
}

// refreshOne performs the lookup and remote update for one flight. A flight
// whose remote update fails is reported failed even though its lookup
// succeeded, and is never merged.
func (s *RosterStore) refreshOne(ctx context.Context, flight *entity.Flight) refreshOutcome {
	result, err := s.lookupRepo.Status(ctx, flight.CarrierCode, flight.FlightNumber)
	if err != nil {
		return refreshOutcome{id: flight.ID, err: err}
	}

	if err := s.flightRepo.Update(ctx, flight.ID, refreshFields(result)); err != nil {
		return refreshOutcome{id: flight.ID, err: err}
	}

	return refreshOutcome{id: flight.ID, result: result}
}
