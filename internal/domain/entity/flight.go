package entity

import (
	"sort"
	"time"

	"dispatchboard-service/pkg/utils"
)

// Flight statuses. The lookup provider may report other values; they are
// stored as-is.
const (
	StatusScheduled = "Scheduled"
	StatusDeparted  = "Departed"
	StatusArrived   = "Arrived"
	StatusManual    = "Manual"
	StatusNA        = "N/A"
)

// Flight is a tracked arrival on the dispatch board.
type Flight struct {
	ID           string      `bson:"_id,omitempty" json:"id"`
	CarrierCode  string      `bson:"carrierCode" json:"carrierCode"`
	FlightNumber string      `bson:"flightNumber" json:"flightNumber"`
	Arriving     interface{} `bson:"arriving,omitempty" json:"arriving,omitempty"`
	Status       string      `bson:"status" json:"status"`
	Car          *Car        `bson:"car,omitempty" json:"car,omitempty"`
	ClientName   string      `bson:"clientName,omitempty" json:"clientName,omitempty"`
	Order        *int        `bson:"order,omitempty" json:"order,omitempty"`
	Date         time.Time   `bson:"date,omitempty" json:"date"`
}

// Clone returns a copy of the flight. The assigned car is copied by value so
// callers can never mutate roster state through a returned flight.
func (f *Flight) Clone() *Flight {
	clone := *f
	if f.Car != nil {
		car := *f.Car
		clone.Car = &car
	}
	if f.Order != nil {
		order := *f.Order
		clone.Order = &order
	}
	return &clone
}

// Less is the roster ordering policy. Flights with an explicit order come
// first, ascending. Among flights without one, soonest arrival wins, with
// creation time and then id as tie breakers so the order is fully
// deterministic.
func Less(a, b *Flight) bool {
	switch {
	case a.Order != nil && b.Order != nil:
		if *a.Order != *b.Order {
			return *a.Order < *b.Order
		}
	case a.Order != nil:
		return true
	case b.Order != nil:
		return false
	}

	aArr := utils.ArrivalEpoch(a.Arriving)
	bArr := utils.ArrivalEpoch(b.Arriving)
	if aArr != bArr {
		return aArr < bArr
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.ID < b.ID
}

// SortRoster sorts flights in place by the roster ordering policy.
func SortRoster(flights []*Flight) {
	sort.SliceStable(flights, func(i, j int) bool {
		return Less(flights[i], flights[j])
	})
}
