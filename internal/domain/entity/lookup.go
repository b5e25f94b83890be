package entity

import "time"

// LookupResult is what the external flight-status provider returns for a
// carrier code and flight number.
type LookupResult struct {
	Arriving time.Time `json:"arriving"`
	Status   string    `json:"status"`
}
