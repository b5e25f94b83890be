package utils

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidFormat is returned when raw input does not look like a flight code.
var ErrInvalidFormat = errors.New("invalid flight code format")

// Designator is a normalized carrier code and flight number pair.
type Designator struct {
	CarrierCode  string
	FlightNumber string
}

// flightCodeRegex matches 1-3 alphanumeric characters followed by 2-5 digits.
var flightCodeRegex = regexp.MustCompile(`^[A-Z0-9]{1,3}[0-9]{2,5}$`)

// carrierRemap rewrites provisional two-character prefixes to their canonical
// carrier codes. Codes not listed here pass through unchanged.
var carrierRemap = map[string]string{
	"W4": "WMT",
	"W6": "WZZ",
	"W9": "WUK",
	"U2": "EZY",
	"FR": "RYR",
	"0B": "BMS",
}

// ParseFlightCode parses raw user input into a Designator.
// The first two characters are taken as the provisional carrier code and the
// remainder as the flight number, e.g. "W4123" -> {WMT 123}.
func ParseFlightCode(raw string) (Designator, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !flightCodeRegex.MatchString(code) {
		return Designator{}, ErrInvalidFormat
	}

	carrier := code[:2]
	number := code[2:]

	if canonical, ok := carrierRemap[carrier]; ok {
		carrier = canonical
	}

	return Designator{
		CarrierCode:  carrier,
		FlightNumber: number,
	}, nil
}
