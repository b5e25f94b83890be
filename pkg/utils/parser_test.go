package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFlightCode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		carrier string
		number  string
	}{
		{name: "remapped carrier", raw: "W4123", carrier: "WMT", number: "123"},
		{name: "lowercase input", raw: "w4123", carrier: "WMT", number: "123"},
		{name: "ryanair remap", raw: "FR1234", carrier: "RYR", number: "1234"},
		{name: "easyjet remap", raw: "U2201", carrier: "EZY", number: "201"},
		{name: "unmapped passthrough", raw: "AB12", carrier: "AB", number: "12"},
		{name: "three char prefix", raw: "ABC12", carrier: "AB", number: "C12"},
		{name: "digit carrier remap", raw: "0B450", carrier: "BMS", number: "450"},
		{name: "surrounding whitespace", raw: "  W4123 ", carrier: "WMT", number: "123"},
		{name: "shortest form", raw: "W41", carrier: "WMT", number: "1"},
		{name: "max length", raw: "WZZ12345", carrier: "WZ", number: "Z12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlightCode(tt.raw)
			assert.NoError(t, err)
			assert.Equal(t, tt.carrier, got.CarrierCode)
			assert.Equal(t, tt.number, got.FlightNumber)
		})
	}
}

func TestParseFlightCodeInvalid(t *testing.T) {
	invalid := []string{
		"",
		"ABC",
		"1",
		"W4",
		"WMT1",
		"W4 123",
		"ABCD123",
		"W4-123",
	}

	for _, raw := range invalid {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseFlightCode(raw)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}
