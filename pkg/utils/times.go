package utils

import (
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UnknownArrival is the sentinel epoch for arrival values that cannot be
// interpreted. It sorts after every known instant.
const UnknownArrival = int64(math.MaxInt64)

// ArrivalEpoch converts an arrival value of unknown shape into epoch
// milliseconds. Store documents carry arrivals as native timestamps, ISO
// strings, bare "HH:MM" labels or numbers depending on how the flight was
// added, so every shape must map to something comparable. The function is
// total: anything unrecognized maps to UnknownArrival.
func ArrivalEpoch(v interface{}) int64 {
	switch value := v.(type) {
	case nil:
		return UnknownArrival
	case primitive.DateTime:
		return value.Time().UnixMilli()
	case time.Time:
		return value.UnixMilli()
	case int:
		return int64(value)
	case int32:
		return int64(value)
	case int64:
		return value
	case float64:
		return int64(value)
	case string:
		return arrivalEpochFromString(value)
	default:
		return UnknownArrival
	}
}

func arrivalEpochFromString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownArrival
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli()
	}

	// Bare "H:MM" or "HH:MM" means today in local time.
	if t, err := time.Parse("15:04", s); err == nil {
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
		return today.UnixMilli()
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}

	return UnknownArrival
}
