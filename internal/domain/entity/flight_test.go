package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func ids(flights []*Flight) []string {
	out := make([]string, len(flights))
	for i, f := range flights {
		out[i] = f.ID
	}
	return out
}

func TestSortRosterByOrder(t *testing.T) {
	flights := []*Flight{
		{ID: "c", Order: intPtr(2)},
		{ID: "a", Order: intPtr(0)},
		{ID: "b", Order: intPtr(1)},
	}

	SortRoster(flights)

	assert.Equal(t, []string{"a", "b", "c"}, ids(flights))
}

func TestSortRosterExplicitOrderFirst(t *testing.T) {
	soon := time.Now().Add(10 * time.Minute)

	// The unordered flight arrives earlier but still sorts after the one
	// with an explicit position.
	flights := []*Flight{
		{ID: "unordered", Arriving: soon},
		{ID: "ordered", Order: intPtr(0), Arriving: soon.Add(5 * time.Hour)},
	}

	SortRoster(flights)

	assert.Equal(t, []string{"ordered", "unordered"}, ids(flights))
}

func TestSortRosterByArrival(t *testing.T) {
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	flights := []*Flight{
		{ID: "late", Arriving: base.Add(2 * time.Hour)},
		{ID: "unknown", Arriving: "not a time"},
		{ID: "early", Arriving: base},
	}

	SortRoster(flights)

	assert.Equal(t, []string{"early", "late", "unknown"}, ids(flights))
}

func TestSortRosterTieBreakers(t *testing.T) {
	arriving := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	older := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	flights := []*Flight{
		{ID: "b", Arriving: arriving, Date: newer},
		{ID: "z", Arriving: arriving, Date: older},
		{ID: "a", Arriving: arriving, Date: newer},
	}

	SortRoster(flights)

	// Same arrival: creation instant first, then id.
	assert.Equal(t, []string{"z", "a", "b"}, ids(flights))
}

func TestSortRosterDeterministic(t *testing.T) {
	build := func() []*Flight {
		return []*Flight{
			{ID: "d"},
			{ID: "c", Order: intPtr(7)},
			{ID: "b", Arriving: "14:05"},
			{ID: "a", Order: intPtr(3)},
		}
	}

	first := build()
	SortRoster(first)

	// Insertion sequence must not matter.
	second := build()
	second[0], second[3] = second[3], second[0]
	SortRoster(second)

	assert.Equal(t, ids(first), ids(second))
}

func TestCloneIsolatesCar(t *testing.T) {
	original := &Flight{
		ID:  "f1",
		Car: &Car{Plate: "AB-123", Model: "Octavia"},
	}

	clone := original.Clone()
	clone.Car.Plate = "changed"

	assert.Equal(t, "AB-123", original.Car.Plate)
}
