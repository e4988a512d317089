package changes

import (
	"testing"
	"time"

	"seatwatch/internal/courses"
	"seatwatch/internal/snapshot"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func record(title string, month courses.Month, seats int) snapshot.Record {
	return snapshot.Record{
		Title:          title,
		Month:          month,
		AvailableSeats: seats,
		ObservedAt:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDiffNewCourse(t *testing.T) {
	current := []courses.Course{
		{Title: "Matemáticas Julio 2026", Month: "julio", Capacity: 20, Occupancy: 15},
	}

	out := Diff(current, snapshot.Snapshot{})
	require.Empty(t, cmp.Diff([]Change{{Course: current[0], Kind: New}}, out))
	require.Equal(t, 5, out[0].Course.AvailableSeats())
	require.Equal(t, 0, out[0].Delta())
}

func TestDiffIncreased(t *testing.T) {
	current := []courses.Course{
		{Title: "Math", Month: "julio", Capacity: 10, Occupancy: 5},
	}
	previous := snapshot.Snapshot{
		"Math_julio": record("Math", "julio", 2),
	}

	out := Diff(current, previous)
	require.Len(t, out, 1)
	require.Equal(t, Increased, out[0].Kind)
	require.Equal(t, 2, out[0].PreviousAvailableSeats)
	require.Equal(t, 3, out[0].Delta())
}

func TestDiffQuiet(t *testing.T) {
	testCases := []struct {
		name     string
		previous int
	}{
		{name: "equal", previous: 5},
		{name: "decreased", previous: 9},
	}

	current := []courses.Course{
		{Title: "Math", Month: "julio", Capacity: 10, Occupancy: 5},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			previous := snapshot.Snapshot{
				"Math_julio": record("Math", "julio", test.previous),
			}
			require.Empty(t, Diff(current, previous))
		})
	}
}

func TestDiffIgnoresDisappeared(t *testing.T) {
	previous := snapshot.Snapshot{
		"Gone_julio": record("Gone", "julio", 4),
	}
	require.Empty(t, Diff(nil, previous))
}

func TestDiffSameTitleOtherMonth(t *testing.T) {
	current := []courses.Course{
		{Title: "Math", Month: "agosto", Capacity: 10, Occupancy: 5},
	}
	previous := snapshot.Snapshot{
		"Math_julio": record("Math", "julio", 8),
	}

	out := Diff(current, previous)
	require.Len(t, out, 1)
	require.Equal(t, New, out[0].Kind)
}

func TestDiffIsPure(t *testing.T) {
	current := []courses.Course{
		{Title: "Math", Month: "julio", Capacity: 10, Occupancy: 5},
		{Title: "Física", Month: "agosto", Capacity: 10, Occupancy: 1},
	}
	previous := snapshot.Snapshot{
		"Math_julio": record("Math", "julio", 2),
	}

	first := Diff(current, previous)
	second := Diff(current, previous)
	require.Empty(t, cmp.Diff(first, second))
	require.Len(t, previous, 1)
	require.Equal(t, 2, previous["Math_julio"].AvailableSeats)
}

func TestSplit(t *testing.T) {
	changes := []Change{
		{Course: courses.Course{Title: "a"}, Kind: Increased, PreviousAvailableSeats: 1},
		{Course: courses.Course{Title: "b"}, Kind: New},
		{Course: courses.Course{Title: "c"}, Kind: Increased},
	}

	added, increased := Split(changes)
	require.Equal(t, []Change{changes[1]}, added)
	require.Equal(t, []Change{changes[0], changes[2]}, increased)
	require.Equal(t, "NEW", New.String())
	require.Equal(t, "INCREASED", Increased.String())
}
