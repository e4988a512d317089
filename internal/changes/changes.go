// Package changes compares the courses of the current run against the previous snapshot.
package changes

import (
	"fmt"

	"seatwatch/internal/courses"
	"seatwatch/internal/snapshot"
)

type Kind int

const (
	// New is a course whose identity key is absent from the previous snapshot.
	New Kind = iota
	// Increased is a known course that now has strictly more free seats.
	Increased
)

func (k Kind) String() string {
	switch k {
	case New:
		return "NEW"
	case Increased:
		return "INCREASED"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Change is a course worth notifying about.
type Change struct {
	Course courses.Course
	Kind   Kind
	// PreviousAvailableSeats is only meaningful for Increased changes.
	PreviousAvailableSeats int
}

// Delta is the number of seats freed since the previous snapshot, 0 for New changes.
func (c Change) Delta() int {
	if c.Kind != Increased {
		return 0
	}
	return c.Course.AvailableSeats() - c.PreviousAvailableSeats
}

// Diff returns one change per course that is either new or has more free seats than the
// previous snapshot recorded, in the order of current. Equal or decreased seat counts
// produce nothing, and courses that disappeared are not reported.
func Diff(current []courses.Course, previous snapshot.Snapshot) []Change {
	var out []Change
	for _, c := range current {
		prev, ok := previous[c.Key()]
		if !ok {
			out = append(out, Change{Course: c, Kind: New})
			continue
		}
		if c.AvailableSeats() > prev.AvailableSeats {
			out = append(out, Change{
				Course:                 c,
				Kind:                   Increased,
				PreviousAvailableSeats: prev.AvailableSeats,
			})
		}
	}
	return out
}

// Split partitions changes by kind, keeping their order.
func Split(changes []Change) (added, increased []Change) {
	for _, c := range changes {
		switch c.Kind {
		case New:
			added = append(added, c)
		case Increased:
			increased = append(increased, c)
		}
	}
	return added, increased
}
