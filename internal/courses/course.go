// Package courses turns the raw course records scraped from the enrollment site into
// canonical Course values.
package courses

import (
	"fmt"
	"strings"
)

// Month is a lowercase target month token as it appears in course names, ex. "julio".
type Month string

func (m Month) String() string {
	return string(m)
}

// Course is a course with free seats in one of the target months. It is derived fresh every run.
type Course struct {
	Title     string
	Month     Month
	Capacity  int
	Occupancy int
}

// AvailableSeats is Capacity - Occupancy, it can be negative when the site overbooks.
func (c Course) AvailableSeats() int {
	return c.Capacity - c.Occupancy
}

// Key is the identity of a course across runs.
func (c Course) Key() string {
	return IdentityKey(c.Title, c.Month)
}

func (c Course) String() string {
	return fmt.Sprintf("%s (%s, %d/%d)", c.Title, c.Month, c.Occupancy, c.Capacity)
}

// IdentityKey derives the key `<title>_<month>` used to correlate a course between runs.
func IdentityKey(title string, month Month) string {
	return fmt.Sprintf("%s_%s", title, month)
}

// RawCourse is a course record as scraped from the site, mapped into fixed fields at the
// fetcher boundary.
type RawCourse struct {
	Name string
	// HasGroup is false when the record has no selected group or the group lacks
	// a capacity or an occupancy.
	HasGroup  bool
	Capacity  int
	Occupancy int
	// Locations holds the location of every sub-group of the course.
	Locations []string
	// LocationsKnown is false for records recovered by degraded extraction,
	// in which case Locations is empty and carries no meaning.
	LocationsKnown bool
}

// HasLocation reports whether at least one sub-group has a non blank location.
func (r RawCourse) HasLocation() bool {
	for _, l := range r.Locations {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

// Targets are the filter values that decide which courses are relevant.
type Targets struct {
	// Months is in order of preference, a name containing more than one
	// month is attributed to the first one listed.
	Months []Month
	Year   string
}

// ParseMonths lowercases and trims month tokens, blank tokens are dropped.
func ParseMonths(tokens []string) []Month {
	var out []Month
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		out = append(out, Month(t))
	}
	return out
}

// MatchMonth returns the first target month contained in the name.
func (t Targets) MatchMonth(name string) (Month, bool) {
	lower := strings.ToLower(name)
	for _, m := range t.Months {
		if strings.Contains(lower, string(m)) {
			return m, true
		}
	}
	return "", false
}

// MatchYear is a substring match, names are never parsed as dates.
func (t Targets) MatchYear(name string) bool {
	return t.Year != "" && strings.Contains(name, t.Year)
}
