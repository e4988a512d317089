package chrono

import (
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the location of the implementation.
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime is the constructor of StandardTime, an empty timezone means the local timezone.
func NewStandardTime(timezone string) (StandardTime, error) {
	if timezone == "" {
		return StandardTime{location: time.Local}, nil
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: location}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// FixedTime always returns the same instant.
type FixedTime struct {
	Time time.Time
}

func (f FixedTime) Now() time.Time {
	return f.Time
}

func (f FixedTime) Location() *time.Location {
	return f.Time.Location()
}
