package snapshot

import (
	"encoding/json"
	"time"

	"seatwatch/internal/courses"
)

// Record is the last known state of a single course.
type Record struct {
	Title          string        `json:"title"`
	Month          courses.Month `json:"month"`
	AvailableSeats int           `json:"available_seats"`
	ObservedAt     time.Time     `json:"observed_at"`
}

// observedAtLayouts are tried in order when reading observed_at, the last two are the
// timezone-less ISO-8601 timestamps written by older versions of the bot.
var observedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseObservedAt(value string) time.Time {
	for _, layout := range observedAtLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t
		}
	}
	return time.Time{}
}

// UnmarshalJSON ignores unknown fields and also accepts the legacy `plazas_disponibles` and
// `timestamp` fields. An unreadable timestamp becomes the zero time.
func (r *Record) UnmarshalJSON(data []byte) error {
	var wire struct {
		Title            string        `json:"title"`
		Month            courses.Month `json:"month"`
		AvailableSeats   *int          `json:"available_seats"`
		ObservedAt       string        `json:"observed_at"`
		LegacySeats      *int          `json:"plazas_disponibles"`
		LegacyObservedAt string        `json:"timestamp"`
	}
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}

	*r = Record{Title: wire.Title, Month: wire.Month}
	switch {
	case wire.AvailableSeats != nil:
		r.AvailableSeats = *wire.AvailableSeats
	case wire.LegacySeats != nil:
		r.AvailableSeats = *wire.LegacySeats
	}
	observedAt := wire.ObservedAt
	if observedAt == "" {
		observedAt = wire.LegacyObservedAt
	}
	r.ObservedAt = parseObservedAt(observedAt)
	return nil
}

// Snapshot maps a course identity key to its last known record.
type Snapshot map[string]Record

// FromCourses builds the snapshot of the given courses, all observed at `now`.
func FromCourses(current []courses.Course, now time.Time) Snapshot {
	out := make(Snapshot, len(current))
	for _, c := range current {
		out[c.Key()] = Record{
			Title:          c.Title,
			Month:          c.Month,
			AvailableSeats: c.AvailableSeats(),
			ObservedAt:     now,
		}
	}
	return out
}

// CarryForward returns a copy of next that also holds every record of previous whose key
// is missing from next.
func CarryForward(next, previous Snapshot) Snapshot {
	out := make(Snapshot, len(next)+len(previous))
	for key, record := range previous {
		out[key] = record
	}
	for key, record := range next {
		out[key] = record
	}
	return out
}

// Encode renders the snapshot in its persisted format.
func Encode(s Snapshot) ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses the persisted format, an empty document is an empty snapshot.
func Decode(data []byte) (Snapshot, error) {
	out := Snapshot{}
	if len(data) == 0 {
		return out, nil
	}
	err := json.Unmarshal(data, &out)
	if err != nil {
		return Snapshot{}, err
	}
	if out == nil {
		out = Snapshot{}
	}
	return out, nil
}
