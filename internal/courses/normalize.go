package courses

import (
	"regexp"
	"strings"

	"seatwatch/internal/components/assert"
	"seatwatch/internal/components/telemetry"
)

const (
	report_normalize_excluded = "normalize.excluded"
	report_normalize_full     = "normalize.full"
	report_count_normalized   = "normalize.courses"
)

// Rules are the site specific title and category rules.
type Rules struct {
	// StripPrefixes are removed when the name starts with them, in order.
	StripPrefixes []string
	// CutMarkers truncate the name at their first occurrence, in order.
	CutMarkers []string
	// ExcludedToken marks a disallowed category, matched case-insensitively.
	ExcludedToken string
}

// DefaultRules are the rules for course names served by StudiaOnline.
var DefaultRules = Rules{
	StripPrefixes: []string{
		"Curso anual estudios n - ",
		"Curso anual Repaso n - ",
	},
	CutMarkers: []string{
		" - mEf",
		" -dlmEf",
	},
	ExcludedToken: "semestre",
}

// Normalizer filters raw course records and converts them into Courses.
type Normalizer struct {
	targets Targets
	rules   Rules
	tel     telemetry.API
}

func NewNormalizer(targets Targets, rules Rules, tel telemetry.API) Normalizer {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("courses", tel)
	return Normalizer{targets: targets, rules: rules, tel: tel}
}

// Normalize keeps the records that pass every filter and have free seats, cleans their titles
// and drops duplicates. Source order is preserved.
func (n Normalizer) Normalize(raw []RawCourse) []Course {
	var out []Course
	for _, r := range raw {
		course, ok := n.normalize(r)
		if !ok {
			continue
		}
		out = append(out, course)
	}
	out = Dedup(out)
	n.tel.ReportCount(report_count_normalized, int64(len(out)))
	return out
}

func (n Normalizer) normalize(r RawCourse) (Course, bool) {
	if !r.HasGroup {
		return Course{}, false
	}
	if n.excluded(r.Name) {
		n.tel.ReportDebug(report_normalize_excluded, r.Name, telemetry.KV{Key: "reason", Value: "category"})
		return Course{}, false
	}
	month, ok := n.targets.MatchMonth(r.Name)
	if !ok || !n.targets.MatchYear(r.Name) {
		return Course{}, false
	}
	if r.LocationsKnown && !r.HasLocation() {
		n.tel.ReportDebug(report_normalize_excluded, r.Name, telemetry.KV{Key: "reason", Value: "empty location"})
		return Course{}, false
	}

	course := Course{
		Title:     CleanTitle(r.Name, n.rules),
		Month:     month,
		Capacity:  r.Capacity,
		Occupancy: r.Occupancy,
	}
	if course.AvailableSeats() <= 0 {
		n.tel.ReportDebug(report_normalize_full, course.Title, r.Occupancy, r.Capacity)
		return Course{}, false
	}
	return course, true
}

func (n Normalizer) excluded(name string) bool {
	token := strings.ToLower(n.rules.ExcludedToken)
	return token != "" && strings.Contains(strings.ToLower(name), token)
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanTitle strips the known prefixes, truncates at the known markers and collapses whitespace.
func CleanTitle(name string, rules Rules) string {
	for _, prefix := range rules.StripPrefixes {
		name = strings.TrimPrefix(name, prefix)
	}
	for _, marker := range rules.CutMarkers {
		if idx := strings.Index(name, marker); idx >= 0 {
			name = name[:idx]
		}
	}
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

func dedupKey(c Course) string {
	projection := nonAlphanumeric.ReplaceAllString(strings.ToLower(c.Title), "")
	return IdentityKey(projection, c.Month)
}

// Dedup keeps the first course per (alphanumeric title projection, month), so titles that only
// differ in punctuation or casing collapse into one.
func Dedup(courses []Course) []Course {
	seen := make(map[string]struct{}, len(courses))
	var out []Course
	for _, c := range courses {
		key := dedupKey(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
