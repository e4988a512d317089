package courses

import (
	"testing"

	"seatwatch/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testTargets = Targets{
	Months: []Month{"julio", "agosto"},
	Year:   "2026",
}

func newTestNormalizer() (Normalizer, *telemetry.Recorder) {
	tel := &telemetry.Recorder{}
	return NewNormalizer(testTargets, DefaultRules, tel), tel
}

func raw(name string, capacity, occupancy int, locations ...string) RawCourse {
	return RawCourse{
		Name:           name,
		HasGroup:       true,
		Capacity:       capacity,
		Occupancy:      occupancy,
		Locations:      locations,
		LocationsKnown: true,
	}
}

func TestCleanTitle(t *testing.T) {
	testCases := []struct {
		name     string
		expected string
	}{
		{name: "Curso anual estudios n - Matemáticas Julio 2026", expected: "Matemáticas Julio 2026"},
		{name: "Curso anual Repaso n - Física  Agosto\t2026", expected: "Física Agosto 2026"},
		{name: "Química Julio 2026 - mEf 1234", expected: "Química Julio 2026"},
		{name: "Biología Julio 2026 -dlmEf extra - mEf", expected: "Biología Julio 2026"},
		{name: "   Historia \n Julio 2026   ", expected: "Historia Julio 2026"},
		{name: "Intro Curso anual estudios n - Julio 2026", expected: "Intro Curso anual estudios n - Julio 2026"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, CleanTitle(test.name, DefaultRules), test.name)
	}
}

func TestNormalizeFilters(t *testing.T) {
	normalizer, tel := newTestNormalizer()

	input := []RawCourse{
		raw("Curso anual estudios n - Matemáticas JULIO 2026 - mEf 1", 20, 15, "Madrid"),
		raw("Lengua Agosto 2026", 10, 2, "", "Sevilla"),
		// wrong year
		raw("Inglés Julio 2025", 10, 2, "Madrid"),
		// no target month
		raw("Dibujo Septiembre 2026", 10, 2, "Madrid"),
		// full
		raw("Física Julio 2026", 10, 10, "Madrid"),
		// overbooked
		raw("Química Julio 2026", 10, 12, "Madrid"),
		// only blank locations
		raw("Historia Julio 2026", 10, 2, "  ", ""),
		// no sub-groups at all
		raw("Filosofía Julio 2026", 10, 2),
		// no selected group
		{Name: "Economía Julio 2026", LocationsKnown: true, Locations: []string{"Madrid"}},
	}

	expected := []Course{
		{Title: "Matemáticas JULIO 2026", Month: "julio", Capacity: 20, Occupancy: 15},
		{Title: "Lengua Agosto 2026", Month: "agosto", Capacity: 10, Occupancy: 2},
	}
	require.Empty(t, cmp.Diff(expected, normalizer.Normalize(input)))

	count, ok := tel.LastCount(report_count_normalized)
	require.True(t, ok)
	require.Equal(t, int64(2), count)
	require.True(t, tel.Has("debug", report_normalize_excluded))
}

func TestNormalizeExcludesSemester(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	input := []RawCourse{
		raw("Curso Semestre Julio 2026", 30, 1, "Madrid"),
		raw("SEMESTRE intensivo agosto 2026", 30, 1, "Valencia"),
	}
	require.Empty(t, normalizer.Normalize(input))
}

func TestNormalizeMonthPreference(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	courses := normalizer.Normalize([]RawCourse{
		raw("Repaso agosto y julio 2026", 5, 1, "Madrid"),
	})
	require.Len(t, courses, 1)
	require.Equal(t, Month("julio"), courses[0].Month)
}

func TestNormalizeDegradedSkipsLocationRule(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	courses := normalizer.Normalize([]RawCourse{
		{Name: "Matemáticas Julio 2026", HasGroup: true, Capacity: 8, Occupancy: 3},
	})
	require.Len(t, courses, 1)
	require.Equal(t, 5, courses[0].AvailableSeats())
}

func TestNormalizeNeverKeepsLocationlessRecords(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	names := []string{"Matemáticas Julio 2026", "Lengua Agosto 2026", "Física julio 2026"}
	locationSets := [][]string{nil, {}, {""}, {" ", "\t"}, {"\n"}}

	for _, name := range names {
		for _, locations := range locationSets {
			out := normalizer.Normalize([]RawCourse{raw(name, 50, 1, locations...)})
			require.Empty(t, out, "%s %q", name, locations)
		}
	}
}

func TestDedup(t *testing.T) {
	normalizer, _ := newTestNormalizer()

	input := []RawCourse{
		raw("Matemáticas (A) Julio 2026", 20, 10, "Madrid"),
		raw("matematicas a julio 2026", 20, 1, "Madrid"),
		raw("Matemáticas-A Julio 2026", 20, 1, "Madrid"),
		raw("Matemáticas (A) Julio 2026 agosto", 20, 1, "Madrid"),
		raw("Lengua Agosto 2026", 10, 2, "Madrid"),
		raw("Lengua, Agosto 2026.", 10, 9, "Madrid"),
	}

	out := normalizer.Normalize(input)
	expected := []Course{
		{Title: "Matemáticas (A) Julio 2026", Month: "julio", Capacity: 20, Occupancy: 10},
		{Title: "matematicas a julio 2026", Month: "julio", Capacity: 20, Occupancy: 1},
		{Title: "Matemáticas (A) Julio 2026 agosto", Month: "julio", Capacity: 20, Occupancy: 1},
		{Title: "Lengua Agosto 2026", Month: "agosto", Capacity: 10, Occupancy: 2},
	}
	require.Empty(t, cmp.Diff(expected, out))
}

func TestDedupIdempotent(t *testing.T) {
	courses := []Course{
		{Title: "Matemáticas Julio 2026", Month: "julio", Capacity: 20, Occupancy: 10},
		{Title: "MATEMÁTICAS julio 2026!", Month: "julio", Capacity: 20, Occupancy: 1},
		{Title: "Matemáticas Julio 2026", Month: "agosto", Capacity: 20, Occupancy: 1},
		{Title: "Lengua Agosto 2026", Month: "agosto", Capacity: 10, Occupancy: 2},
	}

	once := Dedup(courses)
	twice := Dedup(once)
	require.Len(t, once, 3)
	require.Empty(t, cmp.Diff(once, twice))

	normalizer, _ := newTestNormalizer()
	var rawAgain []RawCourse
	for _, c := range once {
		rawAgain = append(rawAgain, raw(c.Title, c.Capacity, c.Occupancy, "Madrid"))
	}
	// the agosto copy of the first title names julio, so only the others round trip
	renormalized := normalizer.Normalize([]RawCourse{rawAgain[0], rawAgain[2]})
	require.Empty(t, cmp.Diff([]Course{once[0], once[2]}, renormalized))
}

func TestIdentityKey(t *testing.T) {
	c := Course{Title: "Math", Month: "julio", Capacity: 20, Occupancy: 15}
	require.Equal(t, "Math_julio", c.Key())
	require.Equal(t, 5, c.AvailableSeats())
}

func TestParseMonths(t *testing.T) {
	require.Equal(t, []Month{"julio", "agosto"}, ParseMonths([]string{" Julio", "", "AGOSTO "}))
}
