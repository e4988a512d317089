package studia

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"seatwatch/internal/components/telemetry"
	"seatwatch/internal/courses"

	"github.com/stretchr/testify/require"
)

func fetch(t *testing.T, site *fakeSite) (FetchResult, *telemetry.Recorder) {
	opts := startSite(t, site)
	tel := &telemetry.Recorder{}
	session, err := Login(context.Background(), opts, testCreds, tel)
	require.NoError(t, err)
	result := session.FetchAll(context.Background())
	require.Zero(t, site.rejected(), "catalog requests should carry the session cookie")
	return result, tel
}

func TestFetchAllPaginates(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		count := map[int]int{0: 10, 1: 10, 2: 3}[n]
		return http.StatusOK, pageJSONFrom(true, pageRecords(n, count), 23)
	}

	result, tel := fetch(t, site)
	require.True(t, result.Complete)
	require.Equal(t, 3, result.Pages)
	require.Zero(t, result.Degraded)
	require.Len(t, result.Records, 23)
	require.Equal(t, 3, site.pageRequests())

	first := result.Records[0]
	require.Equal(t, "Curso anual estudios n - Curso 0-0 Julio 2026", first.Name)
	require.True(t, first.HasGroup)
	require.Equal(t, 20, first.Capacity)
	require.Equal(t, 15, first.Occupancy)
	require.Equal(t, []string{"Madrid"}, first.Locations)
	require.True(t, first.LocationsKnown)

	form := site.pageForms[1]
	require.Equal(t, "4242", form.Get("id_alumno"))
	require.Equal(t, "1", form.Get("pag"))
	require.Equal(t, "10", form.Get("rp"))
	require.Equal(t, "False", form.Get("centro_alumno"))
	require.Equal(t, "False", form.Get("region_alumno"))
	require.Equal(t, "fecha", form.Get("order_by"))
	require.True(t, form.Has("search"))

	count, ok := tel.LastCount(report_count_fetched)
	require.True(t, ok)
	require.Equal(t, int64(23), count)
}

func TestFetchAllShortPageEndsWalk(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		// the server claims far more records than it sends
		return http.StatusOK, pageJSONFrom(true, pageRecords(n, 7), 500)
	}

	result, _ := fetch(t, site)
	require.True(t, result.Complete)
	require.Len(t, result.Records, 7)
	require.Equal(t, 1, site.pageRequests())
}

func TestFetchAllMalformedPage(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		count := 10
		if n == 4 {
			count = 3
		}
		body := pageJSONFrom(true, pageRecords(n, count), 43)
		if n == 1 {
			// truncated body
			body = body[:len(body)-1]
		}
		return http.StatusOK, body
	}

	result, tel := fetch(t, site)
	require.True(t, result.Complete)
	require.Equal(t, 5, result.Pages)
	require.Equal(t, 10, result.Degraded)
	require.Len(t, result.Records, 43)
	require.Equal(t, 5, site.pageRequests())
	require.True(t, tel.Has("warning", report_catalog_degraded))

	degraded := result.Records[10]
	require.Equal(t, "Curso anual estudios n - Curso 1-0 Julio 2026", degraded.Name)
	require.True(t, degraded.HasGroup)
	require.Equal(t, 20, degraded.Capacity)
	require.Equal(t, 15, degraded.Occupancy)
	require.False(t, degraded.LocationsKnown)

	require.True(t, result.Records[20].LocationsKnown)
}

func TestFetchAllMalformedPageWithoutTargetCourses(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		switch n {
		case 1:
			records := make([]string, 10)
			for i := range records {
				records[i] = courseJSON(fmt.Sprintf("Curso %d Septiembre 2026", i), 20, 15, "Madrid")
			}
			body := pageJSONFrom(true, records, 33)
			return http.StatusOK, body[:len(body)-1]
		case 3:
			return http.StatusOK, pageJSONFrom(true, pageRecords(n, 3), 33)
		default:
			return http.StatusOK, pageJSONFrom(true, pageRecords(n, 10), 33)
		}
	}

	result, tel := fetch(t, site)
	require.True(t, result.Complete)
	require.Equal(t, 4, site.pageRequests())
	require.Equal(t, 4, result.Pages)
	require.Zero(t, result.Degraded)
	require.Len(t, result.Records, 23)
	require.Equal(t, "Curso anual estudios n - Curso 2-0 Julio 2026", result.Records[10].Name)
	require.True(t, tel.Has("warning", report_catalog_degraded))
	require.False(t, tel.Has("broken", report_catalog_fetch_page))
}

func TestFetchAllGarbagePage(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		if n == 1 {
			return http.StatusOK, "<html>mantenimiento</html>"
		}
		return http.StatusOK, pageJSON(true, 10)
	}

	result, tel := fetch(t, site)
	require.False(t, result.Complete)
	require.Len(t, result.Records, 10)
	require.Equal(t, 2, site.pageRequests())
	require.True(t, tel.Has("broken", report_catalog_fetch_page))
}

func TestFetchAllPageCeiling(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		return http.StatusOK, pageJSONFrom(true, pageRecords(n, 10), 1000)
	}

	result, tel := fetch(t, site)
	require.False(t, result.Complete)
	require.Equal(t, DefaultMaxPages, result.Pages)
	require.Len(t, result.Records, DefaultMaxPages*10)
	require.Equal(t, DefaultMaxPages, site.pageRequests())
	require.True(t, tel.Has("warning", report_catalog_page_ceiling))
}

func TestFetchAllStatus(t *testing.T) {
	testCases := []struct {
		name     string
		status   any
		onPage   int
		complete bool
		records  int
	}{
		{name: "false on first page", status: false, onPage: 0, complete: false, records: 0},
		{name: "absent on first page", status: nil, onPage: 0, complete: false, records: 0},
		{name: "false on later page", status: false, onPage: 2, complete: true, records: 20},
		{name: "truthy string", status: "ok", onPage: 1, complete: true, records: 13},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			site := newFakeSite()
			site.page = func(n int) (int, string) {
				if n == test.onPage {
					return http.StatusOK, pageJSONFrom(test.status, pageRecords(n, 3), 100)
				}
				return http.StatusOK, pageJSONFrom(true, pageRecords(n, 10), 100)
			}

			result, _ := fetch(t, site)
			require.Equal(t, test.complete, result.Complete)
			require.Len(t, result.Records, test.records)
		})
	}
}

func TestFetchAllEmptyPage(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		if n == 1 {
			return http.StatusOK, pageJSON(true, 0)
		}
		return http.StatusOK, pageJSON(true, 10)
	}

	result, _ := fetch(t, site)
	require.True(t, result.Complete)
	require.Len(t, result.Records, 10)
	require.Equal(t, 2, result.Pages)
}

func TestFetchAllTransportFailure(t *testing.T) {
	site := newFakeSite()
	site.page = func(n int) (int, string) {
		if n == 2 {
			return http.StatusInternalServerError, ""
		}
		return http.StatusOK, pageJSON(true, 10)
	}

	result, tel := fetch(t, site)
	require.False(t, result.Complete)
	require.Len(t, result.Records, 20)
	require.Equal(t, 2, result.Pages)
	require.True(t, tel.Has("broken", report_catalog_fetch_page))
}

func TestFetchAllDefaultStudentId(t *testing.T) {
	site := newFakeSite()
	site.listing = "<html><body>cursos</body></html>"

	result, tel := fetch(t, site)
	require.True(t, result.Complete)
	require.Equal(t, DefaultStudentID, site.pageForms[0].Get("id_alumno"))
	require.True(t, tel.Has("warning", report_catalog_student_id))
}

func TestFetchAllListingFailure(t *testing.T) {
	site := newFakeSite()
	site.listingCode = http.StatusServiceUnavailable

	result, tel := fetch(t, site)
	require.False(t, result.Complete)
	require.Empty(t, result.Records)
	require.Zero(t, site.pageRequests())
	require.True(t, tel.Has("broken", report_catalog_listing))
}

func TestFetchAllEmbeddedListing(t *testing.T) {
	site := newFakeSite()
	site.listing = `<script>
var venta = {
	id_alumno: 4242,
	cursos: [
		{nombre: 'Química Julio 2026', grupo_seleccionado: {capacidad: '12', ocupacion: 3}, grupos: [{lugar: 'Madrid'},]},
		{nombre: 'Física Agosto 2026', grupo_seleccionado: null, grupos: []},
	],
	carrito: [],
};
</script>`
	site.page = func(n int) (int, string) {
		return http.StatusBadGateway, ""
	}

	result, tel := fetch(t, site)
	require.False(t, result.Complete)
	require.Zero(t, result.Degraded)
	require.Equal(t, []courses.RawCourse{
		{
			Name:           "Química Julio 2026",
			HasGroup:       true,
			Capacity:       12,
			Occupancy:      3,
			Locations:      []string{"Madrid"},
			LocationsKnown: true,
		},
		{
			Name:           "Física Agosto 2026",
			LocationsKnown: true,
		},
	}, result.Records)
	require.True(t, tel.Has("warning", report_catalog_embedded))
}

func TestFetchAllEmbeddedListingDegraded(t *testing.T) {
	site := newFakeSite()
	site.listing = `<script>
var venta = {
	cursos: [{"nombre": "Química Julio 2026", "grupo_seleccionado": {"capacidad": 12, "ocupacion": 3}, "grupos": [{"lugar": undefined}]}],
	carrito: []
};
</script>`
	site.page = func(n int) (int, string) {
		return http.StatusBadGateway, ""
	}

	result, _ := fetch(t, site)
	require.False(t, result.Complete)
	require.Equal(t, 1, result.Degraded)
	require.Len(t, result.Records, 1)
	require.False(t, result.Records[0].LocationsKnown)
	require.Equal(t, 12, result.Records[0].Capacity)
}
