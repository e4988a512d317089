package studia

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"seatwatch/internal/components/telemetry"
	"seatwatch/internal/courses"
)

const (
	report_catalog_listing      = "catalog.listing"
	report_catalog_student_id   = "catalog.student-id"
	report_catalog_fetch_page   = "catalog.fetch-page"
	report_catalog_degraded     = "catalog.degraded"
	report_catalog_page_ceiling = "catalog.page-ceiling"
	report_catalog_embedded     = "catalog.embedded"
	report_count_fetched        = "catalog.records"
)

const (
	listingPath = "/studiapy3/venta_online/cursos"
	pagePath    = "/studiapy3/venta_online/cursos/cursos_/"

	DefaultStudentID = "6861"
	DefaultPageSize  = 10
	DefaultMaxPages  = 10
)

// FetchResult is everything read from the catalog during one walk.
type FetchResult struct {
	Records []courses.RawCourse
	// Complete is false when the walk stopped before the catalog said it was done, in which
	// case courses missing from Records may still exist.
	Complete bool
	// Pages is the number of pages that were read.
	Pages int
	// Degraded is the number of records recovered by pattern extraction.
	Degraded int
}

var studentIdRegex = regexp.MustCompile(`id_alumno:\s*(\d+)`)

func (s *Session) studentId(listing string) string {
	groups := studentIdRegex.FindStringSubmatch(listing)
	if len(groups) < 2 {
		s.tel.ReportWarning(
			report_catalog_student_id,
			fmt.Errorf("id_alumno not found on listing page, using %s", DefaultStudentID),
		)
		return DefaultStudentID
	}
	return groups[1]
}

func (s *Session) pageForm(page int, studentId string) map[string]string {
	return map[string]string{
		"rp":            strconv.Itoa(s.opts.PageSize),
		"pag":           strconv.Itoa(page),
		"id_ensenanza":  "0",
		"id_producto":   "0",
		"search":        "",
		"centro_alumno": "False",
		"fecha_filtro":  "",
		"id_alumno":     studentId,
		"order_by":      "fecha",
		"puedo_cursar":  "",
		"region_alumno": "False",
	}
}

// FetchAll walks the catalog page by page. It never fails outright, a walk that stopped early
// returns whatever was read with Complete set to false.
func (s *Session) FetchAll(ctx context.Context) FetchResult {
	var result FetchResult

	res, err := s.get(ctx, listingPath)
	if err != nil {
		s.tel.ReportBroken(report_catalog_listing, err)
		return result
	}
	listing := res.Body()
	studentId := s.studentId(string(listing))

	fallback := newFallbackDecoder(s.opts.Targets)
	for page := 0; ; page++ {
		if page >= s.opts.MaxPages {
			s.tel.ReportWarning(
				report_catalog_page_ceiling,
				fmt.Errorf("stopped after %d pages", s.opts.MaxPages),
			)
			break
		}

		res, err := s.postForm(ctx, pagePath, s.pageForm(page, studentId))
		if err != nil {
			s.tel.ReportBroken(report_catalog_fetch_page, err, telemetry.KV{Key: "page", Value: page})
			if page == 0 {
				s.readEmbedded(listing, fallback, &result)
			}
			break
		}

		decoded, err := decodeChain(res.Body(), structuredDecoder{}, fallback)
		if err != nil {
			s.tel.ReportBroken(report_catalog_fetch_page, err, telemetry.KV{Key: "page", Value: page})
			break
		}
		result.Pages++

		if decoded.Degraded {
			s.tel.ReportWarning(
				report_catalog_degraded,
				fmt.Errorf("page %d is not valid json, recovered %d records without locations", page, len(decoded.Records)),
			)
			result.Records = append(result.Records, decoded.Records...)
			result.Degraded += len(decoded.Records)
			continue
		}

		if !decoded.Status {
			s.tel.ReportWarning(report_catalog_fetch_page, fmt.Errorf("page %d has no status", page))
			// a refused first page says nothing about what the catalog holds
			result.Complete = page > 0
			break
		}
		if len(decoded.Records) == 0 {
			s.tel.ReportDebug("empty page, end of catalog", page)
			result.Complete = true
			break
		}

		s.tel.ReportDebug("read page", page, len(decoded.Records), telemetry.KV{Key: "total", Value: decoded.Total})
		result.Records = append(result.Records, decoded.Records...)
		if len(decoded.Records) < s.opts.PageSize {
			result.Complete = true
			break
		}
	}

	s.tel.ReportCount(report_count_fetched, int64(len(result.Records)))
	return result
}

// readEmbedded recovers the records inlined into the listing page when the catalog endpoint
// itself cannot be reached. The result is never complete.
func (s *Session) readEmbedded(listing []byte, fallback fallbackDecoder, result *FetchResult) {
	decoded, err := decodeChain(listing, embeddedDecoder{}, fallback)
	if err != nil {
		s.tel.ReportWarning(report_catalog_embedded, err)
		return
	}
	if decoded.Degraded {
		result.Degraded += len(decoded.Records)
	}
	s.tel.ReportWarning(
		report_catalog_embedded,
		fmt.Errorf("catalog endpoint failed, read %d records from the listing page", len(decoded.Records)),
	)
	result.Records = append(result.Records, decoded.Records...)
}
