package studia

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"seatwatch/internal/courses"

	"github.com/titanous/json5"
)

// looseInt accepts a json number or a numeric string, anything else leaves it invalid.
type looseInt struct {
	Value int
	Valid bool
}

func (i *looseInt) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*i = looseInt{}
		return nil
	}
	text = strings.TrimSpace(strings.Trim(text, `"`))

	n, err := strconv.Atoi(text)
	if err == nil {
		*i = looseInt{Value: n, Valid: true}
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err == nil {
		*i = looseInt{Value: int(f), Valid: true}
		return nil
	}
	*i = looseInt{}
	return nil
}

// looseBool is the truthiness of any json value. Strings are true unless empty, "0" or "false".
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	var value any
	err := json.Unmarshal(data, &value)
	if err != nil {
		return err
	}
	*b = looseBool(truthy(value))
	return nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false":
			return false
		}
		return true
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

type wireGroup struct {
	Capacity  looseInt `json:"capacidad"`
	Occupancy looseInt `json:"ocupacion"`
}

type wireSubgroup struct {
	Location any `json:"lugar"`
}

type wireCourse struct {
	Name          string         `json:"nombre"`
	SelectedGroup *wireGroup     `json:"grupo_seleccionado"`
	Groups        []wireSubgroup `json:"grupos"`
}

type wirePage struct {
	Status  looseBool    `json:"status"`
	Courses []wireCourse `json:"cursos"`
	Total   looseInt     `json:"total_cursos"`
}

func locationText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// toRawCourse maps a decoded record into its fixed fields.
func (c wireCourse) toRawCourse() courses.RawCourse {
	out := courses.RawCourse{
		Name:           c.Name,
		LocationsKnown: true,
	}
	if c.SelectedGroup != nil && c.SelectedGroup.Capacity.Valid && c.SelectedGroup.Occupancy.Valid {
		out.HasGroup = true
		out.Capacity = c.SelectedGroup.Capacity.Value
		out.Occupancy = c.SelectedGroup.Occupancy.Value
	}
	for _, group := range c.Groups {
		out.Locations = append(out.Locations, locationText(group.Location))
	}
	return out
}

func toRawCourses(records []wireCourse) []courses.RawCourse {
	out := make([]courses.RawCourse, 0, len(records))
	for _, r := range records {
		out = append(out, r.toRawCourse())
	}
	return out
}

// decodedPage is a catalog page after decoding.
type decodedPage struct {
	Status  bool
	Records []courses.RawCourse
	// Total is the server's own count, it is only logged.
	Total int
	// Degraded is true when the page was recovered by pattern extraction.
	Degraded bool
}

// pageDecoder turns the body of a catalog page into records.
type pageDecoder interface {
	decode(body []byte) (decodedPage, error)
}

// structuredDecoder decodes a page as strict json.
type structuredDecoder struct{}

func (structuredDecoder) decode(body []byte) (decodedPage, error) {
	var page wirePage
	err := json.Unmarshal(body, &page)
	if err != nil {
		return decodedPage{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return decodedPage{
		Status:  bool(page.Status),
		Records: toRawCourses(page.Courses),
		Total:   page.Total.Value,
	}, nil
}

// fallbackDecoder pulls name, capacity and occupancy out of text that could not be decoded.
// Locations cannot be recovered this way.
type fallbackDecoder struct {
	pattern *regexp.Regexp
}

// newFallbackDecoder only matches names that contain a target month and the target year,
// without targets it matches any name.
func newFallbackDecoder(targets courses.Targets) fallbackDecoder {
	name := `[^"]*`
	if len(targets.Months) > 0 && targets.Year != "" {
		months := make([]string, len(targets.Months))
		for i, m := range targets.Months {
			months[i] = regexp.QuoteMeta(string(m))
		}
		name = fmt.Sprintf(
			`[^"]*(?:%s)[^"]*%s[^"]*`,
			strings.Join(months, "|"),
			regexp.QuoteMeta(targets.Year),
		)
	}
	pattern := regexp.MustCompile(fmt.Sprintf(
		`(?i)"nombre":\s*"(%s)"[^}]*"grupo_seleccionado":\s*\{[^}]*"capacidad":\s*(\d+)[^}]*"ocupacion":\s*(\d+)`,
		name,
	))
	return fallbackDecoder{pattern: pattern}
}

// catalogMarker is present in anything the catalog endpoint renders, even when a page lists
// no course of the target months.
var catalogMarker = regexp.MustCompile(`"(?:nombre|cursos)"\s*:`)

func (d fallbackDecoder) decode(body []byte) (decodedPage, error) {
	if !catalogMarker.Match(body) {
		return decodedPage{}, fmt.Errorf("%w: not a catalog page", ErrMalformedPayload)
	}

	var records []courses.RawCourse
	for _, match := range d.pattern.FindAllSubmatch(body, -1) {
		capacity, err := strconv.Atoi(string(match[2]))
		if err != nil {
			continue
		}
		occupancy, err := strconv.Atoi(string(match[3]))
		if err != nil {
			continue
		}
		records = append(records, courses.RawCourse{
			Name:      string(match[1]),
			HasGroup:  true,
			Capacity:  capacity,
			Occupancy: occupancy,
		})
	}
	return decodedPage{
		Status:   true,
		Records:  records,
		Degraded: true,
	}, nil
}

// decodeChain tries each decoder in order, a later decoder is only used when the previous
// one reported a malformed payload.
func decodeChain(body []byte, decoders ...pageDecoder) (decodedPage, error) {
	var err error
	for _, d := range decoders {
		var page decodedPage
		page, err = d.decode(body)
		if err == nil {
			return page, nil
		}
		if !isMalformed(err) {
			return decodedPage{}, err
		}
	}
	return decodedPage{}, err
}

func isMalformed(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}

var embeddedCourses = regexp.MustCompile(`(?s)cursos:\s*(\[.*?\]),\s*carrito:`)

// embeddedDecoder reads the course array that older versions of the listing page inline
// into a script as a javascript literal.
type embeddedDecoder struct{}

func (embeddedDecoder) decode(body []byte) (decodedPage, error) {
	match := embeddedCourses.FindSubmatch(body)
	if match == nil {
		return decodedPage{}, fmt.Errorf("%w: no embedded course array", ErrMalformedPayload)
	}

	// the literal is read as json5 then normalized to json so records decode the same way
	// as catalog pages
	var literal []any
	err := json5.Unmarshal(bytes.TrimSpace(match[1]), &literal)
	if err != nil {
		return decodedPage{}, fmt.Errorf("%w: embedded course array: %w", ErrMalformedPayload, err)
	}
	normalized, err := json.Marshal(literal)
	if err != nil {
		return decodedPage{}, fmt.Errorf("%w: embedded course array: %w", ErrMalformedPayload, err)
	}
	var records []wireCourse
	err = json.Unmarshal(normalized, &records)
	if err != nil {
		return decodedPage{}, fmt.Errorf("%w: embedded course array: %w", ErrMalformedPayload, err)
	}
	return decodedPage{
		Status:  true,
		Records: toRawCourses(records),
	}, nil
}
