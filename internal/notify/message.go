package notify

import (
	"fmt"
	"strings"
	"time"

	"seatwatch/internal/changes"
	"seatwatch/internal/courses"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const siteLink = "https://studiaonline.org/"

// casers are stateful so every call builds its own
func upper(s string) string {
	return cases.Upper(language.Spanish).String(s)
}

func title(s string) string {
	return cases.Title(language.Spanish).String(s)
}

// Message is a composed notification.
type Message struct {
	Subject string
	Body    string
}

// joinSpanish joins items as "a, b y c".
func joinSpanish(items []string) string {
	if len(items) <= 1 {
		return strings.Join(items, "")
	}
	return strings.Join(items[:len(items)-1], ", ") + " y " + items[len(items)-1]
}

func monthNames(targets courses.Targets, format func(string) string) []string {
	out := make([]string, len(targets.Months))
	for i, m := range targets.Months {
		out[i] = format(string(m))
	}
	return out
}

// RosterMessage lists every course with free seats grouped by target month.
func RosterMessage(now time.Time, targets courses.Targets, list []courses.Course) Message {
	subject := fmt.Sprintf(
		"StudiaOnline - Cursos disponibles %s %s (%s)",
		strings.Join(monthNames(targets, title), "/"),
		targets.Year,
		now.Format("02/01/2006"),
	)

	var body strings.Builder
	if len(list) == 0 {
		body.WriteString("REVISIÓN STUDIAONLINE\n")
		body.WriteString(strings.Repeat("=", 30) + "\n\n")
		body.WriteString("No hay cursos con plazas disponibles\n")
		fmt.Fprintf(&body, "para %s %s\n\n", joinSpanish(monthNames(targets, strings.ToLower)), targets.Year)
		fmt.Fprintf(&body, "Búsqueda: %s\n", now.Format("02/01/2006 15:04"))
		body.WriteString("Te avisaré cuando haya plazas")
		return Message{Subject: subject, Body: body.String()}
	}

	body.WriteString("CURSOS CON PLAZAS DISPONIBLES\n")
	fmt.Fprintf(&body, "%s %s\n", joinSpanish(monthNames(targets, upper)), targets.Year)
	body.WriteString(strings.Repeat("=", 50) + "\n\n")

	var totals []string
	for _, month := range targets.Months {
		var inMonth []courses.Course
		for _, c := range list {
			if c.Month == month {
				inMonth = append(inMonth, c)
			}
		}
		totals = append(totals, fmt.Sprintf("%d en %s", len(inMonth), month))
		if len(inMonth) == 0 {
			continue
		}

		fmt.Fprintf(&body, "%s %s\n", upper(string(month)), targets.Year)
		body.WriteString(strings.Repeat("-", 20) + "\n")
		for i, c := range inMonth {
			fmt.Fprintf(&body, "%d. %s (%s)\n", i+1, c.Title, seats(c.AvailableSeats()))
		}
		body.WriteString("\n")
	}

	fmt.Fprintf(&body, "Total: %d cursos con plazas libres\n", len(list))
	fmt.Fprintf(&body, "(%s)\n\n", joinSpanish(totals))
	fmt.Fprintf(&body, "Búsqueda: %s\n", now.Format("02/01/2006 15:04"))
	body.WriteString(siteLink)

	return Message{Subject: subject, Body: body.String()}
}

func seats(n int) string {
	if n == 1 {
		return "1 plaza"
	}
	return fmt.Sprintf("%d plazas", n)
}

// ChangesMessage describes new courses first, then courses whose free seats went up.
func ChangesMessage(now time.Time, targets courses.Targets, list []changes.Change) Message {
	subject := fmt.Sprintf(
		"StudiaOnline - Nuevas plazas disponibles %s %s (%s)",
		strings.Join(monthNames(targets, title), "/"),
		targets.Year,
		now.Format("02/01 15:04"),
	)

	var body strings.Builder
	body.WriteString("ALERTA DE PLAZAS\n")
	body.WriteString(strings.Repeat("=", 30) + "\n\n")

	added, increased := changes.Split(list)
	if len(added) > 0 {
		body.WriteString("CURSOS NUEVOS CON PLAZAS:\n")
		body.WriteString(strings.Repeat("-", 30) + "\n")
		for _, c := range added {
			fmt.Fprintf(&body, "%s: %s\n", upper(string(c.Course.Month)), c.Course.Title)
			fmt.Fprintf(&body, "   %s disponibles\n\n", seats(c.Course.AvailableSeats()))
		}
	}
	if len(increased) > 0 {
		body.WriteString("CURSOS CON MÁS PLAZAS:\n")
		body.WriteString(strings.Repeat("-", 30) + "\n")
		for _, c := range increased {
			fmt.Fprintf(&body, "%s: %s\n", upper(string(c.Course.Month)), c.Course.Title)
			fmt.Fprintf(
				&body,
				"   %d → %s (+%d)\n\n",
				c.PreviousAvailableSeats,
				seats(c.Course.AvailableSeats()),
				c.Delta(),
			)
		}
	}

	fmt.Fprintf(&body, "Verificado: %s\n", now.Format("02/01/2006 15:04"))
	body.WriteString(siteLink)

	return Message{Subject: subject, Body: body.String()}
}
