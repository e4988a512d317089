// Package monitor runs the check: fetch the catalog, find courses with new free seats, notify
// and remember what was seen.
package monitor

import (
	"context"
	"fmt"
	"time"

	"seatwatch/internal/changes"
	"seatwatch/internal/components/assert"
	"seatwatch/internal/components/chrono"
	"seatwatch/internal/components/telemetry"
	"seatwatch/internal/courses"
	"seatwatch/internal/notify"
	"seatwatch/internal/scrapers/studia"
	"seatwatch/internal/snapshot"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_monitor_fetch      = "monitor.fetch"
	report_monitor_incomplete = "monitor.incomplete"
	report_monitor_notify     = "monitor.notify"
	report_monitor_save       = "monitor.save"
	report_monitor_schedule   = "monitor.schedule"
	report_count_available    = "monitor.available"
	report_count_changes      = "monitor.changes"
)

var tracer = otel.Tracer("seatwatch/monitor")

// Source reads the raw catalog, a login failure is the only error it returns.
type Source interface {
	Fetch(ctx context.Context, tel telemetry.API) (studia.FetchResult, error)
}

type Mode int

const (
	// ModeChanges only notifies about new courses and courses with more free seats.
	ModeChanges Mode = iota
	// ModeRoster notifies with the full list of courses with free seats on every run.
	ModeRoster
)

func (m Mode) String() string {
	if m == ModeRoster {
		return "roster"
	}
	return "changes"
}

type Options struct {
	Targets    courses.Targets
	Rules      courses.Rules
	Recipients []string
	Mode       Mode
	Interval   time.Duration
	// DryRun skips saving the snapshot.
	DryRun bool
}

// Monitor is created once and reused by every run, each run gets its own session.
type Monitor struct {
	opts     Options
	source   Source
	store    snapshot.Store
	notifier notify.Notifier
	time     chrono.TimeAPI
	tel      telemetry.API
}

func NewMonitor(
	opts Options,
	source Source,
	store snapshot.Store,
	notifier notify.Notifier,
	clock chrono.TimeAPI,
	tel telemetry.API,
) Monitor {
	assert.NotNil(source)
	assert.NotNil(store)
	assert.NotNil(notifier)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return Monitor{
		opts:     opts,
		source:   source,
		store:    store,
		notifier: notifier,
		time:     clock,
		tel:      telemetry.NewScopedAPI("monitor", tel),
	}
}

func newRunId() string {
	id, err := random.String(8)
	if err != nil {
		return fmt.Sprint(time.Now().UnixNano())
	}
	return id
}

// RunOnce performs a single check and reports whether it went through. Notification failures
// are reported but do not fail the run.
func (m Monitor) RunOnce(ctx context.Context) bool {
	runId := newRunId()
	tel := telemetry.WithAttrs(m.tel, "run", runId)

	ctx, span := tracer.Start(ctx, "monitor.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runId),
		attribute.String("run.mode", m.opts.Mode.String()),
	)

	previous := m.store.Load(ctx)
	tel.ReportDebug("loaded previous snapshot", len(previous))

	result, err := m.source.Fetch(ctx, tel)
	if err != nil {
		tel.ReportBroken(report_monitor_fetch, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return false
	}
	span.SetAttributes(
		attribute.Int("catalog.pages", result.Pages),
		attribute.Int("catalog.records", len(result.Records)),
		attribute.Bool("catalog.complete", result.Complete),
	)
	if !result.Complete {
		tel.ReportWarning(
			report_monitor_incomplete,
			fmt.Errorf("catalog walk stopped early after %d pages, unseen courses keep their previous state", result.Pages),
		)
	}

	current := courses.NewNormalizer(m.opts.Targets, m.opts.Rules, tel).Normalize(result.Records)
	diff := changes.Diff(current, previous)
	now := m.time.Now()

	tel.ReportCount(report_count_available, int64(len(current)))
	tel.ReportCount(report_count_changes, int64(len(diff)))
	for _, c := range diff {
		tel.ReportDebug("change", c.Kind, c.Course)
	}

	switch m.opts.Mode {
	case ModeRoster:
		m.notify(ctx, tel, notify.RosterMessage(now, m.opts.Targets, current))
	default:
		if len(diff) > 0 {
			m.notify(ctx, tel, notify.ChangesMessage(now, m.opts.Targets, diff))
		} else {
			tel.ReportDebug("no changes, nothing to notify")
		}
	}

	next := snapshot.FromCourses(current, now)
	if !result.Complete {
		next = snapshot.CarryForward(next, previous)
	}
	if m.opts.DryRun {
		tel.ReportDebug("dry run, snapshot not saved", len(next))
		return true
	}

	err = m.store.Save(ctx, next)
	if err != nil {
		tel.ReportBroken(report_monitor_save, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return false
	}
	return true
}

func (m Monitor) notify(ctx context.Context, tel telemetry.API, msg notify.Message) {
	err := m.notifier.Send(ctx, m.opts.Recipients, msg.Subject, msg.Body)
	if err != nil {
		tel.ReportBroken(report_monitor_notify, err)
		return
	}
	tel.ReportDebug("notified", msg.Subject, len(m.opts.Recipients))
}

// RunForever runs a check right away and then once every interval until ctx is done. A tick
// that arrives while a check is still running is skipped.
func (m Monitor) RunForever(ctx context.Context, cron chrono.CronAPI) error {
	assert.NotNil(cron)
	if m.opts.Interval <= 0 {
		err := fmt.Errorf("interval must be positive, got %s", m.opts.Interval)
		m.tel.ReportBroken(report_monitor_schedule, err)
		return err
	}

	m.RunOnce(ctx)

	spec := chrono.Every(m.opts.Interval)
	err := cron.Cron(spec, func() {
		m.RunOnce(ctx)
	})
	if err != nil {
		m.tel.ReportBroken(report_monitor_schedule, err, spec)
		return err
	}
	m.tel.ReportDebug("scheduled", spec)

	<-ctx.Done()
	cron.Stop()
	return nil
}
