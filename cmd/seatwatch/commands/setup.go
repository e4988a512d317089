package commands

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"seatwatch/internal/components/chrono"
	"seatwatch/internal/components/serviceutil"
	"seatwatch/internal/components/telemetry"
	"seatwatch/internal/config"
	"seatwatch/internal/courses"
	"seatwatch/internal/monitor"
	"seatwatch/internal/notify"
	"seatwatch/internal/scrapers/studia"
	"seatwatch/internal/snapshot"
)

// app holds everything a command needs, close releases it.
type app struct {
	config config.Config
	clock  chrono.StandardTime
	tel    telemetry.API
	store  snapshot.Store

	db   *sql.DB
	otlp telemetry.Telemetry
	ctx  context.Context
}

func (a app) close() {
	if a.db != nil {
		a.db.Close()
	}
	err := a.otlp.Shutdown(context.WithoutCancel(a.ctx))
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func setupApp(ctx context.Context, cfg config.Config) app {
	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		serviceutil.Fatal("failed to load timezone", err)
	}

	otlp, err := telemetry.Setup(ctx, "seatwatch", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	var tel telemetry.API = telemetry.SlogAPI{}
	if otlp.MeterProvider != nil {
		meter, err := telemetry.NewMeterAPI(tel)
		if err != nil {
			serviceutil.Fatal("failed to create meter", err)
		}
		tel = meter
	}

	out := app{
		config: cfg,
		clock:  clock,
		tel:    tel,
		otlp:   otlp,
		ctx:    ctx,
	}

	if cfg.State.Database.Enabled() {
		db, err := cfg.State.Database.OpenDB()
		if err != nil {
			serviceutil.Fatal("failed to open state database", err)
		}
		store, err := snapshot.NewSQLStore(ctx, db, snapshot.DefaultKey, clock, tel)
		if err != nil {
			db.Close()
			serviceutil.Fatal("failed to prepare state database", err)
		}
		out.db = db
		out.store = store
	} else {
		out.store = snapshot.NewFileStore(cfg.State.File, tel)
	}

	return out
}

func (a app) dumpOutput() telemetry.MessageOutput {
	if dumpHttp == "" {
		return nil
	}
	output, err := telemetry.NewDirectoryOutput(dumpHttp, a.tel)
	if err != nil {
		serviceutil.Fatal("failed to create http dump directory", err)
	}
	return output
}

func (a app) monitor(mode monitor.Mode, dryRun bool) monitor.Monitor {
	var notifier notify.Notifier
	if dryRun {
		notifier = notify.NewWriterNotifier(os.Stdout)
	} else {
		notifier = notify.NewEmailNotifier(a.config.EmailOptions(), a.tel)
	}

	source := studia.NewSource(a.config.StudiaOptions(a.dumpOutput()), a.config.Credentials())
	return monitor.NewMonitor(
		monitor.Options{
			Targets:    a.config.CourseTargets(),
			Rules:      courses.DefaultRules,
			Recipients: a.config.Recipients,
			Mode:       mode,
			Interval:   a.config.IntervalDuration(),
			DryRun:     dryRun,
		},
		source,
		a.store,
		notifier,
		a.clock,
		a.tel,
	)
}

// validate stops the process on an invalid configuration, dry runs only need to log in so
// they only warn.
func validate(cfg config.Config, dryRun bool) {
	err := cfg.Validate()
	if err == nil {
		return
	}
	if dryRun {
		slog.Warn("configuration is incomplete", "err", err.Error())
		return
	}
	serviceutil.Fatal("invalid configuration, run check-config for details", err)
}
