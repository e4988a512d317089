package commands

import (
	"log/slog"

	"seatwatch/internal/components/chrono"
	"seatwatch/internal/components/serviceutil"
	"seatwatch/internal/components/telemetry"
	"seatwatch/internal/monitor"

	"github.com/spf13/cobra"
)

var monitorDryRun bool

func init() {
	monitorCmd.Flags().BoolVar(&monitorDryRun, "dry-run", false, "Print messages instead of sending them and do not save the snapshot.")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor [--dry-run]",
	Short: "Checks right away and then once every configured interval until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		validate(cfg, monitorDryRun)

		ctx := cmd.Context()
		a := setupApp(ctx, cfg)
		defer a.close()

		telemetry.InstrumentPerfStats(ctx, a.tel)
		cron := chrono.NewStandardCron(a.tel, a.clock.Location())

		slog.Info("monitoring", "interval", cfg.IntervalDuration().String(), "recipients", len(cfg.Recipients))
		err := a.monitor(monitor.ModeChanges, monitorDryRun).RunForever(ctx, cron)
		if err != nil {
			a.close()
			serviceutil.Fatal("failed to schedule checks", err)
		}
		slog.Info("stopped")
	},
}
