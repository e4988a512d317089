package commands

import (
	"os"

	"seatwatch/internal/monitor"

	"github.com/spf13/cobra"
)

var (
	onceRoster bool
	onceDryRun bool
)

func init() {
	onceCmd.Flags().BoolVar(&onceRoster, "roster", false, "Send the full list of courses with free seats instead of only the changes.")
	onceCmd.Flags().BoolVar(&onceDryRun, "dry-run", false, "Print the message instead of sending it and do not save the snapshot.")
	rootCmd.AddCommand(onceCmd)
}

var onceCmd = &cobra.Command{
	Use:   "once [--roster] [--dry-run]",
	Short: "Runs a single check.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		validate(cfg, onceDryRun)

		a := setupApp(cmd.Context(), cfg)
		mode := monitor.ModeChanges
		if onceRoster {
			mode = monitor.ModeRoster
		}

		ok := a.monitor(mode, onceDryRun).RunOnce(cmd.Context())
		a.close()
		if !ok {
			os.Exit(1)
		}
	},
}
