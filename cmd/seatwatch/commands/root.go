package commands

import (
	"context"
	"fmt"
	"os"

	"seatwatch/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string
)

var rootCmd = &cobra.Command{
	Use:   "seatwatch",
	Short: "seatwatch watches the StudiaOnline catalog and emails when course seats open up.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The configuration file, a config.local.json5 next to it takes priority.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange with the site to this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
