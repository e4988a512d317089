package commands

import (
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Prints the stored snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		a := setupApp(cmd.Context(), loadConfig())
		defer a.close()

		snap := a.store.Load(cmd.Context())
		keys := make([]string, 0, len(snap))
		for key := range snap {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Month", "Course", "Free seats", "Observed"})
		for _, key := range keys {
			record := snap[key]
			observed := "-"
			if !record.ObservedAt.IsZero() {
				observed = record.ObservedAt.In(a.clock.Location()).Format("02/01/2006 15:04")
			}
			t.AppendRow(table.Row{record.Month, record.Title, record.AvailableSeats, observed})
		}
		t.AppendFooter(table.Row{"", "Total", len(snap), ""})

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
