package commands

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Reports whether every setting a deployment needs is present, secrets are masked.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"", "Setting", "Value"})
		for _, s := range cfg.Readiness() {
			status := "ok"
			if !s.Set {
				status = "missing"
			}
			t.AppendRow(table.Row{status, s.Name, s.Display()})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		site, err := url.Parse(cfg.Site.BaseUrl)
		if err == nil && site.Hostname() != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Second*10)
			addrs, err := net.DefaultResolver.LookupHost(ctx, site.Hostname())
			cancel()
			if err != nil {
				fmt.Printf("\n%s does not resolve: %s\n", site.Hostname(), err)
			} else {
				fmt.Printf("\n%s resolves to %v\n", site.Hostname(), addrs)
			}
		}

		err = cfg.Validate()
		if err != nil {
			fmt.Printf("\nnot ready:\n%s\n", err)
			os.Exit(1)
		}
		fmt.Println("\nready")
	},
}
