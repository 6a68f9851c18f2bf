package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gielenor/launcher/src/internal/logging"
	"github.com/gielenor/launcher/src/internal/orchestrator"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compares cached and remote versions without downloading",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.Log.File = logging.ConsoleOnly
		cfg.Log.Level = "warn"
		if err := logging.Init(cfg.Log, cfg.DataDir); err != nil {
			return err
		}

		statuses := orchestrator.NewComponents(cfg).Check(cmd.Context())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tLOCAL\tREMOTE\tSTATUS")
		for _, s := range statuses {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Domain, orDash(s.Local), orDash(s.Remote), describeStatus(s))
		}
		return w.Flush()
	},
}

func describeStatus(s orchestrator.DomainStatus) string {
	switch {
	case s.Err != nil:
		return "error: " + s.Err.Error()
	case s.UpdateAvailable():
		return "update available"
	case s.Local == "":
		return "missing"
	default:
		return "up to date"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
