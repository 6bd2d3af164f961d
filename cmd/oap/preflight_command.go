package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"oap/internal/config"
	"oap/internal/preflight"
	"oap/internal/store"
	"oap/internal/store/backend"
)

const statusLabelWidth = 20

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, the store, and notification delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var st store.Store
			if cfg.Store.Driver != config.DriverMemory {
				opened, err := backend.Open(cmd.Context(), cfg)
				if err != nil {
					fmt.Fprintln(out, renderCheckLine("Store ("+cfg.Store.Driver+")", false, false, err.Error(), colorize))
				} else {
					defer opened.Close()
					st = opened
				}
			}

			results := preflight.RunAll(cmd.Context(), cfg, st)
			for _, r := range results {
				fmt.Fprintln(out, renderCheckLine(r.Name, r.Passed, r.Optional, r.Detail, colorize))
			}
			lock := preflight.ProbeLock(cfg.LockPath())
			fmt.Fprintln(out, renderCheckLine("Daemon", lock.Err == nil, true, lock.Detail(), colorize))

			storeMissing := st == nil && cfg.Store.Driver != config.DriverMemory
			if preflight.Failed(results) || storeMissing {
				return errors.New("preflight failed")
			}
			return nil
		},
	}
}

func renderCheckLine(label string, passed, optional bool, detail string, colorize bool) string {
	status, color := "OK", ansiGreen
	switch {
	case !passed && optional:
		status, color = "WARN", ansiYellow
	case !passed:
		status, color = "ERROR", ansiRed
	}
	line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, label+":", status, detail)
	if colorize {
		return color + line + ansiReset
	}
	return line
}
