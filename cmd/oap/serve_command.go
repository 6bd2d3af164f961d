package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"oap/internal/daemon"
	"oap/internal/logging"
	"oap/internal/notifications"
	"oap/internal/preflight"
	"oap/internal/store/backend"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OAP API daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx := cmd.Context()
			st, err := backend.Open(runCtx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}

			if !skipPreflight {
				results := preflight.RunAll(runCtx, cfg, st)
				for _, r := range results {
					if r.Passed {
						continue
					}
					logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
						logging.String("check", r.Name),
						logging.String("detail", r.Detail),
						logging.Bool("optional", r.Optional),
					)
				}
				if preflight.Failed(results) {
					_ = st.Close()
					return errors.New("preflight failed; run `oap preflight` for details")
				}
			}

			notifier, err := notifications.New(cfg)
			if err != nil {
				_ = st.Close()
				return fmt.Errorf("notifications: %w", err)
			}

			d, err := daemon.New(cfg, st, notifier, logger)
			if err != nil {
				_ = st.Close()
				return err
			}
			defer d.Close()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OAP listening on %s\n", d.Status().Bind)

			<-runCtx.Done()
			logger.Info("oap shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without running preflight checks")
	return cmd
}
