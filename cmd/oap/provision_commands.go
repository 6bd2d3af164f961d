package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"oap/internal/api"
	"oap/internal/identity"
	"oap/internal/intake"
	"oap/internal/notifications"
	"oap/internal/results"
	"oap/internal/store"
	"oap/internal/transition"
)

func newProvisionCommand(ctx *commandContext) *cobra.Command {
	provisionCmd := &cobra.Command{
		Use:     "provision",
		Aliases: []string{"p"},
		Short:   "Inspect and update provisioning records",
	}

	provisionCmd.AddCommand(newProvisionListCommand(ctx))
	provisionCmd.AddCommand(newProvisionShowCommand(ctx))
	provisionCmd.AddCommand(newProvisionSetCommand(ctx))
	provisionCmd.AddCommand(newProvisionImportCommand(ctx))
	provisionCmd.AddCommand(newProvisionActiveCommand(ctx))
	provisionCmd.AddCommand(newProvisionLatestCommand(ctx))

	return provisionCmd
}

func newProvisionListCommand(ctx *commandContext) *cobra.Command {
	var (
		page, perPage   int
		request, extern string
		search          string
		sortName, order string
		jsonOutput      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, filtered and paged",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				engine := results.NewEngine(st, ctx.cliLogger(cmd))
				var sorts []results.SortRequest
				if strings.TrimSpace(sortName) != "" {
					sorts = append(sorts, results.SortRequest{Name: sortName, Order: order})
				}

				var (
					result results.Page
					err    error
				)
				if strings.TrimSpace(search) != "" {
					result, err = engine.Search(cmd.Context(), results.SearchRequest{Term: search, Sorts: sorts, Page: page, PageSize: perPage})
				} else {
					var filters []results.Filter
					if request != "" {
						filters = append(filters, results.Filter{Name: "requestId", Text: request})
					}
					if extern != "" {
						filters = append(filters, results.Filter{Name: "externalId", Text: extern})
					}
					result, err = engine.Query(cmd.Context(), results.Request{Filters: filters, Sorts: sorts, Page: page, PageSize: perPage})
				}
				if err != nil {
					return err
				}

				if jsonOutput {
					return writeJSON(cmd, api.PageEnvelope(result))
				}
				out := cmd.OutOrStdout()
				if len(result.Items) == 0 {
					fmt.Fprintln(out, "No records found")
					return nil
				}
				fmt.Fprintln(out, recordTable(api.FromRecords(result.Items), shouldColorize(out)))
				fmt.Fprintf(out, "Page %d of %d (%d records)\n", result.Page, result.TotalPages, result.Total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Records per page")
	cmd.Flags().StringVar(&request, "request", "", "Filter by request id substring")
	cmd.Flags().StringVar(&extern, "external", "", "Filter by external id substring")
	cmd.Flags().StringVar(&search, "search", "", "Search term matched against request id, external id, created at, controller, and sut")
	cmd.Flags().StringVar(&sortName, "sort", "", "Sort field: requestId or externalId; anything else sorts by requestId desc")
	cmd.Flags().StringVar(&order, "order", "desc", "Sort order (asc or desc)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProvisionShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				rec, err := results.NewEngine(st, ctx.cliLogger(cmd)).Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				dto := api.FromRecord(rec)
				if jsonOutput {
					return writeJSON(cmd, dto)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				rows := [][]string{
					{"Request", dto.RequestID},
					{"External", dto.ExternalID},
					{"User", dto.UserID},
					{"Email", dto.Email},
					{"Controller", dto.Controller},
					{"SUT", dto.SUT},
					{"Location", dto.Location},
					{"Created", dto.CreatedAt},
				}
				headers := stageHeaders()
				stageRows := [][]string{
					{headers[0], statusCell(dto.IFWIStatus, colorize), dto.IFWIResultLink},
					{headers[1], statusCell(dto.BIOSStatus, colorize), dto.BIOSResultLink},
					{headers[2], statusCell(dto.OSStatus, colorize), dto.OSResultLink},
					{headers[3], statusCell(dto.E2EStatus, colorize), dto.E2EResultLink},
				}
				fmt.Fprintf(out, "Provision %d\n", dto.ProvisionID)
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
				fmt.Fprintln(out, renderTable([]string{"Stage", "Status", "Result"}, stageRows))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProvisionSetCommand(ctx *commandContext) *cobra.Command {
	var link string

	cmd := &cobra.Command{
		Use:   "set <id> <stage> <status>",
		Short: "Apply a stage transition",
		Long: "Moves one stage of a record to a new status. Terminal stages are left untouched:\n" +
			"PASS and FAIL lock ifwi, bios, and os; only PASS locks e2e.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger(cmd)
			notifier, err := notifications.New(cfg)
			if err != nil {
				return fmt.Errorf("notifications: %w", err)
			}
			dispatcher := notifications.NewDispatcher(notifier, cfg.NotificationTimeout(), logger)

			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				manager := transition.NewManager(st, dispatcher, logger)
				outcome, err := manager.ApplyTransition(cmd.Context(), id, args[1], args[2], link)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !outcome.Applied {
					fmt.Fprintf(out, "%s: provision %d %s unchanged\n", api.MessageTransitionNoop, id, outcome.Stage)
					return nil
				}
				fmt.Fprintf(out, "Provision %d %s -> %s\n", id, outcome.Stage, outcome.Status)
				dispatcher.Wait(cmd.Context())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&link, "link", "", "Result link to store with the status")
	return cmd
}

func newProvisionImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create records from a YAML or JSON batch file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := intake.ReadFile(args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return errors.New("batch file contains no records")
			}
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				svc := intake.NewService(st, identity.NewResolver(st), ctx.cliLogger(cmd))
				created, err := svc.Create(cmd.Context(), entries)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d records\n", len(created))
				for _, rec := range created {
					fmt.Fprintf(out, "  %d  %s  %s/%s\n", rec.ID, rec.RequestID, rec.Controller, rec.SUT)
				}
				return nil
			})
		},
	}
}

func newProvisionActiveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "active <controller>",
		Short: "Show records with a stage in progress or blocked on a controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				items, err := results.NewEngine(st, ctx.cliLogger(cmd)).ActiveFor(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				active := api.FromActive(items)
				if jsonOutput {
					return writeJSON(cmd, active)
				}
				out := cmd.OutOrStdout()
				if len(active) == 0 {
					fmt.Fprintf(out, "No active work on %s\n", args[0])
					return nil
				}
				fmt.Fprintln(out, activeTable(active, shouldColorize(out)))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProvisionLatestCommand(ctx *commandContext) *cobra.Command {
	var sut, controller string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the newest request for a SUT on a controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				rec, ok, err := results.NewEngine(st, ctx.cliLogger(cmd)).LatestFor(cmd.Context(), sut, controller)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					if jsonOutput {
						return writeJSON(cmd, []api.Record{})
					}
					fmt.Fprintln(out, "No matching record")
					return nil
				}
				dto := api.FromRecord(rec)
				if jsonOutput {
					return writeJSON(cmd, []api.Record{dto})
				}
				fmt.Fprintln(out, recordTable([]api.Record{dto}, shouldColorize(out)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sut, "sut", "", "SUT name substring")
	cmd.Flags().StringVar(&controller, "controller", "", "Controller name substring")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
