package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"oap/internal/api"
	"oap/internal/sequence"
	"oap/internal/store"
)

func newMasterCommand(ctx *commandContext) *cobra.Command {
	masterCmd := &cobra.Command{
		Use:   "master",
		Short: "Issue and inspect master sequence ids",
	}
	masterCmd.AddCommand(newMasterIssueCommand(ctx))
	masterCmd.AddCommand(newMasterLatestCommand(ctx))
	return masterCmd
}

func newMasterIssueCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Open a new batch and print its global id",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				batch, err := sequence.NewIssuer(st, ctx.cliLogger(cmd)).IssueNext(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Global id %d issued to %s\n", batch.GlobalID, batch.UserID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User opening the batch")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newMasterLatestCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recently issued batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				batch, ok, err := sequence.NewIssuer(st, ctx.cliLogger(cmd)).Latest(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !ok {
					fmt.Fprintln(out, "No batches issued")
					return nil
				}
				dto := api.FromBatch(batch)
				if jsonOutput {
					return writeJSON(cmd, dto)
				}
				fmt.Fprintf(out, "Global id %d (user %s, %s)\n", dto.GlobalID, dto.UserID, dto.CreatedAt)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
