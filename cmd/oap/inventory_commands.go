package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"oap/internal/api"
	"oap/internal/provision"
	"oap/internal/store"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage requesters notified about stage changes",
	}

	var user provision.User
	addCmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Add or replace a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user.UserID = strings.TrimSpace(args[0])
			if user.UserID == "" {
				return errors.New("user id is required")
			}
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				if err := st.PutUser(cmd.Context(), user); err != nil {
					return fmt.Errorf("add user: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s saved\n", user.UserID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&user.WWID, "wwid", "", "Worldwide id linking the user to records")
	addCmd.Flags().StringVar(&user.Email, "email", "", "Notification address")
	addCmd.Flags().StringVar(&user.UserName, "username", "", "Login name")
	addCmd.Flags().StringVar(&user.FirstName, "first-name", "", "Given name")
	addCmd.Flags().StringVar(&user.LastName, "last-name", "", "Family name")
	addCmd.Flags().StringVar(&user.UserGroup, "group", "", "User group")
	userCmd.AddCommand(addCmd)

	return userCmd
}

func newControllerCommand(ctx *commandContext) *cobra.Command {
	controllerCmd := &cobra.Command{
		Use:   "controller",
		Short: "Manage controller hosts",
	}

	var jsonOutput bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List controllers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				items, err := st.ListControllers(cmd.Context())
				if err != nil {
					return fmt.Errorf("list controllers: %w", err)
				}
				controllers := api.FromControllers(items)
				if jsonOutput {
					return writeJSON(cmd, controllers)
				}
				rows := make([][]string, 0, len(controllers))
				for _, c := range controllers {
					rows = append(rows, []string{formatID(c.ID), c.Name, c.Location, c.CreatedAt})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Location", "Created"}, rows, 0))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	var location string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("controller name is required")
			}
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				created, err := st.CreateController(cmd.Context(), provision.Controller{Name: name, Location: strings.TrimSpace(location)})
				if err != nil {
					return fmt.Errorf("add controller: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Controller %s added (id %d)\n", created.Name, created.ID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&location, "location", "", "Lab or rack location")

	controllerCmd.AddCommand(listCmd, addCmd)
	return controllerCmd
}

func newPlatformCommand(ctx *commandContext) *cobra.Command {
	platformCmd := &cobra.Command{
		Use:   "platform",
		Short: "Manage hardware platform families",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				items, err := st.ListPlatforms(cmd.Context())
				if err != nil {
					return fmt.Errorf("list platforms: %w", err)
				}
				out := cmd.OutOrStdout()
				for _, p := range api.FromPlatforms(items) {
					fmt.Fprintf(out, "%d\t%s\n", p.ID, p.Name)
				}
				return nil
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("platform name is required")
			}
			return ctx.withStore(cmd.Context(), func(st store.Store) error {
				created, err := st.CreatePlatform(cmd.Context(), provision.Platform{Name: name})
				if err != nil {
					return fmt.Errorf("add platform: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Platform %s added (id %d)\n", created.Name, created.ID)
				return nil
			})
		},
	}

	platformCmd.AddCommand(listCmd, addCmd)
	return platformCmd
}
