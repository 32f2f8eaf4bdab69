package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var userCmd = &cobra.Command{
	Use:     "user",
	GroupID: "system",
	Short:   "Manage users and roles",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			// The first user bootstraps the table without a permission
			// check; after that only admins may manage users.
			existing, err := store.ListUsers(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				if _, err := requireActor(ctx, store, types.OpManageUsers); err != nil {
					return err
				}
			}

			roleFlag, _ := cmd.Flags().GetString("role")
			role := types.Role(roleFlag)
			if !types.ValidRole(role) {
				return types.Validation(types.CodePermissionDenied,
					"unknown role %q (admin, manager, warehouse_worker, viewer)", roleFlag)
			}
			u := &types.User{Username: args[0], Role: role, IsActive: true}
			u.FullName, _ = cmd.Flags().GetString("full-name")
			if err := store.CreateUser(ctx, u); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(u)
			}
			info("Created user %s (%s)", u.Username, u.Role)
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			users, err := store.ListUsers(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(users)
			}
			t := ui.NewTable("USERNAME", "FULL NAME", "ROLE", "ACTIVE")
			for _, u := range users {
				t.Row(u.Username, u.FullName, string(u.Role), yesNo(u.IsActive))
			}
			fmt.Println(t.String())
			return nil
		})
	},
}

func init() {
	userAddCmd.Flags().String("role", string(types.RoleWarehouseWorker), "Role: admin, manager, warehouse_worker, viewer")
	userAddCmd.Flags().String("full-name", "", "Display name for documents")

	userCmd.AddCommand(userAddCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}
