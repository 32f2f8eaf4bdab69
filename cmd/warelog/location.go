package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var locationCmd = &cobra.Command{
	Use:     "location",
	GroupID: "inventory",
	Short:   "Manage storage locations",
}

var locationAddCmd = &cobra.Command{
	Use:   "add <code>",
	Short: "Add a storage location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpManageCatalog); err != nil {
				return err
			}
			loc := &types.Location{Code: args[0], IsActive: true}
			loc.Name, _ = cmd.Flags().GetString("name")
			loc.Zone, _ = cmd.Flags().GetString("zone")
			if err := store.CreateLocation(ctx, loc); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(loc)
			}
			info("Created location %s", loc.Code)
			return nil
		})
	},
}

var locationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List storage locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			all, _ := cmd.Flags().GetBool("all")
			locations, err := store.ListLocations(ctx, !all)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(locations)
			}
			t := ui.NewTable("CODE", "NAME", "ZONE", "ACTIVE")
			for _, loc := range locations {
				t.Row(loc.Code, loc.Name, loc.Zone, yesNo(loc.IsActive))
			}
			fmt.Println(t.String())
			return nil
		})
	},
}

func init() {
	locationAddCmd.Flags().String("name", "", "Location description")
	locationAddCmd.Flags().String("zone", "", "Warehouse zone")
	locationListCmd.Flags().Bool("all", false, "Include deactivated locations")

	locationCmd.AddCommand(locationAddCmd, locationListCmd)
	rootCmd.AddCommand(locationCmd)
}
