package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var customerCmd = &cobra.Command{
	Use:     "customer",
	GroupID: "documents",
	Short:   "Manage delivery-note customers",
}

var customerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			if _, err := requireActor(ctx, store, types.OpManageCatalog); err != nil {
				return err
			}
			customer := &types.Customer{Name: args[0], IsActive: true}
			customer.Address, _ = cmd.Flags().GetString("address")
			customer.ContactPerson, _ = cmd.Flags().GetString("contact")
			customer.Phone, _ = cmd.Flags().GetString("phone")
			customer.Email, _ = cmd.Flags().GetString("email")
			customer.IsVMICustomer, _ = cmd.Flags().GetBool("vmi")
			if err := store.CreateCustomer(ctx, customer); err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(customer)
			}
			info("Created customer %s", customer.Name)
			return nil
		})
	},
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			all, _ := cmd.Flags().GetBool("all")
			customers, err := store.ListCustomers(ctx, !all)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(customers)
			}
			t := ui.NewTable("NAME", "CONTACT", "PHONE", "VMI", "ACTIVE")
			for _, c := range customers {
				t.Row(c.Name, c.ContactPerson, c.Phone, yesNo(c.IsVMICustomer), yesNo(c.IsActive))
			}
			fmt.Println(t.String())
			return nil
		})
	},
}

func init() {
	customerAddCmd.Flags().String("address", "", "Delivery address")
	customerAddCmd.Flags().String("contact", "", "Contact person")
	customerAddCmd.Flags().String("phone", "", "Phone number")
	customerAddCmd.Flags().String("email", "", "Email address")
	customerAddCmd.Flags().Bool("vmi", false, "Vendor-managed-inventory (consignment) customer")
	customerListCmd.Flags().Bool("all", false, "Include deactivated customers")

	customerCmd.AddCommand(customerAddCmd, customerListCmd)
	rootCmd.AddCommand(customerCmd)
}
