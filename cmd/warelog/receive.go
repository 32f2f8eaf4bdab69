package main

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/receiving"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var receiveCmd = &cobra.Command{
	Use:     "receive [item] [quantity]",
	GroupID: "inventory",
	Short:   "Book a goods receipt",
	Long: `Book incoming stock. A single receipt creates one batch under a GR
number; --file books a whole delivery (multiple lines, one shared GRN)
from a TOML document.

--expires accepts an ISO date or a natural-language phrase:

  warelog receive INK-001 25.5 --expires "in 6 months" --location A-01
  warelog receive --interactive
  warelog receive --file delivery.toml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		file, _ := cmd.Flags().GetString("file")

		return withStore(func(ctx context.Context, store storage.Storage) error {
			actor, err := requireActor(ctx, store, types.OpReceive)
			if err != nil {
				return err
			}
			svc := receiving.New(store)

			if file != "" {
				return receiveFromFile(ctx, store, svc, file, actor)
			}

			var input receiving.Input
			if interactive {
				input, err = receiveForm(ctx, store)
			} else {
				input, err = receiveFromFlags(ctx, store, cmd, args)
			}
			if err != nil {
				return err
			}
			input.PerformedBy = actor

			receipt, err := svc.Receive(ctx, input)
			if err != nil {
				return friendlyError(err)
			}
			if jsonOutput {
				return outputJSON(receipt)
			}
			printReceipt(receipt)
			return nil
		})
	},
}

func receiveFromFlags(ctx context.Context, store storage.Storage, cmd *cobra.Command, args []string) (receiving.Input, error) {
	var input receiving.Input
	if len(args) < 2 {
		return input, fmt.Errorf("usage: warelog receive <item> <quantity> --expires <date> (or --interactive / --file)")
	}

	item, err := resolveItem(ctx, store, args[0])
	if err != nil {
		return input, err
	}
	input.ItemID = item.ID

	if input.Quantity, err = decimal.NewFromString(args[1]); err != nil {
		return input, fmt.Errorf("invalid quantity %q: %w", args[1], err)
	}

	expires, _ := cmd.Flags().GetString("expires")
	if expires == "" {
		return input, fmt.Errorf("--expires is required")
	}
	if input.ExpirationDate, err = parseDate(expires); err != nil {
		return input, err
	}

	if received, _ := cmd.Flags().GetString("received"); received != "" {
		if input.ReceiptDate, err = parseDate(received); err != nil {
			return input, err
		}
	}
	if locCode, _ := cmd.Flags().GetString("location"); locCode != "" {
		loc, err := store.GetLocationByCode(ctx, locCode)
		if err != nil {
			return input, err
		}
		input.LocationID = loc.ID
	}
	input.BatchNumber, _ = cmd.Flags().GetString("batch")
	input.Notes, _ = cmd.Flags().GetString("notes")
	return input, nil
}

// receiveForm collects one receipt through a terminal form.
func receiveForm(ctx context.Context, store storage.Storage) (receiving.Input, error) {
	var input receiving.Input

	items, err := store.ListItems(ctx, types.ItemFilter{ActiveOnly: true})
	if err != nil {
		return input, err
	}
	if len(items) == 0 {
		return input, fmt.Errorf("no active items; add one first (warelog item add)")
	}
	itemOptions := make([]huh.Option[string], 0, len(items))
	for _, item := range items {
		itemOptions = append(itemOptions, huh.NewOption(fmt.Sprintf("%s — %s", item.SKU, item.Name), item.ID))
	}

	locations, err := store.ListLocations(ctx, true)
	if err != nil {
		return input, err
	}
	locOptions := []huh.Option[string]{huh.NewOption("(none)", "")}
	for _, loc := range locations {
		locOptions = append(locOptions, huh.NewOption(loc.Code, loc.ID))
	}

	var qtyStr, expiresStr string
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Item").
				Options(itemOptions...).
				Value(&input.ItemID),
			huh.NewInput().
				Title("Quantity").
				Validate(func(s string) error {
					d, err := decimal.NewFromString(s)
					if err != nil || !d.IsPositive() {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}).
				Value(&qtyStr),
			huh.NewInput().
				Title("Expiration date").
				Description("ISO date or phrase, e.g. \"in 6 months\"").
				Validate(func(s string) error {
					_, err := parseDate(s)
					return err
				}).
				Value(&expiresStr),
			huh.NewSelect[string]().
				Title("Location").
				Options(locOptions...).
				Value(&input.LocationID),
			huh.NewInput().
				Title("Supplier batch number").
				Description("Leave empty to generate a GR number").
				Value(&input.BatchNumber),
			huh.NewInput().
				Title("Notes").
				Value(&input.Notes),
			huh.NewConfirm().
				Title("Book this receipt?").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return input, err
	}
	if !confirmed {
		return input, fmt.Errorf("receipt aborted")
	}
	input.Quantity, _ = decimal.NewFromString(qtyStr)
	input.ExpirationDate, _ = parseDate(expiresStr)
	return input, nil
}

// deliveryFile is the TOML shape for multi-line receipts.
type deliveryFile struct {
	Lines []deliveryLine `toml:"lines"`
}

type deliveryLine struct {
	Item     string `toml:"item"` // SKU or id
	Quantity string `toml:"quantity"`
	Expires  string `toml:"expires"`
	Received string `toml:"received"`
	Location string `toml:"location"` // code
	Batch    string `toml:"batch"`
	Notes    string `toml:"notes"`
}

func receiveFromFile(ctx context.Context, store storage.Storage, svc *receiving.Service, path, actor string) error {
	var doc deliveryFile
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("failed to decode delivery file %s: %w", path, err)
	}
	if len(doc.Lines) == 0 {
		return fmt.Errorf("delivery file %s has no [[lines]]", path)
	}

	inputs := make([]receiving.Input, 0, len(doc.Lines))
	for i, line := range doc.Lines {
		item, err := resolveItem(ctx, store, line.Item)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		qty, err := decimal.NewFromString(line.Quantity)
		if err != nil {
			return fmt.Errorf("line %d: invalid quantity %q: %w", i+1, line.Quantity, err)
		}
		expires, err := parseDate(line.Expires)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		input := receiving.Input{
			ItemID:         item.ID,
			Quantity:       qty,
			ExpirationDate: expires,
			BatchNumber:    line.Batch,
			Notes:          line.Notes,
		}
		if line.Received != "" {
			if input.ReceiptDate, err = parseDate(line.Received); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
		}
		if line.Location != "" {
			loc, err := store.GetLocationByCode(ctx, line.Location)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			input.LocationID = loc.ID
		}
		inputs = append(inputs, input)
	}

	multi, err := svc.ReceiveMultiple(ctx, inputs, actor)
	if err != nil {
		return friendlyError(err)
	}
	if jsonOutput {
		return outputJSON(multi)
	}
	info("%s", ui.SuccessStyle.Render(fmt.Sprintf("Booked %d lines under %s", len(multi.Receipts), multi.GRNNumber)))
	for _, receipt := range multi.Receipts {
		printReceipt(receipt)
	}
	return nil
}

func printReceipt(r *receiving.Receipt) {
	info("%s", ui.SuccessStyle.Render(fmt.Sprintf("Received batch %s: %s (expires %s)",
		r.Batch.BatchNumber, r.Batch.QuantityAvailable, r.Batch.ExpirationDate)))
	if warning := expirationNotice(r.Batch.ExpirationDate); warning != "" {
		info("%s", warning)
	}
}

func init() {
	receiveCmd.Flags().BoolP("interactive", "i", false, "Fill the receipt through a terminal form")
	receiveCmd.Flags().String("file", "", "Book a multi-line delivery from a TOML file (one shared GRN)")
	receiveCmd.Flags().String("expires", "", "Expiration date (ISO or natural language)")
	receiveCmd.Flags().String("received", "", "Receipt date (defaults to today)")
	receiveCmd.Flags().String("location", "", "Storage location code")
	receiveCmd.Flags().String("batch", "", "Supplier batch number (generated when empty)")
	receiveCmd.Flags().String("notes", "", "Free-form notes")

	rootCmd.AddCommand(receiveCmd)
}
