package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/inkops/warelog/internal/documents"
	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/ledger"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var dispatchCmd = &cobra.Command{
	Use:     "dispatch",
	GroupID: "documents",
	Short:   "Dispatch stock, with or without a delivery note",
	Long: `Create a DRAFT delivery note. Stock is committed immediately: every
line is FEFO-validated and dispatched in the same transaction.

Lines come either explicitly or FEFO-filled:

  warelog dispatch --customer PrintCo --line B-0042=10 --line B-0043=5.5
  warelog dispatch --customer PrintCo --auto INK-001=25

With --direct no delivery note is created: the movements are stamped
with a shared DSP-YYMMDD-NNN reference (or the one given via --ref).
Use it for internal consumption, samples and production transfers:

  warelog dispatch --direct --line B-0042=3 --notes "press trial"

FEFO violations are reported as warnings and do not block; insufficient
stock or inactive batches abort the whole dispatch.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		customerRef, _ := cmd.Flags().GetString("customer")
		linePairs, _ := cmd.Flags().GetStringArray("line")
		autoPairs, _ := cmd.Flags().GetStringArray("auto")
		notes, _ := cmd.Flags().GetString("notes")
		direct, _ := cmd.Flags().GetBool("direct")
		reference, _ := cmd.Flags().GetString("ref")

		if direct && customerRef != "" {
			return fmt.Errorf("--customer does not apply to --direct")
		}
		if !direct && customerRef == "" {
			return fmt.Errorf("--customer is required (or use --direct)")
		}
		if !direct && reference != "" {
			return fmt.Errorf("--ref only applies to --direct")
		}
		if len(linePairs) == 0 && len(autoPairs) == 0 {
			return fmt.Errorf("give at least one --line batch=qty or --auto item=qty")
		}

		return withStore(func(ctx context.Context, store storage.Storage) error {
			actor, err := requireActor(ctx, store, types.OpDispatch)
			if err != nil {
				return err
			}

			var lines []ledger.DispatchLine
			for _, pair := range linePairs {
				batchRef, qty, err := splitPair(pair)
				if err != nil {
					return err
				}
				batch, err := resolveBatch(ctx, store, batchRef)
				if err != nil {
					return err
				}
				lines = append(lines, ledger.DispatchLine{BatchID: batch.ID, Quantity: qty})
			}
			for _, pair := range autoPairs {
				itemRef, qty, err := splitPair(pair)
				if err != nil {
					return err
				}
				item, err := resolveItem(ctx, store, itemRef)
				if err != nil {
					return err
				}
				suggestion, err := fefo.New(store).Suggest(ctx, item.ID, qty)
				if err != nil {
					return err
				}
				if !suggestion.FullyAllocated {
					return fmt.Errorf("cannot auto-fill %s: short by %s", item.SKU, suggestion.Shortfall)
				}
				for _, line := range suggestion.Lines {
					lines = append(lines, ledger.DispatchLine{
						BatchID:  line.BatchID,
						Quantity: line.SuggestedQuantity,
					})
				}
			}

			if direct {
				result, err := ledger.New(store).Dispatch(ctx, ledger.DispatchInput{
					Lines:           lines,
					ReferenceNumber: reference,
					Notes:           notes,
					PerformedBy:     actor,
				})
				if err != nil {
					return friendlyError(err)
				}
				if jsonOutput {
					return outputJSON(result)
				}
				info("%s", ui.SuccessStyle.Render(fmt.Sprintf("Dispatched %s: %d line(s), %s total",
					result.ReferenceNumber, len(result.Movements), result.TotalQuantity)))
				for _, warning := range result.Warnings {
					info("%s", ui.WarnStyle.Render("warning: "+warning.Message))
				}
				return nil
			}

			customer, err := resolveCustomer(ctx, store, customerRef)
			if err != nil {
				return err
			}
			input := documents.CreateInput{
				CustomerID: customer.ID,
				Notes:      notes,
				CreatedBy:  actor,
			}
			if cmd.Flags().Changed("consignment") {
				consignment, _ := cmd.Flags().GetBool("consignment")
				input.IsConsignment = &consignment
			}
			for _, line := range lines {
				input.Lines = append(input.Lines, documents.Line{BatchID: line.BatchID, Quantity: line.Quantity})
			}

			result, err := documents.New(store).Create(ctx, input)
			if err != nil {
				return friendlyError(err)
			}
			if jsonOutput {
				return outputJSON(result)
			}

			info("%s", ui.SuccessStyle.Render(fmt.Sprintf("Created %s (DRAFT) for %s, %d line(s)",
				result.Note.DNNumber, customer.Name, len(result.Items))))
			for _, warning := range result.Warnings {
				info("%s", ui.WarnStyle.Render("warning: "+warning.Message))
			}
			return nil
		})
	},
}

func resolveCustomer(ctx context.Context, store storage.Storage, ref string) (*types.Customer, error) {
	if customer, err := store.GetCustomerByName(ctx, ref); err == nil {
		return customer, nil
	} else if !types.IsNotFound(err) {
		return nil, err
	}
	return store.GetCustomer(ctx, ref)
}

// splitPair parses "ref=quantity".
func splitPair(pair string) (string, decimal.Decimal, error) {
	ref, raw, found := strings.Cut(pair, "=")
	if !found || ref == "" {
		return "", decimal.Zero, fmt.Errorf("malformed pair %q, want ref=quantity", pair)
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("invalid quantity in %q: %w", pair, err)
	}
	return ref, qty, nil
}

func init() {
	dispatchCmd.Flags().String("customer", "", "Customer name or id")
	dispatchCmd.Flags().StringArray("line", nil, "Explicit line: batch=quantity (repeatable)")
	dispatchCmd.Flags().StringArray("auto", nil, "FEFO-filled line: item=quantity (repeatable)")
	dispatchCmd.Flags().Bool("consignment", false, "Mark as consignment (default: customer's VMI flag)")
	dispatchCmd.Flags().String("notes", "", "Free-form notes")
	dispatchCmd.Flags().Bool("direct", false, "Dispatch without a delivery note, under a DSP reference")
	dispatchCmd.Flags().String("ref", "", "Reference number for --direct (default: allocated DSP-YYMMDD-NNN)")

	rootCmd.AddCommand(dispatchCmd)
}
