package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inkops/warelog/internal/documents"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
	"github.com/inkops/warelog/internal/ui"
)

var dnCmd = &cobra.Command{
	Use:     "dn",
	GroupID: "documents",
	Short:   "Manage delivery notes",
	Long: `Delivery notes move DRAFT → ISSUED → DELIVERED → INVOICED, one step
at a time. Cancel is legal until INVOICED and returns the dispatched
stock through compensating receipt movements.`,
}

var dnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List delivery notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			status, _ := cmd.Flags().GetString("status")
			customerRef, _ := cmd.Flags().GetString("customer")
			limit, _ := cmd.Flags().GetInt("limit")

			filter := types.DeliveryNoteFilter{
				Status: types.DNStatus(strings.ToUpper(status)),
				Limit:  listLimit(limit),
			}
			if customerRef != "" {
				customer, err := resolveCustomer(ctx, store, customerRef)
				if err != nil {
					return err
				}
				filter.CustomerID = customer.ID
			}

			notes, err := documents.New(store).List(ctx, filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(notes)
			}

			t := ui.NewTable("NUMBER", "STATUS", "ISSUED", "CONSIGNMENT", "CREATED")
			for _, note := range notes {
				issued := "-"
				if note.IssueDate != nil {
					issued = note.IssueDate.String()
				}
				t.Row(note.DNNumber,
					ui.StatusStyle(string(note.Status)).Render(string(note.Status)),
					issued, yesNo(note.IsConsignment),
					note.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Println(t.String())
			return nil
		})
	},
}

var dnShowCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show a delivery note with its lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			svc := documents.New(store)
			id, err := resolveDN(ctx, store, args[0])
			if err != nil {
				return err
			}
			detail, err := svc.Get(ctx, id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(detail)
			}

			note := detail.Note
			fmt.Println(ui.TitleStyle.Render(fmt.Sprintf("%s — %s", note.DNNumber, detail.Customer.Name)))
			fmt.Printf("Status: %s   Consignment: %s\n",
				ui.StatusStyle(string(note.Status)).Render(string(note.Status)),
				yesNo(note.IsConsignment))
			if note.IssueDate != nil {
				fmt.Printf("Issued: %s\n", note.IssueDate)
			}
			if note.DeliveryDate != nil {
				fmt.Printf("Delivered: %s\n", note.DeliveryDate)
			}
			if note.Notes != "" {
				fmt.Println(ui.MutedStyle.Render(note.Notes))
			}

			t := ui.NewTable("SKU", "NAME", "BATCH", "EXPIRES", "QTY", "UNIT")
			for _, line := range detail.Items {
				t.Row(line.ItemSKU, line.ItemName, line.BatchNumber,
					line.ExpirationDate.String(), line.Quantity.String(), line.Unit)
			}
			fmt.Println(t.String())
			return nil
		})
	},
}

func dnTransitionCmd(use, short string, op types.Operation,
	apply func(*documents.Service, context.Context, string) (*types.DeliveryNote, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store storage.Storage) error {
				if _, err := requireActor(ctx, store, op); err != nil {
					return err
				}
				id, err := resolveDN(ctx, store, args[0])
				if err != nil {
					return err
				}
				note, err := apply(documents.New(store), ctx, id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return outputJSON(note)
				}
				info("%s is now %s", note.DNNumber, note.Status)
				return nil
			})
		},
	}
}

var dnCancelCmd = &cobra.Command{
	Use:   "cancel <number>",
	Short: "Cancel a note and return its stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store storage.Storage) error {
			actor, err := requireActor(ctx, store, types.OpCancelDN)
			if err != nil {
				return err
			}
			id, err := resolveDN(ctx, store, args[0])
			if err != nil {
				return err
			}
			note, err := documents.New(store).Cancel(ctx, id, actor)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(note)
			}
			info("%s cancelled; dispatched stock returned to its batches", note.DNNumber)
			return nil
		})
	},
}

var dnRenderCmd = &cobra.Command{
	Use:   "render <number>",
	Short: "Render the delivery document (json, yaml, or markdown)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withStore(func(ctx context.Context, store storage.Storage) error {
			id, err := resolveDN(ctx, store, args[0])
			if err != nil {
				return err
			}
			input, err := documents.New(store).BuildRenderInput(ctx, id)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(input)
			case "yaml":
				data, err := yaml.Marshal(input)
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			case "markdown", "md":
				return renderMarkdown(deliveryNoteMarkdown(input))
			default:
				return fmt.Errorf("unknown format %q (json, yaml, markdown)", format)
			}
		})
	},
}

// deliveryNoteMarkdown formats the render payload as a printable
// markdown document.
func deliveryNoteMarkdown(input *documents.RenderInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Delivery Note %s\n\n", input.DNNumber)
	fmt.Fprintf(&b, "**Status:** %s", input.Status)
	if input.IssueDate != nil {
		fmt.Fprintf(&b, "  •  **Issued:** %s", input.IssueDate)
	}
	if input.IsConsignment {
		b.WriteString("  •  **Consignment**")
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "**Customer:** %s", input.Customer.Name)
	if input.Customer.Address != "" {
		fmt.Fprintf(&b, ", %s", input.Customer.Address)
	}
	if input.Customer.ContactPerson != "" {
		fmt.Fprintf(&b, " (attn: %s)", input.Customer.ContactPerson)
	}
	b.WriteString("\n\n")

	b.WriteString("| # | SKU | Item | Batch | Expires | Qty | Unit |\n")
	b.WriteString("|---|-----|------|-------|---------|-----|------|\n")
	for i, item := range input.Items {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			i+1, item.SKU, item.Name, item.BatchNumber,
			item.ExpirationDate, item.Quantity, item.Unit)
	}
	fmt.Fprintf(&b, "\n**Total:** %s\n", input.TotalQuantity)
	if input.Notes != "" {
		fmt.Fprintf(&b, "\n> %s\n", input.Notes)
	}
	fmt.Fprintf(&b, "\nPrepared by %s\n", input.CreatedByName)
	return b.String()
}

// renderMarkdown prints markdown through glamour when stdout is a
// terminal, raw otherwise.
func renderMarkdown(md string) error {
	if !ui.IsTerminal() {
		fmt.Print(md)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(ui.Width()),
	)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func init() {
	dnListCmd.Flags().String("status", "", "Filter by status (DRAFT, ISSUED, DELIVERED, INVOICED, CANCELLED)")
	dnListCmd.Flags().String("customer", "", "Filter by customer name or id")
	dnListCmd.Flags().Int("limit", 0, "Maximum rows")
	dnRenderCmd.Flags().String("format", "markdown", "Output format: json, yaml, markdown")

	dnCmd.AddCommand(
		dnListCmd,
		dnShowCmd,
		dnTransitionCmd("issue", "Issue a DRAFT note", types.OpManageDN,
			func(s *documents.Service, ctx context.Context, id string) (*types.DeliveryNote, error) {
				return s.Issue(ctx, id)
			}),
		dnTransitionCmd("deliver", "Mark an ISSUED note delivered", types.OpManageDN,
			func(s *documents.Service, ctx context.Context, id string) (*types.DeliveryNote, error) {
				return s.MarkDelivered(ctx, id)
			}),
		dnTransitionCmd("invoice", "Mark a DELIVERED note invoiced", types.OpManageDN,
			func(s *documents.Service, ctx context.Context, id string) (*types.DeliveryNote, error) {
				return s.MarkInvoiced(ctx, id)
			}),
		dnCancelCmd,
		dnRenderCmd,
	)
	rootCmd.AddCommand(dnCmd)
}
