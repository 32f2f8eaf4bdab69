package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/inkops/warelog/internal/fefo"
	"github.com/inkops/warelog/internal/types"
)

// NewTable creates a bordered table with the default styling.
func NewTable(headers ...string) *table.Table {
	return table.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

// RenderSuggestion renders a FEFO pick suggestion.
func RenderSuggestion(s *fefo.Suggestion, unit string) string {
	var b strings.Builder

	t := NewTable("#", "BATCH", "EXPIRES", "DAYS", "AVAILABLE", "PICK", "LOCATION")
	for i, line := range s.Lines {
		days := fmt.Sprintf("%d", line.DaysUntilExpiry)
		t.Row(
			fmt.Sprintf("%d", i+1),
			line.BatchNumber,
			line.ExpirationDate.String(),
			LevelStyle(line.WarningLevel).Render(days),
			line.QuantityAvailable.String(),
			line.SuggestedQuantity.String(),
			line.LocationCode,
		)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	if s.FullyAllocated {
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("Allocated %s %s across %d batch(es)",
			s.AllocatedQuantity, unit, len(s.Lines))))
	} else {
		b.WriteString(WarnStyle.Render(fmt.Sprintf("Short by %s %s: only %s of %s available",
			s.Shortfall, unit, s.AllocatedQuantity, s.RequestedQuantity)))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderStockSummary renders an item's stock partitioned by expiration
// proximity.
func RenderStockSummary(item *types.Item, s *fefo.StockSummary) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s — %s", item.SKU, item.Name)))
	b.WriteString("\n")

	t := NewTable("LEVEL", "QUANTITY", "BATCHES")
	for _, level := range types.WarningLevels {
		stats := s.Levels[level]
		label := LevelStyle(level).Render(strings.ToUpper(string(level)))
		t.Row(label, stats.Quantity.String()+" "+item.Unit, fmt.Sprintf("%d", stats.Batches))
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total: %s %s in %d batch(es)\n",
		s.TotalQuantity, item.Unit, s.TotalBatches))
	return b.String()
}

// RenderBatches renders a batch listing with expiry coloring.
func RenderBatches(batches []*types.BatchWithContext, today types.Date) string {
	t := NewTable("BATCH", "SKU", "QTY", "EXPIRES", "DAYS", "STATUS", "LOCATION")
	for _, batch := range batches {
		days := today.DaysUntil(batch.ExpirationDate)
		level := types.WarningLevelFor(days)
		t.Row(
			batch.BatchNumber,
			batch.ItemSKU,
			batch.QuantityAvailable.String(),
			batch.ExpirationDate.String(),
			LevelStyle(level).Render(fmt.Sprintf("%d", days)),
			StatusStyle(string(batch.Status)).Render(string(batch.Status)),
			batch.LocationCode,
		)
	}
	return t.String() + "\n"
}

// RenderMovements renders a movement history listing, newest first.
func RenderMovements(movements []*types.MovementWithContext) string {
	t := NewTable("WHEN", "TYPE", "BATCH", "SKU", "QTY", "BEFORE", "AFTER", "REF", "BY")
	for _, m := range movements {
		t.Row(
			m.CreatedAt.Local().Format("2006-01-02 15:04"),
			movementStyle(m.Type).Render(string(m.Type)),
			m.BatchNumber,
			m.ItemSKU,
			m.Quantity.String(),
			m.QuantityBefore.String(),
			m.QuantityAfter.String(),
			m.ReferenceNumber,
			m.PerformedBy,
		)
	}
	return t.String() + "\n"
}

// RenderAlerts renders an alert listing.
func RenderAlerts(alerts []*types.Alert) string {
	t := NewTable("ID", "SEVERITY", "TITLE", "MESSAGE", "AGE")
	now := time.Now()
	for _, a := range alerts {
		title := a.Title
		if title == "" {
			title = string(a.Type)
		}
		message := a.Message
		if !a.IsRead {
			message = lipgloss.NewStyle().Bold(true).Render(message)
		}
		t.Row(
			shortID(a.ID),
			SeverityStyle(a.Severity).Render(string(a.Severity)),
			title,
			message,
			age(now.Sub(a.CreatedAt)),
		)
	}
	return t.String() + "\n"
}

func movementStyle(mt types.MovementType) lipgloss.Style {
	switch mt {
	case types.MovementReceipt:
		return SuccessStyle
	case types.MovementDispatch:
		return TitleStyle
	case types.MovementScrap:
		return ErrorStyle
	case types.MovementAdjustment:
		return WarnStyle
	default:
		return lipgloss.NewStyle()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
