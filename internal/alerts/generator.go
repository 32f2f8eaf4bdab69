// Package alerts generates the operational alerts: batches nearing or
// past expiration, items under their stock thresholds, and items whose
// stock has not moved in months. Each check runs in its own transaction
// and deduplicates against alerts already raised for the same subject.
package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inkops/warelog/internal/logging"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

// Config tunes the generator. Zero values fall back to the defaults.
type Config struct {
	// Bands are the expiration horizons in days, widest first.
	Bands []int
	// DeadStockDays is the idle window before an item's stock counts as
	// dead.
	DeadStockDays int
}

// DefaultBands are the expiration horizons checked by CheckExpiring.
var DefaultBands = []int{120, 90, 60, 30}

// DefaultDeadStockDays is the default idle window for dead stock.
const DefaultDeadStockDays = 180

// deadStockDedupeWindow suppresses repeat dead-stock alerts for a week.
const deadStockDedupeWindow = 7 * 24 * time.Hour

// Generator runs the alert checks.
type Generator struct {
	store storage.Storage
	log   *logging.Logger
	today func() types.Date
	bands []int
	idle  int
}

// New creates a generator with the given configuration.
func New(store storage.Storage, log *logging.Logger, cfg Config) *Generator {
	return NewWithClock(store, log, cfg, types.Today)
}

// NewWithClock creates a generator with an explicit clock.
func NewWithClock(store storage.Storage, log *logging.Logger, cfg Config, today func() types.Date) *Generator {
	bands := cfg.Bands
	if len(bands) == 0 {
		bands = DefaultBands
	}
	idle := cfg.DeadStockDays
	if idle <= 0 {
		idle = DefaultDeadStockDays
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Generator{store: store, log: log, today: today, bands: bands, idle: idle}
}

// SetThresholds replaces the bands and dead-stock window, used by the
// daemon's config hot-reload.
func (g *Generator) SetThresholds(bands []int, deadStockDays int) {
	if len(bands) > 0 {
		g.bands = bands
	}
	if deadStockDays > 0 {
		g.idle = deadStockDays
	}
}

// RunReport summarizes one RunAll pass. Per-check failures land in
// Errors; they never abort the other checks.
type RunReport struct {
	ExpiringAlerts  int       `json:"expiring_alerts"`
	ExpiredBatches  int       `json:"expired_batches"`
	ExpiredAlerts   int       `json:"expired_alerts"`
	LowStockAlerts  int       `json:"low_stock_alerts"`
	DeadStockAlerts int       `json:"dead_stock_alerts"`
	TotalNewAlerts  int       `json:"total_new_alerts"`
	Errors          []string  `json:"errors,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// RunAll executes every check in order. The returned error is reserved
// for catastrophic storage unavailability; individual check failures are
// reported and logged.
func (g *Generator) RunAll(ctx context.Context) (*RunReport, error) {
	report := &RunReport{StartedAt: time.Now().UTC()}

	if n, err := g.CheckExpiring(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("expiring: %v", err))
		g.log.Error("expiring check failed", "error", err)
	} else {
		report.ExpiringAlerts = n
	}
	if swept, n, err := g.CheckExpired(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("expired: %v", err))
		g.log.Error("expired sweep failed", "error", err)
	} else {
		report.ExpiredBatches = swept
		report.ExpiredAlerts = n
	}
	if n, err := g.CheckLowStock(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("low stock: %v", err))
		g.log.Error("low stock check failed", "error", err)
	} else {
		report.LowStockAlerts = n
	}
	if n, err := g.CheckDeadStock(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("dead stock: %v", err))
		g.log.Error("dead stock check failed", "error", err)
	} else {
		report.DeadStockAlerts = n
	}

	report.TotalNewAlerts = report.ExpiringAlerts + report.ExpiredAlerts + report.LowStockAlerts + report.DeadStockAlerts
	report.FinishedAt = time.Now().UTC()
	g.log.Info("alert checks finished",
		"expiring", report.ExpiringAlerts,
		"expired", report.ExpiredBatches,
		"low_stock", report.LowStockAlerts,
		"dead_stock", report.DeadStockAlerts,
		"errors", len(report.Errors))
	return report, nil
}

// CheckExpiring raises one alert per stocked ACTIVE batch inside an
// expiration band. A batch lands in the narrowest band containing its
// expiration date. Returns the number of new alerts.
func (g *Generator) CheckExpiring(ctx context.Context) (int, error) {
	today := g.today()
	widest := g.bands[0]
	for _, b := range g.bands {
		if b > widest {
			widest = b
		}
	}

	created := 0
	err := g.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		batches, err := tx.ExpiringBatches(ctx, today, today.AddDays(widest))
		if err != nil {
			return err
		}
		midnight := today.Time()
		for _, batch := range batches {
			days := today.DaysUntil(batch.ExpirationDate)
			band, ok := narrowestBand(g.bands, days)
			if !ok {
				continue
			}
			severity := bandSeverity(band)
			alertType := types.AlertExpiration
			if days <= 30 {
				alertType = types.AlertExpirationCritical
			}

			exists, err := tx.AlertExists(ctx, alertType, batch.ID, "", severity, midnight)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			alert := &types.Alert{
				Type:     alertType,
				Severity: severity,
				BatchID:  batch.ID,
				ItemID:   batch.ItemID,
				Title:    fmt.Sprintf("Expiring batch: %s", batch.BatchNumber),
				Message: fmt.Sprintf("batch %s (%s) expires in %d days, %s in stock",
					batch.BatchNumber, batch.ItemName, days, batch.QuantityAvailable),
			}
			if err := tx.InsertAlert(ctx, alert); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// narrowestBand returns the smallest band that still contains days.
func narrowestBand(bands []int, days int) (int, bool) {
	best := 0
	found := false
	for _, b := range bands {
		if days <= b && (!found || b < best) {
			best = b
			found = true
		}
	}
	return best, found
}

func bandSeverity(band int) types.Severity {
	switch {
	case band <= 30:
		return types.SeverityCritical
	case band <= 90:
		return types.SeverityWarning
	default:
		return types.SeverityInfo
	}
}

// CheckExpired scraps batches whose expiration date has passed. The
// quantity stays on the batch: it records what sits in the scrap area
// until disposal is booked manually, so the sweep writes no movement.
// Returns the number of batches swept and the number of new alerts;
// the per-day dedupe lets alerts trail sweeps.
func (g *Generator) CheckExpired(ctx context.Context) (int, int, error) {
	today := g.today()
	swept := 0
	created := 0
	err := g.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		batches, err := tx.ExpiredActiveBatches(ctx, today)
		if err != nil {
			return err
		}
		midnight := today.Time()
		for _, expired := range batches {
			batch := &expired.Batch
			batch.Status = types.BatchScrap
			note := fmt.Sprintf("Auto-scrapped: expired on %s", batch.ExpirationDate)
			if batch.Notes == "" {
				batch.Notes = note
			} else {
				batch.Notes = batch.Notes + "\n" + note
			}
			batch.Version++
			batch.UpdatedAt = time.Now().UTC()
			if err := tx.UpdateBatch(ctx, batch); err != nil {
				return err
			}
			swept++

			exists, err := tx.AlertExists(ctx, types.AlertExpired, batch.ID, "", "", midnight)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			alert := &types.Alert{
				Type:     types.AlertExpired,
				Severity: types.SeverityCritical,
				BatchID:  batch.ID,
				ItemID:   batch.ItemID,
				Title:    fmt.Sprintf("Expired batch scrapped: %s", batch.BatchNumber),
				Message: fmt.Sprintf("batch %s (%s) expired on %s and was scrapped, %s awaiting disposal",
					batch.BatchNumber, expired.ItemName, batch.ExpirationDate, batch.QuantityAvailable),
			}
			if err := tx.InsertAlert(ctx, alert); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return swept, created, nil
}

// CheckLowStock raises one alert per active item whose total available
// stock sits under its thresholds. Returns the number of new alerts.
func (g *Generator) CheckLowStock(ctx context.Context) (int, error) {
	today := g.today()
	created := 0
	err := g.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		levels, err := tx.ItemStockLevels(ctx, today)
		if err != nil {
			return err
		}
		midnight := today.Time()
		for _, level := range levels {
			if level.ReorderPoint == nil {
				continue
			}
			var severity types.Severity
			var threshold string
			switch {
			case level.MinStock != nil && level.TotalAvailable.LessThan(*level.MinStock):
				severity = types.SeverityCritical
				threshold = level.MinStock.String()
			case level.TotalAvailable.LessThan(*level.ReorderPoint):
				severity = types.SeverityWarning
				threshold = level.ReorderPoint.String()
			default:
				continue
			}

			exists, err := tx.AlertExists(ctx, types.AlertLowStock, "", level.ID, "", midnight)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			alert := &types.Alert{
				Type:     types.AlertLowStock,
				Severity: severity,
				ItemID:   level.ID,
				Title:    fmt.Sprintf("Low stock: %s", level.SKU),
				Message: fmt.Sprintf("%s (%s) is down to %s %s, threshold %s",
					level.SKU, level.Name, level.TotalAvailable, level.Unit, threshold),
			}
			if err := tx.InsertAlert(ctx, alert); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// CheckDeadStock raises one alert per item whose ACTIVE batches have all
// sat without a movement past the idle window. The last movement is taken
// over the item's whole batch set, so a single busy batch keeps the item
// alive. A matching alert within the last seven days suppresses a repeat.
// Returns the number of new alerts.
func (g *Generator) CheckDeadStock(ctx context.Context) (int, error) {
	today := g.today()
	cutoff := today.AddDays(-g.idle).Time()
	since := today.Time().Add(-deadStockDedupeWindow)
	created := 0
	err := g.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		items, err := tx.DeadStockItems(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, dead := range items {
			exists, err := tx.AlertExists(ctx, types.AlertDeadStock, "", dead.ID, "", since)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			idleDays := int(today.Time().Sub(dead.LastMovementAt).Hours() / 24)
			alert := &types.Alert{
				Type:     types.AlertDeadStock,
				Severity: types.SeverityWarning,
				ItemID:   dead.ID,
				Title:    fmt.Sprintf("Dead stock: %s", dead.SKU),
				Message: fmt.Sprintf("%s (%s) has not moved in %d days, %s %s in stock",
					dead.SKU, dead.Name, idleDays, dead.TotalAvailable, dead.Unit),
			}
			if err := tx.InsertAlert(ctx, alert); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// List returns alerts matching the filter, newest first.
func (g *Generator) List(ctx context.Context, filter types.AlertFilter) ([]*types.Alert, error) {
	return g.store.ListAlerts(ctx, filter)
}

// MarkRead marks one alert as read.
func (g *Generator) MarkRead(ctx context.Context, id string) error {
	return g.store.MarkAlertRead(ctx, id)
}

// MarkAllRead marks every unread alert as read and returns the count.
func (g *Generator) MarkAllRead(ctx context.Context) (int, error) {
	return g.store.MarkAllAlertsRead(ctx)
}

// Dismiss hides an alert from listings.
func (g *Generator) Dismiss(ctx context.Context, id string) error {
	return g.store.DismissAlert(ctx, id)
}

// CountUnread returns the number of unread, undismissed alerts.
func (g *Generator) CountUnread(ctx context.Context) (int, error) {
	return g.store.CountUnreadAlerts(ctx)
}

// Summary formats a run report as a single log-friendly line.
func (r *RunReport) Summary() string {
	parts := []string{
		fmt.Sprintf("%d expiring", r.ExpiringAlerts),
		fmt.Sprintf("%d expired swept", r.ExpiredBatches),
		fmt.Sprintf("%d low stock", r.LowStockAlerts),
		fmt.Sprintf("%d dead stock", r.DeadStockAlerts),
	}
	if len(r.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", len(r.Errors)))
	}
	return strings.Join(parts, ", ")
}
