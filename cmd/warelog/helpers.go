package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/inkops/warelog/internal/config"
	"github.com/inkops/warelog/internal/logging"
	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

// dateParser handles natural-language phrases like "in 6 months" or
// "next friday" alongside ISO dates.
var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDate accepts an ISO date (2026-06-01) or a natural-language
// phrase resolved against today.
func parseDate(s string) (types.Date, error) {
	if d, err := types.ParseDate(s); err == nil {
		return d, nil
	}
	r, err := dateParser.Parse(s, time.Now())
	if err != nil || r == nil {
		return types.Date{}, fmt.Errorf("cannot parse date %q (use YYYY-MM-DD or a phrase like \"in 6 months\")", s)
	}
	return types.DateOf(r.Time), nil
}

// parseTime accepts an ISO date or timestamp, or a natural-language
// phrase, for history range flags.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	r, err := dateParser.Parse(s, time.Now())
	if err != nil || r == nil {
		return time.Time{}, fmt.Errorf("cannot parse time %q (use YYYY-MM-DD, RFC3339, or a phrase like \"last monday\")", s)
	}
	return r.Time, nil
}

// actorName resolves the acting username: --actor flag, WL_ACTOR, config,
// then the OS user.
func actorName() string {
	if name := config.GetString("actor"); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// requireActor resolves the acting user and checks the role table for
// op. On a database with no users yet, any actor passes as a bootstrap
// admin so a fresh workspace is usable before 'user add' exists in it.
func requireActor(ctx context.Context, store storage.Storage, op types.Operation) (string, error) {
	name := actorName()
	u, err := store.GetUserByUsername(ctx, name)
	switch {
	case err == nil:
		if !u.IsActive {
			return "", types.Validation(types.CodeUserNotFound, "user %s is deactivated", name)
		}
		if err := types.RequirePermission(u.Role, op); err != nil {
			return "", err
		}
		return u.Username, nil
	case types.IsNotFound(err):
		users, lerr := store.ListUsers(ctx)
		if lerr != nil {
			return "", lerr
		}
		if len(users) == 0 {
			return name, nil
		}
		return "", types.Validation(types.CodeUserNotFound,
			"actor %q is not a registered user (set --actor or WL_ACTOR)", name)
	default:
		return "", err
	}
}

// resolveItem accepts an item SKU or id.
func resolveItem(ctx context.Context, store storage.Storage, ref string) (*types.Item, error) {
	if item, err := store.GetItemBySKU(ctx, ref); err == nil {
		return item, nil
	} else if !types.IsNotFound(err) {
		return nil, err
	}
	return store.GetItem(ctx, ref)
}

// resolveBatch accepts a batch number or id.
func resolveBatch(ctx context.Context, store storage.Storage, ref string) (*types.Batch, error) {
	if batch, err := store.GetBatchByNumber(ctx, ref); err == nil {
		return batch, nil
	} else if !types.IsNotFound(err) {
		return nil, err
	}
	return store.GetBatch(ctx, ref)
}

// resolveDN accepts a delivery-note number or id and returns the id.
func resolveDN(ctx context.Context, store storage.Storage, ref string) (string, error) {
	if note, err := store.GetDeliveryNoteByNumber(ctx, ref); err == nil {
		return note.ID, nil
	} else if !types.IsNotFound(err) {
		return "", err
	}
	note, err := store.GetDeliveryNote(ctx, ref)
	if err != nil {
		return "", err
	}
	return note.ID, nil
}

// cliLogger routes service logging to stderr when WL_DEBUG is set and
// swallows it otherwise; the CLI's own output stays clean.
func cliLogger() *logging.Logger {
	if os.Getenv("WL_DEBUG") != "" {
		return logging.NewStderr()
	}
	return logging.Discard()
}

func configAlertBands() []int {
	return config.AlertBands()
}

func configDeadStockDays() int {
	return config.DeadStockDays()
}

// listLimit clamps a requested limit against the configured maximum.
func listLimit(requested int) int {
	if requested <= 0 {
		requested = config.GetInt("limit.default")
	}
	if max := config.GetInt("limit.max"); max > 0 && requested > max {
		return max
	}
	return requested
}
