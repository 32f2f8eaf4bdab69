package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

// CreateLocation inserts a storage location. A duplicate code fails with a
// Conflict.
func (q *queries) CreateLocation(ctx context.Context, loc *types.Location) error {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO locations (id, code, name, zone, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, loc.ID, loc.Code, loc.Name, loc.Zone, boolToInt(loc.IsActive), loc.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return types.Conflict(types.CodeDuplicateCode, "location with code %s already exists", loc.Code)
		}
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// GetLocation looks up a location by id.
func (q *queries) GetLocation(ctx context.Context, id string) (*types.Location, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, code, name, zone, is_active, created_at FROM locations WHERE id = ?
	`, id)
	loc, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("location", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return loc, nil
}

// GetLocationByCode looks up a location by its code.
func (q *queries) GetLocationByCode(ctx context.Context, code string) (*types.Location, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, code, name, zone, is_active, created_at FROM locations WHERE code = ?
	`, code)
	loc, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("location", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location by code: %w", err)
	}
	return loc, nil
}

// ListLocations returns locations ordered by code.
func (q *queries) ListLocations(ctx context.Context, activeOnly bool) ([]*types.Location, error) {
	query := `SELECT id, code, name, zone, is_active, created_at FROM locations`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY code`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var locs []*types.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

func scanLocation(s scanner) (*types.Location, error) {
	var loc types.Location
	var active int
	err := s.Scan(&loc.ID, &loc.Code, &loc.Name, &loc.Zone, &active, &loc.CreatedAt)
	if err != nil {
		return nil, err
	}
	loc.IsActive = active != 0
	return &loc, nil
}
