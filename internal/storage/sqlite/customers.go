package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkops/warelog/internal/types"
)

const customerColumns = `id, name, address, contact_person, phone, email,
	is_vmi_customer, is_active, created_at`

// CreateCustomer inserts a delivery-note counterparty.
func (q *queries) CreateCustomer(ctx context.Context, c *types.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO customers (
			id, name, address, contact_person, phone, email,
			is_vmi_customer, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.Name, c.Address, c.ContactPerson, c.Phone, c.Email,
		boolToInt(c.IsVMICustomer), boolToInt(c.IsActive), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// GetCustomer looks up a customer by id.
func (q *queries) GetCustomer(ctx context.Context, id string) (*types.Customer, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("customer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// GetCustomerByName looks up a customer by exact name. Names are not
// unique; the first match by creation order wins.
func (q *queries) GetCustomerByName(ctx context.Context, name string) (*types.Customer, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE name = ? ORDER BY created_at LIMIT 1`, name)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound("customer", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer by name: %w", err)
	}
	return c, nil
}

// ListCustomers returns customers ordered by name.
func (q *queries) ListCustomers(ctx context.Context, activeOnly bool) ([]*types.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var customers []*types.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func scanCustomer(s scanner) (*types.Customer, error) {
	var c types.Customer
	var vmi, active int
	err := s.Scan(
		&c.ID, &c.Name, &c.Address, &c.ContactPerson, &c.Phone, &c.Email,
		&vmi, &active, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.IsVMICustomer = vmi != 0
	c.IsActive = active != 0
	return &c, nil
}
