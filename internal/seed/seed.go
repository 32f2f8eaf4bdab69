// Package seed imports a catalog (items, locations, customers) from a
// TOML file. Import is idempotent: entities are matched by natural key
// (sku, code, name); existing items are updated in place, existing
// locations and customers are left untouched.
package seed

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/storage"
	"github.com/inkops/warelog/internal/types"
)

// Catalog is the decoded seed file.
type Catalog struct {
	Items     []ItemSpec     `toml:"items"`
	Locations []LocationSpec `toml:"locations"`
	Customers []CustomerSpec `toml:"customers"`
}

// ItemSpec is one catalog item in the seed file. Decimal fields are TOML
// strings to keep fixed-point exact.
type ItemSpec struct {
	SKU          string `toml:"sku"`
	Name         string `toml:"name"`
	Description  string `toml:"description"`
	Unit         string `toml:"unit"`
	CostPerUnit  string `toml:"cost_per_unit"`
	Currency     string `toml:"currency"`
	ReorderPoint string `toml:"reorder_point"`
	MinStock     string `toml:"min_stock"`
	MaxStock     string `toml:"max_stock"`
}

// LocationSpec is one storage location in the seed file.
type LocationSpec struct {
	Code string `toml:"code"`
	Name string `toml:"name"`
	Zone string `toml:"zone"`
}

// CustomerSpec is one customer in the seed file.
type CustomerSpec struct {
	Name          string `toml:"name"`
	Address       string `toml:"address"`
	ContactPerson string `toml:"contact_person"`
	Phone         string `toml:"phone"`
	Email         string `toml:"email"`
	VMI           bool   `toml:"vmi"`
}

// Result counts what the import did.
type Result struct {
	ItemsCreated     int `json:"items_created"`
	ItemsUpdated     int `json:"items_updated"`
	LocationsCreated int `json:"locations_created"`
	CustomersCreated int `json:"customers_created"`
	Skipped          int `json:"skipped"`
}

// LoadFile decodes a catalog from a TOML file.
func LoadFile(path string) (*Catalog, error) {
	var catalog Catalog
	if _, err := toml.DecodeFile(path, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}
	return &catalog, nil
}

// Import applies the catalog to the store.
func Import(ctx context.Context, store storage.Storage, catalog *Catalog) (*Result, error) {
	result := &Result{}

	for i, spec := range catalog.Items {
		if spec.SKU == "" || spec.Name == "" {
			return nil, types.Validation(types.CodeItemNotFound, "item %d: sku and name are required", i+1)
		}
		item, err := itemFromSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", spec.SKU, err)
		}
		existing, err := store.GetItemBySKU(ctx, spec.SKU)
		switch {
		case err == nil:
			item.ID = existing.ID
			item.IsActive = existing.IsActive
			if err := store.UpdateItem(ctx, item); err != nil {
				return nil, fmt.Errorf("failed to update item %s: %w", spec.SKU, err)
			}
			result.ItemsUpdated++
		case types.IsNotFound(err):
			if err := store.CreateItem(ctx, item); err != nil {
				return nil, fmt.Errorf("failed to create item %s: %w", spec.SKU, err)
			}
			result.ItemsCreated++
		default:
			return nil, err
		}
	}

	for i, spec := range catalog.Locations {
		if spec.Code == "" {
			return nil, types.Validation(types.CodeLocationNotFound, "location %d: code is required", i+1)
		}
		_, err := store.GetLocationByCode(ctx, spec.Code)
		switch {
		case err == nil:
			result.Skipped++
		case types.IsNotFound(err):
			loc := &types.Location{Code: spec.Code, Name: spec.Name, Zone: spec.Zone, IsActive: true}
			if err := store.CreateLocation(ctx, loc); err != nil {
				return nil, fmt.Errorf("failed to create location %s: %w", spec.Code, err)
			}
			result.LocationsCreated++
		default:
			return nil, err
		}
	}

	for i, spec := range catalog.Customers {
		if spec.Name == "" {
			return nil, types.Validation(types.CodeCustomerNotFound, "customer %d: name is required", i+1)
		}
		_, err := store.GetCustomerByName(ctx, spec.Name)
		switch {
		case err == nil:
			result.Skipped++
		case types.IsNotFound(err):
			customer := &types.Customer{
				Name:          spec.Name,
				Address:       spec.Address,
				ContactPerson: spec.ContactPerson,
				Phone:         spec.Phone,
				Email:         spec.Email,
				IsVMICustomer: spec.VMI,
				IsActive:      true,
			}
			if err := store.CreateCustomer(ctx, customer); err != nil {
				return nil, fmt.Errorf("failed to create customer %s: %w", spec.Name, err)
			}
			result.CustomersCreated++
		default:
			return nil, err
		}
	}

	return result, nil
}

// ImportFile is LoadFile followed by Import.
func ImportFile(ctx context.Context, store storage.Storage, path string) (*Result, error) {
	catalog, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Import(ctx, store, catalog)
}

func itemFromSpec(spec ItemSpec) (*types.Item, error) {
	item := &types.Item{
		SKU:         spec.SKU,
		Name:        spec.Name,
		Description: spec.Description,
		Unit:        spec.Unit,
		Currency:    spec.Currency,
		IsActive:    true,
	}
	if spec.CostPerUnit != "" {
		cost, err := decimal.NewFromString(spec.CostPerUnit)
		if err != nil {
			return nil, fmt.Errorf("invalid cost_per_unit %q: %w", spec.CostPerUnit, err)
		}
		item.CostPerUnit = cost
	}
	var err error
	if item.ReorderPoint, err = optionalDecimal(spec.ReorderPoint, "reorder_point"); err != nil {
		return nil, err
	}
	if item.MinStock, err = optionalDecimal(spec.MinStock, "min_stock"); err != nil {
		return nil, err
	}
	if item.MaxStock, err = optionalDecimal(spec.MaxStock, "max_stock"); err != nil {
		return nil, err
	}
	return item, nil
}

func optionalDecimal(s, field string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return &d, nil
}
