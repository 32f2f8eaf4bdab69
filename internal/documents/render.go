package documents

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/inkops/warelog/internal/types"
)

// RenderCustomer is the customer block of a rendered delivery note.
type RenderCustomer struct {
	Name          string `json:"name" yaml:"name"`
	Address       string `json:"address,omitempty" yaml:"address,omitempty"`
	ContactPerson string `json:"contact_person,omitempty" yaml:"contact_person,omitempty"`
}

// RenderItem is one line of a rendered delivery note.
type RenderItem struct {
	SKU            string          `json:"sku" yaml:"sku"`
	Name           string          `json:"name" yaml:"name"`
	BatchNumber    string          `json:"batch_number" yaml:"batch_number"`
	ExpirationDate types.Date      `json:"expiration_date" yaml:"expiration_date"`
	Quantity       decimal.Decimal `json:"quantity" yaml:"quantity"`
	Unit           string          `json:"unit" yaml:"unit"`
}

// RenderInput is the complete, renderer-agnostic payload of a delivery
// note document. The CLI emits it as JSON or YAML, or formats it as
// markdown; no rendering concern lives here.
type RenderInput struct {
	DNNumber      string          `json:"dn_number" yaml:"dn_number"`
	Status        types.DNStatus  `json:"status" yaml:"status"`
	IssueDate     *types.Date     `json:"issue_date,omitempty" yaml:"issue_date,omitempty"`
	Customer      RenderCustomer  `json:"customer" yaml:"customer"`
	IsConsignment bool            `json:"is_consignment" yaml:"is_consignment"`
	Items         []RenderItem    `json:"items" yaml:"items"`
	TotalQuantity decimal.Decimal `json:"total_quantity" yaml:"total_quantity"`
	Notes         string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedByName string          `json:"created_by_name" yaml:"created_by_name"`
}

// BuildRenderInput assembles the document payload for a delivery note.
func (s *Service) BuildRenderInput(ctx context.Context, dnID string) (*RenderInput, error) {
	detail, err := s.Get(ctx, dnID)
	if err != nil {
		return nil, err
	}

	createdBy := detail.Note.CreatedBy
	if user, err := s.store.GetUser(ctx, detail.Note.CreatedBy); err == nil {
		createdBy = user.Username
		if user.FullName != "" {
			createdBy = user.FullName
		}
	} else if !types.IsNotFound(err) {
		return nil, err
	}

	input := &RenderInput{
		DNNumber:  detail.Note.DNNumber,
		Status:    detail.Note.Status,
		IssueDate: detail.Note.IssueDate,
		Customer: RenderCustomer{
			Name:          detail.Customer.Name,
			Address:       detail.Customer.Address,
			ContactPerson: detail.Customer.ContactPerson,
		},
		IsConsignment: detail.Note.IsConsignment,
		Items:         make([]RenderItem, 0, len(detail.Items)),
		TotalQuantity: decimal.Zero,
		Notes:         detail.Note.Notes,
		CreatedByName: createdBy,
	}
	for _, item := range detail.Items {
		input.Items = append(input.Items, RenderItem{
			SKU:            item.ItemSKU,
			Name:           item.ItemName,
			BatchNumber:    item.BatchNumber,
			ExpirationDate: item.ExpirationDate,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
		})
		input.TotalQuantity = input.TotalQuantity.Add(item.Quantity)
	}
	return input, nil
}
