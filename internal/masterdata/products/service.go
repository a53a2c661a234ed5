package products

import (
	"context"
	"strings"

	mdshared "github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, op shared.OperationContext, filters mdshared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, op.CompanyID, filters)
}

func (s *Service) Get(ctx context.Context, op shared.OperationContext, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return s.repo.Get(ctx, op.CompanyID, id)
}

func (s *Service) Create(ctx context.Context, op shared.OperationContext, product Product) (Product, error) {
	if err := validate(product); err != nil {
		return Product{}, err
	}
	product.CompanyID = op.CompanyID
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, op shared.OperationContext, id int64, product Product) error {
	if id <= 0 {
		return &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if err := validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, op.CompanyID, id, product)
}

func (s *Service) Delete(ctx context.Context, op shared.OperationContext, id int64) error {
	if id <= 0 {
		return &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return s.repo.Delete(ctx, op.CompanyID, id)
}

func validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return &shared.ValidationError{Field: "sku", Reason: "required"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &shared.ValidationError{Field: "name", Reason: "required"}
	}
	if p.PurchasePrice < 0 {
		return &shared.ValidationError{Field: "purchase_price", Reason: "must not be negative"}
	}
	if p.TaxPercentage < 0 || p.TaxPercentage > 100 {
		return &shared.ValidationError{Field: "tax_percentage", Reason: "must be between 0 and 100"}
	}
	return nil
}
