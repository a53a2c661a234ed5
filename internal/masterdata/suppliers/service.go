package suppliers

import (
	"context"

	mdshared "github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, op shared.OperationContext, filters mdshared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, op.CompanyID, filters)
}

func (s *Service) Get(ctx context.Context, op shared.OperationContext, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return s.repo.Get(ctx, op.CompanyID, id)
}

func (s *Service) Create(ctx context.Context, op shared.OperationContext, supplier Supplier) (Supplier, error) {
	if err := validate(supplier); err != nil {
		return Supplier{}, err
	}
	supplier.CompanyID = op.CompanyID
	return s.repo.Create(ctx, supplier)
}

func (s *Service) Update(ctx context.Context, op shared.OperationContext, id int64, supplier Supplier) error {
	if id <= 0 {
		return &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if err := validate(supplier); err != nil {
		return err
	}
	return s.repo.Update(ctx, op.CompanyID, id, supplier)
}

func (s *Service) Delete(ctx context.Context, op shared.OperationContext, id int64) error {
	if id <= 0 {
		return &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return s.repo.Delete(ctx, op.CompanyID, id)
}
