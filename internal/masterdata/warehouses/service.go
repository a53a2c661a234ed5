package warehouses

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

func (s *Service) List(ctx context.Context, op shared.OperationContext, filters mdshared.ListFilters) ([]Warehouse, int, error) {
	return s.repo.List(ctx, op.CompanyID, filters)
}

func (s *Service) Get(ctx context.Context, op shared.OperationContext, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return s.repo.Get(ctx, op.CompanyID, id)
}

func (s *Service) Create(ctx context.Context, op shared.OperationContext, warehouse Warehouse) (Warehouse, error) {
	if err := validate(warehouse); err != nil {
		return Warehouse{}, err
	}
	warehouse.CompanyID = op.CompanyID
	return s.repo.Create(ctx, warehouse)
}

func (s *Service) Update(ctx context.Context, op shared.OperationContext, id int64, warehouse Warehouse) error {
	if id <= 0 {
		return &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	if err := validate(warehouse); err != nil {
		return err
	}
	return s.repo.Update(ctx, op.CompanyID, id, warehouse)
}

func (s *Service) Delete(ctx context.Context, op shared.OperationContext, id int64) error {
	if id <= 0 {
		return &shared.ValidationError{Field: "id", Reason: "must be positive"}
	}
	return s.repo.Delete(ctx, op.CompanyID, id)
}

func validate(w Warehouse) error {
	if strings.TrimSpace(w.Code) == "" {
		return &shared.ValidationError{Field: "code", Reason: "required"}
	}
	if strings.TrimSpace(w.Name) == "" {
		return &shared.ValidationError{Field: "name", Reason: "required"}
	}
	return nil
}
