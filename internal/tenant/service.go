package tenant

import (
	"context"
	"log/slog"
	"slices"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service manages company membership. Every change invalidates the role
// cache so the next request sees the new roles.
type Service struct {
	repo  *Repository
	cache *RoleCache
	log   *slog.Logger
}

// NewService constructs the tenant service.
func NewService(repo *Repository, cache *RoleCache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// AssignRole grants a role to a user in the operator's company.
func (s *Service) AssignRole(ctx context.Context, op shared.OperationContext, userID int64, role string) error {
	if !op.IsAdmin() {
		return &shared.AuthorizationError{Required: []string{shared.RoleAdmin}}
	}
	if userID <= 0 {
		return &shared.ValidationError{Field: "user_id", Reason: "required"}
	}
	if !slices.Contains(shared.KnownRoles(), role) {
		return &shared.ValidationError{Field: "role", Reason: "unknown role " + role}
	}
	if err := s.repo.AssignRole(ctx, op.CompanyID, userID, role); err != nil {
		return err
	}
	s.invalidate(ctx, op.CompanyID, userID)
	return nil
}

// RevokeRole removes a role from a user in the operator's company.
func (s *Service) RevokeRole(ctx context.Context, op shared.OperationContext, userID int64, role string) error {
	if !op.IsAdmin() {
		return &shared.AuthorizationError{Required: []string{shared.RoleAdmin}}
	}
	if err := s.repo.RevokeRole(ctx, op.CompanyID, userID, role); err != nil {
		return err
	}
	s.invalidate(ctx, op.CompanyID, userID)
	return nil
}

// Companies lists the company ids the operator belongs to.
func (s *Service) Companies(ctx context.Context, op shared.OperationContext) ([]int64, error) {
	return s.repo.CompaniesForUser(ctx, op.UserID)
}

func (s *Service) invalidate(ctx context.Context, companyID, userID int64) {
	if err := s.cache.Invalidate(ctx, companyID, userID); err != nil {
		s.log.WarnContext(ctx, "role cache invalidate", slog.Any("error", err))
	}
}
