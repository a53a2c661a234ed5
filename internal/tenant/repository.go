// Package tenant resolves company membership and roles for each request
// and stamps the operation context used by every service call.
package tenant

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads company membership.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RolesForUser returns the roles a user holds in a company. An empty
// slice means the user is not a member.
func (r *Repository) RolesForUser(ctx context.Context, companyID, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT role FROM company_users
WHERE company_id=$1 AND user_id=$2 ORDER BY role`, companyID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AssignRole grants a role to a user in a company. Granting a role the
// user already holds is a no-op.
func (r *Repository) AssignRole(ctx context.Context, companyID, userID int64, role string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO company_users (company_id, user_id, role)
VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, companyID, userID, role)
	return err
}

// RevokeRole removes a role from a user in a company.
func (r *Repository) RevokeRole(ctx context.Context, companyID, userID int64, role string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM company_users WHERE company_id=$1 AND user_id=$2 AND role=$3`,
		companyID, userID, role)
	return err
}

// CompaniesForUser lists the company ids a user belongs to.
func (r *Repository) CompaniesForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT company_id FROM company_users WHERE user_id=$1 ORDER BY company_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
