package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	mdshared "github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type Repository interface {
	List(ctx context.Context, companyID int64, filters mdshared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, companyID, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, companyID, id int64, product Product) error
	Delete(ctx context.Context, companyID, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, company_id, sku, name, unit, purchase_price, tax_percentage, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, companyID int64, filters mdshared.ListFilters) ([]Product, int, error) {
	query := `SELECT ` + columns + ` FROM products WHERE company_id = $1`
	args := []any{companyID}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR sku ILIKE $` + n + `)`
	}

	countQuery := `SELECT COUNT(*) FROM products WHERE company_id = $1`
	countArgs := []any{companyID}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (name ILIKE $2 OR sku ILIKE $2)`
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name ASC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		args = append(args, filters.Offset())
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Unit, &p.PurchasePrice, &p.TaxPercentage, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `SELECT `+columns+` FROM products WHERE company_id = $1 AND id = $2`, companyID, id).
		Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Unit, &p.PurchasePrice, &p.TaxPercentage, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO products (company_id, sku, name, unit, purchase_price, tax_percentage, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
		product.CompanyID, product.SKU, product.Name, product.Unit, product.PurchasePrice, product.TaxPercentage, product.IsActive, now).Scan(&product.ID)
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, companyID, id int64, product Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET sku = $1, name = $2, unit = $3, purchase_price = $4, tax_percentage = $5, is_active = $6, updated_at = $7
WHERE company_id = $8 AND id = $9`,
		product.SKU, product.Name, product.Unit, product.PurchasePrice, product.TaxPercentage, product.IsActive, time.Now(), companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
