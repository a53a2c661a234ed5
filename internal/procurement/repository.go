package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Every query filters
// on company_id: tenant isolation is absolute.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations. Conditional updates
// return false when the guarding predicate did not match, so callers can
// distinguish a lost race or violated bound from success.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOItem(ctx context.Context, item PurchaseOrderItem) (int64, error)
	UpdatePOHeader(ctx context.Context, po PurchaseOrder) (bool, error)
	DeletePOItems(ctx context.Context, companyID, poID int64) error
	UpdatePOStatus(ctx context.Context, companyID, id int64, from, to POStatus) (bool, error)
	AddReceivedQuantity(ctx context.Context, companyID, itemID int64, delta float64) (bool, error)
	POItemsFullyReceived(ctx context.Context, companyID, poID int64) (bool, error)

	CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error)
	InsertGRNItem(ctx context.Context, item GoodsReceiptItem) (int64, error)
	UpdateGRNStatus(ctx context.Context, companyID, id int64, from, to GRNStatus) (bool, error)
	DeleteGRN(ctx context.Context, companyID, id int64) (bool, error)
	CountCompletedGRNsForPO(ctx context.Context, companyID, poID int64) (int, error)

	CreateInvoice(ctx context.Context, inv PurchaseInvoice) (int64, error)
	InsertInvoiceItem(ctx context.Context, item PurchaseInvoiceItem) (int64, error)
	GetInvoice(ctx context.Context, companyID, id int64) (PurchaseInvoice, error)
	AddPaidAmount(ctx context.Context, companyID, invoiceID int64, delta float64) (PurchaseInvoice, bool, error)
	SetDerivedInvoiceStatus(ctx context.Context, companyID, invoiceID int64, status InvoiceStatus) error
	UpdateInvoiceStatus(ctx context.Context, companyID, id int64, from, to InvoiceStatus) (bool, error)

	CreatePayment(ctx context.Context, p SupplierPayment) (int64, error)
	UpdatePaymentAmount(ctx context.Context, companyID, id int64, amount float64) (bool, error)
	UpdatePaymentStatus(ctx context.Context, companyID, id int64, from, to PaymentStatus) (bool, error)
}

// RepositoryPort describes the persistence surface used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPO(ctx context.Context, companyID, id int64) (PurchaseOrder, []PurchaseOrderItem, error)
	GetGRN(ctx context.Context, companyID, id int64) (GoodsReceipt, []GoodsReceiptItem, error)
	GetInvoice(ctx context.Context, companyID, id int64) (PurchaseInvoice, []PurchaseInvoiceItem, error)
	GetPayment(ctx context.Context, companyID, id int64) (SupplierPayment, error)
	CountGRNsForPO(ctx context.Context, companyID, poID int64) (int, error)
	SetInvoiceFileURL(ctx context.Context, companyID, invoiceID int64, url string) error
	ListPOs(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]POListItem, int, error)
	ListGRNs(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]GRNListItem, int, error)
	ListInvoices(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]InvoiceListItem, int, error)
	ListPayments(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]PaymentListItem, int, error)
	MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction. Serialization
// failures surface as ConcurrencyConflictError so the service can retry.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return translateErr(err, "transaction")
	}
	if err := tx.Commit(ctx); err != nil {
		return translateErr(err, "transaction")
	}
	return nil
}

// translateErr maps PostgreSQL error codes into the domain taxonomy.
func translateErr(err error, entity string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return &shared.ConcurrencyConflictError{Entity: entity}
		case "23505":
			return &shared.ConflictError{Reason: "duplicate " + entity}
		}
	}
	return err
}

// Fetch helpers

// GetPO returns a purchase order and its items.
func (r *Repository) GetPO(ctx context.Context, companyID, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	var po PurchaseOrder
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, number, supplier_id, warehouse_id, status, order_date,
COALESCE(expected_delivery_date, '0001-01-01'::date), total_amount, notes, created_by, created_at, updated_at
FROM purchase_orders WHERE company_id=$1 AND id=$2`, companyID, id).
		Scan(&po.ID, &po.CompanyID, &po.Number, &po.SupplierID, &po.WarehouseID, &po.Status, &po.OrderDate,
			&po.ExpectedDeliveryDate, &po.TotalAmount, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, nil, shared.ErrNotFound
		}
		return PurchaseOrder{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_order_id, product_id, quantity, unit_price, tax_percentage, line_total, received_quantity
FROM purchase_order_items WHERE purchase_order_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()
	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TaxPercentage, &it.LineTotal, &it.ReceivedQuantity); err != nil {
			return PurchaseOrder{}, nil, err
		}
		items = append(items, it)
	}
	return po, items, rows.Err()
}

// GetGRN returns a goods receipt and its items.
func (r *Repository) GetGRN(ctx context.Context, companyID, id int64) (GoodsReceipt, []GoodsReceiptItem, error) {
	var grn GoodsReceipt
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, COALESCE(purchase_order_id, 0), number, status, receipt_date,
total_received_amount, notes, created_by, created_at, updated_at
FROM goods_receipts WHERE company_id=$1 AND id=$2`, companyID, id).
		Scan(&grn.ID, &grn.CompanyID, &grn.PurchaseOrderID, &grn.Number, &grn.Status, &grn.ReceiptDate,
			&grn.TotalReceivedAmount, &grn.Notes, &grn.CreatedBy, &grn.CreatedAt, &grn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GoodsReceipt{}, nil, shared.ErrNotFound
		}
		return GoodsReceipt{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, goods_receipt_id, purchase_order_item_id, product_id, received_quantity, unit_price, tax_percentage
FROM goods_receipt_items WHERE goods_receipt_id=$1 ORDER BY id`, id)
	if err != nil {
		return GoodsReceipt{}, nil, err
	}
	defer rows.Close()
	var items []GoodsReceiptItem
	for rows.Next() {
		var it GoodsReceiptItem
		if err := rows.Scan(&it.ID, &it.GoodsReceiptID, &it.PurchaseOrderItemID, &it.ProductID, &it.ReceivedQuantity, &it.UnitPrice, &it.TaxPercentage); err != nil {
			return GoodsReceipt{}, nil, err
		}
		items = append(items, it)
	}
	return grn, items, rows.Err()
}

// GetInvoice returns a purchase invoice and its items.
func (r *Repository) GetInvoice(ctx context.Context, companyID, id int64) (PurchaseInvoice, []PurchaseInvoiceItem, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, invoiceSelect+` WHERE company_id=$1 AND id=$2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseInvoice{}, nil, shared.ErrNotFound
		}
		return PurchaseInvoice{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, purchase_invoice_id, product_id, quantity, unit_price, tax_percentage, tax_amount, line_total
FROM purchase_invoice_items WHERE purchase_invoice_id=$1 ORDER BY id`, id)
	if err != nil {
		return PurchaseInvoice{}, nil, err
	}
	defer rows.Close()
	var items []PurchaseInvoiceItem
	for rows.Next() {
		var it PurchaseInvoiceItem
		if err := rows.Scan(&it.ID, &it.PurchaseInvoiceID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TaxPercentage, &it.TaxAmount, &it.LineTotal); err != nil {
			return PurchaseInvoice{}, nil, err
		}
		items = append(items, it)
	}
	return inv, items, rows.Err()
}

const invoiceSelect = `SELECT id, company_id, COALESCE(purchase_order_id, 0), COALESCE(goods_receipt_id, 0), number, status,
invoice_date, due_date, subtotal, tax_amount, discount_amount, total_amount, paid_amount, COALESCE(invoice_file_url, ''),
created_by, created_at, updated_at FROM purchase_invoices`

func scanInvoice(row pgx.Row) (PurchaseInvoice, error) {
	var inv PurchaseInvoice
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.PurchaseOrderID, &inv.GoodsReceiptID, &inv.Number, &inv.Status,
		&inv.InvoiceDate, &inv.DueDate, &inv.Subtotal, &inv.TaxAmount, &inv.DiscountAmount, &inv.TotalAmount,
		&inv.PaidAmount, &inv.FileURL, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// GetPayment returns one supplier payment.
func (r *Repository) GetPayment(ctx context.Context, companyID, id int64) (SupplierPayment, error) {
	var p SupplierPayment
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, purchase_invoice_id, number, amount, method, status, payment_date, created_by, created_at, updated_at
FROM supplier_payments WHERE company_id=$1 AND id=$2`, companyID, id).
		Scan(&p.ID, &p.CompanyID, &p.PurchaseInvoiceID, &p.Number, &p.Amount, &p.Method, &p.Status, &p.PaymentDate, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SupplierPayment{}, shared.ErrNotFound
		}
		return SupplierPayment{}, err
	}
	return p, nil
}

// CountGRNsForPO counts receipts referencing a purchase order.
func (r *Repository) CountGRNsForPO(ctx context.Context, companyID, poID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipts WHERE company_id=$1 AND purchase_order_id=$2`, companyID, poID).Scan(&count)
	return count, err
}

// SetInvoiceFileURL stores the upload side-channel reference. It is not
// part of the state machine.
func (r *Repository) SetInvoiceFileURL(ctx context.Context, companyID, invoiceID int64, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_invoices SET invoice_file_url=$1, updated_at=NOW() WHERE company_id=$2 AND id=$3`, url, companyID, invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkOverdueInvoices flips pending/partial invoices past their due date
// to overdue across all tenants. Used by the scheduled sweep.
func (r *Repository) MarkOverdueInvoices(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_invoices SET status='overdue', updated_at=NOW()
WHERE status IN ('pending','partial') AND due_date < $1 AND paid_amount < total_amount`, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// List views

// ListFilters narrows list queries.
type ListFilters struct {
	Status     string
	SupplierID int64
	Search     string
	SortBy     string
	SortDir    string
}

// POListItem is the purchase order list row with supplier name joined in.
type POListItem struct {
	ID                   int64
	Number               string
	SupplierID           int64
	SupplierName         string
	WarehouseID          int64
	Status               POStatus
	OrderDate            time.Time
	ExpectedDeliveryDate time.Time
	TotalAmount          float64
	FullyReceived        bool
	CreatedAt            time.Time
}

// GRNListItem is the goods receipt list row.
type GRNListItem struct {
	ID          int64
	Number      string
	POID        int64
	PONumber    string
	Status      GRNStatus
	ReceiptDate time.Time
	TotalAmount float64
	CreatedAt   time.Time
}

// InvoiceListItem is the purchase invoice list row.
type InvoiceListItem struct {
	ID          int64
	Number      string
	POID        int64
	Status      InvoiceStatus
	InvoiceDate time.Time
	DueDate     time.Time
	TotalAmount float64
	PaidAmount  float64
	CreatedAt   time.Time
}

// PaymentListItem is the supplier payment list row.
type PaymentListItem struct {
	ID            int64
	Number        string
	InvoiceID     int64
	InvoiceNumber string
	Amount        float64
	Method        string
	Status        PaymentStatus
	PaymentDate   time.Time
	CreatedAt     time.Time
}

// ListPOs returns purchase orders with supplier name and the derived
// fully-received flag.
func (r *Repository) ListPOs(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]POListItem, int, error) {
	where := ` WHERE p.company_id=$1`
	args := []any{companyID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND p.status=$` + itoa(len(args))
	}
	if filters.SupplierID > 0 {
		args = append(args, filters.SupplierID)
		where += ` AND p.supplier_id=$` + itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND p.number ILIKE $` + itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT p.id, p.number, p.supplier_id, COALESCE(s.name, '') AS supplier_name, p.warehouse_id,
p.status, p.order_date, COALESCE(p.expected_delivery_date, '0001-01-01'::date), p.total_amount,
(EXISTS (SELECT 1 FROM purchase_order_items i WHERE i.purchase_order_id = p.id)
 AND NOT EXISTS (SELECT 1 FROM purchase_order_items i WHERE i.purchase_order_id = p.id AND i.received_quantity < i.quantity)) AS fully_received,
p.created_at
FROM purchase_orders p
LEFT JOIN suppliers s ON s.id = p.supplier_id AND s.company_id = p.company_id` + where +
		` ORDER BY ` + sortOrderPO(filters.SortBy, filters.SortDir) +
		` LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []POListItem
	for rows.Next() {
		var item POListItem
		if err := rows.Scan(&item.ID, &item.Number, &item.SupplierID, &item.SupplierName, &item.WarehouseID,
			&item.Status, &item.OrderDate, &item.ExpectedDeliveryDate, &item.TotalAmount, &item.FullyReceived, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// ListGRNs returns goods receipts with the order number joined in.
func (r *Repository) ListGRNs(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]GRNListItem, int, error) {
	where := ` WHERE g.company_id=$1`
	args := []any{companyID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND g.status=$` + itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND g.number ILIKE $` + itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipts g`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT g.id, g.number, COALESCE(g.purchase_order_id, 0), COALESCE(p.number, '') AS po_number,
g.status, g.receipt_date, g.total_received_amount, g.created_at
FROM goods_receipts g
LEFT JOIN purchase_orders p ON p.id = g.purchase_order_id` + where +
		` ORDER BY g.created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []GRNListItem
	for rows.Next() {
		var item GRNListItem
		if err := rows.Scan(&item.ID, &item.Number, &item.POID, &item.PONumber, &item.Status, &item.ReceiptDate, &item.TotalAmount, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// ListInvoices returns purchase invoices for the tenant.
func (r *Repository) ListInvoices(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]InvoiceListItem, int, error) {
	where := ` WHERE v.company_id=$1`
	args := []any{companyID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND v.status=$` + itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND v.number ILIKE $` + itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_invoices v`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT v.id, v.number, COALESCE(v.purchase_order_id, 0), v.status, v.invoice_date, v.due_date,
v.total_amount, v.paid_amount, v.created_at FROM purchase_invoices v` + where +
		` ORDER BY v.created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []InvoiceListItem
	for rows.Next() {
		var item InvoiceListItem
		if err := rows.Scan(&item.ID, &item.Number, &item.POID, &item.Status, &item.InvoiceDate, &item.DueDate,
			&item.TotalAmount, &item.PaidAmount, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// ListPayments returns supplier payments with the invoice number joined in.
func (r *Repository) ListPayments(ctx context.Context, companyID int64, limit, offset int, filters ListFilters) ([]PaymentListItem, int, error) {
	where := ` WHERE y.company_id=$1`
	args := []any{companyID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND y.status=$` + itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM supplier_payments y`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT y.id, y.number, y.purchase_invoice_id, COALESCE(v.number, '') AS invoice_number,
y.amount, y.method, y.status, y.payment_date, y.created_at
FROM supplier_payments y
LEFT JOIN purchase_invoices v ON v.id = y.purchase_invoice_id` + where +
		` ORDER BY y.created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []PaymentListItem
	for rows.Next() {
		var item PaymentListItem
		if err := rows.Scan(&item.ID, &item.Number, &item.InvoiceID, &item.InvoiceNumber, &item.Amount,
			&item.Method, &item.Status, &item.PaymentDate, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}

func sortOrderPO(sortBy, sortDir string) string {
	dir := "DESC"
	if sortDir == "asc" {
		dir = "ASC"
	}
	switch sortBy {
	case "number":
		return "p.number " + dir
	case "supplier":
		return "supplier_name " + dir
	case "order_date":
		return "p.order_date " + dir
	case "total":
		return "p.total_amount " + dir
	case "status":
		return "p.status " + dir
	default:
		return "p.created_at DESC"
	}
}

// Transactional operations

func (tx *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(company_id, number, supplier_id, warehouse_id, status, order_date, expected_delivery_date, total_amount, notes, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '0001-01-01'::date), $8, $9, $10, NOW(), NOW()) RETURNING id`,
		po.CompanyID, po.Number, po.SupplierID, po.WarehouseID, string(po.Status), po.OrderDate, po.ExpectedDeliveryDate,
		po.TotalAmount, po.Notes, po.CreatedBy).Scan(&id)
	return id, translateErr(err, "purchase order")
}

func (tx *txRepo) InsertPOItem(ctx context.Context, item PurchaseOrderItem) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_order_items
(purchase_order_id, product_id, quantity, unit_price, tax_percentage, line_total, received_quantity)
VALUES ($1, $2, $3, $4, $5, $6, 0) RETURNING id`,
		item.PurchaseOrderID, item.ProductID, item.Quantity, item.UnitPrice, item.TaxPercentage, item.LineTotal).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdatePOHeader(ctx context.Context, po PurchaseOrder) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET supplier_id=$1, warehouse_id=$2, order_date=$3,
expected_delivery_date=NULLIF($4, '0001-01-01'::date), total_amount=$5, notes=$6, updated_at=NOW()
WHERE company_id=$7 AND id=$8 AND status IN ('draft','pending')`,
		po.SupplierID, po.WarehouseID, po.OrderDate, po.ExpectedDeliveryDate, po.TotalAmount, po.Notes, po.CompanyID, po.ID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (tx *txRepo) DeletePOItems(ctx context.Context, companyID, poID int64) error {
	_, err := tx.tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE purchase_order_id=$1
AND EXISTS (SELECT 1 FROM purchase_orders p WHERE p.id=$1 AND p.company_id=$2)`, poID, companyID)
	return err
}

func (tx *txRepo) UpdatePOStatus(ctx context.Context, companyID, id int64, from, to POStatus) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status=$1, updated_at=NOW()
WHERE company_id=$2 AND id=$3 AND status=$4`, string(to), companyID, id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddReceivedQuantity increments the item accumulator only while the
// upper bound holds. Zero rows affected means the bound would break or
// the row moved under a concurrent caller.
func (tx *txRepo) AddReceivedQuantity(ctx context.Context, companyID, itemID int64, delta float64) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_order_items i SET received_quantity = i.received_quantity + $1
FROM purchase_orders p
WHERE i.id=$2 AND p.id = i.purchase_order_id AND p.company_id=$3
AND i.received_quantity + $1 <= i.quantity AND $1 > 0`, delta, itemID, companyID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (tx *txRepo) POItemsFullyReceived(ctx context.Context, companyID, poID int64) (bool, error) {
	var full bool
	err := tx.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_order_items WHERE purchase_order_id=$1)
AND NOT EXISTS (SELECT 1 FROM purchase_order_items WHERE purchase_order_id=$1 AND received_quantity < quantity)
FROM purchase_orders p WHERE p.id=$1 AND p.company_id=$2`, poID, companyID).Scan(&full)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, shared.ErrNotFound
	}
	return full, err
}

func (tx *txRepo) CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO goods_receipts
(company_id, purchase_order_id, number, status, receipt_date, total_received_amount, notes, created_by, created_at, updated_at)
VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		grn.CompanyID, grn.PurchaseOrderID, grn.Number, string(grn.Status), grn.ReceiptDate, grn.TotalReceivedAmount,
		grn.Notes, grn.CreatedBy).Scan(&id)
	return id, translateErr(err, "goods receipt")
}

func (tx *txRepo) InsertGRNItem(ctx context.Context, item GoodsReceiptItem) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO goods_receipt_items
(goods_receipt_id, purchase_order_item_id, product_id, received_quantity, unit_price, tax_percentage)
VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6) RETURNING id`,
		item.GoodsReceiptID, item.PurchaseOrderItemID, item.ProductID, item.ReceivedQuantity, item.UnitPrice, item.TaxPercentage).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateGRNStatus(ctx context.Context, companyID, id int64, from, to GRNStatus) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE goods_receipts SET status=$1, updated_at=NOW()
WHERE company_id=$2 AND id=$3 AND status=$4`, string(to), companyID, id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (tx *txRepo) DeleteGRN(ctx context.Context, companyID, id int64) (bool, error) {
	if _, err := tx.tx.Exec(ctx, `DELETE FROM goods_receipt_items WHERE goods_receipt_id=$1
AND EXISTS (SELECT 1 FROM goods_receipts g WHERE g.id=$1 AND g.company_id=$2 AND g.status='pending')`, id, companyID); err != nil {
		return false, err
	}
	tag, err := tx.tx.Exec(ctx, `DELETE FROM goods_receipts WHERE company_id=$1 AND id=$2 AND status='pending'`, companyID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (tx *txRepo) CountCompletedGRNsForPO(ctx context.Context, companyID, poID int64) (int, error) {
	var count int
	err := tx.tx.QueryRow(ctx, `SELECT COUNT(*) FROM goods_receipts
WHERE company_id=$1 AND purchase_order_id=$2 AND status='completed'`, companyID, poID).Scan(&count)
	return count, err
}

func (tx *txRepo) CreateInvoice(ctx context.Context, inv PurchaseInvoice) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_invoices
(company_id, purchase_order_id, goods_receipt_id, number, status, invoice_date, due_date, subtotal, tax_amount,
discount_amount, total_amount, paid_amount, invoice_file_url, created_by, created_at, updated_at)
VALUES ($1, NULLIF($2, 0), NULLIF($3, 0), $4, $5, $6, $7, $8, $9, $10, $11, 0, NULLIF($12, ''), $13, NOW(), NOW()) RETURNING id`,
		inv.CompanyID, inv.PurchaseOrderID, inv.GoodsReceiptID, inv.Number, string(inv.Status), inv.InvoiceDate, inv.DueDate,
		inv.Subtotal, inv.TaxAmount, inv.DiscountAmount, inv.TotalAmount, inv.FileURL, inv.CreatedBy).Scan(&id)
	return id, translateErr(err, "purchase invoice")
}

func (tx *txRepo) InsertInvoiceItem(ctx context.Context, item PurchaseInvoiceItem) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_invoice_items
(purchase_invoice_id, product_id, quantity, unit_price, tax_percentage, tax_amount, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		item.PurchaseInvoiceID, item.ProductID, item.Quantity, item.UnitPrice, item.TaxPercentage, item.TaxAmount, item.LineTotal).Scan(&id)
	return id, err
}

func (tx *txRepo) GetInvoice(ctx context.Context, companyID, id int64) (PurchaseInvoice, error) {
	inv, err := scanInvoice(tx.tx.QueryRow(ctx, invoiceSelect+` WHERE company_id=$1 AND id=$2`, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseInvoice{}, shared.ErrNotFound
	}
	return inv, err
}

// AddPaidAmount moves the invoice accumulator only while it stays inside
// [0, total_amount] and the invoice is not cancelled. Returns the updated
// row so the caller can re-derive status without a second read.
func (tx *txRepo) AddPaidAmount(ctx context.Context, companyID, invoiceID int64, delta float64) (PurchaseInvoice, bool, error) {
	inv, err := scanInvoice(tx.tx.QueryRow(ctx, `UPDATE purchase_invoices SET paid_amount = ROUND((paid_amount + $1)::numeric, 2), updated_at=NOW()
WHERE company_id=$2 AND id=$3 AND status <> 'cancelled'
AND ROUND((paid_amount + $1)::numeric, 2) >= 0 AND ROUND((paid_amount + $1)::numeric, 2) <= total_amount
RETURNING id, company_id, COALESCE(purchase_order_id, 0), COALESCE(goods_receipt_id, 0), number, status,
invoice_date, due_date, subtotal, tax_amount, discount_amount, total_amount, paid_amount, COALESCE(invoice_file_url, ''),
created_by, created_at, updated_at`, delta, companyID, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseInvoice{}, false, nil
		}
		return PurchaseInvoice{}, false, err
	}
	return inv, true, nil
}

// SetDerivedInvoiceStatus writes a derivation result. cancelled is sticky
// so the predicate excludes it.
func (tx *txRepo) SetDerivedInvoiceStatus(ctx context.Context, companyID, invoiceID int64, status InvoiceStatus) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_invoices SET status=$1, updated_at=NOW()
WHERE company_id=$2 AND id=$3 AND status <> 'cancelled'`, string(status), companyID, invoiceID)
	return err
}

func (tx *txRepo) UpdateInvoiceStatus(ctx context.Context, companyID, id int64, from, to InvoiceStatus) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_invoices SET status=$1, updated_at=NOW()
WHERE company_id=$2 AND id=$3 AND status=$4`, string(to), companyID, id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (tx *txRepo) CreatePayment(ctx context.Context, p SupplierPayment) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO supplier_payments
(company_id, purchase_invoice_id, number, amount, method, status, payment_date, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		p.CompanyID, p.PurchaseInvoiceID, p.Number, p.Amount, p.Method, string(p.Status), p.PaymentDate, p.CreatedBy).Scan(&id)
	return id, translateErr(err, "supplier payment")
}

// UpdatePaymentAmount changes the amount of a payment that is still
// pending. Completed payments are immutable.
func (tx *txRepo) UpdatePaymentAmount(ctx context.Context, companyID, id int64, amount float64) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE supplier_payments SET amount=$1, updated_at=NOW()
WHERE company_id=$2 AND id=$3 AND status='pending'`, amount, companyID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (tx *txRepo) UpdatePaymentStatus(ctx context.Context, companyID, id int64, from, to PaymentStatus) (bool, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE supplier_payments SET status=$1, updated_at=NOW()
WHERE company_id=$2 AND id=$3 AND status=$4`, string(to), companyID, id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
