package procurement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// memoryRepo implements RepositoryPort and TxRepository in memory with
// the same conditional-update semantics as the SQL layer.
type memoryRepo struct {
	seq      int64
	pos      map[int64]*PurchaseOrder
	poItems  map[int64]*PurchaseOrderItem
	grns     map[int64]*GoodsReceipt
	grnItems map[int64]*GoodsReceiptItem
	invoices map[int64]*PurchaseInvoice
	invItems map[int64]*PurchaseInvoiceItem
	payments map[int64]*SupplierPayment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		pos:      map[int64]*PurchaseOrder{},
		poItems:  map[int64]*PurchaseOrderItem{},
		grns:     map[int64]*GoodsReceipt{},
		grnItems: map[int64]*GoodsReceiptItem{},
		invoices: map[int64]*PurchaseInvoice{},
		invItems: map[int64]*PurchaseInvoiceItem{},
		payments: map[int64]*SupplierPayment{},
	}
}

func (m *memoryRepo) nextID() int64 {
	m.seq++
	return m.seq
}

func (m *memoryRepo) WithTx(_ context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(context.Background(), memoryTxRepo{m})
}

// memoryTxRepo adapts memoryRepo to TxRepository, whose GetInvoice
// signature differs from RepositoryPort's.
type memoryTxRepo struct {
	*memoryRepo
}

func (m memoryTxRepo) GetInvoice(_ context.Context, companyID, id int64) (PurchaseInvoice, error) {
	return m.getInvoiceRow(companyID, id)
}

func (m *memoryRepo) GetPO(_ context.Context, companyID, id int64) (PurchaseOrder, []PurchaseOrderItem, error) {
	po, ok := m.pos[id]
	if !ok || po.CompanyID != companyID {
		return PurchaseOrder{}, nil, shared.ErrNotFound
	}
	var items []PurchaseOrderItem
	for _, it := range m.poItems {
		if it.PurchaseOrderID == id {
			items = append(items, *it)
		}
	}
	return *po, items, nil
}

func (m *memoryRepo) GetGRN(_ context.Context, companyID, id int64) (GoodsReceipt, []GoodsReceiptItem, error) {
	grn, ok := m.grns[id]
	if !ok || grn.CompanyID != companyID {
		return GoodsReceipt{}, nil, shared.ErrNotFound
	}
	var items []GoodsReceiptItem
	for _, it := range m.grnItems {
		if it.GoodsReceiptID == id {
			items = append(items, *it)
		}
	}
	return *grn, items, nil
}

func (m *memoryRepo) GetInvoice(ctx context.Context, companyID, id int64) (PurchaseInvoice, []PurchaseInvoiceItem, error) {
	inv, err := m.getInvoiceRow(companyID, id)
	if err != nil {
		return PurchaseInvoice{}, nil, err
	}
	var items []PurchaseInvoiceItem
	for _, it := range m.invItems {
		if it.PurchaseInvoiceID == id {
			items = append(items, *it)
		}
	}
	return inv, items, nil
}

func (m *memoryRepo) getInvoiceRow(companyID, id int64) (PurchaseInvoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return PurchaseInvoice{}, shared.ErrNotFound
	}
	return *inv, nil
}

func (m *memoryRepo) GetPayment(_ context.Context, companyID, id int64) (SupplierPayment, error) {
	p, ok := m.payments[id]
	if !ok || p.CompanyID != companyID {
		return SupplierPayment{}, shared.ErrNotFound
	}
	return *p, nil
}

func (m *memoryRepo) CountGRNsForPO(_ context.Context, companyID, poID int64) (int, error) {
	count := 0
	for _, g := range m.grns {
		if g.CompanyID == companyID && g.PurchaseOrderID == poID {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) SetInvoiceFileURL(_ context.Context, companyID, invoiceID int64, url string) error {
	inv, ok := m.invoices[invoiceID]
	if !ok || inv.CompanyID != companyID {
		return shared.ErrNotFound
	}
	inv.FileURL = url
	return nil
}

func (m *memoryRepo) ListPOs(_ context.Context, companyID int64, limit, offset int, filters ListFilters) ([]POListItem, int, error) {
	var items []POListItem
	for _, po := range m.pos {
		if po.CompanyID != companyID {
			continue
		}
		if filters.Status != "" && string(po.Status) != filters.Status {
			continue
		}
		items = append(items, POListItem{ID: po.ID, Number: po.Number, Status: po.Status, TotalAmount: po.TotalAmount})
	}
	return items, len(items), nil
}

func (m *memoryRepo) ListGRNs(_ context.Context, companyID int64, limit, offset int, filters ListFilters) ([]GRNListItem, int, error) {
	var items []GRNListItem
	for _, g := range m.grns {
		if g.CompanyID == companyID {
			items = append(items, GRNListItem{ID: g.ID, Number: g.Number, Status: g.Status})
		}
	}
	return items, len(items), nil
}

func (m *memoryRepo) ListInvoices(_ context.Context, companyID int64, limit, offset int, filters ListFilters) ([]InvoiceListItem, int, error) {
	var items []InvoiceListItem
	for _, inv := range m.invoices {
		if inv.CompanyID == companyID {
			items = append(items, InvoiceListItem{ID: inv.ID, Number: inv.Number, Status: inv.Status, TotalAmount: inv.TotalAmount, PaidAmount: inv.PaidAmount})
		}
	}
	return items, len(items), nil
}

func (m *memoryRepo) ListPayments(_ context.Context, companyID int64, limit, offset int, filters ListFilters) ([]PaymentListItem, int, error) {
	var items []PaymentListItem
	for _, p := range m.payments {
		if p.CompanyID == companyID {
			items = append(items, PaymentListItem{ID: p.ID, Number: p.Number, Amount: p.Amount, Status: p.Status})
		}
	}
	return items, len(items), nil
}

func (m *memoryRepo) MarkOverdueInvoices(_ context.Context, asOf time.Time) (int64, error) {
	var n int64
	for _, inv := range m.invoices {
		if (inv.Status == InvoiceStatusPending || inv.Status == InvoiceStatusPartial) &&
			inv.DueDate.Before(asOf) && inv.PaidAmount < inv.TotalAmount {
			inv.Status = InvoiceStatusOverdue
			n++
		}
	}
	return n, nil
}

// TxRepository

func (m *memoryRepo) CreatePO(_ context.Context, po PurchaseOrder) (int64, error) {
	po.ID = m.nextID()
	po.CreatedAt = time.Now()
	po.UpdatedAt = po.CreatedAt
	m.pos[po.ID] = &po
	return po.ID, nil
}

func (m *memoryRepo) InsertPOItem(_ context.Context, item PurchaseOrderItem) (int64, error) {
	item.ID = m.nextID()
	m.poItems[item.ID] = &item
	return item.ID, nil
}

func (m *memoryRepo) UpdatePOHeader(_ context.Context, po PurchaseOrder) (bool, error) {
	cur, ok := m.pos[po.ID]
	if !ok || cur.CompanyID != po.CompanyID {
		return false, nil
	}
	if cur.Status != POStatusDraft && cur.Status != POStatusPending {
		return false, nil
	}
	po.Status = cur.Status
	po.Number = cur.Number
	po.CreatedAt = cur.CreatedAt
	m.pos[po.ID] = &po
	return true, nil
}

func (m *memoryRepo) DeletePOItems(_ context.Context, companyID, poID int64) error {
	for id, it := range m.poItems {
		if it.PurchaseOrderID == poID {
			delete(m.poItems, id)
		}
	}
	return nil
}

func (m *memoryRepo) UpdatePOStatus(_ context.Context, companyID, id int64, from, to POStatus) (bool, error) {
	po, ok := m.pos[id]
	if !ok || po.CompanyID != companyID || po.Status != from {
		return false, nil
	}
	po.Status = to
	return true, nil
}

func (m *memoryRepo) AddReceivedQuantity(_ context.Context, companyID, itemID int64, delta float64) (bool, error) {
	it, ok := m.poItems[itemID]
	if !ok || delta <= 0 {
		return false, nil
	}
	po, ok := m.pos[it.PurchaseOrderID]
	if !ok || po.CompanyID != companyID {
		return false, nil
	}
	if it.ReceivedQuantity+delta > it.Quantity {
		return false, nil
	}
	it.ReceivedQuantity += delta
	return true, nil
}

func (m *memoryRepo) POItemsFullyReceived(_ context.Context, companyID, poID int64) (bool, error) {
	po, ok := m.pos[poID]
	if !ok || po.CompanyID != companyID {
		return false, shared.ErrNotFound
	}
	var items []PurchaseOrderItem
	for _, it := range m.poItems {
		if it.PurchaseOrderID == poID {
			items = append(items, *it)
		}
	}
	return FullyReceived(items), nil
}

func (m *memoryRepo) CreateGRN(_ context.Context, grn GoodsReceipt) (int64, error) {
	grn.ID = m.nextID()
	grn.CreatedAt = time.Now()
	grn.UpdatedAt = grn.CreatedAt
	m.grns[grn.ID] = &grn
	return grn.ID, nil
}

func (m *memoryRepo) InsertGRNItem(_ context.Context, item GoodsReceiptItem) (int64, error) {
	item.ID = m.nextID()
	m.grnItems[item.ID] = &item
	return item.ID, nil
}

func (m *memoryRepo) UpdateGRNStatus(_ context.Context, companyID, id int64, from, to GRNStatus) (bool, error) {
	grn, ok := m.grns[id]
	if !ok || grn.CompanyID != companyID || grn.Status != from {
		return false, nil
	}
	grn.Status = to
	return true, nil
}

func (m *memoryRepo) DeleteGRN(_ context.Context, companyID, id int64) (bool, error) {
	grn, ok := m.grns[id]
	if !ok || grn.CompanyID != companyID || grn.Status != GRNStatusPending {
		return false, nil
	}
	for itemID, it := range m.grnItems {
		if it.GoodsReceiptID == id {
			delete(m.grnItems, itemID)
		}
	}
	delete(m.grns, id)
	return true, nil
}

func (m *memoryRepo) CountCompletedGRNsForPO(_ context.Context, companyID, poID int64) (int, error) {
	count := 0
	for _, g := range m.grns {
		if g.CompanyID == companyID && g.PurchaseOrderID == poID && g.Status == GRNStatusCompleted {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) CreateInvoice(_ context.Context, inv PurchaseInvoice) (int64, error) {
	inv.ID = m.nextID()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryRepo) InsertInvoiceItem(_ context.Context, item PurchaseInvoiceItem) (int64, error) {
	item.ID = m.nextID()
	m.invItems[item.ID] = &item
	return item.ID, nil
}

func (m *memoryRepo) AddPaidAmount(_ context.Context, companyID, invoiceID int64, delta float64) (PurchaseInvoice, bool, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok || inv.CompanyID != companyID || inv.Status == InvoiceStatusCancelled {
		return PurchaseInvoice{}, false, nil
	}
	next := Round2(inv.PaidAmount + delta)
	if next < 0 || next > inv.TotalAmount {
		return PurchaseInvoice{}, false, nil
	}
	inv.PaidAmount = next
	return *inv, true, nil
}

func (m *memoryRepo) SetDerivedInvoiceStatus(_ context.Context, companyID, invoiceID int64, status InvoiceStatus) error {
	inv, ok := m.invoices[invoiceID]
	if !ok || inv.CompanyID != companyID || inv.Status == InvoiceStatusCancelled {
		return nil
	}
	inv.Status = status
	return nil
}

func (m *memoryRepo) UpdateInvoiceStatus(_ context.Context, companyID, id int64, from, to InvoiceStatus) (bool, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.CompanyID != companyID || inv.Status != from {
		return false, nil
	}
	inv.Status = to
	return true, nil
}

func (m *memoryRepo) CreatePayment(_ context.Context, p SupplierPayment) (int64, error) {
	p.ID = m.nextID()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.payments[p.ID] = &p
	return p.ID, nil
}

func (m *memoryRepo) UpdatePaymentAmount(_ context.Context, companyID, id int64, amount float64) (bool, error) {
	p, ok := m.payments[id]
	if !ok || p.CompanyID != companyID || p.Status != PaymentStatusPending {
		return false, nil
	}
	p.Amount = amount
	return true, nil
}

func (m *memoryRepo) UpdatePaymentStatus(_ context.Context, companyID, id int64, from, to PaymentStatus) (bool, error) {
	p, ok := m.payments[id]
	if !ok || p.CompanyID != companyID || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

type memoryAudit struct {
	entries []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type notifyEvent struct {
	CompanyID  int64
	Document   string
	DocumentID int64
	Event      string
}

type memoryNotifier struct {
	events []notifyEvent
}

func (n *memoryNotifier) NotifyDocument(_ context.Context, companyID int64, document string, documentID int64, event string) error {
	n.events = append(n.events, notifyEvent{CompanyID: companyID, Document: document, DocumentID: documentID, Event: event})
	return nil
}

// flakyRepo fails WithTx with a serialization conflict a set number of
// times before delegating to the real repository.
type flakyRepo struct {
	RepositoryPort
	conflicts int
}

func (f *flakyRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if f.conflicts > 0 {
		f.conflicts--
		return &shared.ConcurrencyConflictError{Entity: "purchase invoice"}
	}
	return f.RepositoryPort.WithTx(ctx, fn)
}

var (
	opAdmin     = shared.OperationContext{UserID: 1, CompanyID: 1, Roles: []string{shared.RoleAdmin}}
	opWarehouse = shared.OperationContext{UserID: 2, CompanyID: 1, Roles: []string{shared.RoleWarehouseManager}}
	opAccounts  = shared.OperationContext{UserID: 3, CompanyID: 1, Roles: []string{shared.RoleAccounts}}
	opSales     = shared.OperationContext{UserID: 4, CompanyID: 1, Roles: []string{shared.RoleSales}}
	opTenantTwo = shared.OperationContext{UserID: 9, CompanyID: 2, Roles: []string{shared.RoleAdmin}}
)

func newTestService(t *testing.T) (*Service, *memoryRepo, *memoryAudit, *memoryNotifier) {
	t.Helper()
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	notify := &memoryNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, audit, notify, log), repo, audit, notify
}

func createDraftPO(t *testing.T, svc *Service) (PurchaseOrder, []PurchaseOrderItem) {
	t.Helper()
	po, items, err := svc.CreatePO(context.Background(), opWarehouse, CreatePOInput{
		SupplierID:  10,
		WarehouseID: 20,
		Items: []POItemInput{
			{ProductID: 100, Quantity: 100, UnitPrice: 10},
		},
	})
	require.NoError(t, err)
	return po, items
}

func orderedPO(t *testing.T, svc *Service) (PurchaseOrder, []PurchaseOrderItem) {
	t.Helper()
	po, items := createDraftPO(t, svc)
	_, err := svc.SubmitPO(context.Background(), opWarehouse, po.ID)
	require.NoError(t, err)
	_, err = svc.ApprovePO(context.Background(), opAccounts, po.ID)
	require.NoError(t, err)
	return po, items
}

func completedGRN(t *testing.T, svc *Service, poID int64, items []GRNItemInput) GoodsReceipt {
	t.Helper()
	grn, _, err := svc.CreateGRN(context.Background(), opWarehouse, CreateGRNInput{
		PurchaseOrderID: poID,
		Items:           items,
	})
	require.NoError(t, err)
	_, err = svc.ReceiveGRN(context.Background(), opWarehouse, grn.ID)
	require.NoError(t, err)
	grn, err = svc.CompleteGRN(context.Background(), opAccounts, grn.ID)
	require.NoError(t, err)
	return grn
}

func TestCreatePOValidatesInputAndRoles(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.CreatePO(ctx, opSales, CreatePOInput{SupplierID: 1, WarehouseID: 1, Items: []POItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 1}}})
	var authz *shared.AuthorizationError
	require.ErrorAs(t, err, &authz)

	_, _, err = svc.CreatePO(ctx, opWarehouse, CreatePOInput{SupplierID: 1, WarehouseID: 1})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "items", validation.Field)

	_, _, err = svc.CreatePO(ctx, opWarehouse, CreatePOInput{
		SupplierID: 1, WarehouseID: 1,
		Items: []POItemInput{{ProductID: 1, Quantity: -3, UnitPrice: 1}},
	})
	require.ErrorAs(t, err, &validation)
}

func TestCreatePOComputesLineTotals(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	po, items, err := svc.CreatePO(context.Background(), opWarehouse, CreatePOInput{
		SupplierID:  10,
		WarehouseID: 20,
		Items: []POItemInput{
			{ProductID: 1, Quantity: 10, UnitPrice: 5, TaxPercentage: 10},
			{ProductID: 2, Quantity: 3, UnitPrice: 7},
		},
	})
	require.NoError(t, err)
	require.Equal(t, POStatusDraft, po.Status)
	require.Len(t, items, 2)
	require.Equal(t, 55.0, items[0].LineTotal)
	require.Equal(t, 21.0, items[1].LineTotal)
	require.Equal(t, 76.0, po.TotalAmount)
	require.NotEmpty(t, po.Number)
}

func TestPurchaseOrderApprovalFlow(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, _ := createDraftPO(t, svc)

	// accounts cannot submit
	_, err := svc.SubmitPO(ctx, opAccounts, po.ID)
	var denied *shared.TransitionDeniedError
	require.ErrorAs(t, err, &denied)

	updated, err := svc.SubmitPO(ctx, opWarehouse, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusPending, updated.Status)

	// warehouse manager cannot approve its own submission
	_, err = svc.ApprovePO(ctx, opWarehouse, po.ID)
	require.ErrorAs(t, err, &denied)

	updated, err = svc.ApprovePO(ctx, opAccounts, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusApproved, updated.Status)

	// approved orders cannot be cancelled, even by admin
	_, err = svc.CancelPO(ctx, opAdmin, po.ID)
	require.ErrorAs(t, err, &denied)
}

func TestCancelPendingPOAdminOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, _ := createDraftPO(t, svc)
	_, err := svc.SubmitPO(ctx, opWarehouse, po.ID)
	require.NoError(t, err)

	_, err = svc.CancelPO(ctx, opAccounts, po.ID)
	var denied *shared.TransitionDeniedError
	require.ErrorAs(t, err, &denied)

	updated, err := svc.CancelPO(ctx, opAdmin, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusCancelled, updated.Status)
}

func TestUpdatePOOnlyWhileEditable(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, _ := orderedPO(t, svc)

	_, _, err := svc.UpdatePO(ctx, opAdmin, po.ID, CreatePOInput{
		SupplierID: 10, WarehouseID: 20,
		Items: []POItemInput{{ProductID: 1, Quantity: 5, UnitPrice: 2}},
	})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestFirstReceiptMovesOrderToOrdered(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	_, _, err := svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 40}},
	})
	require.NoError(t, err)

	current, _, err := svc.GetPO(ctx, opWarehouse, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusOrdered, current.Status)
}

func TestCreateGRNRejectsOverReceipt(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	_, _, err := svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 150}},
	})
	var exceeded *shared.QuantityExceededError
	require.ErrorAs(t, err, &exceeded)
	require.Equal(t, 100.0, exceeded.Remaining)
}

func TestCreateGRNRequiresApprovedOrder(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	po, items := createDraftPO(t, svc)

	_, _, err := svc.CreateGRN(context.Background(), opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 10}},
	})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCompleteGRNAccumulatesOnce(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	grn := completedGRN(t, svc, po.ID, []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 40}})
	require.Equal(t, 40.0, repo.poItems[items[0].ID].ReceivedQuantity)

	// a repeated complete reports the fact and never double counts
	_, err := svc.CompleteGRN(ctx, opAccounts, grn.ID)
	var already *shared.AlreadyCompletedError
	require.ErrorAs(t, err, &already)
	require.Equal(t, 40.0, repo.poItems[items[0].ID].ReceivedQuantity)
}

func TestReceiptsAcrossEventsRespectOrderedQuantity(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	completedGRN(t, svc, po.ID, []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 60}})
	completedGRN(t, svc, po.ID, []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 40}})

	_, poItems, err := svc.GetPO(ctx, opWarehouse, po.ID)
	require.NoError(t, err)
	require.True(t, FullyReceived(poItems))

	// fully received order takes no further receipts
	_, _, err = svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 1}},
	})
	var exceeded *shared.QuantityExceededError
	require.ErrorAs(t, err, &exceeded)
	require.Equal(t, 0.0, exceeded.Remaining)
}

func TestCompleteGRNRequiresAccountsRole(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	grn, _, err := svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 10}},
	})
	require.NoError(t, err)
	_, err = svc.ReceiveGRN(ctx, opWarehouse, grn.ID)
	require.NoError(t, err)

	_, err = svc.CompleteGRN(ctx, opWarehouse, grn.ID)
	var denied *shared.TransitionDeniedError
	require.ErrorAs(t, err, &denied)

	_, err = svc.CompleteGRN(ctx, opAdmin, grn.ID)
	require.NoError(t, err)
}

func TestDeleteGRNOnlyWhilePending(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	grn, _, err := svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 10}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteGRN(ctx, opWarehouse, grn.ID))

	grn2 := completedGRN(t, svc, po.ID, []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 10}})
	err = svc.DeleteGRN(ctx, opWarehouse, grn2.ID)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestInvoiceFromGRNRequiresCompletion(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	grn, _, err := svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 40}},
	})
	require.NoError(t, err)

	due := time.Now().Add(30 * 24 * time.Hour)
	_, _, err = svc.CreateInvoiceFromGRN(ctx, opAccounts, InvoiceFromGRNInput{GoodsReceiptID: grn.ID, DueDate: due})
	var notBillable *shared.GRNNotCompletedError
	require.ErrorAs(t, err, &notBillable)

	_, err = svc.ReceiveGRN(ctx, opWarehouse, grn.ID)
	require.NoError(t, err)
	_, err = svc.CompleteGRN(ctx, opAccounts, grn.ID)
	require.NoError(t, err)

	inv, invItems, err := svc.CreateInvoiceFromGRN(ctx, opAccounts, InvoiceFromGRNInput{GoodsReceiptID: grn.ID, DueDate: due})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPending, inv.Status)
	require.Len(t, invItems, 1)
	require.Equal(t, 400.0, inv.TotalAmount)
	require.Equal(t, po.ID, inv.PurchaseOrderID)
	require.Equal(t, grn.ID, inv.GoodsReceiptID)
}

func TestManualInvoiceRequiresAccountsRole(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	due := time.Now().Add(24 * time.Hour)
	_, _, err := svc.CreateInvoice(context.Background(), opWarehouse, CreateInvoiceInput{
		DueDate: due,
		Items:   []InvoiceItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
	})
	var authz *shared.AuthorizationError
	require.ErrorAs(t, err, &authz)
}

func TestInvoicePastDueStartsOverdue(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	inv, _, err := svc.CreateInvoice(context.Background(), opAccounts, CreateInvoiceInput{
		DueDate: time.Now().Add(-48 * time.Hour),
		Items:   []InvoiceItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusOverdue, inv.Status)
}

func newInvoice(t *testing.T, svc *Service, total float64) PurchaseInvoice {
	t.Helper()
	inv, _, err := svc.CreateInvoice(context.Background(), opAccounts, CreateInvoiceInput{
		DueDate: time.Now().Add(30 * 24 * time.Hour),
		Items:   []InvoiceItemInput{{ProductID: 1, Quantity: 1, UnitPrice: total}},
	})
	require.NoError(t, err)
	return inv
}

func TestPaymentLifecycle(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	inv := newInvoice(t, svc, 1000)

	// cash settles immediately
	cash, err := svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 400, Method: PaymentMethodCash,
	})
	require.NoError(t, err)
	require.Equal(t, PaymentStatusCompleted, cash.Status)

	current, _, err := svc.GetInvoice(ctx, opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 400.0, current.PaidAmount)
	require.Equal(t, InvoiceStatusPartial, current.Status)

	// transfer stays pending but still counts toward paid_amount
	transfer, err := svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 600, Method: PaymentMethodTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPending, transfer.Status)

	current, _, err = svc.GetInvoice(ctx, opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 1000.0, current.PaidAmount)
	require.Equal(t, InvoiceStatusPaid, current.Status)

	// fully paid invoice takes no more money
	_, err = svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 1, Method: PaymentMethodCash,
	})
	var over *shared.OverpaymentError
	require.ErrorAs(t, err, &over)
	require.Equal(t, 0.0, over.Remaining)
}

func TestOverpaymentRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	inv := newInvoice(t, svc, 500)

	_, err := svc.CreatePayment(context.Background(), opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 600, Method: PaymentMethodCash,
	})
	var over *shared.OverpaymentError
	require.ErrorAs(t, err, &over)
	require.Equal(t, 500.0, over.Remaining)

	// the failed attempt left nothing behind
	current, _, err := svc.GetInvoice(context.Background(), opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, current.PaidAmount)
	require.Equal(t, InvoiceStatusPending, current.Status)
}

func TestCancelPendingPaymentReleasesAmount(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	inv := newInvoice(t, svc, 1000)

	p, err := svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 1000, Method: PaymentMethodCheque,
	})
	require.NoError(t, err)

	current, _, err := svc.GetInvoice(ctx, opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, current.Status)

	cancelled, err := svc.CancelPayment(ctx, opAccounts, p.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusCancelled, cancelled.Status)

	current, _, err = svc.GetInvoice(ctx, opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, current.PaidAmount)
	require.Equal(t, InvoiceStatusPending, current.Status)
}

func TestCompletedPaymentCannotBeCancelled(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	inv := newInvoice(t, svc, 100)

	p, err := svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 100, Method: PaymentMethodCash,
	})
	require.NoError(t, err)

	_, err = svc.CancelPayment(ctx, opAdmin, p.ID)
	var denied *shared.TransitionDeniedError
	require.ErrorAs(t, err, &denied)
}

func TestUpdatePendingPaymentAmountMovesAccumulator(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	inv := newInvoice(t, svc, 1000)

	p, err := svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 300, Method: PaymentMethodTransfer,
	})
	require.NoError(t, err)

	updated, err := svc.UpdatePaymentAmount(ctx, opAccounts, p.ID, 500)
	require.NoError(t, err)
	require.Equal(t, 500.0, updated.Amount)

	current, _, err := svc.GetInvoice(ctx, opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 500.0, current.PaidAmount)

	// raising beyond the balance is rejected
	_, err = svc.UpdatePaymentAmount(ctx, opAccounts, p.ID, 1100)
	var over *shared.OverpaymentError
	require.ErrorAs(t, err, &over)
}

func TestCancelInvoiceIsSticky(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	inv := newInvoice(t, svc, 1000)

	_, err := svc.CancelInvoice(ctx, opAccounts, inv.ID)
	var denied *shared.TransitionDeniedError
	require.ErrorAs(t, err, &denied)

	cancelled, err := svc.CancelInvoice(ctx, opAdmin, inv.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusCancelled, cancelled.Status)

	// no payment can land on a cancelled invoice
	_, err = svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 10, Method: PaymentMethodCash,
	})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCancelOrderWithReceiptsRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, items := orderedPO(t, svc)

	_, _, err := svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 10}},
	})
	require.NoError(t, err)

	_, err = svc.CancelPO(ctx, opAdmin, po.ID)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestManualInvoiceValidatesAgainstOrder(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, _ := createDraftPO(t, svc)
	due := time.Now().Add(24 * time.Hour)

	// ordered quantity is the bound, not received quantity
	_, _, err := svc.CreateInvoice(ctx, opAccounts, CreateInvoiceInput{
		PurchaseOrderID: po.ID,
		DueDate:         due,
		Items:           []InvoiceItemInput{{ProductID: 100, Quantity: 150, UnitPrice: 10}},
	})
	var exceeded *shared.QuantityExceededError
	require.ErrorAs(t, err, &exceeded)
	require.Equal(t, 100.0, exceeded.Remaining)

	_, _, err = svc.CreateInvoice(ctx, opAccounts, CreateInvoiceInput{
		PurchaseOrderID: po.ID,
		DueDate:         due,
		Items:           []InvoiceItemInput{{ProductID: 999, Quantity: 1, UnitPrice: 10}},
	})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)

	inv, _, err := svc.CreateInvoice(ctx, opAccounts, CreateInvoiceInput{
		PurchaseOrderID: po.ID,
		DueDate:         due,
		Items:           []InvoiceItemInput{{ProductID: 100, Quantity: 50, UnitPrice: 10}},
	})
	require.NoError(t, err)
	require.Equal(t, po.ID, inv.PurchaseOrderID)
	require.Equal(t, 500.0, inv.TotalAmount)
}

func TestCancelPaidInvoiceRejected(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	inv := newInvoice(t, svc, 1000)

	_, err := svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 400, Method: PaymentMethodCash,
	})
	require.NoError(t, err)

	_, err = svc.CancelInvoice(ctx, opAdmin, inv.ID)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCompleteGRNRecordsFullReceipt(t *testing.T) {
	svc, _, audit, _ := newTestService(t)
	po, items := orderedPO(t, svc)
	completedGRN(t, svc, po.ID, []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 100}})

	last := audit.entries[len(audit.entries)-1]
	require.Equal(t, "goods_receipt.complete", last.Action)
	require.Equal(t, true, last.Meta["fully_received"])
}

func TestTenantIsolation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	po, _ := createDraftPO(t, svc)

	_, _, err := svc.GetPO(ctx, opTenantTwo, po.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.SubmitPO(ctx, opTenantTwo, po.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	items, total, err := svc.ListPOs(ctx, opTenantTwo, 50, 0, ListFilters{})
	require.NoError(t, err)
	require.Empty(t, items)
	require.Zero(t, total)
}

func TestMarkOverdueSweep(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	inv, _, err := svc.CreateInvoice(ctx, opAccounts, CreateInvoiceInput{
		DueDate: time.Now().Add(time.Hour),
		Items:   []InvoiceItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	n, err := svc.MarkOverdue(ctx, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, InvoiceStatusOverdue, repo.invoices[inv.ID].Status)
}

func TestAuditTrailRecordsMutations(t *testing.T) {
	svc, _, audit, _ := newTestService(t)
	po, _ := createDraftPO(t, svc)
	_, err := svc.SubmitPO(context.Background(), opWarehouse, po.ID)
	require.NoError(t, err)

	require.Len(t, audit.entries, 2)
	require.Equal(t, "purchase_order.create", audit.entries[0].Action)
	require.Equal(t, "purchase_order.submit", audit.entries[1].Action)
	require.Equal(t, int64(1), audit.entries[0].CompanyID)
}

func TestSerializationConflictRetriedOnce(t *testing.T) {
	repo := newMemoryRepo()
	flaky := &flakyRepo{RepositoryPort: repo}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(flaky, &memoryAudit{}, nil, log)
	ctx := context.Background()

	inv, _, err := svc.CreateInvoice(ctx, opAccounts, CreateInvoiceInput{
		DueDate: time.Now().Add(30 * 24 * time.Hour),
		Items:   []InvoiceItemInput{{ProductID: 1, Quantity: 1, UnitPrice: 1000}},
	})
	require.NoError(t, err)

	// one lost race is absorbed by the retry
	flaky.conflicts = 1
	p, err := svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 400, Method: PaymentMethodCash,
	})
	require.NoError(t, err)
	require.Equal(t, PaymentStatusCompleted, p.Status)

	current, _, err := svc.GetInvoice(ctx, opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 400.0, current.PaidAmount)

	// a second consecutive conflict reaches the caller
	flaky.conflicts = 2
	_, err = svc.CreatePayment(ctx, opAccounts, CreatePaymentInput{
		PurchaseInvoiceID: inv.ID, Amount: 100, Method: PaymentMethodCash,
	})
	var conflict *shared.ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)

	// the failed attempt left nothing behind
	current, _, err = svc.GetInvoice(ctx, opAccounts, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 400.0, current.PaidAmount)
}

func TestLifecycleEventsNotify(t *testing.T) {
	svc, _, _, notify := newTestService(t)
	ctx := context.Background()
	po, items := createDraftPO(t, svc)

	_, err := svc.SubmitPO(ctx, opWarehouse, po.ID)
	require.NoError(t, err)
	require.Len(t, notify.events, 1)
	require.Equal(t, notifyEvent{CompanyID: 1, Document: "purchase_order", DocumentID: po.ID, Event: "submitted"}, notify.events[0])

	_, err = svc.ApprovePO(ctx, opAccounts, po.ID)
	require.NoError(t, err)
	grn, _, err := svc.CreateGRN(ctx, opWarehouse, CreateGRNInput{
		PurchaseOrderID: po.ID,
		Items:           []GRNItemInput{{PurchaseOrderItemID: items[0].ID, Quantity: 10}},
	})
	require.NoError(t, err)
	_, err = svc.ReceiveGRN(ctx, opWarehouse, grn.ID)
	require.NoError(t, err)

	last := notify.events[len(notify.events)-1]
	require.Equal(t, notifyEvent{CompanyID: 1, Document: "goods_receipt", DocumentID: grn.ID, Event: "received"}, last)
}
