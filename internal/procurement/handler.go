package procurement

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the procurement lifecycle over REST.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// MountRoutes attaches the procurement endpoints. The router is expected
// to run behind the tenant middleware that sets the operation context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders", func(r chi.Router) {
		r.Post("/", h.createPO)
		r.Get("/", h.listPOs)
		r.Get("/{id}", h.getPO)
		r.Put("/{id}", h.updatePO)
		r.Delete("/{id}", h.cancelPO)
		r.Post("/{id}/submit", h.submitPO)
		r.Post("/{id}/approve", h.approvePO)
	})
	r.Route("/goods-receipts", func(r chi.Router) {
		r.Post("/", h.createGRN)
		r.Get("/", h.listGRNs)
		r.Get("/{id}", h.getGRN)
		r.Delete("/{id}", h.deleteGRN)
		r.Post("/{id}/receive", h.receiveGRN)
		r.Post("/{id}/complete", h.completeGRN)
	})
	r.Route("/purchase-invoices", func(r chi.Router) {
		r.Post("/", h.createInvoice)
		r.Post("/from-grn", h.createInvoiceFromGRN)
		r.Get("/", h.listInvoices)
		r.Get("/{id}", h.getInvoice)
		r.Delete("/{id}", h.cancelInvoice)
		r.Put("/{id}/file", h.attachInvoiceFile)
	})
	r.Route("/supplier-payments", func(r chi.Router) {
		r.Post("/", h.createPayment)
		r.Get("/", h.listPayments)
		r.Get("/{id}", h.getPayment)
		r.Put("/{id}", h.updatePayment)
	})
}

func (h *Handler) operation(w http.ResponseWriter, r *http.Request) (shared.OperationContext, bool) {
	op, ok := shared.OperationFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "authentication required")
		return shared.OperationContext{}, false
	}
	return op, true
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &shared.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

func pageParams(r *http.Request) (limit, offset int, filters ListFilters) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	filters = ListFilters{
		Status: q.Get("status"),
		Search: q.Get("q"),
		SortBy: q.Get("sort"),
	}
	filters.SortDir = q.Get("dir")
	if sid, err := strconv.ParseInt(q.Get("supplier_id"), 10, 64); err == nil {
		filters.SupplierID = sid
	}
	return limit, offset, filters
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Purchase orders

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	var req createPORequest
	if !h.decode(w, r, &req) {
		return
	}
	in := CreatePOInput{
		SupplierID:           req.SupplierID,
		WarehouseID:          req.WarehouseID,
		OrderDate:            deref(req.OrderDate),
		ExpectedDeliveryDate: deref(req.ExpectedDeliveryDate),
		Notes:                req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, POItemInput(it))
	}
	po, items, err := h.svc.CreatePO(r.Context(), op, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPOResponse(po, items))
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	limit, offset, filters := pageParams(r)
	items, total, err := h.svc.ListPOs(r.Context(), op, limit, offset, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, items, err := h.svc.GetPO(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, items))
}

func (h *Handler) updatePO(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createPORequest
	if !h.decode(w, r, &req) {
		return
	}
	in := CreatePOInput{
		SupplierID:           req.SupplierID,
		WarehouseID:          req.WarehouseID,
		OrderDate:            deref(req.OrderDate),
		ExpectedDeliveryDate: deref(req.ExpectedDeliveryDate),
		Notes:                req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, POItemInput(it))
	}
	po, items, err := h.svc.UpdatePO(r.Context(), op, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, items))
}

func (h *Handler) submitPO(w http.ResponseWriter, r *http.Request) {
	h.transitionPO(w, r, h.svc.SubmitPO)
}

func (h *Handler) approvePO(w http.ResponseWriter, r *http.Request) {
	h.transitionPO(w, r, h.svc.ApprovePO)
}

func (h *Handler) cancelPO(w http.ResponseWriter, r *http.Request) {
	h.transitionPO(w, r, h.svc.CancelPO)
}

func (h *Handler) transitionPO(w http.ResponseWriter, r *http.Request, fn func(context.Context, shared.OperationContext, int64) (PurchaseOrder, error)) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := fn(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPOResponse(po, nil))
}

// Goods receipts

func (h *Handler) createGRN(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	var req createGRNRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := CreateGRNInput{
		PurchaseOrderID: req.PurchaseOrderID,
		ReceiptDate:     deref(req.ReceiptDate),
		Notes:           req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, GRNItemInput(it))
	}
	grn, items, err := h.svc.CreateGRN(r.Context(), op, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toGRNResponse(grn, items))
}

func (h *Handler) listGRNs(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	limit, offset, filters := pageParams(r)
	items, total, err := h.svc.ListGRNs(r.Context(), op, limit, offset, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) getGRN(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grn, items, err := h.svc.GetGRN(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toGRNResponse(grn, items))
}

func (h *Handler) receiveGRN(w http.ResponseWriter, r *http.Request) {
	h.transitionGRN(w, r, h.svc.ReceiveGRN)
}

func (h *Handler) completeGRN(w http.ResponseWriter, r *http.Request) {
	h.transitionGRN(w, r, h.svc.CompleteGRN)
}

func (h *Handler) transitionGRN(w http.ResponseWriter, r *http.Request, fn func(context.Context, shared.OperationContext, int64) (GoodsReceipt, error)) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	grn, err := fn(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toGRNResponse(grn, nil))
}

func (h *Handler) deleteGRN(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.svc.DeleteGRN(r.Context(), op, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "goods receipt deleted")
}

// Purchase invoices

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	var req createInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := CreateInvoiceInput{
		PurchaseOrderID: req.PurchaseOrderID,
		InvoiceDate:     deref(req.InvoiceDate),
		DueDate:         req.DueDate,
		DiscountAmount:  req.DiscountAmount,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, InvoiceItemInput(it))
	}
	inv, items, err := h.svc.CreateInvoice(r.Context(), op, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(inv, items))
}

func (h *Handler) createInvoiceFromGRN(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	var req invoiceFromGRNRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, items, err := h.svc.CreateInvoiceFromGRN(r.Context(), op, InvoiceFromGRNInput{
		GoodsReceiptID: req.GoodsReceiptID,
		InvoiceDate:    deref(req.InvoiceDate),
		DueDate:        req.DueDate,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(inv, items))
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	limit, offset, filters := pageParams(r)
	items, total, err := h.svc.ListInvoices(r.Context(), op, limit, offset, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, items, err := h.svc.GetInvoice(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv, items))
}

func (h *Handler) cancelInvoice(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.svc.CancelInvoice(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(inv, nil))
}

func (h *Handler) attachInvoiceFile(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req attachFileRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.AttachInvoiceFile(r.Context(), op, id, req.FileURL); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "file attached")
}

// Supplier payments

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	var req createPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.CreatePayment(r.Context(), op, CreatePaymentInput{
		PurchaseInvoiceID: req.PurchaseInvoiceID,
		Amount:            req.Amount,
		Method:            req.Method,
		PaymentDate:       deref(req.PaymentDate),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	limit, offset, filters := pageParams(r)
	items, total, err := h.svc.ListPayments(r.Context(), op, limit, offset, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.svc.GetPayment(r.Context(), op, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPaymentResponse(p))
}

// updatePayment handles amount edits and status moves in one endpoint:
// amount while pending, status to completed or cancelled.
func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Amount == 0 && req.Status == "" {
		httpx.Fail(w, http.StatusBadRequest, "nothing to update")
		return
	}

	var p SupplierPayment
	if req.Amount > 0 {
		p, err = h.svc.UpdatePaymentAmount(r.Context(), op, id, req.Amount)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	switch req.Status {
	case string(PaymentStatusCompleted):
		p, err = h.svc.CompletePayment(r.Context(), op, id)
	case string(PaymentStatusCancelled):
		p, err = h.svc.CancelPayment(r.Context(), op, id)
	case "":
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPaymentResponse(p))
}
