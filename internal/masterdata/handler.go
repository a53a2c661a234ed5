// Package masterdata exposes supplier, warehouse, and product CRUD.
// Reads are open to any company member; writes require admin.
package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mdshared "github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/suppliers"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/warehouses"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler bundles the masterdata endpoints.
type Handler struct {
	suppliers  *suppliers.Service
	warehouses *warehouses.Service
	products   *products.Service
	log        *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(sup *suppliers.Service, wh *warehouses.Service, prod *products.Service, log *slog.Logger) *Handler {
	return &Handler{suppliers: sup, warehouses: wh, products: prod, log: log}
}

// MountRoutes attaches the masterdata endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.listSuppliers)
		r.Post("/", h.createSupplier)
		r.Get("/{id}", h.getSupplier)
		r.Put("/{id}", h.updateSupplier)
		r.Delete("/{id}", h.deleteSupplier)
	})
	r.Route("/warehouses", func(r chi.Router) {
		r.Get("/", h.listWarehouses)
		r.Post("/", h.createWarehouse)
		r.Get("/{id}", h.getWarehouse)
		r.Put("/{id}", h.updateWarehouse)
		r.Delete("/{id}", h.deleteWarehouse)
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
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

func (h *Handler) adminOperation(w http.ResponseWriter, r *http.Request) (shared.OperationContext, bool) {
	op, ok := h.operation(w, r)
	if !ok {
		return op, false
	}
	if !op.IsAdmin() {
		httpx.Fail(w, http.StatusForbidden, "requires admin role")
		return op, false
	}
	return op, true
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func listFilters(r *http.Request) mdshared.ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return mdshared.ListFilters{
		Search:  q.Get("q"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
		Page:    page,
		Limit:   limit,
	}
}

type page struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// Suppliers

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	items, total, err := h.suppliers.List(r.Context(), op, listFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page{Items: items, Total: total})
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	s, err := h.suppliers.Get(r.Context(), op, pathID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	var s suppliers.Supplier
	if err := httpx.DecodeJSON(r, &s); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.suppliers.Create(r.Context(), op, s)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	var s suppliers.Supplier
	if err := httpx.DecodeJSON(r, &s); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.suppliers.Update(r.Context(), op, pathID(r), s); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "supplier updated")
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	if err := h.suppliers.Delete(r.Context(), op, pathID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "supplier deleted")
}

// Warehouses

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	items, total, err := h.warehouses.List(r.Context(), op, listFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page{Items: items, Total: total})
}

func (h *Handler) getWarehouse(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	wh, err := h.warehouses.Get(r.Context(), op, pathID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, wh)
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	var wh warehouses.Warehouse
	if err := httpx.DecodeJSON(r, &wh); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.warehouses.Create(r.Context(), op, wh)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	var wh warehouses.Warehouse
	if err := httpx.DecodeJSON(r, &wh); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.warehouses.Update(r.Context(), op, pathID(r), wh); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "warehouse updated")
}

func (h *Handler) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	if err := h.warehouses.Delete(r.Context(), op, pathID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "warehouse deleted")
}

// Products

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	items, total, err := h.products.List(r.Context(), op, listFilters(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page{Items: items, Total: total})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), op, pathID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	var p products.Product
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.products.Create(r.Context(), op, p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	var p products.Product
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.products.Update(r.Context(), op, pathID(r), p); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "product updated")
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	op, ok := h.adminOperation(w, r)
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), op, pathID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "product deleted")
}
